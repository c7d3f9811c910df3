// Package txn runs multi-collection writes in a MongoDB transaction when the
// deployment supports one, and falls back to sequential writes when it does
// not (standalone servers used in development).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a transaction on client. If transactions are not
// supported, fn is run once more with ctx and no session.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		log.Debug("transactions unsupported; running without", zap.Error(err))
		return fn(ctx)
	}
	return err
}

// IsNotSupported reports whether err means the server cannot run
// transactions (standalone mongod, unsupported operation inside a
// transaction).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, standalone; OperationNotSupportedInTransaction
			return true
		}
	}
	s := strings.ToLower(err.Error())
	if !strings.Contains(s, "transaction") {
		return false
	}
	return strings.Contains(s, "replica set") ||
		strings.Contains(s, "session") ||
		strings.Contains(s, "not supported") ||
		strings.Contains(s, "illegal operation")
}
