// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work, then closes the broker and MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var errs []error

	if svc := deps.svc; svc != nil {
		if svc.Scheduler != nil {
			if err := svc.Scheduler.Stop(ctx); err != nil {
				logger.Warn("scheduler stop", zap.Error(err))
				errs = append(errs, err)
			}
		}
		if svc.Limiter != nil {
			svc.Limiter.Stop()
		}
		if svc.stopHub != nil {
			svc.stopHub()
			select {
			case <-svc.hubDone:
			case <-ctx.Done():
			}
		}
	}

	if deps.Hub != nil {
		if err := deps.Hub.Close(); err != nil {
			logger.Warn("realtime broker close", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
