// internal/app/features/fooditems/days.go
package fooditems

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dalemusser/larder/internal/app/system/httperr"
)

// MaxAlertDays is the largest threshold a user may ask about.
const MaxAlertDays = 30

// parseDays parses a comma-separated list of day thresholds. An empty
// string returns nil.
func parseDays(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	seen := map[int]bool{}
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > MaxAlertDays {
			return nil, httperr.BadRequest("days must be integers between 0 and 30")
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out, nil
}
