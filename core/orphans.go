package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/PaulFidika/nekokit/identity"
	"github.com/PaulFidika/nekokit/metrics"
)

// SweepOrphans counts rows in cascade tables whose owner no longer exists.
// With remove set, those rows are deleted and the deleted counts returned.
// A failing table does not stop the sweep; its error is joined into the result.
func (s *Service) SweepOrphans(ctx context.Context, remove bool) (map[string]int64, error) {
	log := s.log.WithField("function", "sweep-orphans")
	out := make(map[string]int64, len(identity.CascadeTables))
	var errs []error
	for _, table := range identity.CascadeTables {
		var n int64
		var err error
		if remove {
			n, err = s.users.DeleteOrphans(ctx, table)
		} else {
			n, err = s.users.CountOrphans(ctx, table)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", table, err))
			continue
		}
		out[table] = n
		if remove {
			metrics.OrphanRows.WithLabelValues(table).Set(0)
		} else {
			metrics.OrphanRows.WithLabelValues(table).Set(float64(n))
		}
		if n > 0 {
			log.WithField("table", table).WithField("rows", n).Warn("orphaned rows")
		}
	}
	if len(errs) > 0 {
		return out, persistence("orphan sweep incomplete", errors.Join(errs...))
	}
	return out, nil
}
