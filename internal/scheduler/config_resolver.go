package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mothlight/srscore/internal/domain"
)

// configResolver caches per-group configuration for the lifetime of a
// session (§4.3), invalidated by reset().
type configResolver struct {
	cgw   ConfigGateway
	cache map[uuid.UUID]domain.GroupConfig
}

func newConfigResolver(cgw ConfigGateway) *configResolver {
	return &configResolver{cgw: cgw, cache: make(map[uuid.UUID]domain.GroupConfig)}
}

// reset drops the cache, forcing the next configFor call to refetch.
func (r *configResolver) reset() {
	r.cache = make(map[uuid.UUID]domain.GroupConfig)
}

func (r *configResolver) configFor(ctx context.Context, gid uuid.UUID) (domain.GroupConfig, error) {
	if c, ok := r.cache[gid]; ok {
		return c, nil
	}
	c, err := r.cgw.GroupConfig(ctx, gid)
	if err != nil {
		return domain.GroupConfig{}, fmt.Errorf("group config %s: %w: %v", gid, domain.ErrConfigMissing, err)
	}
	r.cache[gid] = c
	return c, nil
}

// saveNewToday persists an updated per-day new-card budget counter (§4.4).
func (r *configResolver) saveNewToday(ctx context.Context, gid uuid.UUID, nt domain.NewToday) error {
	return r.cgw.SaveNewToday(ctx, gid, nt)
}

// newTodayBudget applies the per-day reset described in §4.4: when the
// stored dayIndex no longer matches today, the used counter resets to zero.
func newTodayBudget(nt domain.NewToday, today int64) domain.NewToday {
	if nt.DayIndex != today {
		return domain.NewToday{DayIndex: today, Used: 0}
	}
	return nt
}

// effectiveNewLimit computes the session's new-card budget (§4.4).
func effectiveNewLimit(reportLimit, newPerDay, used int) int {
	lim := newPerDay - used
	if lim > reportLimit {
		lim = reportLimit
	}
	if lim < 0 {
		lim = 0
	}
	return lim
}
