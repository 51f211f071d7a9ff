package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if err := c.Scheduler.validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	return nil
}

func (s *SchedulerConfig) validate() error {
	if s.InitialFactor < 1300 {
		return fmt.Errorf("initial_factor must be >= 1300 (got %d)", s.InitialFactor)
	}
	if s.NewPerDay < 0 {
		return fmt.Errorf("new_per_day must be >= 0 (got %d)", s.NewPerDay)
	}
	if s.LeechFails < 0 {
		return fmt.Errorf("leech_fails must be >= 0 (got %d)", s.LeechFails)
	}
	if s.Ease4 <= 1.0 {
		return fmt.Errorf("ease4 must be > 1.0 (got %v)", s.Ease4)
	}
	if s.ReportLimit <= 0 {
		return fmt.Errorf("report_limit must be > 0 (got %d)", s.ReportLimit)
	}

	steps, err := ParseMinuteSteps(s.NewStepsRaw)
	if err != nil {
		return fmt.Errorf("new_steps: %w", err)
	}
	s.NewSteps = steps

	relearning, err := ParseMinuteSteps(s.RelearningStepsRaw)
	if err != nil {
		return fmt.Errorf("relearning_steps: %w", err)
	}
	s.RelearningSteps = relearning

	ints, err := parseIntList(s.NewIntsRaw)
	if err != nil {
		return fmt.Errorf("new_ints: %w", err)
	}
	if len(ints) != 3 {
		return fmt.Errorf("new_ints must list exactly 3 values (graduate, easy bonus, early remove), got %d", len(ints))
	}
	s.NewInts = [3]int{ints[0], ints[1], ints[2]}

	return nil
}

// ParseMinuteSteps parses a comma-separated list of steps into whole minutes.
// Each step is either a bare minute count ("1,10") or a Go duration
// ("1m,10m"). An empty string returns a nil slice.
func ParseMinuteSteps(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	steps := make([]int, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, err := strconv.Atoi(p); err == nil {
			steps = append(steps, n)
			continue
		}
		d, err := time.ParseDuration(p)
		if err != nil {
			return nil, fmt.Errorf("invalid step %q: %w", p, err)
		}
		steps = append(steps, int(d/time.Minute))
	}

	return steps, nil
}

func parseIntList(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	vals := make([]int, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", p, err)
		}
		vals = append(vals, n)
	}

	return vals, nil
}
