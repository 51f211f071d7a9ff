package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// SchedulerConfig holds default group scheduling parameters (§4.1, §4.3).
// The application reads DeckCreationEpoch, to anchor day boundaries, and
// MaxTaken; the other fields are parsed and validated only, and nothing
// writes them into group_configs rows.
type SchedulerConfig struct {
	DeckCreationEpoch int64 `yaml:"deck_creation_epoch" env:"SCHED_DECK_CREATION_EPOCH" env-default:"0"`

	NewStepsRaw        string `yaml:"new_steps"         env:"SCHED_NEW_STEPS"         env-default:"1m,10m"`
	RelearningStepsRaw string `yaml:"relearning_steps"  env:"SCHED_RELEARNING_STEPS"  env-default:"10m"`
	NewIntsRaw         string `yaml:"new_ints"          env:"SCHED_NEW_INTS"          env-default:"1,4,7"`

	InitialFactor int `yaml:"initial_factor" env:"SCHED_INITIAL_FACTOR" env-default:"2500"`
	NewPerDay     int `yaml:"new_per_day"    env:"SCHED_NEW_PER_DAY"    env-default:"20"`

	LapseMult  float64 `yaml:"lapse_mult"  env:"SCHED_LAPSE_MULT"  env-default:"0"`
	Relearn    bool    `yaml:"relearn"     env:"SCHED_RELEARN"     env-default:"true"`
	LeechFails int     `yaml:"leech_fails" env:"SCHED_LEECH_FAILS" env-default:"8"`

	Ease4        float64       `yaml:"ease4"         env:"SCHED_EASE4"         env-default:"1.3"`
	MinSpace     int           `yaml:"min_space"     env:"SCHED_MIN_SPACE"     env-default:"1"`
	Fuzz         float64       `yaml:"fuzz"          env:"SCHED_FUZZ"          env-default:"0.05"`
	MaxTaken     time.Duration `yaml:"max_taken"     env:"SCHED_MAX_TAKEN"     env-default:"60s"`
	CollapseTime time.Duration `yaml:"collapse_time" env:"SCHED_COLLAPSE_TIME" env-default:"20m"`
	ReportLimit  int           `yaml:"report_limit"  env:"SCHED_REPORT_LIMIT"  env-default:"1000"`

	// NewSteps is parsed from NewStepsRaw during validation, in minutes.
	NewSteps []int `yaml:"-" env:"-"`
	// RelearningSteps is parsed from RelearningStepsRaw during validation, in minutes.
	RelearningSteps []int `yaml:"-" env:"-"`
	// NewInts is parsed from NewIntsRaw during validation: [graduate, firstBonus, earlyRemove] days.
	NewInts [3]int `yaml:"-" env:"-"`
}
