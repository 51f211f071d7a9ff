package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validEnv sets the minimum required env vars for a valid config.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/testdb")
}

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
database:
  dsn: "postgres://u:p@localhost:5432/testdb"
  max_conns: 10
  min_conns: 2

log:
  level: "debug"
  format: "text"

scheduler:
  deck_creation_epoch: 1609459200
  new_steps: "1m,10m"
  relearning_steps: "10m"
  new_ints: "1,4,7"
  initial_factor: 2500
  new_per_day: 20
  lapse_mult: 0
  relearn: true
  leech_fails: 8
  ease4: 1.3
  min_space: 1
  fuzz: 0.05
  max_taken: "60s"
  collapse_time: "20m"
  report_limit: 1000
`

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Database
	if cfg.Database.DSN != "postgres://u:p@localhost:5432/testdb" {
		t.Errorf("database.dsn = %q", cfg.Database.DSN)
	}
	if cfg.Database.MaxConns != 10 {
		t.Errorf("database.max_conns = %d, want 10", cfg.Database.MaxConns)
	}

	// Log
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("log.format = %q, want %q", cfg.Log.Format, "text")
	}

	// Scheduler
	if cfg.Scheduler.InitialFactor != 2500 {
		t.Errorf("scheduler.initial_factor = %d, want 2500", cfg.Scheduler.InitialFactor)
	}
	if cfg.Scheduler.NewPerDay != 20 {
		t.Errorf("scheduler.new_per_day = %d, want 20", cfg.Scheduler.NewPerDay)
	}
	if cfg.Scheduler.MaxTaken != 60*time.Second {
		t.Errorf("scheduler.max_taken = %v, want 60s", cfg.Scheduler.MaxTaken)
	}
	if cfg.Scheduler.CollapseTime != 20*time.Minute {
		t.Errorf("scheduler.collapse_time = %v, want 20m", cfg.Scheduler.CollapseTime)
	}
	if len(cfg.Scheduler.NewSteps) != 2 || cfg.Scheduler.NewSteps[0] != 1 || cfg.Scheduler.NewSteps[1] != 10 {
		t.Errorf("scheduler.new_steps parsed = %v, want [1 10]", cfg.Scheduler.NewSteps)
	}
	if len(cfg.Scheduler.RelearningSteps) != 1 || cfg.Scheduler.RelearningSteps[0] != 10 {
		t.Errorf("scheduler.relearning_steps parsed = %v, want [10]", cfg.Scheduler.RelearningSteps)
	}
	if cfg.Scheduler.NewInts != [3]int{1, 4, 7} {
		t.Errorf("scheduler.new_ints parsed = %v, want [1 4 7]", cfg.Scheduler.NewInts)
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want %q (ENV override)", cfg.Log.Level, "warn")
	}
}

func TestLoad_NoFile_ENVOnly(t *testing.T) {
	validEnv(t)

	t.Setenv("CONFIG_PATH", "")
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Scheduler.InitialFactor != 2500 {
		t.Errorf("scheduler.initial_factor = %d, want default 2500", cfg.Scheduler.InitialFactor)
	}
	if cfg.Scheduler.NewPerDay != 20 {
		t.Errorf("scheduler.new_per_day = %d, want default 20", cfg.Scheduler.NewPerDay)
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, `{{{invalid yaml`)
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_MissingDSN(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DATABASE_DSN", "")
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatal("expected error when database.dsn is not set")
	}
}

func TestValidate_InitialFactorTooLow(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.InitialFactor = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for initial_factor below 1300")
	}
}

func TestValidate_NewPerDayNegative(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.NewPerDay = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative new_per_day")
	}
}

func TestValidate_LeechFailsNegative(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.LeechFails = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative leech_fails")
	}
}

func TestValidate_Ease4TooLow(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.Ease4 = 1.0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for ease4 <= 1.0")
	}
}

func TestValidate_ReportLimitZero(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.ReportLimit = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for report_limit = 0")
	}
}

func TestValidate_NewIntsWrongLength(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.NewIntsRaw = "1,4"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when new_ints does not list exactly 3 values")
	}
}

func TestValidate_MissingDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Database.DSN = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty database.dsn")
	}
}

func TestParseMinuteSteps_Valid(t *testing.T) {
	steps, err := ParseMinuteSteps("1,10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("len = %d, want 2", len(steps))
	}
	if steps[0] != 1 || steps[1] != 10 {
		t.Errorf("steps = %v, want [1 10]", steps)
	}
}

func TestParseMinuteSteps_WithSpaces(t *testing.T) {
	steps, err := ParseMinuteSteps(" 1 , 10 , 60 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("len = %d, want 3", len(steps))
	}
	if steps[2] != 60 {
		t.Errorf("[2] = %v, want 60", steps[2])
	}
}

func TestParseMinuteSteps_Empty(t *testing.T) {
	steps, err := ParseMinuteSteps("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if steps != nil {
		t.Errorf("expected nil, got %v", steps)
	}
}

func TestParseMinuteSteps_InvalidFormat(t *testing.T) {
	_, err := ParseMinuteSteps("1,invalid,10")
	if err == nil {
		t.Fatal("expected error for invalid integer")
	}
}

func TestParseMinuteSteps_SingleStep(t *testing.T) {
	steps, err := ParseMinuteSteps("5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 || steps[0] != 5 {
		t.Errorf("steps = %v, want [5]", steps)
	}
}

// validConfig returns a Config that passes all validation checks.
func validConfig() Config {
	return Config{
		Database: DatabaseConfig{
			DSN: "postgres://u:p@localhost:5432/testdb",
		},
		Scheduler: SchedulerConfig{
			NewStepsRaw:        "1m,10m",
			RelearningStepsRaw: "10m",
			NewIntsRaw:         "1,4,7",
			InitialFactor:      2500,
			NewPerDay:          20,
			LeechFails:         8,
			Ease4:              1.3,
			ReportLimit:        1000,
		},
	}
}
