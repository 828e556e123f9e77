package config

import (
	"testing"
	"time"
)

// TestNormalizeDefaults fills sane values for everything the file left unset.
func TestNormalizeDefaults(t *testing.T) {
	c := &Config{}
	c.normalize()

	if c.Server.Port != 8084 {
		t.Fatalf("Server.Port = %d, want 8084", c.Server.Port)
	}
	if c.Whisper.Device != "auto" {
		t.Fatalf("Whisper.Device = %q, want auto", c.Whisper.Device)
	}
	if c.Worker.LoopCount != 1 {
		t.Fatalf("Worker.LoopCount = %d, want 1", c.Worker.LoopCount)
	}
	if c.Retry.BaseDelay != time.Minute || c.Retry.MaxDelay != 5*time.Minute || c.Retry.MaxAttempts != 3 {
		t.Fatalf("Retry = %+v, want 1m/5m/3", c.Retry)
	}
	if c.Entitlement.DefaultPlan != "free" {
		t.Fatalf("DefaultPlan = %q, want free", c.Entitlement.DefaultPlan)
	}
	if _, ok := c.Entitlement.Plans["enterprise"]; !ok {
		t.Fatal("default plan table missing enterprise")
	}
}

// TestNormalizeHardLimitAboveSoft keeps the hard time limit strictly above
// the soft one even when misconfigured.
func TestNormalizeHardLimitAboveSoft(t *testing.T) {
	c := &Config{}
	c.Worker.SoftTimeLimit = 30 * time.Minute
	c.Worker.HardTimeLimit = 10 * time.Minute // inverted on purpose
	c.normalize()

	if c.Worker.HardTimeLimit <= c.Worker.SoftTimeLimit {
		t.Fatalf("HardTimeLimit = %v, want > SoftTimeLimit %v", c.Worker.HardTimeLimit, c.Worker.SoftTimeLimit)
	}
}

// TestNormalizeStuckThresholdAboveHardLimit raises a stuck threshold that sits
// inside the hard time limit so the sweeper cannot re-open live jobs.
func TestNormalizeStuckThresholdAboveHardLimit(t *testing.T) {
	c := &Config{}
	c.Worker.SoftTimeLimit = time.Hour
	c.Worker.HardTimeLimit = 65 * time.Minute
	c.Worker.StuckThreshold = 20 * time.Minute // below the hard limit on purpose
	c.normalize()

	if c.Worker.StuckThreshold <= c.Worker.HardTimeLimit {
		t.Fatalf("StuckThreshold = %v, want > HardTimeLimit %v", c.Worker.StuckThreshold, c.Worker.HardTimeLimit)
	}
}

// TestNormalizeKeepsExplicitValues leaves configured values alone.
func TestNormalizeKeepsExplicitValues(t *testing.T) {
	c := &Config{}
	c.Server.Port = 9090
	c.Whisper.PythonPath = "/opt/venv/bin/python"
	c.Retry.MaxAttempts = 7
	c.normalize()

	if c.Server.Port != 9090 || c.Whisper.PythonPath != "/opt/venv/bin/python" || c.Retry.MaxAttempts != 7 {
		t.Fatalf("explicit values overwritten: %+v", c)
	}
}
