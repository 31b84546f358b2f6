package config

import (
	"os"
	"testing"
)

func clearLimitsEnvVars() {
	os.Unsetenv("FLASHCPP_MAX_RECURSION_DEPTH")
	os.Unsetenv("FLASHCPP_LAZY_INSTANTIATION")
}

func TestLoadDefaultValues(t *testing.T) {
	clearLimitsEnvVars()
	defer clearLimitsEnvVars()

	limits, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limits.MaxRecursionDepth != 64 {
		t.Errorf("expected default MaxRecursionDepth 64, got %d", limits.MaxRecursionDepth)
	}
	if limits.LazyInstantiation {
		t.Errorf("expected LazyInstantiation false by default")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearLimitsEnvVars()
	defer clearLimitsEnvVars()

	os.Setenv("FLASHCPP_MAX_RECURSION_DEPTH", "128")
	os.Setenv("FLASHCPP_LAZY_INSTANTIATION", "true")

	limits, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limits.MaxRecursionDepth != 128 {
		t.Errorf("expected MaxRecursionDepth 128, got %d", limits.MaxRecursionDepth)
	}
	if !limits.LazyInstantiation {
		t.Errorf("expected LazyInstantiation true")
	}
}

func TestLoadIgnoresInvalidRecursionDepth(t *testing.T) {
	clearLimitsEnvVars()
	defer clearLimitsEnvVars()

	os.Setenv("FLASHCPP_MAX_RECURSION_DEPTH", "not-a-number")
	limits, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limits.MaxRecursionDepth != 64 {
		t.Errorf("expected invalid override to fall back to default 64, got %d", limits.MaxRecursionDepth)
	}
}

func TestLoadMissingEnvFileIsNotAnError(t *testing.T) {
	clearLimitsEnvVars()
	defer clearLimitsEnvVars()

	if _, err := Load("testdata/does-not-exist.env"); err != nil {
		t.Errorf("expected a missing .env file to be silently ignored, got %v", err)
	}
}

func TestToEngineLimitsRoundTrips(t *testing.T) {
	l := Limits{MaxRecursionDepth: 32, LazyInstantiation: true}
	el := l.ToEngineLimits()
	if el.MaxRecursionDepth != 32 || !el.LazyInstantiation {
		t.Errorf("ToEngineLimits did not round-trip: %+v", el)
	}
}
