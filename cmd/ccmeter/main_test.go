package main

import "testing"

func TestParseCalibrateArgs(t *testing.T) {
	percents, err := parseCalibrateArgs([]string{"50", "--sonnet-pct", "30"})
	if err != nil {
		t.Fatalf("parseCalibrateArgs failed: %v", err)
	}
	if percents["all-models"] != 50 {
		t.Errorf("all-models = %v, want 50", percents["all-models"])
	}
	if percents["sonnet-only"] != 30 {
		t.Errorf("sonnet-only = %v, want 30", percents["sonnet-only"])
	}
}

func TestParseCalibrateArgs_LegacySonnetFlag(t *testing.T) {
	percents, err := parseCalibrateArgs([]string{"50", "--sonnet", "30"})
	if err != nil {
		t.Fatalf("parseCalibrateArgs failed: %v", err)
	}
	if percents["sonnet-only"] != 30 {
		t.Errorf("sonnet-only = %v, want 30", percents["sonnet-only"])
	}
}

func TestParseCalibrateArgs_Invalid(t *testing.T) {
	if _, err := parseCalibrateArgs(nil); err == nil {
		t.Error("Expected usage error for no arguments")
	}
	if _, err := parseCalibrateArgs([]string{"fifty"}); err == nil {
		t.Error("Expected error for non-numeric percentage")
	}
	if _, err := parseCalibrateArgs([]string{"50", "--sonnet-pct", "abc"}); err == nil {
		t.Error("Expected error for non-numeric subset percentage")
	}
}
