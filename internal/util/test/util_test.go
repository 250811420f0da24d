package main

import (
	"os"
	"testing"
	"time"

	util "github.com/nadmetry/scorerelay/internal/util"
)

func TestFormatUptime(t *testing.T) {
	cases := []struct {
		dur      time.Duration
		expected string
	}{
		{time.Second * 5, "5 seconds"},
		{time.Second * 65, "1 minute, 5 seconds"},
		{time.Second * 3665, "1 hour, 1 minute, 5 seconds"},
		{time.Second * 3600, "1 hour, 0 minutes, 0 seconds"},
		{time.Second * 60, "1 minute, 0 seconds"},
		{time.Second * 1, "1 second"},
	}
	for _, c := range cases {
		got := util.FormatUptime(c.dur)
		if got != c.expected {
			t.Errorf("FormatUptime(%v) = %q, want %q", c.dur, got, c.expected)
		}
	}
}

func TestPlural(t *testing.T) {
	if util.Plural(1) != "" {
		t.Errorf("Plural(1) = %q, want \"\"", util.Plural(1))
	}
	if util.Plural(2) != "s" {
		t.Errorf("Plural(2) = %q, want \"s\"", util.Plural(2))
	}
	if util.Plural(0) != "s" {
		t.Errorf("Plural(0) = %q, want \"s\"", util.Plural(0))
	}
}

func TestGetEnvDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "2s")
	defer os.Unsetenv("TEST_DURATION")
	if got := util.GetEnvDuration("TEST_DURATION", time.Second); got != 2*time.Second {
		t.Errorf("GetEnvDuration = %v, want 2s", got)
	}
	os.Setenv("TEST_DURATION", "notaduration")
	if got := util.GetEnvDuration("TEST_DURATION", 3*time.Second); got != 3*time.Second {
		t.Errorf("GetEnvDuration fallback = %v, want 3s", got)
	}
	if got := util.GetEnvDuration("TEST_DURATION_MISSING", 4*time.Second); got != 4*time.Second {
		t.Errorf("GetEnvDuration missing = %v, want 4s", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	os.Setenv("TEST_INT", "42")
	defer os.Unsetenv("TEST_INT")
	if got := util.GetEnvInt("TEST_INT", 1); got != 42 {
		t.Errorf("GetEnvInt = %d, want 42", got)
	}
	os.Setenv("TEST_INT", "notanint")
	if got := util.GetEnvInt("TEST_INT", 7); got != 7 {
		t.Errorf("GetEnvInt fallback = %d, want 7", got)
	}
}

func TestGetEnvStr(t *testing.T) {
	os.Setenv("TEST_STR", "value")
	defer os.Unsetenv("TEST_STR")
	if got := util.GetEnvStr("TEST_STR", "fallback"); got != "value" {
		t.Errorf("GetEnvStr = %q, want \"value\"", got)
	}
	if got := util.GetEnvStr("TEST_STR_MISSING", "fallback"); got != "fallback" {
		t.Errorf("GetEnvStr missing = %q, want \"fallback\"", got)
	}
}
