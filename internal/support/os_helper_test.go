package support

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("SKUA_TEST_ENV", "value")
	if got := GetEnv("SKUA_TEST_ENV", "fallback"); got != "value" {
		t.Fatalf("GetEnv returned %s, want value", got)
	}

	if got := GetEnv("SKUA_TEST_ENV_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv returned %s, want fallback", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("SKUA_TEST_BOOL", "true")
	if got := GetEnvBool("SKUA_TEST_BOOL", false); got != true {
		t.Fatalf("GetEnvBool returned %t, want true", got)
	}

	t.Setenv("SKUA_TEST_BOOL", "false")
	if got := GetEnvBool("SKUA_TEST_BOOL", true); got != false {
		t.Fatalf("GetEnvBool returned %t, want false", got)
	}

	if got := GetEnvBool("SKUA_TEST_BOOL_MISSING", true); got != true {
		t.Fatalf("GetEnvBool returned %t, want true fallback", got)
	}
}

func TestGetEnvIntAndFloat(t *testing.T) {
	t.Setenv("SKUA_TEST_INT", "42")
	if got := GetEnvInt("SKUA_TEST_INT", 7); got != 42 {
		t.Fatalf("GetEnvInt returned %d, want 42", got)
	}
	t.Setenv("SKUA_TEST_INT", "not-a-number")
	if got := GetEnvInt("SKUA_TEST_INT", 7); got != 7 {
		t.Fatalf("GetEnvInt returned %d, want fallback 7", got)
	}

	t.Setenv("SKUA_TEST_FLOAT", "1.5")
	if got := GetEnvFloat("SKUA_TEST_FLOAT", 0); got != 1.5 {
		t.Fatalf("GetEnvFloat returned %v, want 1.5", got)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("SKUA_TEST_TIMEOUT", "250")
	if got := GetEnvDuration("SKUA_TEST_TIMEOUT", 100, time.Millisecond); got != 250*time.Millisecond {
		t.Fatalf("GetEnvDuration returned %v, want 250ms", got)
	}
	if got := GetEnvDuration("SKUA_TEST_TIMEOUT_MISSING", 100, time.Millisecond); got != 100*time.Millisecond {
		t.Fatalf("GetEnvDuration returned %v, want fallback 100ms", got)
	}
}
