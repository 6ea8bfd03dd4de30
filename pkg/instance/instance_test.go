package instance

import "testing"

func TestGetIDPrecedence(t *testing.T) {
	t.Setenv(envWorkerID, "")
	t.Setenv(envDyno, "")
	if got := GetID(); got != "worker-0" {
		t.Fatalf("expected default id, got %q", got)
	}

	t.Setenv(envDyno, "cron.1")
	if got := GetID(); got != "cron.1" {
		t.Fatalf("expected dyno id, got %q", got)
	}

	t.Setenv(envWorkerID, "analytics-7")
	if got := GetID(); got != "analytics-7" {
		t.Fatalf("expected explicit worker id, got %q", got)
	}
}
