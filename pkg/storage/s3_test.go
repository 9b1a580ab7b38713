package storage

import (
	"testing"
	"time"
)

func TestExportKey(t *testing.T) {
	got := ExportKey("s1", "e1")
	if got != "exports/s1/e1.json" {
		t.Errorf("ExportKey = %q", got)
	}
}

func TestPresignExpire(t *testing.T) {
	if presignExpire(0) != 15*time.Minute {
		t.Error("zero should default to 15 minutes")
	}
	if presignExpire(5) != 5*time.Minute {
		t.Error("expected 5 minutes")
	}
}
