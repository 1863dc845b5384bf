package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	ctx := logg.WithUserID(context.Background(), "usr_1")
	ctx = logg.WithField(ctx, "plan", "pro")
	logg.Info(ctx, "upgrade applied")

	line := buf.String()
	if !strings.Contains(line, `"user_id":"usr_1"`) {
		t.Fatalf("expected user_id in output, got %s", line)
	}
	if !strings.Contains(line, `"plan":"pro"`) {
		t.Fatalf("expected plan field in output, got %s", line)
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if ParseLevel("nonsense") != ParseLevel("info") {
		t.Fatalf("expected fallback to info level")
	}
}
