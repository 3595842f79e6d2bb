package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")
	if log.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level")
	}
	log.Info().Msg("hidden")
	log.Warn().Str("activity_id", "a-1").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered")
	}
	if !strings.Contains(out, `"activity_id":"a-1"`) || !strings.Contains(out, `"service":"activity-engine"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestNewWithWriterBadLevel(t *testing.T) {
	log := NewWithWriter(&bytes.Buffer{}, "loud")
	if log.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback")
	}
}
