package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{" warning ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoggerTagsServiceOnEveryLine(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, "catalog-assistant", "info")

	log.Info("startup", "port", "8080")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if line["service"] != "catalog-assistant" {
		t.Fatalf("expected service tag, got %+v", line)
	}
	if line["port"] != "8080" {
		t.Fatalf("expected port attribute, got %+v", line)
	}
}

func TestLoggerSuppressesBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, "catalog-assistant", "error")

	log.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info line must be suppressed at error level: %s", buf.String())
	}
	log.Error("loud")
	if buf.Len() == 0 {
		t.Fatalf("error line must be emitted at error level")
	}
}
