package services

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type named string

func (n named) ID() string { return string(n) }

func TestServiceLoggerLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	if got := LevelEnvKey("engine-service"); got != "LOG_LEVEL_ENGINE_SERVICE" {
		t.Fatalf("LevelEnvKey = %s", got)
	}

	t.Setenv("LOG_LEVEL_ENGINE_SERVICE", "warn")
	quiet := NewServiceLogger(named("engine-service"))
	quiet.Info().Msg("hidden")
	quiet.Warn().Msg("shown")

	loud := NewServiceLogger(named("http-service"))
	loud.Info().Msg("http info")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info event logged despite warn override: %s", out)
	}
	if !strings.Contains(out, `"service":"engine-service"`) || !strings.Contains(out, "shown") {
		t.Errorf("warn event missing: %s", out)
	}
	if !strings.Contains(out, "http info") {
		t.Errorf("service without override filtered: %s", out)
	}
}
