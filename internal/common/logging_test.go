package common

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerWithOutput_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("warn", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("code", "161725").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info entry written at warn level: %s", out)
	}
	if !strings.Contains(out, `"message":"visible"`) || !strings.Contains(out, `"code":"161725"`) {
		t.Errorf("warn entry missing or not JSON: %s", out)
	}
}

func TestParseLevel_UnknownFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("loud", &buf)

	logger.Debug().Msg("debug")
	logger.Info().Msg("info")

	if strings.Contains(buf.String(), `"message":"debug"`) {
		t.Error("debug written for unknown level")
	}
	if !strings.Contains(buf.String(), `"message":"info"`) {
		t.Error("info missing for unknown level")
	}
}

func TestNewLoggerFromConfig_Disabled(t *testing.T) {
	logger := NewLoggerFromConfig(LoggingConfig{Level: "disabled"})
	if logger == nil {
		t.Fatal("expected a logger")
	}
	logger.Error().Msg("discarded")
}
