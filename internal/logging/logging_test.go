package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
)

func TestSetupWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	closer, err := Setup(dir, "info")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	engine := Component("engine")
	engine.Info().Str("label", "alice").Msg("Door unlocked")
	log.Debug().Msg("filtered out")
	closer.Close()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"component":"engine"`) || !strings.Contains(out, "Door unlocked") {
		t.Errorf("Log file missing entry, got %q", out)
	}
	if strings.Contains(out, "filtered out") {
		t.Error("Debug entry written at info level")
	}
}

func TestSetupRejectsBadLevel(t *testing.T) {
	if _, err := Setup("", "loud"); err == nil {
		t.Fatal("Expected error for unknown level")
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)
	logger.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"time":`) {
		t.Errorf("Expected timestamp field, got %q", buf.String())
	}
}
