package logx

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestSetupWriter_Filters(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	tests := []struct {
		level string
		line  string
		kept  bool
	}{
		{"info", "[INFO] market is open", true},
		{"info", "[DEBUG] raw response", false},
		{"warn", "[INFO] market is open", false},
		{"warn", "[WARN] AAPL: data unavailable", true},
		{"error", "[WARN] AAPL: data unavailable", false},
		{"error", "[FATAL] load config", true},
		{"debug", "[DEBUG] raw response", true},
		{"info", "untagged line", true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		SetupWriter(tt.level, &buf)
		log.Print(tt.line)
		if got := strings.Contains(buf.String(), tt.line); got != tt.kept {
			t.Errorf("level %s, line %q: kept=%v, want %v", tt.level, tt.line, got, tt.kept)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]int{"DEBUG": levelDebug, "warning": levelWarn, "error": levelError, "": levelInfo, "bogus": levelInfo} {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestSetupWriter_Reconfigure(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	var quiet, loud bytes.Buffer
	SetupWriter("error", &quiet)
	SetupWriter("debug", &loud)
	log.Print("[DEBUG] raw response")
	if quiet.Len() != 0 {
		t.Errorf("replaced writer still received %q", quiet.String())
	}
	if !strings.Contains(loud.String(), "[DEBUG] raw response") {
		t.Errorf("debug line dropped after raising verbosity: %q", loud.String())
	}
}
