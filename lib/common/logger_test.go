package common

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("conn", &buf, logger.INFO)

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Warningf("warned")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("Debug line written at INFO: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "INFO  | conn         | shown 2") {
		t.Errorf("Unexpected info line: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "WARN  | conn") {
		t.Errorf("Missing warn line: %q", buf.String())
	}

	buf.Reset()
	l.SetLevel(logger.ERROR)
	l.Warningf("quiet")
	l.Errorf("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "ERROR | conn") {
		t.Errorf("Unexpected output at ERROR: %q", buf.String())
	}
}

func TestLoggerPanicf(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("lockmgr", &buf, logger.ERROR)

	defer func() {
		r := recover()
		if r != "broken 7" {
			t.Errorf("Expected panic with message, got %v", r)
		}
		if !strings.Contains(buf.String(), "CRIT  | lockmgr") {
			t.Errorf("Panic not logged: %q", buf.String())
		}
	}()
	l.Panicf("broken %d", 7)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
	if err := InitLoggers("loud"); err == nil {
		t.Error("Expected InitLoggers to reject an unknown level")
	}
}

func TestInitLoggersTwice(t *testing.T) {
	for _, level := range []string{"error", "debug"} {
		if err := InitLoggers(level); err != nil {
			t.Fatalf("InitLoggers(%q) failed: %v", level, err)
		}
	}
}
