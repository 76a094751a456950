package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestSimpleFormatter(t *testing.T) {
	f := &SimpleFormatter{}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2025, 4, 6, 17, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "Outbox full",
		Data: logrus.Fields{
			"op":    "publish",
			"error": errors.New("buffer full"),
		},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	want := "2025/04/06 17:30:00.000000 [WAR] Outbox full error=\"buffer full\" op=publish\n"
	if string(out) != want {
		t.Errorf("Expected %q, got %q", want, out)
	}
}

func TestNew_ConsoleAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer

	l, err := New("debug", dir, &console)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if l.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %s", l.GetLevel())
	}

	l.WithField("topic", "/robot_pose").Info("Subscribed")

	if !strings.Contains(console.String(), "[INF] Subscribed topic=/robot_pose") {
		t.Errorf("Unexpected console output %q", console.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "Subscribed") {
		t.Errorf("Expected log file to contain entry, got %q", data)
	}
}

func TestNew_BadLevelDefaultsToInfo(t *testing.T) {
	l, err := New("chatty", "", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("Expected info level, got %s", l.GetLevel())
	}
}
