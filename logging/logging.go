package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	LogFileName            = "rosteleop.log"
	DefaultTimestampFormat = "2006/01/02 15:04:05.000000"
)

// New creates a logger writing to console and, when logDir is set, to
// logDir/rosteleop.log. A nil console sends output to the file only, which
// the terminal UI uses so log lines do not tear its screen.
func New(logLevel, logDir string, console io.Writer) (*logrus.Logger, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	l.SetFormatter(&SimpleFormatter{TimestampFormat: DefaultTimestampFormat})

	writers := make([]io.Writer, 0, 2)
	if console != nil {
		writers = append(writers, console)
	}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory '%s': %w", logDir, err)
		}
		logFilePath := filepath.Join(logDir, LogFileName)
		logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file '%s': %w", logFilePath, err)
		}
		writers = append(writers, logFile)
	}

	switch len(writers) {
	case 0:
		l.SetOutput(io.Discard)
	case 1:
		l.SetOutput(writers[0])
	default:
		l.SetOutput(io.MultiWriter(writers...))
	}
	return l, nil
}

// Quiet returns a logger that discards everything.
func Quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SimpleFormatter writes one line per entry:
// 2025/04/06 17:30:00.000000 [INF] Connected endpoint=ws://robot:9090
type SimpleFormatter struct {
	TimestampFormat string
}

func (f *SimpleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = DefaultTimestampFormat
	}

	b.WriteString(entry.Time.Format(timestampFormat))
	b.WriteString(" ")

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 3 {
		level = level[:3]
	}
	fmt.Fprintf(b, "[%s] ", level)

	b.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			value := fmt.Sprint(entry.Data[k])
			if strings.ContainsAny(value, " \t\n\"") {
				value = fmt.Sprintf("%q", value)
			}
			fmt.Fprintf(b, " %s=%s", k, value)
		}
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}
