package vm

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewLogger returns a logger writing to the instance's log directory.
// Every invocation gets a session field so overlapping log files from
// repeated runs stay attributable.
func NewLogger(logDir string) (*logrus.Logger, io.Closer, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(logDir, "qvm.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	log := logrus.New()
	log.SetOutput(f)
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.AddHook(&sessionHook{session: uuid.NewString()[:8]})

	return log, f, nil
}

// NewDiscardLogger returns a logger that drops everything. Used where
// no instance log directory exists yet.
func NewDiscardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type sessionHook struct {
	session string
}

func (h *sessionHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *sessionHook) Fire(entry *logrus.Entry) error {
	entry.Data["session"] = h.session
	return nil
}
