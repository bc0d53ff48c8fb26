package log

import (
	"path/filepath"
	"testing"
)

func TestNewRotatingLogger(t *testing.T) {
	logger := New(
		WithFileName(filepath.Join(t.TempDir(), "collagecommit.log")),
		WithLogLevel("debug"),
	)
	logger.Debugf("debug message, now=%d", 1)
	logger.Infof("info message")
	logger.Warnf("warn message")
	logger.Errorf("error message, err=%v", nil)
}

func TestNoopLoggerDiscardsEverything(t *testing.T) {
	logger := NewNoop()
	logger.Debugf("discarded")
	logger.Infof("discarded")
	logger.Warnf("discarded")
	logger.Errorf("discarded")
}
