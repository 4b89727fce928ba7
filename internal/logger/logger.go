package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
)

// Setup initializes Logrus on a rotating file and returns the writer so the
// HTTP access log can share it.
func Setup(file, level string) io.Writer {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return setupStdout(level, logrus.Fields{"file": file, "error": err.Error()})
	}

	rotator := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // megabytes
		MaxBackups: 7,
		MaxAge:     7, // days
		Compress:   true,
	}

	logrus.SetOutput(io.MultiWriter(os.Stdout, rotator))
	configure(level)
	return rotator
}

// setupStdout is used when the log directory cannot be created.
func setupStdout(level string, fields logrus.Fields) io.Writer {
	logrus.SetOutput(os.Stdout)
	configure(level)
	logrus.WithFields(fields).Warn("cannot create log directory, logging to stdout only")
	return os.Stdout
}

func configure(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		logrus.WithField("level", level).Warn("unknown log level, using info")
	}
	logrus.SetLevel(lvl)
}
