package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init initializes the structured logger.
func Init() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)
	logrus.Info("Logger initialized")
}

// Configure applies the configured level and, when filename is set, tees
// output into a rotating log file.
func Configure(level, filename string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithError(err).WithField("level", level).Warn("Unknown log level, keeping info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	if filename != "" {
		logrus.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
		}))
	}

	logrus.WithFields(logrus.Fields{"level": lvl.String(), "file": filename}).Info("Logger configured")
}
