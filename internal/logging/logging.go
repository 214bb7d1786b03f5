// Package logging builds the process-wide logrus logger.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr. format is "json" or "text";
// an unknown level falls back to info.
func New(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	return logger
}
