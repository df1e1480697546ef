package util

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// ConfigureLogging applies LOG_LEVEL / LOG_FORMAT style settings to the
// package-level logrus logger. Unknown levels keep the current level.
func ConfigureLogging(level, format string) {
	if lvl := strings.TrimSpace(level); lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			logrus.WithError(err).Warnf("ignoring log level %q", lvl)
		} else {
			logrus.SetLevel(parsed)
		}
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logrus.Warnf("unknown log format %q, using text", format)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
