package f1bot

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogging configures the standard logrus logger. When a log directory is
// configured, output is also written to a timestamped file in it, which the
// caller should close on shutdown.
func SetupLogging(config LogConfig) (io.Closer, error) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(config.Level)

	if err != nil {
		return nil, errors.Wrapf(err, "f1bot: invalid log level %q", config.Level)
	}

	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	if config.Dir == "" {
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "f1bot: could not create log directory %s", config.Dir)
	}

	logFile, err := os.Create(filepath.Join(config.Dir, "f1bot_"+time.Now().Format("20060102_150405")+".log"))

	if err != nil {
		return nil, err
	}

	logrus.SetOutput(io.MultiWriter(os.Stdout, logFile))

	return logFile, nil
}
