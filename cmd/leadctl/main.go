package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.WithError(err).Error("leadctl failed")
		os.Exit(1)
	}
}
