// Package logging builds the zap loggers handed to the stand components.
package logging

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/itohio/gostand/pkg/config"
)

// New returns a development logger when cfg.Debug is set and a production
// logger otherwise.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)

	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("can't initialize zap logger: %w", err)
	}

	return logger, nil
}
