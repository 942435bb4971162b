package config

import (
	"go.uber.org/zap"
)

// NewLogger builds the production JSON logger at level. An unknown level
// falls back to info.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	return cfg.Build()
}
