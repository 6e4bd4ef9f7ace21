package config

import (
	"go.uber.org/zap"
)

// NewLogger builds the process logger: human-readable development output
// for APP_ENV=dev, JSON production output otherwise.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "dev" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.InitialFields = map[string]interface{}{"env": env}
	return cfg.Build()
}
