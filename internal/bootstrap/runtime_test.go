package bootstrap

import (
	"testing"

	"spilledin/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestShouldBootstrapDemo(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		opts Options
		want bool
	}{
		{"nil config", nil, Options{}, false},
		{"development enabled", &config.Config{Env: "development", DevBootstrapDemo: true}, Options{}, true},
		{"development upper case", &config.Config{Env: "DEVELOPMENT", DevBootstrapDemo: true}, Options{}, true},
		{"development disabled", &config.Config{Env: "development"}, Options{}, false},
		{"production never", &config.Config{Env: "production", DevBootstrapDemo: true}, Options{}, false},
		{"skipped by caller", &config.Config{Env: "development", DevBootstrapDemo: true}, Options{SkipDemo: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldBootstrapDemo(tt.cfg, tt.opts))
		})
	}
}
