package core

import (
	"strings"
	"testing"
	"time"
)

func validManagerConfig() ManagerConfig {
	return ManagerConfig{
		Host:              "localhost",
		TensorBoardBinary: "tensorboard",
		PortLow:           8000,
		PortHigh:          9000,
		PortAttempts:      100,
		StopTimeout:       10 * time.Second,
	}
}

func TestManagerConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate   func(*ManagerConfig)
		wantErrs []string
	}{
		"valid": {
			mutate: func(*ManagerConfig) {},
		},
		"empty host": {
			mutate:   func(c *ManagerConfig) { c.Host = "" },
			wantErrs: []string{"host must not be empty"},
		},
		"empty binary": {
			mutate:   func(c *ManagerConfig) { c.TensorBoardBinary = "" },
			wantErrs: []string{"tensorboard binary path must not be empty"},
		},
		"non-positive port low": {
			mutate:   func(c *ManagerConfig) { c.PortLow = 0 },
			wantErrs: []string{"port range lower bound must be positive"},
		},
		"empty port range": {
			mutate:   func(c *ManagerConfig) { c.PortHigh = c.PortLow },
			wantErrs: []string{"port range [8000, 8000) is empty"},
		},
		"inverted port range": {
			mutate:   func(c *ManagerConfig) { c.PortLow, c.PortHigh = 9000, 8000 },
			wantErrs: []string{"port range [9000, 8000) is empty"},
		},
		"non-positive attempts": {
			mutate:   func(c *ManagerConfig) { c.PortAttempts = 0 },
			wantErrs: []string{"port attempts must be positive"},
		},
		"non-positive stop timeout": {
			mutate:   func(c *ManagerConfig) { c.StopTimeout = 0 },
			wantErrs: []string{"stop timeout must be greater than 0"},
		},
		"multiple violations reported together": {
			mutate: func(c *ManagerConfig) {
				c.Host = ""
				c.PortAttempts = -1
			},
			wantErrs: []string{
				"host must not be empty",
				"port attempts must be positive",
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := validManagerConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if len(tc.wantErrs) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			for _, want := range tc.wantErrs {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() error %q missing %q", err, want)
				}
			}
		})
	}
}
