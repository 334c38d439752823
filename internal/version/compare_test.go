package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		engineVersion string
		configVersion string
		expectError   bool
		errorContains string
	}{
		{name: "exact match", engineVersion: "1.2.0", configVersion: "1.2.0"},
		{name: "engine patch higher", engineVersion: "1.2.3", configVersion: "1.2.0"},
		{name: "engine minor higher", engineVersion: "1.4.0", configVersion: "1.2.0"},
		{name: "empty config version", engineVersion: "1.0.0", configVersion: ""},
		{name: "engine is main", engineVersion: "main", configVersion: "9.9.9"},
		{name: "config is main", engineVersion: "1.0.0", configVersion: "main"},
		{name: "v prefix on both", engineVersion: "v1.2.0", configVersion: "v1.2.0"},
		{name: "prerelease engine", engineVersion: "1.2.0-rc1", configVersion: "1.2.0"},
		{
			name:          "engine minor lower",
			engineVersion: "1.1.0",
			configVersion: "1.2.0",
			expectError:   true,
			errorContains: "older than config version",
		},
		{
			name:          "engine patch lower",
			engineVersion: "1.2.0",
			configVersion: "1.2.1",
			expectError:   true,
			errorContains: "older than config version",
		},
		{
			name:          "major version differs",
			engineVersion: "2.0.0",
			configVersion: "1.2.0",
			expectError:   true,
			errorContains: "major version mismatch",
		},
		{
			name:          "invalid engine version",
			engineVersion: "not-a-version",
			configVersion: "1.0.0",
			expectError:   true,
			errorContains: "invalid engine version",
		},
		{
			name:          "invalid config version",
			engineVersion: "1.0.0",
			configVersion: "one",
			expectError:   true,
			errorContains: "invalid config version",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckConfigCompatibility(tc.engineVersion, tc.configVersion)
			if tc.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errorContains)

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
