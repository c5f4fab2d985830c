package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Provider.MaxRecursionLevel)
	assert.Equal(t, 3, cfg.Provider.MaxTimeoutRetries)
	assert.Equal(t, 60*time.Second, cfg.Provider.RetryWait)
	assert.Equal(t, 5, cfg.Provider.CountdownInitial)
	assert.Equal(t, 2, cfg.Provider.CountdownMultiplier)
	assert.Equal(t, "urkund_check_data", cfg.Provider.NotificationPrefix)
	assert.Equal(t, int64(100<<20), cfg.Provider.MaxExtractSize)
	assert.Equal(t, "https://secure.urkund.com/api/", cfg.Urkund.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.Urkund.RequestTimeout)
	assert.Equal(t, "Plagiarism Default Receiver", cfg.Urkund.DefaultReceiverName)
	assert.Empty(t, cfg.ProviderOptions)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("URKUND_UNIT", "42")
	t.Setenv("PROVIDER_MAX_TIMEOUT_RETRIES", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Urkund.Unit)
	assert.Equal(t, 7, cfg.Provider.MaxTimeoutRetries)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Urkund: UrkundConfig{
			User:                 "user",
			Password:             "secret",
			Unit:                 1,
			DefaultEmailReceiver: "noreply@example.org",
		},
		Provider: ProviderConfig{MaxRecursionLevel: 3, CountdownInitial: 5, CountdownMultiplier: 2},
	}
	require.NoError(t, valid.Validate())

	missing := valid
	missing.Urkund.User = ""
	missing.Urkund.SubOrganization = 4
	err := missing.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "urkund.user is required")
	assert.Contains(t, err.Error(), "urkund.sub_organization requires urkund.organization")
}

func TestValidateProviderOptions(t *testing.T) {
	cfg := Config{
		Urkund: UrkundConfig{
			User:                 "user",
			Password:             "secret",
			Unit:                 1,
			DefaultEmailReceiver: "noreply@example.org",
		},
		Provider: ProviderConfig{MaxRecursionLevel: 3, CountdownInitial: 5, CountdownMultiplier: 2},
	}

	tests := []struct {
		name    string
		options map[string]any
		wantErr string
	}{
		{"recursion level", map[string]any{"compression_recursive_extract_level": 0}, "provider.max_recursion_level must be positive"},
		{"countdown initial", map[string]any{"countdown_initial": -1}, "provider countdown settings must be positive"},
		{"countdown multiplier", map[string]any{"countdown_multiplier": float64(0)}, "provider countdown settings must be positive"},
		{"timeout retries", map[string]any{"max_timeout_retries": -2}, "provider.max_timeout_retries must not be negative"},
		{"retry wait", map[string]any{"timeout_between_retries": -5}, "provider.retry_wait must not be negative"},
		{"extract size", map[string]any{"max_extract_size": -1}, "provider.max_extract_size must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := cfg
			bad.ProviderOptions = tt.options

			err := bad.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	cfg.ProviderOptions = map[string]any{"max_recursion_level": 5, "max_extract_size": 1024}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.EffectiveProvider().MaxRecursionLevel)
	assert.Equal(t, int64(1024), cfg.EffectiveProvider().MaxExtractSize)
}

func TestProviderConfigWithOptions(t *testing.T) {
	base := ProviderConfig{
		MaxRecursionLevel:   3,
		MaxTimeoutRetries:   3,
		RetryWait:           time.Minute,
		CountdownInitial:    5,
		CountdownMultiplier: 2,
	}

	got := base.WithOptions(map[string]any{
		"compression_recursive_extract_level": 5,
		"timeout_between_retries":             float64(10),
		"countdown_multiplier":                "three",
		"unknown":                             1,
	})

	assert.Equal(t, 5, got.MaxRecursionLevel)
	assert.Equal(t, 10*time.Second, got.RetryWait)
	assert.Equal(t, 2, got.CountdownMultiplier)
	assert.Equal(t, 3, base.MaxRecursionLevel, "original must stay untouched")
}
