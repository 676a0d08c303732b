package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "automation/pkg/errors"
)

func packagedLike() *AutomationConfig {
	return &AutomationConfig{
		Application: &ApplicationConfig{
			BaseAPI:     "https://fakerestapi.azurewebsites.net",
			Environment: EnvironmentLocal,
		},
		Execution: &ExecutionConfig{
			Retry:        2,
			Threads:      4,
			RetryHooks:   true,
			RetryBackoff: BackoffConstant,
		},
	}
}

func TestResolveOverridePrecedence(t *testing.T) {
	cfg := packagedLike()
	src := MapSource{
		"application.baseApi":     "https://staging.example.com",
		"execution.retry":         "5",
		"execution.retryHooks":    "FALSE",
		"application.environment": "staging",
	}

	require.NoError(t, NewResolver(src).Resolve(cfg, ""))

	assert.Equal(t, "https://staging.example.com", cfg.Application.BaseAPI)
	assert.Equal(t, 5, cfg.Execution.Retry)
	assert.False(t, cfg.Execution.RetryHooks)
	assert.Equal(t, EnvironmentStaging, cfg.Application.Environment)
	// Untouched leaves keep their loaded defaults
	assert.Equal(t, 4, cfg.Execution.Threads)
	assert.Equal(t, BackoffConstant, cfg.Execution.RetryBackoff)
}

func TestResolveIsIdempotent(t *testing.T) {
	src := MapSource{
		"execution.retry":                 "7",
		"application.http.timeoutSeconds": "12",
		"logging.level":                   "DEBUG",
	}

	cfg := packagedLike()
	require.NoError(t, NewResolver(src).Resolve(cfg, ""))
	first := Describe(cfg, "")

	require.NoError(t, NewResolver(src).Resolve(cfg, ""))
	second := Describe(cfg, "")

	assert.Equal(t, first, second)
}

func TestResolveNestedDescent(t *testing.T) {
	cfg := &AutomationConfig{Application: &ApplicationConfig{}}
	require.Nil(t, cfg.Application.HTTP)

	src := MapSource{"application.http.timeoutSeconds": "45"}
	require.NoError(t, NewResolver(src).Resolve(cfg, ""))

	require.NotNil(t, cfg.Application.HTTP)
	assert.Equal(t, 45, cfg.Application.HTTP.TimeoutSeconds)
}

func TestResolveInstantiatesEverySection(t *testing.T) {
	cfg := &AutomationConfig{}

	require.NoError(t, NewResolver(MapSource{}).Resolve(cfg, ""))

	require.NotNil(t, cfg.Application)
	require.NotNil(t, cfg.Application.HTTP)
	require.NotNil(t, cfg.Execution)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, 0, cfg.Execution.Retry)
	assert.Equal(t, &HTTPConfig{}, cfg.Application.HTTP)
}

func TestResolveBooleanIsPermissive(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"True", true},
		{"false", false},
		{"maybe", false},
		{"1", false},
		{"yes", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg := packagedLike()
			cfg.Execution.RetryHooks = !tt.want
			require.NoError(t, NewResolver(MapSource{"execution.retryHooks": tt.value}).Resolve(cfg, ""))
			assert.Equal(t, tt.want, cfg.Execution.RetryHooks)
		})
	}
}

func TestResolveIntegerCoercionFails(t *testing.T) {
	cfg := packagedLike()

	err := NewResolver(MapSource{"execution.retry": "abc"}).Resolve(cfg, "")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeTypeCoercion))
	assert.Equal(t, "execution.retry", errs.KeyOf(err))
	assert.Contains(t, err.Error(), "execution.retry")
	assert.Equal(t, 2, cfg.Execution.Retry)
}

func TestResolveSignedInteger(t *testing.T) {
	cfg := packagedLike()

	require.NoError(t, NewResolver(MapSource{"execution.threads": "+8"}).Resolve(cfg, ""))

	assert.Equal(t, 8, cfg.Execution.Threads)
}

func TestResolveEnumCaseInsensitive(t *testing.T) {
	for _, value := range []string{"prod", "PROD", "Prod", "pRoD"} {
		t.Run(value, func(t *testing.T) {
			cfg := packagedLike()
			require.NoError(t, NewResolver(MapSource{"application.environment": value}).Resolve(cfg, ""))
			assert.Equal(t, EnvironmentProd, cfg.Application.Environment)
		})
	}
}

func TestResolveEnumNoMatch(t *testing.T) {
	cfg := packagedLike()

	err := NewResolver(MapSource{"application.environment": "qa"}).Resolve(cfg, "")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeNoMatchingEnum))
	assert.Equal(t, "application.environment", errs.KeyOf(err))
	assert.Contains(t, err.Error(), `"qa"`)
	assert.Equal(t, EnvironmentLocal, cfg.Application.Environment)
}

func TestResolveAbortsOnFirstFailure(t *testing.T) {
	cfg := packagedLike()
	src := MapSource{
		"application.baseApi": "https://first.example.com",
		"execution.retry":     "two",
		"logging.file":        "/tmp/never-applied.log",
	}

	err := NewResolver(src).Resolve(cfg, "")

	require.Error(t, err)
	// Fields before the failing key were already applied, later ones were not
	assert.Equal(t, "https://first.example.com", cfg.Application.BaseAPI)
	require.NotNil(t, cfg.Execution)
	assert.Nil(t, cfg.Logging)
}

func TestResolveIgnoresOverrideOfSection(t *testing.T) {
	cfg := &AutomationConfig{}
	src := MapSource{
		"application":                     "https://ignored.example.com",
		"application.http.timeoutSeconds": "9",
	}

	require.NoError(t, NewResolver(src).Resolve(cfg, ""))

	// A section addressed directly is neither assigned nor descended into
	assert.Nil(t, cfg.Application)
	require.NotNil(t, cfg.Execution)
}

func TestResolveWithPrefix(t *testing.T) {
	exec := &ExecutionConfig{Retry: 1}

	require.NoError(t, NewResolver(MapSource{"execution.retry": "3", "retry": "9"}).Resolve(exec, "execution."))

	assert.Equal(t, 3, exec.Retry)
}

func TestResolveKeysAreCaseSensitive(t *testing.T) {
	cfg := packagedLike()

	require.NoError(t, NewResolver(MapSource{"execution.Retry": "9", "EXECUTION.RETRY": "9"}).Resolve(cfg, ""))

	assert.Equal(t, 2, cfg.Execution.Retry)
}

func TestResolveVisitsInDeclarationOrder(t *testing.T) {
	var seen []string
	src := SourceFunc(func(key string) (string, bool) {
		seen = append(seen, key)
		return "", false
	})

	require.NoError(t, NewResolver(src).Resolve(&AutomationConfig{}, ""))

	assert.Equal(t, []string{
		"application",
		"application.baseApi",
		"application.environment",
		"application.http",
		"application.http.timeoutSeconds",
		"application.http.logBodies",
		"execution",
		"execution.retry",
		"execution.threads",
		"execution.retryHooks",
		"execution.retryDelayMillis",
		"execution.retryBackoff",
		"logging",
		"logging.level",
		"logging.format",
		"logging.file",
	}, seen)
}

func TestResolveTypedNilSection(t *testing.T) {
	src := MapSource{"execution.retry": "3", "logging.level": "debug"}

	tests := []struct {
		name    string
		section Section
	}{
		{"config", (*AutomationConfig)(nil)},
		{"application", (*ApplicationConfig)(nil)},
		{"http", (*HTTPConfig)(nil)},
		{"execution", (*ExecutionConfig)(nil)},
		{"logging", (*LoggingConfig)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.NoError(t, NewResolver(src).Resolve(tt.section, ""))
				assert.Empty(t, Describe(tt.section, ""))
			})
		})
	}
}
