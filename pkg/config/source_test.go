package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"execution.retry":                 "EXECUTION_RETRY",
		"application.baseApi":             "APPLICATION_BASE_API",
		"application.http.timeoutSeconds": "APPLICATION_HTTP_TIMEOUT_SECONDS",
		"execution.retryDelayMillis":      "EXECUTION_RETRY_DELAY_MILLIS",
		"logging.level":                   "LOGGING_LEVEL",
	}

	for key, want := range tests {
		t.Run(key, func(t *testing.T) {
			assert.Equal(t, want, EnvName(key))
		})
	}
}

func TestEnvSourceExactKey(t *testing.T) {
	t.Setenv("execution.retry", "4")

	v, ok := EnvSource{}.Lookup("execution.retry")

	assert.True(t, ok)
	assert.Equal(t, "4", v)
}

func TestEnvSourcePrefixedName(t *testing.T) {
	t.Setenv("TESTAUTO_APPLICATION_BASE_API", "https://env.example.com")

	v, ok := EnvSource{Prefix: "TESTAUTO_"}.Lookup("application.baseApi")
	assert.True(t, ok)
	assert.Equal(t, "https://env.example.com", v)

	_, ok = EnvSource{}.Lookup("application.baseApi")
	assert.False(t, ok)
}

func TestEnvSourceExactKeyWins(t *testing.T) {
	t.Setenv("execution.threads", "2")
	t.Setenv("TESTAUTO_EXECUTION_THREADS", "8")

	v, ok := EnvSource{Prefix: "TESTAUTO_"}.Lookup("execution.threads")

	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestChainPrecedence(t *testing.T) {
	chain := Chain{
		MapSource{"execution.retry": "1"},
		nil,
		MapSource{"execution.retry": "9", "execution.threads": "3"},
	}

	v, ok := chain.Lookup("execution.retry")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	v, ok = chain.Lookup("execution.threads")
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	_, ok = chain.Lookup("logging.level")
	assert.False(t, ok)
}

func TestParseProperties(t *testing.T) {
	props, err := ParseProperties([]string{
		"execution.retry=3",
		"application.baseApi=https://x.example.com/path?a=b",
		"logging.file=",
	})
	require.NoError(t, err)

	assert.Equal(t, MapSource{
		"execution.retry":     "3",
		"application.baseApi": "https://x.example.com/path?a=b",
		"logging.file":        "",
	}, props)
}

func TestParsePropertiesRejectsMalformed(t *testing.T) {
	for _, def := range []string{"execution.retry", "=3", "  =x"} {
		t.Run(def, func(t *testing.T) {
			_, err := ParseProperties([]string{def})
			assert.Error(t, err)
		})
	}
}

func TestDotenvSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "AUTOMATION_EXECUTION_RETRY=6\nlogging.level=debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	src, err := DotenvSource(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "6", src["AUTOMATION_EXECUTION_RETRY"])
	assert.Equal(t, "debug", src["logging.level"])
}

func TestDotenvSourceNoFiles(t *testing.T) {
	src, err := DotenvSource(filepath.Join(t.TempDir(), "absent.env"))

	require.NoError(t, err)
	assert.Empty(t, src)
}

func TestKeyringSource(t *testing.T) {
	keyring.MockInit()
	src := KeyringSource{Service: "automation-test"}

	_, ok := src.Lookup("application.baseApi")
	assert.False(t, ok)

	require.NoError(t, src.StoreSecret("application.baseApi", "https://secret.example.com"))

	v, ok := src.Lookup("application.baseApi")
	assert.True(t, ok)
	assert.Equal(t, "https://secret.example.com", v)

	require.NoError(t, src.DeleteSecret("application.baseApi"))
	_, ok = src.Lookup("application.baseApi")
	assert.False(t, ok)

	assert.Error(t, src.DeleteSecret("application.baseApi"))
	assert.Error(t, src.StoreSecret("", "value"))
}

func TestDefaultSourcePrecedence(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, KeyringSource{Service: "automation-precedence"}.StoreSecret("logging.file", "/keychain.log"))

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"TESTPREC_EXECUTION_RETRY=6\nTESTPREC_EXECUTION_THREADS=7\nTESTPREC_LOGGING_FILE=/dotenv.log\nTESTPREC_APPLICATION_ENVIRONMENT=dev\n"), 0600))
	t.Setenv("TESTPREC_EXECUTION_THREADS", "5")

	src, err := DefaultSource(SourceOptions{
		Properties:     []string{"execution.retry=1"},
		EnvFiles:       []string{envFile},
		EnvPrefix:      "TESTPREC_",
		Keyring:        true,
		KeyringService: "automation-precedence",
	})
	require.NoError(t, err)

	lookup := func(key string) string {
		v, _ := src.Lookup(key)
		return v
	}
	assert.Equal(t, "1", lookup("execution.retry"))
	assert.Equal(t, "5", lookup("execution.threads"))
	assert.Equal(t, "/keychain.log", lookup("logging.file"))
	assert.Equal(t, "dev", lookup("application.environment"))

	_, ok := src.Lookup("application.baseApi")
	assert.False(t, ok)
}

func TestDefaultSourceBadProperty(t *testing.T) {
	_, err := DefaultSource(SourceOptions{Properties: []string{"no-equals"}})
	assert.Error(t, err)
}
