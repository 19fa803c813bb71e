package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reset restores the package to its initial state, used by tests.
func reset() {
	registeredFlags = nil
	viper.Reset()
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	command = newCommand()
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()

	oldArgs := os.Args
	os.Args = append([]string{"test"}, args...)
	t.Cleanup(func() { os.Args = oldArgs })
}

func TestRegisterFlags(t *testing.T) {
	reset()

	RegisterFlags(
		&Flag{
			Name: "test.flag",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, "default", "Test flag")
			},
			AssignFunc: func(_ string) {},
		},
	)

	assert.Len(t, registeredFlags, 1)
	assert.Equal(t, "test.flag", registeredFlags[0].Name)
}

func TestLoad_MissingRequiredFlag(t *testing.T) {
	reset()
	withArgs(t)

	RegisterFlags(
		&Flag{
			Name: "required.flag",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, "", "Required flag")
			},
			Required:   true,
			AssignFunc: func(_ string) {},
		},
	)

	err := Load()
	assert.ErrorContains(t, err, "missing required flag: required.flag")
}

func TestLoad_WithOptionalFlag(t *testing.T) {
	reset()
	withArgs(t)

	var testValue string
	RegisterFlags(
		&Flag{
			Name: "optional.test",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, "default-value", "Optional test flag")
			},
			AssignFunc: func(flagName string) {
				testValue = viper.GetString(flagName)
			},
		},
	)

	assert.NoError(t, Load())
	assert.Equal(t, "default-value", testValue)
}

func TestLoad_FromCommandLine(t *testing.T) {
	reset()
	withArgs(t, "--validator.timeout=5s")

	var timeout string
	RegisterFlags(
		&Flag{
			Name: "validator.timeout",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, "30s", "timeout")
			},
			AssignFunc: func(flagName string) {
				timeout = viper.GetString(flagName)
			},
		},
	)

	require.NoError(t, Load())
	assert.Equal(t, "5s", timeout)
}

func TestLoad_FromEnvironment(t *testing.T) {
	reset()
	withArgs(t)
	t.Setenv("VALIDATOR_WORK_DIR", "/srv/lint")

	var workDir string
	RegisterFlags(
		&Flag{
			Name: "validator.work-dir",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, ".", "work dir")
			},
			AssignFunc: func(flagName string) {
				workDir = viper.GetString(flagName)
			},
		},
	)

	require.NoError(t, Load())
	assert.Equal(t, "/srv/lint", workDir)
}

func TestLoad_FromConfigFile(t *testing.T) {
	reset()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("upload:\n  max-size: 2MB\n"), 0600))
	withArgs(t, "--config-file", configFile)

	var maxSize string
	RegisterFlags(
		&Flag{
			Name: "upload.max-size",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, "10MB", "max size")
			},
			AssignFunc: func(flagName string) {
				maxSize = viper.GetString(flagName)
			},
		},
	)

	require.NoError(t, Load())
	assert.Equal(t, "2MB", maxSize)
}

func TestLoad_BrokenConfigFile(t *testing.T) {
	reset()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("upload: [unclosed\n"), 0600))
	withArgs(t, "--config-file", configFile)

	assert.ErrorContains(t, Load(), "failed to read config file")
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "VALIDATOR_MAX_CONCURRENT", EnvName("validator.max-concurrent"))
	assert.Equal(t, "API_PORT", EnvName("api.port"))
}
