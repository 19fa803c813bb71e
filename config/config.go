// Package config registers the configuration options of the validation service.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/neicnordic/bpmn-validator/internal/config"
	"github.com/neicnordic/bpmn-validator/internal/lintconfig"
	"github.com/neicnordic/bpmn-validator/internal/runner"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	apiHost       string
	apiPort       int
	apiServerCert string
	apiServerKey  string
	healthPort    int

	validatorCommand       string
	validatorArgs          []string
	validatorTimeout       time.Duration
	validatorWorkDir       string
	validatorConfigFile    string
	validatorExtends       string
	validatorMaxConcurrent int64

	uploadDir     string
	uploadMaxSize string

	otelEndpoint string
)

func init() {
	config.RegisterFlags(
		&config.Flag{
			Name: "api.host",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, "0.0.0.0", "Host address to bind the API server to")
			},
			AssignFunc: func(flagName string) {
				apiHost = viper.GetString(flagName)
			},
		},
		&config.Flag{
			Name: "api.port",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.Int(flagName, 8080, "Port to host the API server at, PORT is used when not set")
			},
			AssignFunc: func(flagName string) {
				apiPort = viper.GetInt(flagName)
				if viper.IsSet(flagName) {
					return
				}
				if port := os.Getenv("PORT"); port != "" {
					viper.Set(flagName, port)
					apiPort = viper.GetInt(flagName)
				}
			},
		},
		&config.Flag{
			Name: "api.server-cert",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, "", "Path to the server certificate file for TLS")
			},
			AssignFunc: func(flagName string) {
				apiServerCert = viper.GetString(flagName)
			},
		},
		&config.Flag{
			Name: "api.server-key",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, "", "Path to the server key file for TLS")
			},
			AssignFunc: func(flagName string) {
				apiServerKey = viper.GetString(flagName)
			},
		},
		&config.Flag{
			Name: "health.port",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.Int(flagName, 0, "Port to host the gRPC health server at, 0 disables it")
			},
			AssignFunc: func(flagName string) {
				healthPort = viper.GetInt(flagName)
			},
		},
		&config.Flag{
			Name: "validator.command",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, "npx", "Executable used to run the linter")
			},
			AssignFunc: func(flagName string) {
				validatorCommand = viper.GetString(flagName)
			},
		},
		&config.Flag{
			Name: "validator.args",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.StringSlice(flagName, []string{"bpmnlint"}, "Arguments passed to the linter before the file path, in comma separated list")
			},
			AssignFunc: func(flagName string) {
				validatorArgs = viper.GetStringSlice(flagName)
			},
		},
		&config.Flag{
			Name: "validator.timeout",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.Duration(flagName, runner.DefaultTimeout, "Time budget of a single linter run")
			},
			AssignFunc: func(flagName string) {
				validatorTimeout = viper.GetDuration(flagName)
			},
		},
		&config.Flag{
			Name: "validator.work-dir",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, ".", "Working directory of the linter, the linter configuration file is written here")
			},
			AssignFunc: func(flagName string) {
				validatorWorkDir = viper.GetString(flagName)
			},
		},
		&config.Flag{
			Name: "validator.config-file",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, lintconfig.DefaultFileName, "Name of the linter configuration file")
			},
			AssignFunc: func(flagName string) {
				validatorConfigFile = viper.GetString(flagName)
			},
		},
		&config.Flag{
			Name: "validator.extends",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, lintconfig.DefaultExtends, "Rule set the linter configuration extends")
			},
			AssignFunc: func(flagName string) {
				validatorExtends = viper.GetString(flagName)
			},
		},
		&config.Flag{
			Name: "validator.max-concurrent",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.Int64(flagName, 0, "Maximum number of concurrent linter processes, 0 means unlimited")
			},
			AssignFunc: func(flagName string) {
				validatorMaxConcurrent = viper.GetInt64(flagName)
			},
		},
		&config.Flag{
			Name: "upload.dir",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, "", "Scratch directory for uploads, defaults to the OS temporary directory")
			},
			AssignFunc: func(flagName string) {
				uploadDir = viper.GetString(flagName)
			},
		},
		&config.Flag{
			Name: "upload.max-size",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, "10MB", "Maximum accepted upload size, e.g. 512kB or 10MB, 0 disables the limit")
			},
			AssignFunc: func(flagName string) {
				uploadMaxSize = viper.GetString(flagName)
			},
		},
		&config.Flag{
			Name: "otel.endpoint",
			RegisterFunc: func(flagSet *pflag.FlagSet, flagName string) {
				flagSet.String(flagName, "", "OTLP/HTTP endpoint traces are exported to, empty disables export")
			},
			AssignFunc: func(flagName string) {
				otelEndpoint = viper.GetString(flagName)
			},
		},
	)
}

func APIHost() string {
	return apiHost
}

func APIPort() int {
	return apiPort
}

func APIServerCert() string {
	return apiServerCert
}

func APIServerKey() string {
	return apiServerKey
}

func HealthPort() int {
	return healthPort
}

func ValidatorCommand() string {
	return validatorCommand
}

func ValidatorArgs() []string {
	return validatorArgs
}

func ValidatorTimeout() time.Duration {
	return validatorTimeout
}

func ValidatorWorkDir() string {
	return validatorWorkDir
}

func ValidatorConfigFile() string {
	return validatorConfigFile
}

func ValidatorExtends() string {
	return validatorExtends
}

func ValidatorMaxConcurrent() int64 {
	return validatorMaxConcurrent
}

func UploadDir() string {
	return uploadDir
}

// UploadMaxSize returns the upload size limit in bytes
func UploadMaxSize() (int64, error) {
	if uploadMaxSize == "" || uploadMaxSize == "0" {
		return 0, nil
	}

	size, err := units.FromHumanSize(uploadMaxSize)
	if err != nil {
		return 0, fmt.Errorf("invalid upload.max-size %q: %w", uploadMaxSize, err)
	}

	return size, nil
}

func OtelEndpoint() string {
	return otelEndpoint
}
