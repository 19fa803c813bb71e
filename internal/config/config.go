// Package config provides the flag based configuration framework of the service.
// Application packages register their options with RegisterFlags from an init()
// function and main calls Load once at startup.
//
// Values are resolved, in order of precedence, from command line flags,
// environment variables (flag name upper cased with "." and "-" replaced by "_")
// and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag represents a configuration option registered by an application package.
type Flag struct {
	// Name is the flag name, e.g., "api.port" or "validator.timeout"
	Name string
	// RegisterFunc registers the flag with the given FlagSet
	RegisterFunc func(flagSet *pflag.FlagSet, flagName string)
	// Required indicates if the flag must be set
	Required bool
	// AssignFunc assigns the resolved value to the application's config variable
	AssignFunc func(flagName string)
}

var registeredFlags []*Flag

// RegisterFlags registers configuration flags.
func RegisterFlags(flags ...*Flag) {
	registeredFlags = append(registeredFlags, flags...)
}

var command *cobra.Command

func init() {
	viper.SetConfigName("config")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.SetConfigType("yaml")

	command = newCommand()
}

func newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bpmn-validator",
		Short:         "HTTP service validating BPMN diagrams with bpmnlint",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(_ *cobra.Command, _ []string) {
			// Empty func such that cobra will evaluate flags, etc
		},
	}

	cmd.Flags().String("config-path", ".", "Set the path viper will look for the config file at")
	cmd.Flags().String("config-file", "", "Set the direct path to the config file")
	cmd.Flags().String("log.level", "INFO", "Set the log level, supported levels: PANIC, FATAL, ERROR, WARN, INFO, DEBUG, TRACE")

	cmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		fmt.Println("Flags:")
		writer := tabwriter.NewWriter(os.Stdout, 1, 1, 8, ' ', 0)
		_, _ = fmt.Fprintln(writer, "  Name:\tEnv variable:\tType:\tUsage:\tDefault Value:\t")
		cmd.Flags().VisitAll(func(flag *pflag.Flag) {
			if flag.Name == "help" {
				return
			}

			flagType, usage := pflag.UnquoteUsage(flag)
			_, _ = fmt.Fprintf(writer, "  --%s\t%s\t%s\t%s\t%v\t\n", flag.Name, EnvName(flag.Name), flagType, usage, flag.DefValue)
		})

		_ = writer.Flush()

		os.Exit(0)
	})

	return cmd
}

// EnvName returns the environment variable a flag can be set through.
func EnvName(flagName string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(flagName))
}

// Load parses flags, environment and config file, verifies that all required
// flags are set and hands the resolved values to each flag's AssignFunc.
func Load() error {
	for _, flag := range registeredFlags {
		if command.Flags().Lookup(flag.Name) != nil {
			continue
		}
		flag.RegisterFunc(command.Flags(), flag.Name)
	}

	if err := viper.BindPFlags(command.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if err := command.Execute(); err != nil {
		return err
	}

	if configPath := viper.GetString("config-path"); configPath != "" {
		viper.AddConfigPath(filepath.Clean(configPath))
	}

	if viper.GetString("config-file") != "" {
		viper.SetConfigFile(viper.GetString("config-file"))
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
			log.Debug("no config file found, using flags and environment only")
		default:
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var missingFlags error
	for _, flag := range registeredFlags {
		if !flag.Required {
			continue
		}

		if !viper.IsSet(flag.Name) {
			missingFlags = errors.Join(missingFlags, fmt.Errorf("missing required flag: %s", flag.Name))
		}
	}
	if missingFlags != nil {
		return missingFlags
	}

	for _, flag := range registeredFlags {
		flag.AssignFunc(flag.Name)
	}

	stringLevel := viper.GetString("log.level")
	logLevel, err := log.ParseLevel(stringLevel)
	if err != nil {
		log.Debugf("Log level '%s' not supported, setting to 'trace'", stringLevel)
		logLevel = log.TraceLevel
	}
	log.SetLevel(logLevel)
	log.Infof("Setting log level to '%s'", stringLevel)

	return nil
}
