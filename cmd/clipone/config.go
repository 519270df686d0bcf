package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipone/internal/logging"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and CLIPONE_* env var prefix.
//
// Precedence (lowest to highest): defaults, config file, CLIPONE_* env vars, flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("clipone")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/clipone/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(fmt.Sprintf("%s/.config/clipone", home))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("CLIPONE")
	v.SetEnvKeyReplacer(envKeys)
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
	cmd.Flags().String("log-file", "", "also write JSON logs to this file, rotated at 10 MB")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addClientFlags adds the flags used to reach a daemon.
func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("server", "", "daemon TCP address (default: the local IPC socket)")
	f.String("token", "", "shared secret")
	f.String("source", defaultSource(), "source identifier")
	addConfigFlag(cmd)
}

// setupLogging reads logging flags from viper and configures slog. The
// closer releases the log file, if one was configured.
func setupLogging(v *viper.Viper) io.Closer {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	return resolveLogging(interactive, v.GetString("log-format"), v.GetString("log-level"), v.GetString("log-file"))
}
