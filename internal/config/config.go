// internal/config/config.go
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the server's runtime settings. Values come from flags,
// with PARTY_-prefixed environment variables as fallback.
type Config struct {
	Bind      string
	Port      int
	Questions string
	LogLevel  string
	Verbose   bool
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.Questions == "" {
		return fmt.Errorf("a question bank CSV path is required")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// NewCmd builds the root command. Every flag is also bound to a PARTY_*
// environment variable via viper.
func NewCmd(cfg *Config, run func(*Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PARTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "honest-party-server",
		Short:         "Real-time coordinator for the honest-party hidden-role game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: PARTY_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 3001, "port to listen on (env: PARTY_PORT)")
	fs.StringVarP(&cfg.Questions, "questions", "q", "questions.csv", "path to the question bank CSV (env: PARTY_QUESTIONS)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "logrus level: trace/debug/info/warn/error (env: PARTY_LOG_LEVEL)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "shorthand for --log-level debug (env: PARTY_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
