package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Restitutor/TZBot4TS/pkg/config"
	"github.com/Restitutor/TZBot4TS/pkg/observability"
	"github.com/Restitutor/TZBot4TS/pkg/output"
	"github.com/Restitutor/TZBot4TS/pkg/protocol"
	"github.com/Restitutor/TZBot4TS/pkg/tzbot"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	address      string
	port         int
	timeout      time.Duration
	verbose      bool
	flagNames    []string
	useEncrypt   bool
	useGzip      bool
	useMsgpack   bool

	// Shared state set during PersistentPreRun
	cfg       *config.Config
	logger    *zap.Logger
	client    *tzbot.Client
	formatter output.Formatter
)

// rootCmd is the base command for tzbot.
var rootCmd = &cobra.Command{
	Use:   "tzbot",
	Short: "Query the timezone service over UDP",
	Long: `tzbot sends one request to the timezone service and prints the reply.

Connection settings come from tzbot.json or tzbot.yaml (see --config), from
TZBOT_* environment variables, and finally from the flags below. Without any
of --flag, --encrypt, --gzip or --msgpack the request uses the configured
defaults.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var overrides []config.Override
		if cmd.Flags().Changed("address") {
			overrides = append(overrides, config.Set("address", address))
		}
		if cmd.Flags().Changed("port") {
			overrides = append(overrides, config.Set("port", port))
		}
		if cmd.Flags().Changed("timeout") {
			overrides = append(overrides, config.Set("timeout", timeout.String()))
		}
		if verbose {
			overrides = append(overrides, config.Set("log.level", "debug"))
		}

		var err error
		cfg, err = config.Load(cfgFile, overrides...)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err = observability.SetupLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to setup logger: %w", err)
		}
		client, err = tzbot.New(cmd.Context(), cfg, tzbot.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		formatter = output.NewFormatter(outputFormat)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		closeClient()
		return nil
	},
}

func closeClient() {
	if client != nil {
		_ = client.Close()
		client = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// requestFlags returns the flags chosen on the command line, or the client
// defaults when none were given.
func requestFlags() ([]protocol.Flag, error) {
	var flags []protocol.Flag
	for _, name := range flagNames {
		f, err := protocol.ParseFlagName(name)
		if err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	if useMsgpack {
		flags = append(flags, protocol.FlagMsgpack)
	}
	if useGzip {
		flags = append(flags, protocol.FlagGunzip)
	}
	if useEncrypt {
		flags = append(flags, protocol.FlagEncrypt)
	}
	if len(flags) == 0 {
		return client.DefaultFlags(), nil
	}
	return protocol.DedupFlags(flags...), nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./tzbot.{json,yaml}, ./configs or ~/.tzbot)")
	pf.StringVarP(&outputFormat, "output", "o", "", "output format: table, json, yaml, message (default \"table\")")
	pf.StringVar(&address, "address", "", "service address, overrides config")
	pf.IntVar(&port, "port", 0, "service port, overrides config")
	pf.DurationVar(&timeout, "timeout", 0, "per-request timeout, 0 waits forever (default from config, 5s)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringSliceVar(&flagNames, "flag", nil, "wire flags to set: encrypt, gunzip, msgpack (repeatable)")
	pf.BoolVar(&useEncrypt, "encrypt", false, "encrypt the request (needs key material in config)")
	pf.BoolVar(&useGzip, "gzip", false, "gzip the request")
	pf.BoolVar(&useMsgpack, "msgpack", false, "serialize the request as MessagePack")
}
