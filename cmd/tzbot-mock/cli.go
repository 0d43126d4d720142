package main

import (
    "context"
    "fmt"
    "os"
    "os/signal"
    "syscall"

    "github.com/spf13/cobra"
)

// Options holds CLI options for the mock service.
type Options struct {
    ConfigPath string
    Listen     string
    SeedPath   string
}

func newRootCmd() *cobra.Command {
    var opts Options
    cmd := &cobra.Command{
        Use:   "tzbot-mock",
        Short: "Answer tzbot requests from an in-memory directory",
        Long: `tzbot-mock listens on the address and port of the tzbot configuration and
answers requests from a YAML seed file. It shares apiKey and key material with
the client configuration, so the same file drives both ends.`,
        Args:          cobra.NoArgs,
        SilenceUsage:  true,
        SilenceErrors: true,
        RunE: func(cmd *cobra.Command, args []string) error {
            return run(cmd.Context(), opts)
        },
    }
    cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "Path to tzbot config file")
    cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address, defaults to address:port from config")
    cmd.Flags().StringVar(&opts.SeedPath, "seed", "", "YAML file with ips and users to serve")
    return cmd
}

func main() {
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()
    if err := newRootCmd().ExecuteContext(ctx); err != nil {
        fmt.Fprintln(os.Stderr, "Error:", err)
        stop()
        os.Exit(1)
    }
}
