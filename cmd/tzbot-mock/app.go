package main

import (
    "context"
    "errors"
    "fmt"

    "go.uber.org/zap"

    "github.com/Restitutor/TZBot4TS/pkg/config"
    "github.com/Restitutor/TZBot4TS/pkg/observability"
    "github.com/Restitutor/TZBot4TS/pkg/responder"
    "github.com/Restitutor/TZBot4TS/pkg/transport/udp"
    "github.com/Restitutor/TZBot4TS/pkg/tzbot"
)

// run is the main entry point after CLI parsing. It blocks until ctx ends.
func run(ctx context.Context, opts Options) error {
    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        return fmt.Errorf("failed to load config: %w", err)
    }

    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        return fmt.Errorf("failed to setup logger: %w", err)
    }
    defer func() { _ = logger.Sync() }()

    framer, err := tzbot.NewFramer(cfg)
    if err != nil {
        return err
    }

    dir := responder.NewDirectory()
    if opts.SeedPath != "" {
        if err := dir.LoadSeedFile(opts.SeedPath); err != nil {
            return fmt.Errorf("failed to load seed: %w", err)
        }
    }

    listen := opts.Listen
    if listen == "" {
        listen = cfg.Endpoint()
    }
    l, err := udp.Listen(ctx, listen)
    if err != nil {
        return fmt.Errorf("failed to listen on %s: %w", listen, err)
    }

    srv := responder.New(framer, dir, responder.WithAPIKey(cfg.APIKey), responder.WithLogger(logger))
    zap.L().Info("tzbot-mock is running; press Ctrl+C to exit",
        zap.Stringer("addr", l.Addr()),
        zap.Bool("encryption", framer.CanEncrypt()),
        zap.Bool("api_key", cfg.APIKey != ""))

    err = srv.Serve(ctx, l)
    st := dir.Stats()
    zap.L().Info("tzbot-mock stopped",
        zap.Int("entries", st.Keys),
        zap.Uint64("lookups", st.Gets),
        zap.Uint64("hits", st.Hits),
        zap.Uint64("misses", st.Misses))
    if errors.Is(err, context.Canceled) {
        return nil
    }
    return err
}
