package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"prewarm/internal/catalog"
	"prewarm/internal/common/fsutil"
	"prewarm/internal/config"
	"prewarm/internal/embedding"
	"prewarm/internal/httpapi"
	"prewarm/internal/lifecycle"
	"prewarm/internal/provision"
	"prewarm/internal/registry"
	"prewarm/pkg/types"
)

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseDescriptorArgs turns "<capability>=<modelId>" arguments into
// descriptors, in argument order.
func parseDescriptorArgs(args []string) ([]types.ModelDescriptor, error) {
	descs := make([]types.ModelDescriptor, 0, len(args))
	for _, a := range args {
		capStr, id, ok := strings.Cut(a, "=")
		if !ok || !types.Capability(capStr).Valid() || id == "" {
			return nil, fmt.Errorf("expected <capability>=<modelId>, got %q", a)
		}
		descs = append(descs, types.ModelDescriptor{ModelID: id, Capability: types.Capability(capStr)})
	}
	return descs, nil
}

func buildRootCmd() *cobra.Command {
	var logLevel string
	var log zerolog.Logger

	root := &cobra.Command{
		Use:           "prewarm",
		Short:         "Start a shared inference service and pre-provision its models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", envStr("PREWARM_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		log = newLogger(logLevel)
	}

	var cfgPath string
	up := &cobra.Command{
		Use:   "up",
		Short: "Start the service, provision the configured models and keep it running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cfg.Command == "" {
				return fmt.Errorf("config: command is required")
			}
			descs, err := cfg.Descriptors()
			if err != nil {
				return err
			}
			if len(descs) == 0 {
				descs = catalog.DefaultDescriptors()
			}
			if cfg.CacheDir != "" {
				if cfg.CacheDir, err = fsutil.ExpandHome(cfg.CacheDir); err != nil {
					return err
				}
			}

			launcher := &lifecycle.SubprocessLauncher{
				Command:  cfg.Command,
				Args:     cfg.Args,
				Host:     cfg.Host,
				Port:     cfg.Port,
				CacheDir: cfg.CacheDir,
				Log:      log,
			}
			mgr := lifecycle.NewManager(launcher, lifecycle.Options{
				APIKey:   cfg.APIKey,
				CacheDir: cfg.CacheDir,
				Provision: provision.Config{
					PollInterval: config.Duration(cfg.PollIntervalMS),
					MaxWait:      config.Duration(cfg.MaxWaitMS),
					Settle:       config.Duration(cfg.SettleMS),
					SettleTTS:    config.Duration(cfg.SettleTTSMS),
				},
			}, log)
			defer mgr.StopAll()

			inst, err := mgr.Ensure(cmd.Context(), "default", descs)
			if err != nil {
				return err
			}
			// publish the resolved endpoint for callers to pick up
			fmt.Println(inst.BaseURL())

			var srv *http.Server
			if cfg.StatusAddr != "" {
				httpapi.SetLogger(log)
				srv = &http.Server{Addr: cfg.StatusAddr, Handler: httpapi.NewMux(mgr)}
				go func() {
					log.Info().Str("addr", cfg.StatusAddr).Msg("status listener up")
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						log.Error().Err(err).Msg("status listener failed")
					}
				}()
			}

			// Graceful shutdown (Ctrl+C / SIGTERM)
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop
			if srv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}
			return nil
		},
	}
	up.Flags().StringVar(&cfgPath, "config", envStr("PREWARM_CONFIG", "prewarm.yaml"), "Path to config file (.yaml/.json/.toml)")

	var endpoint, apiKey string
	provisionCmd := &cobra.Command{
		Use:   "provision <capability>=<modelId> [...]",
		Short: "Provision models against an already-running service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			descs, err := parseDescriptorArgs(args)
			if err != nil {
				return err
			}
			client := registry.New(endpoint, apiKey, log)
			p := provision.New(client, provision.Config{}, log)
			for _, d := range descs {
				out, err := p.Provision(cmd.Context(), d)
				if err != nil {
					return err
				}
				fmt.Printf("%s\t%s\n", d.ModelID, out)
			}
			return nil
		},
	}
	provisionCmd.Flags().StringVar(&endpoint, "endpoint", envStr("PREWARM_ENDPOINT", "http://127.0.0.1:8000"), "Base URL of the running service")
	provisionCmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("PREWARM_API_KEY"), "Bearer credential forwarded to the service")

	var supEndpoint, supAPIKey string
	supported := &cobra.Command{
		Use:   "supported <capability>",
		Short: "List model ids the service's registry reports for a capability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			capability := types.Capability(args[0])
			if !capability.Valid() {
				return fmt.Errorf("unknown capability %q", args[0])
			}
			client := registry.New(supEndpoint, supAPIKey, log)
			for _, id := range client.SupportedModels(cmd.Context(), capability) {
				fmt.Println(id)
			}
			return nil
		},
	}
	supported.Flags().StringVar(&supEndpoint, "endpoint", envStr("PREWARM_ENDPOINT", "http://127.0.0.1:8000"), "Base URL of the running service")
	supported.Flags().StringVar(&supAPIKey, "api-key", os.Getenv("PREWARM_API_KEY"), "Bearer credential forwarded to the service")

	var embEndpoint, embAPIKey, embModel string
	embed := &cobra.Command{
		Use:   "embed <text> [...]",
		Short: "Smoke-test a provisioned embedding model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := embedding.New(embEndpoint, embAPIKey)
			vecs, err := c.Embed(cmd.Context(), embModel, args)
			if err != nil {
				return err
			}
			for i, v := range vecs {
				fmt.Printf("%d\tdim=%d\n", i, len(v))
			}
			return nil
		},
	}
	embed.Flags().StringVar(&embEndpoint, "endpoint", envStr("PREWARM_ENDPOINT", "http://127.0.0.1:8000"), "Base URL of the running service")
	embed.Flags().StringVar(&embAPIKey, "api-key", os.Getenv("PREWARM_API_KEY"), "Bearer credential forwarded to the service")
	embed.Flags().StringVar(&embModel, "model", func() string {
		id, _ := catalog.DefaultModel(types.CapabilityEmbedding)
		return id
	}(), "Embedding model id")

	root.AddCommand(up, provisionCmd, supported, embed)
	return root
}
