package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	logAdapter "github.com/bft-labs/farmer/internal/adapters/log"
	"github.com/bft-labs/farmer/internal/cliconfig"
	"github.com/bft-labs/farmer/pkg/farmer"
	"github.com/bft-labs/farmer/plugins/networkwatcher"
)

const helpDescription = `
Grow a farm on the ledger and donate its harvest to a charity.

Type commands on stdin (help lists them). Every state change is printed.
Configure via file, FARMER_* environment variables, or flags.
`

var exampleUsage = strings.TrimSpace(`
  farmer --owner 0xabc --service-url http://127.0.0.1:8645
  farmer --config $HOME/.farmer/config.toml --metrics-addr :9464
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := logAdapter.NewConsoleLogger(zerolog.InfoLevel)

	root := &cobra.Command{
		Use:           "farmer",
		Short:         "Grow a ledger farm and donate its harvest",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// FARMER_* override file config but not flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cliconfig.LoadNetworkInfo(&cfg); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			log = log.Level(cfg.Level())

			logCfg := cfg
			if len(logCfg.AuthKey) > 0 {
				logCfg.AuthKey = "*****"
			}
			log.Info().Interface("config", logCfg).Msg("configuration")

			return run(cmd.Context(), cfg, log)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.farmer/config.toml)")
	root.Flags().StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "ledger gateway base URL")
	root.Flags().StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "API key for the ledger gateway")
	root.Flags().StringVar(&cfg.ChainID, "chain-id", cfg.ChainID, "expected chain id (default: read from --network-file, empty accepts any)")
	root.Flags().StringVar(&cfg.Owner, "owner", cfg.Owner, "wallet address that owns the farm")
	root.Flags().StringVar(&cfg.NetworkFile, "network-file", cfg.NetworkFile, "wallet network file to watch for chain switches")
	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for the trial farm (default: $HOME/.farmer)")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")
	root.Flags().DurationVar(&cfg.OpTimeout, "op-timeout", cfg.OpTimeout, "timeout for each ledger operation (0 disables)")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (disabled when empty)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("farmer")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliconfig.Config, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []farmer.Option{
		farmer.WithLogger(logAdapter.NewZerologAdapterWithLogger(log)),
		farmer.WithMetrics(reg),
	}
	if cfg.NetworkFile != "" {
		opts = append(opts, networkwatcher.WithNetworkWatcher(networkwatcher.Config{
			NetworkFile: cfg.NetworkFile,
		}))
	}

	f, err := farmer.New(farmer.Config{
		ServiceURL:       cfg.ServiceURL,
		AuthKey:          cfg.AuthKey,
		ChainID:          cfg.ChainID,
		Owner:            cfg.Owner,
		StateDir:         cfg.StateDir,
		HTTPTimeout:      cfg.HTTPTimeout,
		OperationTimeout: cfg.OpTimeout,
	}, opts...)
	if err != nil {
		return fmt.Errorf("create farmer: %w", err)
	}

	if err := f.Start(ctx); err != nil {
		return fmt.Errorf("start farmer: %w", err)
	}

	unsubscribe := f.Subscribe(func(s farmer.Snapshot) {
		if s.ErrorCode != farmer.ErrCodeNone {
			fmt.Fprintf(os.Stdout, "[%s] error=%s\n", s.State, s.ErrorCode)
			return
		}
		fmt.Fprintf(os.Stdout, "[%s]\n", s.State)
	})
	defer unsubscribe()

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	err = serve(ctx, &console{f: f, out: os.Stdout}, os.Stdin, srv, log)
	if ctx.Err() != nil {
		log.Info().Msg("received signal, stopping...")
	}

	if stopErr := f.Stop(); stopErr != nil {
		return fmt.Errorf("stop farmer: %w", stopErr)
	}
	return err
}

// serve runs the console and, when srv is set, the metrics server until the
// console quits, its input closes or ctx ends.
func serve(ctx context.Context, c *console, in io.Reader, srv *http.Server, log zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	// errQuit ends the group so the metrics server shuts down too.
	g.Go(func() error {
		return c.run(gctx, in)
	})

	if srv != nil {
		g.Go(func() error {
			log.Info().Str("addr", srv.Addr).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	return mux
}
