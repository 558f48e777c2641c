package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/pipeship/internal/adapters/log"
	"github.com/bft-labs/pipeship/internal/cliconfig"
	"github.com/bft-labs/pipeship/pkg/header"
	"github.com/bft-labs/pipeship/pkg/pipeship"
	"github.com/bft-labs/pipeship/plugins/fieldwatcher"
)

const helpDescription = `
Read standard input and post it, batch by batch, to an HTTP endpoint.

Highlights:
  - Batches are sent when the buffer fills or input has been idle long enough.
  - A failed batch is resent in full on a new connection, same X-Batch-Id.
  - Optional zlib compression and a bytes-per-second ceiling.
  - Configure via file, env (PIPESHIP_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  tail -F /var/log/app.log | pipeship -d http://collector:8080/ingest
  pipeship -d http://collector/ingest -c 6 -s 512k -r 1M -i 30s -l 2 < dump.bin
`)

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitInputFatal = 2
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger(false)
	code := exitOK

	root := &cobra.Command{
		Use:           "pipeship",
		Short:         "Forward standard input to an HTTP endpoint in batches",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:          cobra.NoArgs,
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

			// PIPESHIP_* override the file and are overridden by flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			log = cliconfig.Logger(cfg.Verbose)
			cmd.SilenceUsage = true

			if cfg.DeviceID == "" {
				id, err := cliconfig.DeviceID()
				if err != nil {
					log.Warn().Err(err).Msg("no device id")
				}
				cfg.DeviceID = id
			}

			log.Debug().Interface("config", cfg).Msg("configuration")

			w, err := newPipeship(cfg, logAdapter.NewZerologAdapterWithLogger(log))
			if err != nil {
				return fmt.Errorf("create pipeship: %w", err)
			}

			code = run(w, log)
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.pipeship/config.toml)")
	root.Flags().StringVarP(&cfg.Destination, "destination", "d", cfg.Destination, "destination URL, http://host[:port]/path")
	root.Flags().IntVarP(&cfg.ZipLevel, "zip-level", "c", cfg.ZipLevel, "zlib compression level 1-9, 0 disables")
	root.Flags().VarP(cliconfig.NewSizeValue(&cfg.BufferSize), "buffer-size", "s", "batch buffer size, k/M suffix for KiB/MiB")
	root.Flags().VarP(cliconfig.NewRateValue(&cfg.Rate), "rate", "r", "send rate ceiling in bytes per second, k/M suffix, 0 unlimited")
	root.Flags().IntVarP(&cfg.ConnectRetry, "connect-retry", "n", cfg.ConnectRetry, "consecutive failed attempts before giving up, 0 retries forever")
	root.Flags().VarP(cliconfig.NewIntervalValue(&cfg.IdleInterval), "idle-interval", "i", "idle tick length, seconds or s/m/h suffix")
	root.Flags().IntVarP(&cfg.IdleLimit, "idle-limit", "l", cfg.IdleLimit, "idle ticks before a partial batch is sent")
	root.Flags().BoolVarP(&cfg.Verbose, "verbose", "V", cfg.Verbose, "debug logging and configuration dump")
	root.Flags().StringVar(&cfg.DeviceID, "device-id", cfg.DeviceID, "X-Device-Id value (default: first hardware address)")
	root.Flags().StringVar(&cfg.FieldsFile, "fields-file", cfg.FieldsFile, "TOML or YAML file of extra header fields, reloaded on change")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("pipeship")
		os.Exit(exitFailure)
	}
	os.Exit(code)
}

func newPipeship(cfg cliconfig.Config, logger pipeship.Logger) (*pipeship.Pipeship, error) {
	libCfg := pipeship.Config{
		Destination:  cfg.Destination,
		Input:        int(os.Stdin.Fd()),
		BufferSize:   cfg.BufferSize,
		Rate:         cfg.Rate,
		ConnectRetry: cfg.ConnectRetry,
		IdleInterval: cfg.IdleInterval,
		IdleLimit:    cfg.IdleLimit,
		ZipLevel:     cfg.ZipLevel,
	}

	gen := header.NewPost(
		header.WithDeviceID(cfg.DeviceID),
		header.WithHostname(hostname()),
		header.WithOSArch(runtime.GOOS+"/"+runtime.GOARCH),
	)

	opts := []pipeship.Option{
		pipeship.WithLogger(logger),
		pipeship.WithHeader(gen),
	}
	if cfg.FieldsFile != "" {
		opts = append(opts, fieldwatcher.WithFieldWatcher(fieldwatcher.Config{Path: cfg.FieldsFile}))
	}
	return pipeship.New(libCfg, opts...)
}

// run starts w and blocks until the input drains, the run fails, or a
// signal arrives. It returns the process exit code.
func run(w *pipeship.Pipeship, log zerolog.Logger) int {
	// A closed peer then shows up as EPIPE on write.
	signal.Ignore(syscall.SIGPIPE)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	if err := w.Start(context.Background()); err != nil {
		log.Error().Err(err).Msg("start pipeship")
		return exitFailure
	}

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
		if err := w.Stop(); err != nil {
			log.Error().Err(err).Msg("stop pipeship")
			return exitFailure
		}
		return exitOK
	case <-w.Done():
	}

	return exitCode(w.Err())
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pipeship.ErrInputFatal):
		return exitInputFatal
	default:
		return exitFailure
	}
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
