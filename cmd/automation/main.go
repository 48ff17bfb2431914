package main

import (
	"context"
	"io"
	"os"

	"github.com/alicebob/miniredis/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pkg.world.dev/world-engine/automation/asset"
	"pkg.world.dev/world-engine/automation/config"
	"pkg.world.dev/world-engine/automation/content"
	"pkg.world.dev/world-engine/automation/log"
	"pkg.world.dev/world-engine/automation/storage/redis"
	"pkg.world.dev/world-engine/automation/telemetry"
)

const (
	flagConfig        = "config"
	flagRedisEmbedded = "redis-embedded"
	flagProfile       = "profile"
	redisNamespace    = "automation"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		zlog.Error().Msg(eris.ToString(err, true))
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "automation",
		Short:         "Inspect content and exercise automation worlds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	fs := root.PersistentFlags()
	fs.String(flagConfig, "", "path of the settings file, defaults to ./automation.toml")
	fs.Bool(flagRedisEmbedded, false, "serve the asset registry from an in-process redis")
	fs.Bool(flagProfile, false, "start the datadog profiler")
	config.BindFlags(fs)

	root.AddCommand(newConfigCmd(), newAssetsCmd(), newSmokeCmd())
	return root
}

// session holds what every subcommand needs: settings, content, an asset registry, and telemetry.
type session struct {
	settings *config.Settings
	store    *content.Store
	registry asset.Registry
	closers  []func() error
}

func newSession(cmd *cobra.Command) (*session, error) {
	configFile, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	opts := []config.Option{config.WithFlags(cmd.Flags())}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	settings, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if err := log.Setup(settings, cmd.ErrOrStderr()); err != nil {
		return nil, err
	}

	s := &session{settings: settings}
	profile, _ := cmd.Flags().GetBool(flagProfile)
	tm, err := telemetry.New(telemetry.DefaultServiceName, settings.TraceEnabled, profile)
	if err != nil {
		return nil, eris.Wrap(err, "failed to set up telemetry")
	}
	s.closers = append(s.closers, tm.Shutdown)

	mounts, err := settings.Mounts()
	if err != nil {
		return nil, s.closeWith(err)
	}
	if s.store, err = content.NewStore(mounts); err != nil {
		return nil, s.closeWith(err)
	}
	if s.registry, err = s.openRegistry(cmd); err != nil {
		return nil, s.closeWith(err)
	}
	return s, nil
}

func (s *session) openRegistry(cmd *cobra.Command) (asset.Registry, error) {
	addr := s.settings.RedisAddress
	if embedded, _ := cmd.Flags().GetBool(flagRedisEmbedded); embedded {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, eris.Wrap(err, "failed to start embedded redis")
		}
		s.closers = append(s.closers, func() error {
			mr.Close()
			return nil
		})
		addr = mr.Addr()
	}
	if addr == "" {
		return asset.NewMemoryRegistry(), nil
	}

	rs := redis.NewRedisStorage(redis.Options{Addr: addr, Password: s.settings.RedisPassword}, redisNamespace)
	s.closers = append(s.closers, rs.Close)
	if err := rs.Ping(cmd.Context()); err != nil {
		return nil, err
	}
	zlog.Debug().Str("address", addr).Msg("Using redis asset registry")
	return &rs.AssetRegistry, nil
}

// index fills the registry from the content store.
func (s *session) index(ctx context.Context) (int, error) {
	return asset.Index(ctx, s.store, s.registry)
}

func (s *session) resolver() *asset.Resolver {
	return asset.NewResolver(s.store, s.registry, s.settings.AssetPaths)
}

func (s *session) closeWith(err error) error {
	if closeErr := s.Close(); closeErr != nil {
		zlog.Warn().Err(closeErr).Msg("Failed to release session resources")
	}
	return err
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() error {
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if closeErr := s.closers[i](); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	s.closers = nil
	return err
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			logger := zerolog.New(cmd.OutOrStdout())
			log.Settings(&logger, s.settings, zerolog.InfoLevel)
			return nil
		},
	}
}
