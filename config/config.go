package config

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pkg.world.dev/world-engine/automation/content"
)

const (
	EnvPrefix         = "AUTOMATION"
	DefaultConfigName = "automation"

	DefaultGameModeClass = "/Script/Engine.GameModeBase"
	DefaultLogLevel      = "info"
)

// Settings is the read-only policy consumed by the automation runtime.
type Settings struct {
	// AssetPaths are the long package paths searched, in order, when a world is referenced by short name.
	AssetPaths []string `mapstructure:"asset_paths"`

	// DefaultGameMode is the class path of the game mode used when a test asks for none.
	DefaultGameMode string `mapstructure:"default_game_mode"`

	// UseProjectDefaultGameMode defers to the engine project default instead of DefaultGameMode.
	UseProjectDefaultGameMode bool `mapstructure:"use_project_default_game_mode"`

	// Persistent*Subsystems stay instantiable even when a test does not enable them.
	PersistentWorldSubsystems        []string `mapstructure:"persistent_world_subsystems"`
	PersistentGameInstanceSubsystems []string `mapstructure:"persistent_game_instance_subsystems"`
	PersistentPlayerSubsystems       []string `mapstructure:"persistent_player_subsystems"`

	// ReuseGameInstance keeps one game instance alive across fixtures instead of building one per world.
	ReuseGameInstance bool `mapstructure:"reuse_game_instance"`

	// RunGCForEveryWorld collects garbage as soon as a fixture is destroyed instead of once per test run.
	RunGCForEveryWorld bool `mapstructure:"run_gc_for_every_world"`

	// ContentMounts are root=dir pairs mapping long package roots such as /Game to directories on disk.
	// Keys are kept as a list because viper lowercases map keys.
	ContentMounts []string `mapstructure:"content_mounts"`

	// RedisAddress selects the redis asset registry. Empty means the in-memory registry.
	RedisAddress  string `mapstructure:"redis_address"`
	RedisPassword string `mapstructure:"redis_password"`

	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	TraceEnabled bool `mapstructure:"trace_enabled"`
}

var defaults = map[string]any{
	"asset_paths":                         []string{"/Game/Maps", "/Game/Automation"},
	"default_game_mode":                   DefaultGameModeClass,
	"use_project_default_game_mode":       false,
	"persistent_world_subsystems":         []string{},
	"persistent_game_instance_subsystems": []string{},
	"persistent_player_subsystems":        []string{},
	"reuse_game_instance":                 false,
	"run_gc_for_every_world":              false,
	"content_mounts":                      []string{"/Game=content"},
	"redis_address":                       "",
	"redis_password":                      "",
	"log_level":                           DefaultLogLevel,
	"log_pretty":                          false,
	"trace_enabled":                       false,
}

// Default returns the settings used when nothing overrides them.
func Default() Settings {
	return Settings{
		AssetPaths:                       []string{"/Game/Maps", "/Game/Automation"},
		DefaultGameMode:                  DefaultGameModeClass,
		PersistentWorldSubsystems:        []string{},
		PersistentGameInstanceSubsystems: []string{},
		PersistentPlayerSubsystems:       []string{},
		ContentMounts:                    []string{"/Game=content"},
		LogLevel:                         DefaultLogLevel,
	}
}

type loadOptions struct {
	configFile string
	flags      *pflag.FlagSet
}

type Option func(*loadOptions)

// WithConfigFile reads settings from path instead of searching for automation.toml.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) {
		o.configFile = path
	}
}

// WithFlags lets command line flags bound with BindFlags override every other source.
func WithFlags(fs *pflag.FlagSet) Option {
	return func(o *loadOptions) {
		o.flags = fs
	}
}

// Load builds the settings from defaults, the config file, AUTOMATION_* environment variables, and flags,
// in increasing precedence, and validates the result.
func Load(opts ...Option) (*Settings, error) {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, eris.Wrapf(err, "failed to read config file %q", o.configFile)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, eris.Wrap(err, "failed to read config file")
			}
		}
	}

	if o.flags != nil {
		for key := range defaults {
			flag := o.flags.Lookup(flagName(key))
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, eris.Wrapf(err, "failed to bind flag %q", flag.Name)
			}
		}
	}

	cfg := Settings{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "failed to unmarshal settings")
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid settings")
	}
	return &cfg, nil
}

// Validate checks the settings for values the runtime cannot use.
func (s *Settings) Validate() error {
	if _, err := zerolog.ParseLevel(s.LogLevel); err != nil || s.LogLevel == "" {
		return eris.Errorf("log level %q is invalid, try one of: debug, info, warn, error, disabled", s.LogLevel)
	}
	if len(s.AssetPaths) == 0 {
		return eris.New("at least one asset path is required")
	}
	for _, p := range s.AssetPaths {
		if !content.IsValidLongPackageName(p) {
			return eris.Errorf("asset path %q is not a long package name", p)
		}
	}
	if _, err := s.Mounts(); err != nil {
		return err
	}
	return nil
}

// Mounts parses ContentMounts.
func (s *Settings) Mounts() (map[string]string, error) {
	mounts := make(map[string]string, len(s.ContentMounts))
	for _, entry := range s.ContentMounts {
		root, dir, ok := strings.Cut(entry, "=")
		if !ok || dir == "" {
			return nil, eris.Errorf("content mount %q must be root=dir", entry)
		}
		if !content.IsValidMountRoot(root) {
			return nil, eris.Errorf("content mount root %q must look like /Game", root)
		}
		if _, dup := mounts[root]; dup {
			return nil, eris.Errorf("content mount root %q is mounted twice", root)
		}
		mounts[root] = dir
	}
	return mounts, nil
}

// BindFlags registers a flag for each scalar setting. Pass the flag set to Load with WithFlags.
func BindFlags(fs *pflag.FlagSet) {
	fs.StringSlice(flagName("asset_paths"), nil, "long package paths searched for worlds referenced by name")
	fs.String(flagName("default_game_mode"), DefaultGameModeClass, "class path of the default game mode")
	fs.Bool(flagName("reuse_game_instance"), false, "share one game instance across worlds")
	fs.Bool(flagName("run_gc_for_every_world"), false, "collect garbage after every destroyed world")
	fs.StringSlice(flagName("content_mounts"), nil, "root=dir content mounts, e.g. /Game=content")
	fs.String(flagName("redis_address"), "", "redis address of the asset registry, empty for in-memory")
	fs.String(flagName("log_level"), DefaultLogLevel, "log level")
	fs.Bool(flagName("log_pretty"), false, "human readable console logs")
	fs.Bool(flagName("trace_enabled"), false, "export otel spans through the datadog tracer")
}

// flagName turns a settings key into its command line spelling, e.g. log_level into log-level.
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
