package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"pkg.world.dev/world-engine/assert"
)

func TestSettings_Defaults(t *testing.T) {
	cfg, err := Load()
	assert.NilError(t, err)
	want := Default()
	assert.IsEqual(t, want.AssetPaths, cfg.AssetPaths)
	assert.IsEqual(t, want.ContentMounts, cfg.ContentMounts)
	assert.Equal(t, want.DefaultGameMode, cfg.DefaultGameMode)
	assert.Equal(t, want.LogLevel, cfg.LogLevel)
	assert.Equal(t, 0, len(cfg.PersistentWorldSubsystems))
	assert.Check(t, !cfg.ReuseGameInstance)
	assert.Check(t, !cfg.RunGCForEveryWorld)
	assert.Check(t, !cfg.UseProjectDefaultGameMode)
	assert.Equal(t, "", cfg.RedisAddress)
}

func TestSettings_LoadFromEnv(t *testing.T) {
	t.Setenv("AUTOMATION_ASSET_PATHS", "/Game/Tests,/Plugins/Maps")
	t.Setenv("AUTOMATION_DEFAULT_GAME_MODE", "/Script/Engine.GameMode")
	t.Setenv("AUTOMATION_REUSE_GAME_INSTANCE", "true")
	t.Setenv("AUTOMATION_PERSISTENT_WORLD_SUBSYSTEMS", "/Script/Game.WeatherSubsystem")
	t.Setenv("AUTOMATION_LOG_LEVEL", "debug")

	cfg, err := Load()
	assert.NilError(t, err)
	assert.IsEqual(t, []string{"/Game/Tests", "/Plugins/Maps"}, cfg.AssetPaths)
	assert.Equal(t, "/Script/Engine.GameMode", cfg.DefaultGameMode)
	assert.Check(t, cfg.ReuseGameInstance)
	assert.IsEqual(t, []string{"/Script/Game.WeatherSubsystem"}, cfg.PersistentWorldSubsystems)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSettings_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "automation.toml")
	body := `
asset_paths = ["/Game/Smoke"]
run_gc_for_every_world = true
content_mounts = ["/Game=game", "/Engine=engine"]
`
	assert.NilError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(WithConfigFile(path))
	assert.NilError(t, err)
	assert.IsEqual(t, []string{"/Game/Smoke"}, cfg.AssetPaths)
	assert.Check(t, cfg.RunGCForEveryWorld)
	mounts, err := cfg.Mounts()
	assert.NilError(t, err)
	assert.IsEqual(t, map[string]string{"/Game": "game", "/Engine": "engine"}, mounts)
}

func TestSettings_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("AUTOMATION_LOG_LEVEL", "warn")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	assert.NilError(t, fs.Parse([]string{"--log-level=error", "--reuse-game-instance"}))

	cfg, err := Load(WithFlags(fs))
	assert.NilError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Check(t, cfg.ReuseGameInstance)
	assert.Equal(t, DefaultGameModeClass, cfg.DefaultGameMode)
}

func TestSettings_MissingConfigFileFails(t *testing.T) {
	_, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "missing.toml")))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestSettings_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Settings) {},
		},
		{
			name:    "bad log level",
			mutate:  func(s *Settings) { s.LogLevel = "loud" },
			wantErr: "log level",
		},
		{
			name:    "no asset paths",
			mutate:  func(s *Settings) { s.AssetPaths = nil },
			wantErr: "at least one asset path",
		},
		{
			name:    "asset path is not a package name",
			mutate:  func(s *Settings) { s.AssetPaths = []string{"Maps"} },
			wantErr: "not a long package name",
		},
		{
			name:    "mount without directory",
			mutate:  func(s *Settings) { s.ContentMounts = []string{"/Game="} },
			wantErr: "must be root=dir",
		},
		{
			name:    "nested mount root",
			mutate:  func(s *Settings) { s.ContentMounts = []string{"/Game/Maps=maps"} },
			wantErr: "must look like /Game",
		},
		{
			name:    "duplicate mount root",
			mutate:  func(s *Settings) { s.ContentMounts = []string{"/Game=a", "/Game=b"} },
			wantErr: "mounted twice",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := Default()
			tc.mutate(&s)
			err := s.Validate()
			if tc.wantErr == "" {
				assert.NilError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}
