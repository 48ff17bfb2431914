package log

import (
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/config"
	"pkg.world.dev/world-engine/automation/engine"
)

// Setup configures the global zerolog logger from the settings. Pretty output goes through a console writer.
func Setup(s *config.Settings, out io.Writer) error {
	level, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		return eris.Wrapf(err, "invalid log level %q", s.LogLevel)
	}
	if out == nil {
		out = os.Stderr
	}
	if s.LogPretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	zerolog.SetGlobalLevel(level)
	zlog.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

func loadActorIntoArrayLogger(a engine.Actor, arrayLogger *zerolog.Array) *zerolog.Array {
	base := engine.ActorBaseOf(a)
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Str("name", a.Name())
	if cls := a.Class(); cls != nil {
		dictLogger = dictLogger.Str("class", cls.Name())
	}
	if label := base.ActorLabel(); label != a.Name() {
		dictLogger = dictLogger.Str("label", label)
	}
	if len(base.Tags) > 0 {
		dictLogger = dictLogger.Strs("tags", base.Tags)
	}
	dictLogger = dictLogger.Bool("begun_play", base.HasActorBegunPlay())
	return arrayLogger.Dict(dictLogger)
}

func loadActorsToEvent(zeroLoggerEvent *zerolog.Event, w *engine.World) *zerolog.Event {
	actors := w.Actors()
	zeroLoggerEvent.Int("total_actors", len(actors))
	arrayLogger := zerolog.Arr()
	for _, a := range actors {
		arrayLogger = loadActorIntoArrayLogger(a, arrayLogger)
	}
	return zeroLoggerEvent.Array("actors", arrayLogger)
}

func loadSubsystemsToEvent(zeroLoggerEvent *zerolog.Event, key string, classes []*class.Class) *zerolog.Event {
	arrayLogger := zerolog.Arr()
	for _, cls := range classes {
		arrayLogger = arrayLogger.Str(cls.Path())
	}
	return zeroLoggerEvent.Array(key, arrayLogger)
}

// Actors logs every actor of w.
func Actors(logger *zerolog.Logger, w *engine.World, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level).Str("world", w.Name())
	loadActorsToEvent(zeroLoggerEvent, w).Send()
}

// World logs the state of w: type, play state, game mode, actors, and subsystems.
func World(logger *zerolog.Logger, w *engine.World, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level).
		Str("world", w.Name()).
		Str("type", w.WorldType.String()).
		Bool("initialized", w.IsInitialized()).
		Bool("begun_play", w.HasBegunPlay())
	if gm := w.AuthGameMode(); gm != nil && gm.Class() != nil {
		zeroLoggerEvent.Str("game_mode", gm.Class().Path())
	}
	if gi := w.GameInstance(); gi != nil {
		zeroLoggerEvent.Str("game_instance", gi.Name()).Int("local_players", len(gi.LocalPlayers()))
	}
	zeroLoggerEvent = loadActorsToEvent(zeroLoggerEvent, w)
	if subsystems := w.Subsystems(); subsystems != nil {
		zeroLoggerEvent = loadSubsystemsToEvent(zeroLoggerEvent, "world_subsystems", subsystems.Classes())
	}
	zeroLoggerEvent.Send()
}

// Settings logs the effective automation settings.
func Settings(logger *zerolog.Logger, s *config.Settings, level zerolog.Level) {
	logger.WithLevel(level).
		Strs("asset_paths", s.AssetPaths).
		Str("default_game_mode", s.DefaultGameMode).
		Bool("use_project_default_game_mode", s.UseProjectDefaultGameMode).
		Strs("persistent_world_subsystems", s.PersistentWorldSubsystems).
		Strs("persistent_game_instance_subsystems", s.PersistentGameInstanceSubsystems).
		Strs("persistent_player_subsystems", s.PersistentPlayerSubsystems).
		Bool("reuse_game_instance", s.ReuseGameInstance).
		Bool("run_gc_for_every_world", s.RunGCForEveryWorld).
		Strs("content_mounts", s.ContentMounts).
		Bool("redis", s.RedisAddress != "").
		Msg("Automation settings")
}

// CreateTestLogger creates a sub logger with the entry {"test" : testName}.
func CreateTestLogger(logger *zerolog.Logger, testName string) *zerolog.Logger {
	newLogger := logger.With().Str("test", testName).Logger()
	return &newLogger
}
