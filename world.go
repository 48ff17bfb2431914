package automation

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/engine"
	"pkg.world.dev/world-engine/automation/event"
	alog "pkg.world.dev/world-engine/automation/log"
	"pkg.world.dev/world-engine/automation/stage"
	"pkg.world.dev/world-engine/automation/subsystem"
	"pkg.world.dev/world-engine/automation/testframework"
)

// FrameDeltaSeconds is the fixed step used by TickWorld.
const FrameDeltaSeconds = 1.0 / 60.0

// World is a fixture world. It is created by Runtime.Create and must be destroyed before the test ends.
type World struct {
	rt     *Runtime
	stage  *stage.Manager
	params InitParams

	world        *engine.World
	context      *engine.WorldContext
	gameInstance *engine.GameInstance
	gameMode     *class.Class
	tickType     engine.LevelTick

	worldSubsystems        *subsystem.Collection
	gameInstanceSubsystems *subsystem.Collection

	initialFrameCounter uint64
	prevActiveWorld     *engine.World
	testName            string

	streamingHandle event.Handle
	testEndedHandle event.Handle
}

func (rt *Runtime) construct(w *engine.World, params InitParams, testName string) (*World, error) {
	e := rt.Engine
	fx := &World{
		rt:                  rt,
		stage:               stage.NewManager(),
		params:              params,
		world:               w,
		testName:            testName,
		initialFrameCounter: e.FrameCounter(),
		prevActiveWorld:     e.ActiveWorld(),
	}
	if err := fx.stage.Advance(stage.Constructing); err != nil {
		return nil, err
	}
	rt.world = fx
	fx.streamingHandle = e.LevelStreamingStateChanged.Add(fx.handleLevelStreamingStateChange)

	if params.CreateGameInstance() {
		if params.WorldType != engine.WorldTypeGame {
			err := eris.Wrapf(ErrGameInstanceRequiresGame, "world type %s", params.WorldType)
			rt.fatal(err)
			fx.Destroy()
			return nil, err
		}
		gi, err := rt.getOrCreateGameInstance()
		if err != nil {
			fx.Destroy()
			return nil, err
		}
		fx.gameInstance = gi
		fx.gameInstanceSubsystems = gi.Subsystems()
	}

	if err := fx.initializeNewWorld(); err != nil {
		log.Error().Err(err).Str("operation", "Create").Str("world", w.Name()).Msg("Failed to initialize world")
		fx.Destroy()
		return nil, err
	}

	if fx.gameInstance != nil {
		vc := e.NewViewportClient(fx.context, fx.gameInstance, false)
		vc.Viewport = &engine.DummyViewport{Client: vc}
		fx.context.GameViewport = vc
	}
	if params.Flags.Has(StartPlay) {
		fx.RouteStartPlay()
	}
	if params.Flags.Has(CreateLocalPlayer) {
		fx.GetOrCreatePrimaryPlayer(true)
	}

	fx.testEndedHandle = rt.Framework.TestEnded.Add(fx.handleTestEnded)
	if err := fx.stage.Advance(stage.Active); err != nil {
		fx.Destroy()
		return nil, err
	}
	alog.World(&log.Logger, w, zerolog.DebugLevel)
	return fx, nil
}

func (fx *World) initializeNewWorld() error {
	rt, e, w, params := fx.rt, fx.rt.Engine, fx.world, fx.params

	e.AddToRoot(w)
	w.SetGameInstance(fx.gameInstance)
	e.SetActiveWorld(w)

	fx.context = e.CreateWorldContext(params.WorldType)
	fx.context.SetCurrentWorld(w)
	fx.context.OwningGameInstance = fx.gameInstance
	if fx.gameInstance != nil {
		if err := fx.initGameInstance(); err != nil {
			return err
		}
	}

	settings := w.Settings()
	if params.DefaultGameMode != nil {
		if !params.HasWorldPackage() || settings.DefaultGameMode == nil {
			settings.DefaultGameMode = params.DefaultGameMode
		} else if settings.DefaultGameMode != params.DefaultGameMode {
			log.Error().Str("test", fx.testName).Str("package", params.WorldPackage).
				Str("world_game_mode", settings.DefaultGameMode.Path()).
				Str("requested_game_mode", params.DefaultGameMode.Path()).
				Msg("Cannot override the game mode of a loaded world that already has one")
		}
	}
	if settings.DefaultGameMode == nil {
		settings.DefaultGameMode = rt.defaultGameMode()
	}
	fx.gameMode = settings.DefaultGameMode

	if params.InitWorld != nil {
		params.InitWorld(w)
	}
	if params.InitWorldSettings != nil {
		params.InitWorldSettings(settings)
	}

	w.WorldType = params.WorldType
	fx.tickType = engine.LevelTickAll
	if params.WorldType == engine.WorldTypeEditor {
		fx.tickType = engine.LevelTickViewportsOnly
	}
	if err := fx.initWorld(); err != nil {
		return err
	}

	if fx.gameInstance != nil {
		w.SetGameMode(engine.URL{})
	}
	w.UpdateWorldComponents()
	w.FlushLevelStreaming()

	if fx.IsEditorWorld() && params.Flags.Has(InitNavigation) {
		engine.AddNavigationSystemToWorld(w, engine.NavigationEditorMode)
	}
	return nil
}

func (fx *World) initGameInstance() error {
	gate := fx.rt.enterGate(subsystem.CategoryGameInstance, fx.params.GameSubsystems)
	defer gate.Exit()
	return initForAutomation(fx.gameInstance, fx.context)
}

func (fx *World) initWorld() error {
	gate := fx.rt.enterGate(subsystem.CategoryWorld, fx.params.WorldSubsystems)
	defer gate.Exit()
	if err := fx.world.InitWorld(fx.params.WorldInitValues()); err != nil {
		return err
	}
	fx.worldSubsystems = fx.world.Subsystems()
	return nil
}

// Destroy tears the fixture down and restores the global state captured by Create. It is safe to call more than
// once.
func (fx *World) Destroy() {
	current := fx.stage.Current()
	if current == stage.Destroyed || current == stage.Uninitialized {
		return
	}
	if current == stage.Active {
		_ = fx.stage.Advance(stage.EndingPlay)
	}
	rt, e := fx.rt, fx.rt.Engine
	_, span := rt.tracer.Start(context.Background(), "automation.destroy",
		trace.WithAttributes(worldTypeAttr(fx.params.WorldType), packageAttr(fx.params.WorldPackage)))
	defer span.End()

	e.LevelStreamingStateChanged.Remove(fx.streamingHandle)
	rt.Framework.TestEnded.Remove(fx.testEndedHandle)

	w := fx.world
	if w != nil && w.IsInitialized() && w.HasBegunPlay() {
		fx.RouteEndPlay()
	}
	if fx.gameInstance != nil {
		fx.gameInstance.Shutdown()
	}
	fx.worldSubsystems = nil
	fx.gameInstanceSubsystems = nil

	if w != nil {
		e.ShutdownWorldNetDriver(w)
		w.DestroyWorld()
		e.DestroyWorldContext(w)
		e.RemoveFromRoot(w)
	}
	fx.world = nil
	fx.context = nil
	fx.gameInstance = nil
	if !rt.Settings.ReuseGameInstance {
		rt.releaseSharedGameInstance()
	}

	e.SetFrameCounter(fx.initialFrameCounter)
	e.SetActiveWorld(fx.prevActiveWorld)

	rt.RequestGC()
	if rt.Settings.RunGCForEveryWorld {
		rt.collectGarbage(true)
	}
	if rt.world == fx {
		rt.world = nil
	}
	_ = fx.stage.Advance(stage.Destroyed)
}

// IsAlive reports whether the fixture has been created and not yet destroyed.
func (fx *World) IsAlive() bool {
	return fx.stage.IsAlive()
}

func (fx *World) Stage() stage.Stage {
	return fx.stage.Current()
}

func (fx *World) handleLevelStreamingStateChange(change engine.LevelStreamingStateChange) {
	if change.World != fx.world || change.Level == nil {
		return
	}
	if sub := change.Level.OuterWorld(); sub != nil {
		// Editor sessions keep sublevel worlds standalone; a fixture must let them be collected.
		sub.ClearFlags(engine.KeepFlags)
	}
}

func (fx *World) handleTestEnded(result testframework.Result) {
	if !fx.IsAlive() {
		return
	}
	fx.rt.fatal(eris.Wrapf(ErrWorldLeaked, "test %q", result.Name))
}

// Name returns the engine world name, or "" once destroyed.
func (fx *World) Name() string {
	if fx.world == nil {
		return ""
	}
	return fx.world.Name()
}

func (fx *World) IsEditorWorld() bool {
	return fx.params.WorldType == engine.WorldTypeEditor
}

func (fx *World) Params() InitParams {
	return fx.params
}

func (fx *World) World() *engine.World {
	return fx.world
}

func (fx *World) WorldContext() *engine.WorldContext {
	return fx.context
}

func (fx *World) GameInstance() *engine.GameInstance {
	return fx.gameInstance
}

// GameModeClass returns the effective default game mode class chosen at creation.
func (fx *World) GameModeClass() *class.Class {
	return fx.gameMode
}

// GameMode returns the authority game mode, or nil when the world runs without one.
func (fx *World) GameMode() engine.GameMode {
	if fx.world == nil {
		return nil
	}
	return fx.world.AuthGameMode()
}

func (fx *World) GameState() *engine.GameState {
	gm := fx.GameMode()
	if gm == nil {
		return nil
	}
	return gm.GameState()
}

func (fx *World) WorldSubsystems() *subsystem.Collection {
	return fx.worldSubsystems
}

func (fx *World) GameInstanceSubsystems() *subsystem.Collection {
	return fx.gameInstanceSubsystems
}

// RouteStartPlay initializes actors for play and begins play. Editor worlds and worlds already playing are left
// alone.
func (fx *World) RouteStartPlay() {
	w := fx.world
	if fx.IsEditorWorld() || w == nil || w.HasBegunPlay() {
		return
	}
	w.InitializeActorsForPlay(engine.URL{})
	if fx.params.Flags.Has(InitNavigation) {
		engine.AddNavigationSystemToWorld(w, engine.NavigationGameMode)
	}
	w.BeginPlay()
	if w.AuthGameMode() == nil {
		w.Settings().NotifyBeginPlay()
	}
}

// RouteEndPlay ends play for every actor.
func (fx *World) RouteEndPlay() {
	w := fx.world
	if fx.IsEditorWorld() || w == nil || !w.HasBegunPlay() {
		return
	}
	for _, a := range w.Actors() {
		engine.RouteEndPlay(a, engine.EndPlayInEditor)
	}
	w.SetBegunPlay(false)
}

// TickWorld advances the world and the engine tickers by frames fixed steps.
func (fx *World) TickWorld(frames int) {
	e := fx.rt.Engine
	for ; frames > 0; frames-- {
		w := fx.world
		w.Tick(fx.tickType, FrameDeltaSeconds)
		if fx.IsEditorWorld() {
			e.TickEditorObjects(FrameDeltaSeconds)
		} else {
			e.TickGameObjects(FrameDeltaSeconds)
		}
		w.UpdateLevelStreaming()
		e.CoreTicker.Tick(FrameDeltaSeconds)
		e.IncrementFrameCounter()
	}
}

// Dump logs the world state at level.
func (fx *World) Dump(level zerolog.Level) {
	if fx.world == nil {
		return
	}
	alog.World(&log.Logger, fx.world, level)
}
