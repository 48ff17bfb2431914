package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"pkg.world.dev/world-engine/automation/asset"
	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/config"
	"pkg.world.dev/world-engine/automation/content"
	"pkg.world.dev/world-engine/automation/engine"
	"pkg.world.dev/world-engine/automation/event"
	"pkg.world.dev/world-engine/automation/subsystem"
	"pkg.world.dev/world-engine/automation/testframework"
)

const (
	GameInstanceClassPath = "/Script/Automation.AutomationGameInstance"
	TargetPointClassPath  = "/Script/Automation.TargetPoint"

	sharedGameInstanceName = "AutomationWorld_SharedGameInstance"
	defaultTestName        = "Automation"
	worldName              = "AutomationWorld"
	tempRoot               = "/Temp"
)

var (
	ErrWorldAlreadyExists          = errors.New("an automation world already exists")
	ErrWorldLeaked                 = errors.New("automation world was not destroyed at the end of the test")
	ErrGameInstanceRequiresGame    = errors.New("a game instance requires a game world")
	ErrInvalidWorldPackage         = errors.New("invalid world package")
	ErrWorldPackageNotFound        = errors.New("world package does not exist")
	ErrNoWorldInPackage            = errors.New("package does not contain a world")
	ErrLocalPlayer                 = errors.New("failed to create local player")
	ErrRuntimeClosed               = errors.New("automation runtime is closed")
	ErrGameInstanceNotSupported    = errors.New("game instance class does not support automation")
	errUnsupportedGameInstanceType = eris.Wrap(ErrGameInstanceNotSupported, "falling back to the automation game instance")
)

// FatalHandler receives errors that must abort the test process.
type FatalHandler func(err error)

// Runtime is the process-wide automation context. It guards the single fixture world, owns the shared game
// instance, and defers garbage collection to the end of a test run.
type Runtime struct {
	Engine    *engine.Engine
	Settings  config.Settings
	Resolver  *asset.Resolver
	Framework *testframework.Framework

	world              *World
	sharedGameInstance *engine.GameInstance
	gameInstanceCount  uint64
	gcRequested        bool
	closed             bool

	gameInstanceClass *class.Class
	targetPointClass  *class.Class

	runEndedHandle event.Handle
	tracer         trace.Tracer
	fatal          FatalHandler
}

type Option func(*Runtime)

// WithFatalHandler replaces the default handler, which logs and panics.
func WithFatalHandler(h FatalHandler) Option {
	return func(rt *Runtime) {
		rt.fatal = h
	}
}

func WithFramework(f *testframework.Framework) Option {
	return func(rt *Runtime) {
		rt.Framework = f
	}
}

// WithResolver uses r instead of indexing the engine content store into a memory registry.
func WithResolver(r *asset.Resolver) Option {
	return func(rt *Runtime) {
		rt.Resolver = r
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(rt *Runtime) {
		rt.tracer = t
	}
}

// NewRuntime binds a runtime to e. Unless a resolver is given, the content store of e is indexed into an
// in-memory asset registry searched with settings.AssetPaths.
func NewRuntime(e *engine.Engine, settings *config.Settings, opts ...Option) (*Runtime, error) {
	if e == nil {
		return nil, eris.New("automation runtime requires an engine")
	}
	if settings == nil {
		defaults := config.Default()
		settings = &defaults
	}
	rt := &Runtime{
		Engine:   e,
		Settings: *settings,
		fatal:    panicOnFatalError,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.Framework == nil {
		rt.Framework = testframework.New()
	}
	if rt.tracer == nil {
		rt.tracer = otel.Tracer("automation")
	}
	if err := rt.registerClasses(); err != nil {
		return nil, err
	}
	if rt.Resolver == nil {
		registry := asset.NewMemoryRegistry()
		if _, err := asset.Index(context.Background(), e.Content, registry); err != nil {
			return nil, eris.Wrap(err, "failed to index content")
		}
		rt.Resolver = asset.NewResolver(e.Content, registry, rt.Settings.AssetPaths)
	}
	rt.runEndedHandle = rt.Framework.RunEnded.Add(func(testframework.Run) {
		rt.HandleTestRunEnded()
	})
	return rt, nil
}

func panicOnFatalError(err error) {
	log.Error().Err(err).Msg("Fatal automation error")
	panic(err)
}

func (rt *Runtime) registerClasses() error {
	r := rt.Engine.Classes
	var err error
	if rt.gameInstanceClass, err = r.Find(GameInstanceClassPath); err != nil {
		rt.gameInstanceClass, err = class.Register[GameInstance](r, GameInstanceClassPath, rt.Engine.Core.GameInstance)
		if err != nil {
			return eris.Wrap(err, "failed to register automation game instance")
		}
	}
	if rt.targetPointClass, err = r.Find(TargetPointClassPath); err != nil {
		rt.targetPointClass, err = class.Register[TargetPoint](r, TargetPointClassPath, rt.Engine.Core.Actor)
		if err != nil {
			return eris.Wrap(err, "failed to register target point")
		}
	}
	return nil
}

// Exists reports whether a fixture world is alive.
func (rt *Runtime) Exists() bool {
	return rt.world != nil
}

// Current returns the alive fixture, or nil.
func (rt *Runtime) Current() *World {
	return rt.world
}

func (rt *Runtime) TargetPointClass() *class.Class {
	return rt.targetPointClass
}

// Close unsubscribes from the test framework and releases the shared game instance. A fixture still alive is
// destroyed first.
func (rt *Runtime) Close() {
	if rt.closed {
		return
	}
	if rt.world != nil {
		log.Warn().Str("world", rt.world.Name()).Msg("Destroying automation world on runtime close")
		rt.world.Destroy()
	}
	rt.Framework.RunEnded.Remove(rt.runEndedHandle)
	rt.releaseSharedGameInstance()
	rt.closed = true
}

func (rt *Runtime) CreateGameWorld(flags InitFlags) (*World, error) {
	return rt.Create(NewInitParams(engine.WorldTypeGame, flags))
}

func (rt *Runtime) CreateGameWorldWithGameInstance(gameMode *class.Class, flags InitFlags) (*World, error) {
	return rt.Create(NewInitParams(engine.WorldTypeGame, WithGameInstance|flags).SetGameMode(gameMode))
}

func (rt *Runtime) CreateGameWorldWithPlayer(gameMode *class.Class, flags InitFlags) (*World, error) {
	return rt.Create(NewInitParams(engine.WorldTypeGame, WithLocalPlayer|flags).SetGameMode(gameMode))
}

func (rt *Runtime) CreateEditorWorld(flags InitFlags) (*World, error) {
	return rt.Create(NewInitParams(engine.WorldTypeEditor, flags))
}

// LoadGameWorld loads a world by long package name, or by short name over the configured asset paths.
func (rt *Runtime) LoadGameWorld(world string, flags InitFlags) (*World, error) {
	return rt.load(engine.WorldTypeGame, world, flags)
}

func (rt *Runtime) LoadEditorWorld(world string, flags InitFlags) (*World, error) {
	return rt.load(engine.WorldTypeEditor, world, flags)
}

func (rt *Runtime) load(t engine.WorldType, world string, flags InitFlags) (*World, error) {
	if world == "" {
		return nil, eris.Wrap(ErrInvalidWorldPackage, "world name is empty")
	}
	params := NewInitParams(t, flags)
	if strings.HasPrefix(world, "/") {
		return rt.Create(params.SetWorldPackage(world))
	}
	// The world asset comes first in a map package, whether it is a world or a redirector to one.
	d, err := rt.Resolver.FindByName(context.Background(), world, content.PackageContainsMap, "")
	if err != nil {
		return nil, eris.Wrapf(err, "failed to find world %q", world)
	}
	if d.ClassPath != asset.WorldClassPath && !d.IsRedirector() {
		return nil, eris.Wrapf(asset.ErrAssetNotFound, "package %q holds no world", d.PackageName)
	}
	return rt.Create(params.SetWorldAsset(d))
}

// Create builds and initializes a fixture world. Only one fixture may be alive at a time.
func (rt *Runtime) Create(params InitParams) (*World, error) {
	if rt.closed {
		return nil, ErrRuntimeClosed
	}
	if rt.world != nil {
		err := eris.Wrapf(ErrWorldAlreadyExists, "world %q is still alive", rt.world.Name())
		rt.fatal(err)
		return nil, err
	}
	_, span := rt.tracer.Start(context.Background(), "automation.create", trace.WithAttributes(
		worldTypeAttr(params.WorldType), packageAttr(params.WorldPackage)))
	defer span.End()

	testName := rt.currentTestName()
	var (
		w   *engine.World
		err error
	)
	if params.HasWorldPackage() {
		w, err = rt.loadWorld(params, testName)
	} else {
		w, err = rt.newWorld(params, testName)
	}
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	fx, err := rt.construct(w, params, testName)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return fx, nil
}

func (rt *Runtime) loadWorld(params InitParams, testName string) (*engine.World, error) {
	e := rt.Engine
	source := params.WorldPackage
	if !content.IsValidLongPackageName(source) {
		log.Error().Str("operation", "Create").Str("package", source).Msg("World package is not a valid long package name")
		return nil, eris.Wrapf(ErrInvalidWorldPackage, "package %q", source)
	}
	if !e.Content.Exists(source) {
		log.Error().Str("operation", "Create").Str("package", source).Msg("World package does not exist")
		return nil, eris.Wrapf(ErrWorldPackageNotFound, "package %q", source)
	}

	name := e.MakeUniquePackageName(fmt.Sprintf("%s/%s_%s", tempRoot, testName, content.ShortName(source)))
	pkg, err := e.CreatePackage(name, engine.FlagTransient)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to create package for %q", source)
	}
	pkg.SetPackageFlags(content.PackageContainsMap | content.PackagePlayInEditor | content.PackageTransient)

	e.SetPreloadWorldType(source, params.WorldType)
	defer e.ClearPreloadWorldType(source)
	if err := e.LoadPackage(pkg, source); err != nil {
		log.Error().Err(err).Str("operation", "Create").Str("package", source).Msg("Failed to load world package")
		return nil, eris.Wrapf(err, "failed to load package %q", source)
	}
	w := engine.FindWorldInPackage(pkg)
	if w == nil {
		if w, err = e.FollowWorldRedirectorInPackage(pkg); err != nil {
			log.Error().Err(err).Str("operation", "Create").Str("package", source).Msg("Package holds no world")
			return nil, eris.Wrapf(ErrNoWorldInPackage, "package %q: %v", source, err)
		}
	}
	return w, nil
}

func (rt *Runtime) newWorld(params InitParams, testName string) (*engine.World, error) {
	e := rt.Engine
	pkg, err := e.CreatePackage(e.MakeUniquePackageName(tempRoot+"/"+testName), engine.FlagTransient)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create world package")
	}
	pkg.SetPackageFlags(content.PackageTransient)
	w, err := e.CreateWorld(params.WorldType, pkg, worldName)
	if err != nil {
		log.Error().Err(err).Str("operation", "Create").Str("type", params.WorldType.String()).
			Msg("Failed to create world")
		return nil, eris.Wrap(err, "failed to create world")
	}
	return w, nil
}

// getOrCreateGameInstance returns the shared game instance, creating it on first use. A project game instance
// class that does not support automation is replaced by the automation game instance.
func (rt *Runtime) getOrCreateGameInstance() (*engine.GameInstance, error) {
	if rt.sharedGameInstance != nil {
		return rt.sharedGameInstance, nil
	}
	cls := rt.Engine.GameInstanceClass
	if cls == nil || !SupportsAutomation(cls) {
		if cls != nil {
			log.Warn().Err(errUnsupportedGameInstanceType).Str("class", cls.Path()).Msg("Ignoring project game instance")
		}
		cls = rt.gameInstanceClass
	}

	name := sharedGameInstanceName
	if !rt.Settings.ReuseGameInstance {
		name = fmt.Sprintf("AutomationWorld_GameInstance_%d", rt.gameInstanceCount)
		rt.gameInstanceCount++
	}
	gi, err := rt.Engine.NewGameInstance(cls, name)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to create game instance %q", name)
	}
	if rt.Settings.ReuseGameInstance {
		rt.Engine.AddToRoot(gi.Self())
	}
	rt.sharedGameInstance = gi
	return gi, nil
}

func (rt *Runtime) releaseSharedGameInstance() {
	if rt.sharedGameInstance == nil {
		return
	}
	rt.Engine.RemoveFromRoot(rt.sharedGameInstance.Self())
	rt.sharedGameInstance = nil
}

// persistentClasses resolves the configured always-on subsystem classes of category. Unknown paths are skipped.
func (rt *Runtime) persistentClasses(category subsystem.Category) []*class.Class {
	var paths []string
	switch category {
	case subsystem.CategoryWorld:
		paths = rt.Settings.PersistentWorldSubsystems
	case subsystem.CategoryGameInstance:
		paths = rt.Settings.PersistentGameInstanceSubsystems
	case subsystem.CategoryLocalPlayer:
		paths = rt.Settings.PersistentPlayerSubsystems
	}
	out := make([]*class.Class, 0, len(paths))
	for _, path := range paths {
		cls, err := rt.Engine.Classes.Find(path)
		if err != nil {
			log.Warn().Err(err).Str("category", category.String()).Str("class", path).
				Msg("Unknown persistent subsystem")
			continue
		}
		out = append(out, cls)
	}
	return out
}

func (rt *Runtime) enterGate(category subsystem.Category, allowed []*class.Class) *subsystem.Gate {
	return subsystem.Enter(rt.Engine.Classes, category, allowed, rt.persistentClasses(category))
}

// defaultGameMode resolves settings.DefaultGameMode, or nil when the project default should be used.
func (rt *Runtime) defaultGameMode() *class.Class {
	if rt.Settings.UseProjectDefaultGameMode || rt.Settings.DefaultGameMode == "" {
		return nil
	}
	cls, err := rt.Engine.ResolveClass(rt.Settings.DefaultGameMode, rt.Engine.Core.GameModeBase)
	if err != nil {
		log.Warn().Err(err).Str("game_mode", rt.Settings.DefaultGameMode).Msg("Ignoring configured default game mode")
		return nil
	}
	return cls
}

func (rt *Runtime) currentTestName() string {
	name := rt.Framework.CurrentTest()
	if name == "" {
		return defaultTestName
	}
	return sanitizePackageSegment(name)
}

// sanitizePackageSegment makes s usable as one segment of a long package name.
func sanitizePackageSegment(s string) string {
	out := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-') {
			return r
		}
		return '_'
	}, s)
	if out == "" {
		return defaultTestName
	}
	return out
}
