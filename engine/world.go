package engine

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/subsystem"
)

type WorldType int

const (
	WorldTypeInactive WorldType = iota
	WorldTypeGame
	WorldTypeEditor
	WorldTypePIE
)

func (t WorldType) String() string {
	switch t {
	case WorldTypeGame:
		return "Game"
	case WorldTypeEditor:
		return "Editor"
	case WorldTypePIE:
		return "PIE"
	default:
		return "Inactive"
	}
}

// IsGame reports whether the type runs gameplay.
func (t WorldType) IsGame() bool {
	return t == WorldTypeGame || t == WorldTypePIE
}

type LevelTick int

const (
	LevelTickTimeOnly LevelTick = iota
	LevelTickViewportsOnly
	LevelTickAll
)

// InitValues selects which world features InitWorld brings up.
type InitValues struct {
	InitializeScenes              bool
	AllowAudioPlayback            bool
	RequiresHitProxies            bool
	CreatePhysicsScene            bool
	CreateNavigation              bool
	CreateAISystem                bool
	ShouldSimulatePhysics         bool
	EnableTraceCollision          bool
	Transactional                 bool
	CreateFXSystem                bool
	CreateWorldPartition          bool
	EnableWorldPartitionStreaming bool
	// DefaultGameMode fills the world settings game mode when the world does not carry one.
	DefaultGameMode *class.Class
}

type Scene struct {
	RequiresHitProxies bool
}

type PhysicsScene struct{}

type AISystem struct{}

type FXSystem struct{}

type NavigationMode int

const (
	NavigationInvalidMode NavigationMode = iota
	NavigationGameMode
	NavigationEditorMode
)

type NavigationSystem struct {
	Mode NavigationMode
}

type WorldPartition struct {
	StreamingEnabled bool
	initialized      bool
}

func (p *WorldPartition) IsInitialized() bool {
	return p != nil && p.initialized
}

type NetDriver struct {
	ID     uuid.UUID
	closed bool
}

func (d *NetDriver) IsClosed() bool {
	return d.closed
}

// World is a level instance with its actors, subsystems, and feature objects.
type World struct {
	ObjectBase
	WorldType WorldType

	engine       *Engine
	pkg          *Package
	settings     *WorldSettings
	actors       []Actor
	streaming    []*StreamingLevel
	gameInstance *GameInstance
	authGameMode GameMode
	subsystems   *subsystem.Collection
	netDriver    *NetDriver
	initValues   InitValues
	url          URL

	initialized       bool
	actorsInitialized bool
	begunPlay         bool
	timeSeconds       float64
	tickCount         uint64

	Scene                *Scene
	PhysicsScene         *PhysicsScene
	AISystem             *AISystem
	FXSystem             *FXSystem
	NavigationSystem     *NavigationSystem
	WorldPartition       *WorldPartition
	allowAudioPlayback   bool
	shouldSimulatePhysic bool
	enableTraceCollision bool
}

// CreateWorld makes an uninitialized world inside pkg. InitWorld must be called before the world is used.
func (e *Engine) CreateWorld(t WorldType, pkg *Package, name string) (*World, error) {
	if pkg == nil {
		return nil, eris.New("cannot create a world without a package")
	}
	if pkg.world != nil && pkg.world.IsValid() {
		return nil, eris.Errorf("package %q already holds world %q", pkg.Name(), pkg.world.Name())
	}
	if name == "" {
		name = "World"
	}
	w := &World{WorldType: t, engine: e, pkg: pkg}
	e.track(w, pkg, name, FlagTransient)
	pkg.world = w

	settings := &WorldSettings{}
	e.track(settings, w, "WorldSettings", FlagTransient)
	settings.world = w
	w.settings = settings
	w.actors = append(w.actors, settings)
	return w, nil
}

func (w *World) Engine() *Engine {
	return w.engine
}

func (w *World) Package() *Package {
	return w.pkg
}

func (w *World) Settings() *WorldSettings {
	return w.settings
}

func (w *World) IsInitialized() bool {
	return w.initialized
}

func (w *World) IsGameWorld() bool {
	return w.WorldType.IsGame()
}

func (w *World) HasBegunPlay() bool {
	return w.begunPlay
}

func (w *World) SetBegunPlay(begun bool) {
	w.begunPlay = begun
}

func (w *World) AreActorsInitialized() bool {
	return w.actorsInitialized
}

func (w *World) AuthGameMode() GameMode {
	return w.authGameMode
}

func (w *World) GameInstance() *GameInstance {
	return w.gameInstance
}

func (w *World) SetGameInstance(gi *GameInstance) {
	w.gameInstance = gi
}

// Subsystems returns the world subsystem collection. It is nil until InitWorld.
func (w *World) Subsystems() *subsystem.Collection {
	return w.subsystems
}

func (w *World) NetDriver() *NetDriver {
	return w.netDriver
}

func (w *World) AllowAudioPlayback() bool {
	return w.allowAudioPlayback
}

func (w *World) RequiresHitProxies() bool {
	return w.Scene != nil && w.Scene.RequiresHitProxies
}

func (w *World) ShouldSimulatePhysics() bool {
	return w.shouldSimulatePhysic
}

func (w *World) EnableTraceCollision() bool {
	return w.enableTraceCollision
}

func (w *World) TimeSeconds() float64 {
	return w.timeSeconds
}

func (w *World) InitValues() InitValues {
	return w.initValues
}

func (w *World) URL() URL {
	return w.url
}

// InitWorld brings up the features selected by iv and creates the world subsystems that are currently
// instantiable.
func (w *World) InitWorld(iv InitValues) error {
	if w.initialized {
		return eris.Errorf("world %q is already initialized", w.Name())
	}
	w.initValues = iv
	if iv.InitializeScenes {
		w.Scene = &Scene{RequiresHitProxies: iv.RequiresHitProxies}
	}
	if iv.CreatePhysicsScene {
		w.PhysicsScene = &PhysicsScene{}
	}
	if iv.CreateNavigation {
		w.NavigationSystem = &NavigationSystem{Mode: NavigationInvalidMode}
	}
	if iv.CreateAISystem {
		w.AISystem = &AISystem{}
	}
	if iv.CreateFXSystem {
		w.FXSystem = &FXSystem{}
	}
	if iv.CreateWorldPartition {
		w.WorldPartition = &WorldPartition{StreamingEnabled: iv.EnableWorldPartitionStreaming, initialized: true}
	}
	w.allowAudioPlayback = iv.AllowAudioPlayback
	w.shouldSimulatePhysic = iv.ShouldSimulatePhysics
	w.enableTraceCollision = iv.EnableTraceCollision
	if iv.DefaultGameMode != nil && w.settings.DefaultGameMode == nil {
		w.settings.DefaultGameMode = iv.DefaultGameMode
	}

	w.subsystems = subsystem.NewCollection(w.engine.Classes, subsystem.CategoryWorld)
	if err := w.subsystems.Initialize(w); err != nil {
		return eris.Wrapf(err, "world %q", w.Name())
	}
	w.subsystems.ForEachWorld(func(s subsystem.WorldSubsystem) {
		s.PostInitialize()
	})
	w.initialized = true
	log.Debug().Str("world", w.Name()).Str("type", w.WorldType.String()).
		Int("subsystems", w.subsystems.Len()).Msg("World initialized")
	return nil
}

// UpdateWorldComponents registers actor components and notifies world subsystems.
func (w *World) UpdateWorldComponents() {
	if w.subsystems == nil {
		return
	}
	w.subsystems.ForEachWorld(func(s subsystem.WorldSubsystem) {
		s.OnWorldComponentsUpdated()
	})
}

// SetGameMode asks the game instance for a game mode matching url. It only runs once per world.
func (w *World) SetGameMode(url URL) bool {
	if w.authGameMode != nil || w.gameInstance == nil {
		return false
	}
	gm, err := w.gameInstance.CreateGameModeForURL(url, w)
	if err != nil {
		log.Error().Err(err).Str("world", w.Name()).Msg("Failed to create game mode")
		return false
	}
	w.authGameMode = gm
	return gm != nil
}

// InitializeActorsForPlay runs InitGame on the game mode and initializes every actor once.
func (w *World) InitializeActorsForPlay(url URL) {
	if w.actorsInitialized {
		return
	}
	w.url = url
	if w.IsGameWorld() && w.netDriver == nil {
		w.netDriver = &NetDriver{ID: uuid.New()}
	}
	if w.authGameMode != nil {
		w.authGameMode.InitGame(url)
	}
	for _, a := range w.Actors() {
		if i, ok := a.(ComponentInitializer); ok {
			i.PostInitializeComponents()
		}
	}
	w.actorsInitialized = true
}

// BeginPlay notifies world subsystems and starts the game mode, which dispatches BeginPlay to actors.
func (w *World) BeginPlay() {
	if w.subsystems != nil {
		w.subsystems.ForEachWorld(func(s subsystem.WorldSubsystem) {
			s.OnWorldBeginPlay()
		})
	}
	if w.authGameMode != nil {
		w.authGameMode.StartPlay()
	}
}

// Tick advances world time. Actors and tickable world subsystems only tick with LevelTickAll once play began.
func (w *World) Tick(tickType LevelTick, dt float64) {
	w.timeSeconds += dt
	w.tickCount++
	if tickType != LevelTickAll || !w.begunPlay {
		return
	}
	for _, a := range w.Actors() {
		if t, ok := a.(Tickable); ok && a.actor().HasActorBegunPlay() {
			t.Tick(dt)
		}
	}
	if w.subsystems != nil {
		for _, s := range w.subsystems.Subsystems() {
			if t, ok := s.(Tickable); ok {
				t.Tick(dt)
			}
		}
	}
}

func (w *World) TickCount() uint64 {
	return w.tickCount
}

// DestroyWorld tears down subsystems, streaming levels, and actors and marks the world as garbage.
func (w *World) DestroyWorld() {
	if w.subsystems != nil {
		w.subsystems.Deinitialize()
	}
	for _, level := range w.streaming {
		w.unloadStreamingLevel(level)
	}
	w.streaming = nil
	for _, a := range w.actors {
		a.actor().MarkAsGarbage()
	}
	w.actors = nil
	w.settings = nil
	w.authGameMode = nil
	w.gameInstance = nil
	w.initialized = false
	w.MarkAsGarbage()
	log.Debug().Str("world", w.Name()).Msg("World destroyed")
}

func (w *World) ReferencedObjects() []Object {
	refs := make([]Object, 0, len(w.actors)+len(w.streaming)+2)
	for _, a := range w.actors {
		refs = append(refs, a)
	}
	for _, level := range w.streaming {
		if level.loaded != nil {
			refs = append(refs, level.loaded)
		}
	}
	if w.gameInstance != nil {
		refs = append(refs, w.gameInstance.self)
	}
	if w.pkg != nil {
		refs = append(refs, w.pkg)
	}
	return refs
}

// ShutdownWorldNetDriver closes the net driver of w, if any.
func (e *Engine) ShutdownWorldNetDriver(w *World) {
	if w.netDriver == nil {
		return
	}
	w.netDriver.closed = true
	w.netDriver = nil
}

// AddNavigationSystemToWorld creates the navigation system of w if needed and switches it to mode.
func AddNavigationSystemToWorld(w *World, mode NavigationMode) {
	if w.NavigationSystem == nil {
		w.NavigationSystem = &NavigationSystem{}
	}
	w.NavigationSystem.Mode = mode
}
