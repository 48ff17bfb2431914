package automation

import (
	"slices"

	"pkg.world.dev/world-engine/automation/asset"
	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/content"
	"pkg.world.dev/world-engine/automation/engine"
	"pkg.world.dev/world-engine/automation/subsystem"
)

// InitFlags selects the world features and the play setup of a fixture.
type InitFlags uint32

const (
	InitScene InitFlags = 1 << iota
	InitAudio
	InitHitProxy
	InitPhysics
	InitNavigation
	InitAI
	InitWeldedBodies
	InitCollision
	InitFX
	InitWorldPartition
	// DisableStreaming turns world partition streaming off.
	DisableStreaming
	// CreateGameInstance gives the fixture a game instance, which a game mode requires.
	CreateGameInstance
	// CreateLocalPlayer spawns the primary local player and its controller.
	CreateLocalPlayer
	// StartPlay routes BeginPlay once the world is initialized.
	StartPlay
)

const (
	Minimal          = InitScene | StartPlay
	WithBeginPlay    = Minimal
	WithGameInstance = Minimal | CreateGameInstance
	WithLocalPlayer  = WithGameInstance | CreateLocalPlayer

	sceneFlags = InitScene | InitPhysics | InitWeldedBodies | InitHitProxy | InitCollision | InitFX
)

func (f InitFlags) Has(flags InitFlags) bool {
	return f&flags == flags
}

func (f InitFlags) HasAny(flags InitFlags) bool {
	return f&flags != 0
}

// InitParams describes the fixture world to create. The builder methods return modified copies.
type InitParams struct {
	WorldType engine.WorldType
	Flags     InitFlags
	// WorldPackage names the long package to load. Empty creates a fresh world.
	WorldPackage string
	// DefaultGameMode overrides the world settings game mode. It must derive from GameModeBase.
	DefaultGameMode *class.Class

	// InitWorld runs before the world is initialized.
	InitWorld func(w *engine.World)
	// InitWorldSettings runs right after InitWorld.
	InitWorldSettings func(s *engine.WorldSettings)

	GameSubsystems   []*class.Class
	WorldSubsystems  []*class.Class
	PlayerSubsystems []*class.Class
}

// NewInitParams returns params for a world of type t.
func NewInitParams(t engine.WorldType, flags InitFlags) InitParams {
	return InitParams{WorldType: t, Flags: flags}
}

func (p InitParams) AddFlags(flags InitFlags) InitParams {
	p.Flags |= flags
	return p
}

func (p InitParams) RemoveFlags(flags InitFlags) InitParams {
	p.Flags &^= flags
	return p
}

func (p InitParams) SetGameMode(gm *class.Class) InitParams {
	p.DefaultGameMode = gm
	return p
}

// EnableSubsystem adds cls to the allow list of its category. Classes outside every category are ignored.
func (p InitParams) EnableSubsystem(cls *class.Class) InitParams {
	category, ok := subsystem.CategoryOfClass(cls)
	if !ok {
		return p
	}
	switch category {
	case subsystem.CategoryWorld:
		p.WorldSubsystems = appendUnique(p.WorldSubsystems, cls)
	case subsystem.CategoryGameInstance:
		p.GameSubsystems = appendUnique(p.GameSubsystems, cls)
	case subsystem.CategoryLocalPlayer:
		p.PlayerSubsystems = appendUnique(p.PlayerSubsystems, cls)
	}
	return p
}

func (p InitParams) SetWorldPackage(pkg string) InitParams {
	p.WorldPackage = pkg
	return p
}

// SetWorldAsset points the params at the package of a world asset. Redirectors resolve to their target package.
func (p InitParams) SetWorldAsset(d asset.Data) InitParams {
	if d.IsRedirector() && d.Redirect != "" {
		pkg, _ := content.SplitObjectPath(d.Redirect)
		p.WorldPackage = pkg
		return p
	}
	p.WorldPackage = d.PackageName
	return p
}

func (p InitParams) SetInitWorld(fn func(w *engine.World)) InitParams {
	p.InitWorld = fn
	return p
}

func (p InitParams) SetInitWorldSettings(fn func(s *engine.WorldSettings)) InitParams {
	p.InitWorldSettings = fn
	return p
}

func (p InitParams) HasWorldPackage() bool {
	return p.WorldPackage != ""
}

// ShouldInitScene reports whether any requested feature needs a scene.
func (p InitParams) ShouldInitScene() bool {
	return p.Flags.HasAny(sceneFlags)
}

func (p InitParams) ShouldInitWorldPartition() bool {
	return p.Flags.Has(InitWorldPartition)
}

// CreateGameInstance reports whether the fixture needs a game instance.
func (p InitParams) CreateGameInstance() bool {
	return p.Flags.Has(CreateGameInstance) || p.DefaultGameMode != nil
}

// WorldInitValues translates the flags into engine init values.
func (p InitParams) WorldInitValues() engine.InitValues {
	f := p.Flags
	return engine.InitValues{
		InitializeScenes:              p.ShouldInitScene(),
		AllowAudioPlayback:            f.Has(InitAudio),
		RequiresHitProxies:            f.Has(InitHitProxy),
		CreatePhysicsScene:            f.Has(InitPhysics),
		CreateNavigation:              f.Has(InitNavigation),
		CreateAISystem:                f.Has(InitAI),
		ShouldSimulatePhysics:         f.Has(InitWeldedBodies),
		EnableTraceCollision:          f.Has(InitCollision),
		Transactional:                 false,
		CreateFXSystem:                f.Has(InitFX),
		CreateWorldPartition:          p.ShouldInitWorldPartition(),
		EnableWorldPartitionStreaming: !f.Has(DisableStreaming),
		DefaultGameMode:               p.DefaultGameMode,
	}
}

func appendUnique(list []*class.Class, cls *class.Class) []*class.Class {
	if slices.Contains(list, cls) {
		return list
	}
	// Builders return copies, so never write into a shared backing array.
	return append(slices.Clip(list), cls)
}
