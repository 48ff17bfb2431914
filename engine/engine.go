package engine

import (
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/content"
	"pkg.world.dev/world-engine/automation/event"
	"pkg.world.dev/world-engine/automation/subsystem"
)

// Core holds the classes every engine instance registers.
type Core struct {
	Package          *class.Class
	World            *class.Class
	Level            *class.Class
	Actor            *class.Class
	WorldSettings    *class.Class
	GameModeBase     *class.Class
	GameMode         *class.Class
	GameSession      *class.Class
	GameState        *class.Class
	PlayerController *class.Class
	Pawn             *class.Class
	GameInstance     *class.Class
	LocalPlayer      *class.Class
	ViewportClient   *class.Class
}

const (
	WorldClassPath        = "/Script/Engine.World"
	ActorClassPath        = "/Script/Engine.Actor"
	GameModeBaseClassPath = "/Script/Engine.GameModeBase"
	GameModeClassPath     = "/Script/Engine.GameMode"
	GameInstanceClassPath = "/Script/Engine.GameInstance"
)

// Engine is the in-process host: it owns the object table, world contexts, the ambient active world and frame
// counter, level streaming notifications, and the tickers.
type Engine struct {
	Classes *class.Registry
	Content *content.Store
	Core    Core

	// IsEditor makes streamed sublevel worlds standalone, the way an editor session keeps them loaded.
	IsEditor bool
	// GameInstanceClass is the project game instance class. Nil means the core GameInstance.
	GameInstanceClass *class.Class
	// DefaultGameMode is the project default game mode used when neither the URL nor the world settings name one.
	DefaultGameMode *class.Class

	// LevelStreamingStateChanged fires whenever a streaming level changes state.
	LevelStreamingStateChanged event.Event[LevelStreamingStateChange]
	// CoreTicker runs frame-scheduled callbacks.
	CoreTicker *Ticker

	objects      map[uint64]Object
	nextObjectID uint64
	nameCounter  uint64
	packages     map[string]*Package
	contexts     []*WorldContext
	contextCount uint64

	activeWorld  *World
	frameCounter uint64

	preloadWorldTypes map[string]WorldType
	gameTickables     []Tickable
	editorTickables   []Tickable
}

type Option func(*Engine)

func WithEditor(isEditor bool) Option {
	return func(e *Engine) {
		e.IsEditor = isEditor
	}
}

// New builds an engine over store with a fresh class registry holding the core classes.
func New(store *content.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		Classes:           class.NewRegistry(),
		Content:           store,
		CoreTicker:        NewTicker(),
		objects:           make(map[uint64]Object),
		packages:          make(map[string]*Package),
		preloadWorldTypes: make(map[string]WorldType),
	}
	if err := e.registerCoreClasses(); err != nil {
		return nil, eris.Wrap(err, "failed to register core classes")
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) registerCoreClasses() error {
	if err := subsystem.RegisterBaseClasses(e.Classes); err != nil {
		return err
	}
	r := e.Classes
	var err error
	reg := func(path string, register func() (*class.Class, error)) *class.Class {
		if err != nil {
			return nil
		}
		var c *class.Class
		c, err = register()
		if err != nil {
			err = eris.Wrapf(err, "class %q", path)
		}
		return c
	}

	c := &e.Core
	c.Package = reg("Package", func() (*class.Class, error) {
		return class.Register[Package](r, "/Script/CoreUObject.Package", nil)
	})
	c.World = reg("World", func() (*class.Class, error) {
		return class.Register[World](r, WorldClassPath, nil)
	})
	c.Level = reg("Level", func() (*class.Class, error) {
		return class.Register[Level](r, "/Script/Engine.Level", nil)
	})
	c.Actor = reg("Actor", func() (*class.Class, error) {
		return class.Register[ActorBase](r, ActorClassPath, nil)
	})
	c.WorldSettings = reg("WorldSettings", func() (*class.Class, error) {
		return class.Register[WorldSettings](r, "/Script/Engine.WorldSettings", c.Actor)
	})
	c.GameModeBase = reg("GameModeBase", func() (*class.Class, error) {
		return class.Register[GameModeBase](r, GameModeBaseClassPath, c.Actor)
	})
	c.GameMode = reg("GameMode", func() (*class.Class, error) {
		return class.Register[MatchGameMode](r, GameModeClassPath, c.GameModeBase)
	})
	c.GameSession = reg("GameSession", func() (*class.Class, error) {
		return class.Register[GameSession](r, "/Script/Engine.GameSession", c.Actor)
	})
	c.GameState = reg("GameState", func() (*class.Class, error) {
		return class.Register[GameState](r, "/Script/Engine.GameStateBase", c.Actor)
	})
	c.PlayerController = reg("PlayerController", func() (*class.Class, error) {
		return class.Register[PlayerController](r, "/Script/Engine.PlayerController", c.Actor)
	})
	c.Pawn = reg("Pawn", func() (*class.Class, error) {
		return class.Register[Pawn](r, "/Script/Engine.Pawn", c.Actor)
	})
	c.GameInstance = reg("GameInstance", func() (*class.Class, error) {
		return class.Register[GameInstance](r, GameInstanceClassPath, nil)
	})
	c.LocalPlayer = reg("LocalPlayer", func() (*class.Class, error) {
		return class.Register[LocalPlayer](r, "/Script/Engine.LocalPlayer", nil)
	})
	c.ViewportClient = reg("ViewportClient", func() (*class.Class, error) {
		return class.Register[ViewportClient](r, "/Script/Engine.GameViewportClient", nil)
	})
	return err
}

// ActiveWorld is the process-wide current world.
func (e *Engine) ActiveWorld() *World {
	return e.activeWorld
}

func (e *Engine) SetActiveWorld(w *World) {
	e.activeWorld = w
}

func (e *Engine) FrameCounter() uint64 {
	return e.frameCounter
}

func (e *Engine) SetFrameCounter(n uint64) {
	e.frameCounter = n
}

func (e *Engine) IncrementFrameCounter() {
	e.frameCounter++
}

// SetPreloadWorldType records the world type a package's world takes when it is loaded.
func (e *Engine) SetPreloadWorldType(pkg string, t WorldType) {
	e.preloadWorldTypes[pkg] = t
}

func (e *Engine) ClearPreloadWorldType(pkg string) {
	delete(e.preloadWorldTypes, pkg)
}

// ResolveClass finds a class by path and checks that it derives from base.
func (e *Engine) ResolveClass(path string, base *class.Class) (*class.Class, error) {
	cls, err := e.Classes.Find(path)
	if err != nil {
		return nil, err
	}
	if base != nil && !cls.IsChildOf(base) {
		return nil, eris.Errorf("class %q is not a %s", path, base.Name())
	}
	return cls, nil
}
