package engine

import (
	"fmt"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/subsystem"
)

// GameModeFactory lets a game instance subclass choose the game mode for a world.
type GameModeFactory interface {
	GameModeForURL(url URL, w *World) (GameMode, error)
}

// GameInstance is the per-session object shared across world travel. Subclasses embed it; the engine calls back
// into the outermost value for overridable behavior.
type GameInstance struct {
	ObjectBase
	engine       *Engine
	self         Object
	context      *WorldContext
	subsystems   *subsystem.Collection
	localPlayers []*LocalPlayer
	initialized  bool
}

type gameInstanceHolder interface {
	gameInstance() *GameInstance
}

func (gi *GameInstance) gameInstance() *GameInstance {
	return gi
}

// NewGameInstance instantiates cls, which must derive from the core GameInstance class.
func (e *Engine) NewGameInstance(cls *class.Class, name string) (*GameInstance, error) {
	if !cls.IsChildOf(e.Core.GameInstance) {
		return nil, eris.Errorf("class %q is not a game instance", cls.Path())
	}
	obj, err := e.NewObject(cls, nil, name, FlagTransient)
	if err != nil {
		return nil, err
	}
	holder, ok := obj.(gameInstanceHolder)
	if !ok {
		return nil, eris.Errorf("class %q does not embed GameInstance", cls.Path())
	}
	gi := holder.gameInstance()
	gi.engine = e
	gi.self = obj
	gi.subsystems = subsystem.NewCollection(e.Classes, subsystem.CategoryGameInstance)
	return gi, nil
}

func (gi *GameInstance) Engine() *Engine {
	return gi.engine
}

// Self returns the outermost object embedding gi.
func (gi *GameInstance) Self() Object {
	return gi.self
}

func (gi *GameInstance) WorldContext() *WorldContext {
	return gi.context
}

func (gi *GameInstance) SetWorldContext(ctx *WorldContext) {
	gi.context = ctx
}

func (gi *GameInstance) World() *World {
	if gi.context == nil {
		return nil
	}
	return gi.context.World()
}

func (gi *GameInstance) Subsystems() *subsystem.Collection {
	return gi.subsystems
}

func (gi *GameInstance) IsInitialized() bool {
	return gi.initialized
}

// Init creates the game instance subsystems that are currently instantiable.
func (gi *GameInstance) Init() error {
	if gi.initialized {
		return nil
	}
	if err := gi.subsystems.Initialize(gi.self); err != nil {
		return eris.Wrapf(err, "game instance %q", gi.Name())
	}
	gi.initialized = true
	return nil
}

// Shutdown removes every local player and deinitializes subsystems. Init may be called again afterwards.
func (gi *GameInstance) Shutdown() {
	for len(gi.localPlayers) > 0 {
		gi.RemoveLocalPlayer(gi.localPlayers[len(gi.localPlayers)-1])
	}
	gi.subsystems.Deinitialize()
	gi.initialized = false
	gi.context = nil
}

// CreateGameModeForURL picks the game mode class from the GAME url option, then the world settings, then the
// project default, and spawns it in w.
func (gi *GameInstance) CreateGameModeForURL(url URL, w *World) (GameMode, error) {
	if f, ok := gi.self.(GameModeFactory); ok {
		return f.GameModeForURL(url, w)
	}
	cls := gi.engine.GameModeClassForURL(url, w)
	if cls == nil {
		return nil, nil //nolint:nilnil // a world may run without a game mode
	}
	return SpawnGameMode(w, cls, 0)
}

// GameModeClassForURL resolves the game mode class for a world, or nil when nothing names one.
func (e *Engine) GameModeClassForURL(url URL, w *World) *class.Class {
	if path, ok := url.Option("GAME"); ok {
		cls, err := e.ResolveClass(path, e.Core.GameModeBase)
		if err == nil {
			return cls
		}
		log.Warn().Err(err).Str("game", path).Msg("Ignoring GAME url option")
	}
	if w.settings != nil && w.settings.DefaultGameMode != nil {
		return w.settings.DefaultGameMode
	}
	return e.DefaultGameMode
}

// SpawnGameMode spawns cls as the game mode of w.
func SpawnGameMode(w *World, cls *class.Class, flags ObjectFlags) (GameMode, error) {
	a, err := w.SpawnActor(cls, SpawnParams{Flags: flags})
	if err != nil {
		return nil, err
	}
	gm, ok := a.(GameMode)
	if !ok {
		return nil, eris.Errorf("class %q is not a game mode", cls.Path())
	}
	return gm, nil
}

func (gi *GameInstance) LocalPlayers() []*LocalPlayer {
	out := make([]*LocalPlayer, len(gi.localPlayers))
	copy(out, gi.localPlayers)
	return out
}

// CreateLocalPlayer adds a player with the given controller id. Failures are reported through the returned
// error string, and no player is added.
func (gi *GameInstance) CreateLocalPlayer(controllerID int, spawnPlayerController bool) (*LocalPlayer, string) {
	for _, lp := range gi.localPlayers {
		if lp.ControllerID == controllerID {
			return nil, fmt.Sprintf("a local player already exists for controller id %d", controllerID)
		}
	}
	e := gi.engine
	lp := &LocalPlayer{ControllerID: controllerID, gameInstance: gi}
	e.track(lp, gi.self, fmt.Sprintf("LocalPlayer_%d", controllerID), FlagTransient)
	lp.subsystems = subsystem.NewCollection(e.Classes, subsystem.CategoryLocalPlayer)
	if err := lp.subsystems.Initialize(lp); err != nil {
		lp.MarkAsGarbage()
		return nil, err.Error()
	}
	gi.localPlayers = append(gi.localPlayers, lp)

	if spawnPlayerController {
		if w := gi.World(); w != nil {
			if _, errString := w.SpawnPlayActor(lp); errString != "" {
				gi.RemoveLocalPlayer(lp)
				return nil, errString
			}
		}
	}
	return lp, ""
}

// RemoveLocalPlayer logs the player out and drops it.
func (gi *GameInstance) RemoveLocalPlayer(lp *LocalPlayer) bool {
	idx := slices.Index(gi.localPlayers, lp)
	if idx < 0 {
		return false
	}
	if lp.PlayerController != nil {
		if w := lp.PlayerController.World(); w != nil {
			if gm := w.AuthGameMode(); gm != nil {
				gm.gameMode().Logout(lp.PlayerController)
			} else {
				w.DestroyActor(lp.PlayerController)
			}
		}
		lp.PlayerController = nil
	}
	lp.subsystems.Deinitialize()
	gi.localPlayers = slices.Delete(gi.localPlayers, idx, idx+1)
	lp.MarkAsGarbage()
	return true
}

func (gi *GameInstance) ReferencedObjects() []Object {
	refs := make([]Object, 0, len(gi.localPlayers))
	for _, lp := range gi.localPlayers {
		refs = append(refs, lp)
	}
	return refs
}

type LocalPlayer struct {
	ObjectBase
	ControllerID     int
	PlayerController *PlayerController

	gameInstance *GameInstance
	subsystems   *subsystem.Collection
}

func (lp *LocalPlayer) GameInstance() *GameInstance {
	return lp.gameInstance
}

func (lp *LocalPlayer) Subsystems() *subsystem.Collection {
	return lp.subsystems
}

func (lp *LocalPlayer) ReferencedObjects() []Object {
	if lp.PlayerController == nil {
		return nil
	}
	return []Object{lp.PlayerController}
}

// SpawnPlayActor logs lp into the game mode of w and binds the resulting controller.
func (w *World) SpawnPlayActor(lp *LocalPlayer) (*PlayerController, string) {
	if w.authGameMode == nil {
		return nil, "world has no game mode to log the player into"
	}
	pc, err := w.authGameMode.gameMode().Login(lp)
	if err != nil {
		return nil, err.Error()
	}
	lp.PlayerController = pc
	return pc, ""
}

// GamePlayers returns the local players of the game instance owning w.
func (e *Engine) GamePlayers(w *World) []*LocalPlayer {
	ctx := e.WorldContextFromWorld(w)
	if ctx == nil || ctx.OwningGameInstance == nil {
		return nil
	}
	return ctx.OwningGameInstance.LocalPlayers()
}

func (e *Engine) FirstGamePlayer(w *World) *LocalPlayer {
	players := e.GamePlayers(w)
	if len(players) == 0 {
		return nil
	}
	return players[0]
}
