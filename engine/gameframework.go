package engine

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/class"
)

// WorldSettings is the per-world settings actor spawned with every world.
type WorldSettings struct {
	ActorBase
	DefaultGameMode *class.Class
}

// NotifyBeginPlay dispatches BeginPlay to every actor and marks the world as playing.
func (s *WorldSettings) NotifyBeginPlay() {
	w := s.World()
	if w == nil || w.begunPlay {
		return
	}
	for _, a := range w.Actors() {
		DispatchBeginPlay(a)
	}
	w.begunPlay = true
}

// GameMode is the authority actor that owns the rules of a world.
type GameMode interface {
	Actor
	InitGame(url URL)
	StartPlay()
	GameSession() *GameSession
	GameState() *GameState
	gameMode() *GameModeBase
}

type GameModeBase struct {
	ActorBase
	PlayerControllerClass *class.Class
	DefaultPawnClass      *class.Class
	Options               URL

	session     *GameSession
	state       *GameState
	initialized bool
}

func (g *GameModeBase) OnConstruction() {
	core := g.World().Engine().Core
	if g.PlayerControllerClass == nil {
		g.PlayerControllerClass = core.PlayerController
	}
	if g.DefaultPawnClass == nil {
		g.DefaultPawnClass = core.Pawn
	}
}

// InitGame spawns the game session and game state. It runs once.
func (g *GameModeBase) InitGame(url URL) {
	if g.initialized {
		return
	}
	g.initialized = true
	g.Options = url
	w := g.World()
	core := w.Engine().Core

	session, err := w.SpawnActor(core.GameSession, SpawnParams{Flags: FlagTransient})
	if err != nil {
		log.Error().Err(err).Msg("Failed to spawn game session")
	} else {
		g.session = session.(*GameSession)
		g.session.ID = uuid.New()
	}
	state, err := w.SpawnActor(core.GameState, SpawnParams{Flags: FlagTransient})
	if err != nil {
		log.Error().Err(err).Msg("Failed to spawn game state")
	} else {
		g.state = state.(*GameState)
		g.state.AuthorityGameMode = g
	}
}

// StartPlay hands over to the game state, which begins play for the world.
func (g *GameModeBase) StartPlay() {
	if g.state != nil {
		g.state.HandleBeginPlay()
		return
	}
	if s := g.World().Settings(); s != nil {
		s.NotifyBeginPlay()
	}
}

func (g *GameModeBase) GameSession() *GameSession {
	return g.session
}

func (g *GameModeBase) GameState() *GameState {
	return g.state
}

func (g *GameModeBase) gameMode() *GameModeBase {
	return g
}

// Login spawns a player controller, and a pawn when DefaultPawnClass is set, for player.
func (g *GameModeBase) Login(player *LocalPlayer) (*PlayerController, error) {
	w := g.World()
	raw, err := w.SpawnActor(g.PlayerControllerClass, SpawnParams{Flags: FlagTransient})
	if err != nil {
		return nil, eris.Wrap(err, "failed to spawn player controller")
	}
	pc, ok := raw.(*PlayerController)
	if !ok {
		return nil, eris.Errorf("class %q is not a player controller", g.PlayerControllerClass.Path())
	}
	pc.player = player
	if g.DefaultPawnClass != nil {
		rawPawn, err := w.SpawnActor(g.DefaultPawnClass, SpawnParams{Flags: FlagTransient})
		if err != nil {
			return nil, eris.Wrap(err, "failed to spawn default pawn")
		}
		if pawn, ok := rawPawn.(*Pawn); ok {
			pc.Possess(pawn)
		}
	}
	return pc, nil
}

// Logout destroys the controller and pawn of a leaving player.
func (g *GameModeBase) Logout(pc *PlayerController) {
	w := g.World()
	if pc.pawn != nil {
		w.DestroyActor(pc.pawn)
	}
	w.DestroyActor(pc)
}

// MatchGameMode adds a match state on top of GameModeBase.
type MatchGameMode struct {
	GameModeBase
	MatchState string
}

const (
	MatchStateWaitingToStart = "WaitingToStart"
	MatchStateInProgress     = "InProgress"
)

func (m *MatchGameMode) InitGame(url URL) {
	m.GameModeBase.InitGame(url)
	m.MatchState = MatchStateWaitingToStart
}

func (m *MatchGameMode) StartPlay() {
	m.GameModeBase.StartPlay()
	m.MatchState = MatchStateInProgress
}

type GameSession struct {
	ActorBase
	ID uuid.UUID
}

type GameState struct {
	ActorBase
	AuthorityGameMode *GameModeBase
}

func (s *GameState) HandleBeginPlay() {
	if settings := s.World().Settings(); settings != nil {
		settings.NotifyBeginPlay()
	}
}

type PlayerController struct {
	ActorBase
	player *LocalPlayer
	pawn   *Pawn
}

func (pc *PlayerController) Player() *LocalPlayer {
	return pc.player
}

func (pc *PlayerController) Pawn() *Pawn {
	return pc.pawn
}

func (pc *PlayerController) Possess(p *Pawn) {
	pc.pawn = p
	p.controller = pc
}

func (pc *PlayerController) ReferencedObjects() []Object {
	if pc.pawn == nil {
		return nil
	}
	return []Object{pc.pawn}
}

type Pawn struct {
	ActorBase
	controller *PlayerController
}

func (p *Pawn) Controller() *PlayerController {
	return p.controller
}

// GameModeBaseOf exposes the shared game mode state of gm.
func GameModeBaseOf(gm GameMode) *GameModeBase {
	if gm == nil {
		return nil
	}
	return gm.gameMode()
}
