package automation

import (
	"slices"

	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/automation/engine"
	"pkg.world.dev/world-engine/automation/subsystem"
)

// GetOrCreatePrimaryPlayer returns the first local player, creating it when there is none.
func (fx *World) GetOrCreatePrimaryPlayer(spawnPlayerController bool) *engine.LocalPlayer {
	if fx.IsEditorWorld() || fx.world == nil {
		return nil
	}
	if lp := fx.rt.Engine.FirstGamePlayer(fx.world); lp != nil {
		return lp
	}
	return fx.CreateLocalPlayer(spawnPlayerController)
}

// CreateLocalPlayer adds a local player with the next controller id. It needs a game instance and a game mode
// with a game session; without them it returns nil.
func (fx *World) CreateLocalPlayer(spawnPlayerController bool) *engine.LocalPlayer {
	if fx.IsEditorWorld() || fx.world == nil || fx.gameInstance == nil {
		return nil
	}
	gm := fx.world.AuthGameMode()
	if gm == nil || gm.GameSession() == nil {
		return nil
	}

	players := fx.rt.Engine.GamePlayers(fx.world)
	gate := fx.rt.enterGate(subsystem.CategoryLocalPlayer, fx.params.PlayerSubsystems)
	defer gate.Exit()
	lp, errString := fx.gameInstance.CreateLocalPlayer(len(players), spawnPlayerController)
	if errString != "" {
		fx.rt.fatal(eris.Wrap(ErrLocalPlayer, errString))
		return nil
	}
	return lp
}

// DestroyLocalPlayer removes lp from the game instance if it plays in the fixture world.
func (fx *World) DestroyLocalPlayer(lp *engine.LocalPlayer) {
	if fx.IsEditorWorld() || fx.world == nil || lp == nil {
		return
	}
	if slices.Contains(fx.rt.Engine.GamePlayers(fx.world), lp) {
		fx.gameInstance.RemoveLocalPlayer(lp)
	}
}

// LocalPlayers returns the local players of the fixture game instance.
func (fx *World) LocalPlayers() []*engine.LocalPlayer {
	if fx.world == nil {
		return nil
	}
	return fx.rt.Engine.GamePlayers(fx.world)
}
