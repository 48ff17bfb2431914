package automation

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/subsystem"
)

// AbsoluteWorldTravel opens target, optionally forcing gameMode, and finishes the travel right away. target is
// a long package name or a world object path. Editor worlds never travel.
func (fx *World) AbsoluteWorldTravel(target string, gameMode *class.Class, options string) error {
	if fx.IsEditorWorld() {
		return nil
	}
	if fx.world == nil {
		return eris.New("cannot travel from a destroyed world")
	}
	if gameMode != nil {
		options = joinOptions(options, "GAME="+gameMode.Path())
	}
	if err := fx.rt.Engine.OpenLevel(fx.world, target, true, options); err != nil {
		log.Error().Err(err).Str("operation", "AbsoluteWorldTravel").Str("target", target).Msg("Failed to open level")
		return err
	}
	return fx.FinishWorldTravel()
}

// FinishWorldTravel performs a pending travel of the fixture context. The game instance and its local players
// move to the new world; world subsystems are created anew under the fixture allow list.
func (fx *World) FinishWorldTravel() error {
	if fx.IsEditorWorld() {
		return nil
	}
	if fx.world == nil {
		return eris.New("cannot travel from a destroyed world")
	}
	if !fx.world.HasBegunPlay() {
		fx.RouteStartPlay()
	}

	e := fx.rt.Engine
	old := fx.world
	err := func() error {
		gate := fx.rt.enterGate(subsystem.CategoryWorld, fx.params.WorldSubsystems)
		defer gate.Exit()
		return e.TickWorldTravel(fx.context)
	}()

	// The engine may have torn the old world down even when loading the new one failed.
	if w := fx.context.World(); w != nil && w != old {
		fx.world = w
		fx.worldSubsystems = w.Subsystems()
		e.RemoveFromRoot(old)
		e.AddToRoot(w)
		fx.gameMode = w.Settings().DefaultGameMode
	}
	if err != nil {
		log.Error().Err(err).Str("operation", "FinishWorldTravel").Str("world", old.Name()).Msg("World travel failed")
		return eris.Wrap(err, "world travel failed")
	}
	if !fx.world.HasBegunPlay() {
		fx.RouteStartPlay()
	}
	return nil
}

func joinOptions(options, option string) string {
	options = strings.TrimPrefix(options, "?")
	if options == "" {
		return option
	}
	return options + "?" + option
}
