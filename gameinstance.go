package automation

import (
	"reflect"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/engine"
)

// AutomationSupport is implemented by game instance classes that can be initialized by a fixture. It should set
// up the world context and call Init the way a standalone game would.
type AutomationSupport interface {
	InitForAutomation(ctx *engine.WorldContext) error
}

var automationSupportType = reflect.TypeOf((*AutomationSupport)(nil)).Elem()

// SupportsAutomation reports whether instances of cls implement AutomationSupport.
func SupportsAutomation(cls *class.Class) bool {
	t := cls.GoType()
	if t == nil {
		return false
	}
	return reflect.PointerTo(t).Implements(automationSupportType)
}

// GameInstance is the game instance used by fixtures when the project one does not support automation.
type GameInstance struct {
	engine.GameInstance

	// DefaultGameModeClass, when set, is spawned for worlds whose URL does not name a game mode.
	DefaultGameModeClass *class.Class
}

func (gi *GameInstance) InitForAutomation(ctx *engine.WorldContext) error {
	if ctx == nil {
		return eris.New("game instance needs a world context")
	}
	gi.SetWorldContext(ctx)
	ctx.OwningGameInstance = &gi.GameInstance
	return gi.Init()
}

// GameModeForURL spawns the game mode for w. Game modes spawned for fixtures are never saved with the world.
func (gi *GameInstance) GameModeForURL(url engine.URL, w *engine.World) (engine.GameMode, error) {
	e := gi.Engine()
	cls := gi.DefaultGameModeClass
	if cls == nil || url.HasOption("GAME") {
		cls = e.GameModeClassForURL(url, w)
	}
	if cls == nil {
		return nil, nil //nolint:nilnil // a world may run without a game mode
	}
	log.Debug().Str("world", w.Name()).Str("game_mode", cls.Path()).Msg("Spawning game mode")
	return engine.SpawnGameMode(w, cls, engine.FlagTransient)
}

// initForAutomation initializes gi through AutomationSupport when its class provides it.
func initForAutomation(gi *engine.GameInstance, ctx *engine.WorldContext) error {
	if s, ok := gi.Self().(AutomationSupport); ok {
		return s.InitForAutomation(ctx)
	}
	gi.SetWorldContext(ctx)
	ctx.OwningGameInstance = gi
	return gi.Init()
}
