package automationtest_test

import (
	"strings"
	"testing"

	"pkg.world.dev/world-engine/assert"

	"pkg.world.dev/world-engine/automation"
	"pkg.world.dev/world-engine/automation/automationtest"
	"pkg.world.dev/world-engine/automation/config"
	"pkg.world.dev/world-engine/automation/content"
	"pkg.world.dev/world-engine/automation/engine"
)

var arena = &content.File{
	Package: content.Header{Flags: []string{"ContainsMap"}},
	World: content.World{
		Name:   "Arena",
		Actors: []content.ActorRecord{{Class: automation.TargetPointClassPath, Name: "Start", Label: "PlayerStart"}},
	},
}

func TestBoundWorldCarriesTestName(t *testing.T) {
	rt := automationtest.NewRuntime(t)
	automationtest.Bind(t, rt)

	fx := automationtest.GameWorld(t, rt, automation.Minimal)
	assert.Check(t, strings.HasPrefix(fx.World().Package().Name(), "/Temp/TestBoundWorldCarriesTestName_"))
	assert.Check(t, rt.Exists())
}

func TestLoadThroughRedisRegistry(t *testing.T) {
	rt := automationtest.NewRuntime(t,
		automationtest.WithPackage("/Game/Maps/Arena", arena),
		automationtest.WithRedisRegistry(),
	)

	fx, err := rt.LoadGameWorld("Arena", automation.Minimal)
	assert.NilError(t, err)
	defer fx.Destroy()
	assert.Equal(t, fx.World().Name(), "Arena")
	assert.Check(t, fx.FindTargetPoint("PlayerStart") != nil)
}

func TestOptionsReachTheRuntime(t *testing.T) {
	var setupRan bool
	rt := automationtest.NewRuntime(t,
		automationtest.WithSettings(func(s *config.Settings) {
			s.ReuseGameInstance = true
		}),
		automationtest.WithEngineSetup(func(e *engine.Engine) error {
			setupRan = true
			return nil
		}),
		automationtest.WithEngineOptions(engine.WithEditor(true)),
	)
	assert.Check(t, setupRan)
	assert.Check(t, rt.Settings.ReuseGameInstance)
	assert.Check(t, rt.Engine.IsEditor)

	fx := automationtest.World(t, rt, automation.NewInitParams(engine.WorldTypeGame, automation.WithGameInstance))
	assert.Check(t, fx.GameInstance().IsRooted())
}
