package automation_test

import (
	"testing"

	"pkg.world.dev/world-engine/assert"

	"pkg.world.dev/world-engine/automation"
	"pkg.world.dev/world-engine/automation/asset"
	"pkg.world.dev/world-engine/automation/engine"
)

func TestPresets(t *testing.T) {
	assert.Check(t, automation.Minimal.Has(automation.InitScene|automation.StartPlay))
	assert.Check(t, !automation.Minimal.HasAny(automation.CreateGameInstance|automation.CreateLocalPlayer))
	assert.Check(t, automation.WithGameInstance.Has(automation.Minimal|automation.CreateGameInstance))
	assert.Check(t, automation.WithLocalPlayer.Has(automation.WithGameInstance|automation.CreateLocalPlayer))
}

func TestBuildersReturnCopies(t *testing.T) {
	h := newHarness(t)

	base := automation.NewInitParams(engine.WorldTypeGame, automation.Minimal).EnableSubsystem(h.weather)
	withTraffic := base.EnableSubsystem(h.traffic)
	withScore := base.EnableSubsystem(h.score)

	assert.Equal(t, len(base.WorldSubsystems), 1)
	assert.Equal(t, len(withTraffic.WorldSubsystems), 2)
	assert.Equal(t, len(withScore.WorldSubsystems), 1)
	assert.Equal(t, len(withScore.GameSubsystems), 1)
	assert.Check(t, withTraffic.WorldSubsystems[1] == h.traffic)

	flagged := base.AddFlags(automation.InitAudio).RemoveFlags(automation.StartPlay)
	assert.Equal(t, base.Flags, automation.Minimal)
	assert.Equal(t, flagged.Flags, automation.InitScene|automation.InitAudio)

	withMode := base.SetGameMode(h.arenaMode)
	assert.Check(t, base.DefaultGameMode == nil)
	assert.Check(t, !base.CreateGameInstance())
	assert.Check(t, withMode.CreateGameInstance())
}

func TestEnableSubsystemRoutesByCategory(t *testing.T) {
	h := newHarness(t)

	p := automation.NewInitParams(engine.WorldTypeGame, 0).
		EnableSubsystem(h.weather).
		EnableSubsystem(h.weather).
		EnableSubsystem(h.score).
		EnableSubsystem(h.hud).
		EnableSubsystem(h.beacon).
		EnableSubsystem(nil)

	assert.Equal(t, len(p.WorldSubsystems), 1)
	assert.Check(t, p.WorldSubsystems[0] == h.weather)
	assert.Equal(t, len(p.GameSubsystems), 1)
	assert.Check(t, p.GameSubsystems[0] == h.score)
	assert.Equal(t, len(p.PlayerSubsystems), 1)
	assert.Check(t, p.PlayerSubsystems[0] == h.hud)
}

func TestSetWorldAsset(t *testing.T) {
	p := automation.NewInitParams(engine.WorldTypeGame, 0)

	world := asset.Data{PackageName: "/Game/Maps/Arena", AssetName: "Arena", ClassPath: asset.WorldClassPath}
	assert.Equal(t, p.SetWorldAsset(world).WorldPackage, "/Game/Maps/Arena")

	redirector := asset.Data{
		PackageName: "/Game/Maps/OldArena",
		AssetName:   "OldArena",
		ClassPath:   asset.RedirectorClassPath,
		Redirect:    "/Game/Maps/Arena.Arena",
	}
	assert.Equal(t, p.SetWorldAsset(redirector).WorldPackage, "/Game/Maps/Arena")
	assert.Equal(t, p.WorldPackage, "")
	assert.Check(t, !p.HasWorldPackage())
	assert.Check(t, p.SetWorldPackage("/Game/Maps/Plain").HasWorldPackage())
}

func TestWorldInitValues(t *testing.T) {
	testCases := []struct {
		name  string
		flags automation.InitFlags
		check func(t *testing.T, iv engine.InitValues)
	}{
		{
			name:  "no flags",
			flags: 0,
			check: func(t *testing.T, iv engine.InitValues) {
				assert.Check(t, !iv.InitializeScenes)
				assert.Check(t, !iv.CreateWorldPartition)
				assert.Check(t, iv.EnableWorldPartitionStreaming)
				assert.Check(t, !iv.Transactional)
			},
		},
		{
			name:  "physics implies a scene",
			flags: automation.InitPhysics,
			check: func(t *testing.T, iv engine.InitValues) {
				assert.Check(t, iv.InitializeScenes)
				assert.Check(t, iv.CreatePhysicsScene)
			},
		},
		{
			name:  "audio alone needs no scene",
			flags: automation.InitAudio,
			check: func(t *testing.T, iv engine.InitValues) {
				assert.Check(t, !iv.InitializeScenes)
				assert.Check(t, iv.AllowAudioPlayback)
			},
		},
		{
			name:  "partition without streaming",
			flags: automation.InitWorldPartition | automation.DisableStreaming,
			check: func(t *testing.T, iv engine.InitValues) {
				assert.Check(t, iv.CreateWorldPartition)
				assert.Check(t, !iv.EnableWorldPartitionStreaming)
			},
		},
		{
			name: "everything",
			flags: automation.InitScene | automation.InitHitProxy | automation.InitNavigation | automation.InitAI |
				automation.InitWeldedBodies | automation.InitCollision | automation.InitFX,
			check: func(t *testing.T, iv engine.InitValues) {
				assert.Check(t, iv.InitializeScenes)
				assert.Check(t, iv.RequiresHitProxies)
				assert.Check(t, iv.CreateNavigation)
				assert.Check(t, iv.CreateAISystem)
				assert.Check(t, iv.ShouldSimulatePhysics)
				assert.Check(t, iv.EnableTraceCollision)
				assert.Check(t, iv.CreateFXSystem)
				assert.Check(t, !iv.CreatePhysicsScene)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, automation.NewInitParams(engine.WorldTypeGame, tc.flags).WorldInitValues())
		})
	}
}
