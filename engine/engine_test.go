package engine_test

import (
	"testing"

	"pkg.world.dev/world-engine/assert"

	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/content"
	"pkg.world.dev/world-engine/automation/engine"
	"pkg.world.dev/world-engine/automation/subsystem"
)

type beacon struct {
	engine.ActorBase
	began, ended int
	ticks        int
}

func (b *beacon) BeginPlay()                   { b.began++ }
func (b *beacon) EndPlay(engine.EndPlayReason) { b.ended++ }
func (b *beacon) Tick(float64)                 { b.ticks++ }

type radarSubsystem struct {
	subsystem.WorldBase
	post, begin, streaming int
}

func (r *radarSubsystem) PostInitialize()       { r.post++ }
func (r *radarSubsystem) OnWorldBeginPlay()     { r.begin++ }
func (r *radarSubsystem) UpdateStreamingState() { r.streaming++ }

type testEngine struct {
	*engine.Engine
	beacon *class.Class
	radar  *class.Class
}

func newTestEngine(t *testing.T, opts ...engine.Option) testEngine {
	store, err := content.NewStore(map[string]string{"/Game": t.TempDir()})
	assert.NilError(t, err)
	e, err := engine.New(store, opts...)
	assert.NilError(t, err)

	te := testEngine{Engine: e}
	te.beacon, err = class.Register[beacon](e.Classes, "/Script/Test.Beacon", e.Core.Actor)
	assert.NilError(t, err)
	worldBase, err := subsystem.BaseClass(e.Classes, subsystem.CategoryWorld)
	assert.NilError(t, err)
	te.radar, err = class.Register[radarSubsystem](e.Classes, "/Script/Test.RadarSubsystem", worldBase)
	assert.NilError(t, err)

	assert.NilError(t, store.Save("/Game/Maps/Arena", &content.File{
		Package: content.Header{Flags: []string{"ContainsMap"}},
		World: content.World{
			Name:      "Arena",
			GameMode:  engine.GameModeClassPath,
			Actors:    []content.ActorRecord{{Class: "/Script/Test.Beacon", Name: "Tower", Tags: []string{"tower"}}},
			Sublevels: []string{"/Game/Maps/Arena_Audio"},
		},
	}))
	assert.NilError(t, store.Save("/Game/Maps/Arena_Audio", &content.File{
		Package: content.Header{Flags: []string{"ContainsMap"}},
		World: content.World{
			Name:   "Arena_Audio",
			Actors: []content.ActorRecord{{Class: "/Script/Test.Beacon", Name: "Speaker", Tags: []string{"speaker"}}},
		},
	}))
	assert.NilError(t, store.Save("/Game/Maps/OldArena", &content.File{
		Package: content.Header{Flags: []string{"ContainsMap"}},
		World:   content.World{Name: "OldArena", Redirect: "/Game/Maps/Arena.Arena"},
	}))
	return te
}

func newWorld(t *testing.T, e testEngine, wt engine.WorldType) *engine.World {
	pkg, err := e.CreatePackage(e.MakeUniquePackageName("/Temp/EngineTest"), engine.FlagTransient)
	assert.NilError(t, err)
	w, err := e.CreateWorld(wt, pkg, "TestWorld")
	assert.NilError(t, err)
	return w
}

func TestInitWorldFeatures(t *testing.T) {
	e := newTestEngine(t)
	w := newWorld(t, e, engine.WorldTypeGame)

	assert.NilError(t, w.InitWorld(engine.InitValues{
		InitializeScenes:   true,
		RequiresHitProxies: true,
		CreateNavigation:   true,
		CreateAISystem:     true,
		AllowAudioPlayback: true,
	}))
	assert.Check(t, w.IsInitialized())
	assert.Check(t, w.Scene != nil)
	assert.Check(t, w.RequiresHitProxies())
	assert.Check(t, w.NavigationSystem != nil)
	assert.Equal(t, w.NavigationSystem.Mode, engine.NavigationInvalidMode)
	assert.Check(t, w.AISystem != nil)
	assert.Check(t, w.AllowAudioPlayback())
	assert.Check(t, w.PhysicsScene == nil)
	assert.Check(t, w.FXSystem == nil)
	assert.Check(t, !w.WorldPartition.IsInitialized())

	radar := w.Subsystems().Get(e.radar).(*radarSubsystem)
	assert.Equal(t, radar.post, 1)

	assert.ErrorContains(t, w.InitWorld(engine.InitValues{}), "already initialized")
}

func TestBeginPlayWithGameMode(t *testing.T) {
	e := newTestEngine(t)
	w := newWorld(t, e, engine.WorldTypeGame)
	assert.NilError(t, w.InitWorld(engine.InitValues{DefaultGameMode: e.Core.GameMode}))

	gi, err := e.NewGameInstance(e.Core.GameInstance, "GI")
	assert.NilError(t, err)
	ctx := e.CreateWorldContext(engine.WorldTypeGame)
	ctx.SetCurrentWorld(w)
	ctx.OwningGameInstance = gi
	gi.SetWorldContext(ctx)
	assert.NilError(t, gi.Init())
	w.SetGameInstance(gi)

	a, err := w.SpawnActor(e.beacon, engine.SpawnParams{Tags: []string{"early"}})
	assert.NilError(t, err)
	early := a.(*beacon)

	assert.Check(t, w.SetGameMode(engine.URL{}))
	gm := w.AuthGameMode()
	assert.Check(t, class.IsA(gm, e.Core.GameMode))

	w.InitializeActorsForPlay(engine.URL{})
	assert.Check(t, gm.GameSession() != nil)
	assert.Check(t, gm.GameState() != nil)
	assert.Check(t, w.NetDriver() != nil)

	w.BeginPlay()
	assert.Check(t, w.HasBegunPlay())
	assert.Equal(t, early.began, 1)
	assert.Equal(t, gm.(*engine.MatchGameMode).MatchState, engine.MatchStateInProgress)
	assert.Equal(t, w.Subsystems().Get(e.radar).(*radarSubsystem).begin, 1)

	late, err := w.SpawnActor(e.beacon, engine.SpawnParams{})
	assert.NilError(t, err)
	assert.Equal(t, late.(*beacon).began, 1)

	lp, errString := gi.CreateLocalPlayer(0, true)
	assert.Equal(t, errString, "")
	assert.Check(t, lp.PlayerController != nil)
	assert.Check(t, lp.PlayerController.Pawn() != nil)
	assert.Equal(t, e.FirstGamePlayer(w), lp)

	_, errString = gi.CreateLocalPlayer(0, false)
	assert.Contains(t, errString, "already exists")

	w.Tick(engine.LevelTickAll, 1.0/60)
	assert.Equal(t, early.ticks, 1)
	w.Tick(engine.LevelTickViewportsOnly, 1.0/60)
	assert.Equal(t, early.ticks, 1)

	assert.Check(t, gi.RemoveLocalPlayer(lp))
	assert.Equal(t, len(gi.LocalPlayers()), 0)
	assert.Check(t, !lp.IsValid())
}

func TestGarbageCollectionHonorsRootSetAndKeepFlags(t *testing.T) {
	e := newTestEngine(t)
	w := newWorld(t, e, engine.WorldTypeGame)
	assert.NilError(t, w.InitWorld(engine.InitValues{}))
	actor, err := w.SpawnActor(e.beacon, engine.SpawnParams{})
	assert.NilError(t, err)

	e.AddToRoot(w)
	e.CollectGarbage(engine.KeepFlags, false)
	assert.Check(t, w.IsValid())
	assert.Check(t, engine.IsValid(actor))
	assert.Check(t, e.IsTracked(w.Package()), "a rooted world keeps its package")

	e.RemoveFromRoot(w)
	standalone := newWorld(t, e, engine.WorldTypeInactive)
	standalone.SetFlags(engine.FlagStandalone)
	collected := e.CollectGarbage(engine.KeepFlags, true)
	assert.Check(t, collected > 0)
	assert.Check(t, !w.IsValid())
	assert.Check(t, !engine.IsValid(actor))
	assert.Check(t, standalone.IsValid())
	assert.Check(t, e.FindPackage(w.Package().Name()) == nil)
}

func TestLevelStreamingBroadcastsAndSpawnsActors(t *testing.T) {
	e := newTestEngine(t, engine.WithEditor(true))
	pkg, err := e.CreatePackage("/Temp/Streaming", engine.FlagTransient)
	assert.NilError(t, err)
	e.SetPreloadWorldType("/Game/Maps/Arena", engine.WorldTypeGame)
	assert.NilError(t, e.LoadPackage(pkg, "/Game/Maps/Arena"))
	e.ClearPreloadWorldType("/Game/Maps/Arena")

	w := engine.FindWorldInPackage(pkg)
	assert.Check(t, w != nil)
	assert.Equal(t, w.WorldType, engine.WorldTypeGame)
	assert.Equal(t, w.Settings().DefaultGameMode, e.Core.GameMode)
	assert.Check(t, w.FindActorByTag("tower") != nil)
	assert.NilError(t, w.InitWorld(engine.InitValues{}))

	var changes []engine.LevelStreamingStateChange
	h := e.LevelStreamingStateChanged.Add(func(c engine.LevelStreamingStateChange) {
		changes = append(changes, c)
	})
	defer e.LevelStreamingStateChanged.Remove(h)

	w.FlushLevelStreaming()
	assert.Equal(t, len(changes), 2)
	assert.Equal(t, changes[0].NewState, engine.StreamingLoadedNotVisible)
	assert.Equal(t, changes[1].NewState, engine.StreamingLoadedVisible)
	level := changes[1].Level
	assert.Check(t, level != nil)
	assert.Check(t, level.OuterWorld() != w)
	assert.Check(t, level.OuterWorld().HasAnyFlags(engine.FlagStandalone))
	assert.Check(t, w.FindActorByTag("speaker") != nil)
	assert.Check(t, w.Subsystems().Get(e.radar).(*radarSubsystem).streaming > 0)
}

func TestRedirectorIsFollowed(t *testing.T) {
	e := newTestEngine(t)
	pkg, err := e.CreatePackage("/Temp/Redirected", engine.FlagTransient)
	assert.NilError(t, err)
	assert.NilError(t, e.LoadPackage(pkg, "/Game/Maps/OldArena"))
	assert.Check(t, engine.FindWorldInPackage(pkg) == nil)

	w, err := e.FollowWorldRedirectorInPackage(pkg)
	assert.NilError(t, err)
	assert.Equal(t, w.Name(), "Arena")

	target, err := e.ResolveRedirect("/Game/Maps/OldArena.OldArena")
	assert.NilError(t, err)
	assert.Equal(t, target, "/Game/Maps/Arena.Arena")
}

func TestURL(t *testing.T) {
	u := engine.ParseURL("/Game/Maps/Arena?GAME=/Script/Engine.GameMode?listen")
	assert.Equal(t, u.Map, "/Game/Maps/Arena")
	game, ok := u.Option("game")
	assert.Check(t, ok)
	assert.Equal(t, game, "/Script/Engine.GameMode")
	assert.Check(t, u.HasOption("listen"))
	assert.Equal(t, u.String(), "/Game/Maps/Arena?GAME=/Script/Engine.GameMode?listen")
}

func TestCoreTicker(t *testing.T) {
	ticker := engine.NewTicker()
	calls := 0
	ticker.AddTicker(func(float64) bool {
		calls++
		return calls < 2
	})
	ticker.Tick(0.1)
	ticker.Tick(0.1)
	ticker.Tick(0.1)
	assert.Equal(t, calls, 2)
	assert.Equal(t, ticker.Len(), 0)
}

func TestTravelReplacesWorldAndKeepsPlayers(t *testing.T) {
	e := newTestEngine(t)
	w := newWorld(t, e, engine.WorldTypeGame)
	assert.NilError(t, w.InitWorld(engine.InitValues{InitializeScenes: true, DefaultGameMode: e.Core.GameMode}))

	gi, err := e.NewGameInstance(e.Core.GameInstance, "GI")
	assert.NilError(t, err)
	ctx := e.CreateWorldContext(engine.WorldTypeGame)
	ctx.SetCurrentWorld(w)
	ctx.OwningGameInstance = gi
	gi.SetWorldContext(ctx)
	assert.NilError(t, gi.Init())
	w.SetGameInstance(gi)
	e.AddToRoot(w)
	assert.Check(t, w.SetGameMode(engine.URL{}))
	w.InitializeActorsForPlay(engine.URL{})
	w.BeginPlay()

	lp, errString := gi.CreateLocalPlayer(0, true)
	assert.Equal(t, errString, "")
	oldPC := lp.PlayerController

	assert.NilError(t, e.OpenLevel(w, "/Game/Maps/OldArena", true, "?listen"))
	assert.Check(t, ctx.HasPendingTravel())
	assert.NilError(t, e.TickWorldTravel(ctx))
	assert.Check(t, !ctx.HasPendingTravel())

	next := ctx.World()
	assert.Check(t, next != w)
	assert.Check(t, !w.IsValid())
	assert.Check(t, !w.IsRooted())
	assert.Check(t, next.IsRooted())
	assert.Equal(t, e.ActiveWorld(), next)
	assert.Equal(t, next.Name(), "Arena")
	assert.Check(t, next.HasBegunPlay())
	assert.Check(t, next.Scene != nil, "init values carry over")
	assert.Check(t, next.URL().HasOption("listen"))
	assert.Equal(t, ctx.LastURL.Map, "/Game/Maps/OldArena")

	assert.Equal(t, len(gi.LocalPlayers()), 1)
	assert.Check(t, lp.PlayerController != nil)
	assert.Check(t, lp.PlayerController != oldPC)
	assert.Equal(t, lp.PlayerController.World(), next)

	assert.ErrorContains(t, e.LoadMap(ctx, engine.ParseURL("/Game/Maps/Missing")), "does not exist")
}
