package engine

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/content"
)

// OpenLevel schedules travel of the context owning w to level. The travel happens on the next TickWorldTravel.
func (e *Engine) OpenLevel(w *World, level string, absolute bool, options string) error {
	ctx := e.WorldContextFromWorld(w)
	if ctx == nil {
		return eris.Errorf("world %q has no world context", w.Name())
	}
	url := level
	if options = strings.TrimPrefix(options, "?"); options != "" {
		url += "?" + options
	}
	travelType := TravelRelative
	if absolute {
		travelType = TravelAbsolute
	}
	ctx.SetClientTravel(url, travelType)
	return nil
}

// TickWorldTravel performs the pending travel of ctx, if any.
func (e *Engine) TickWorldTravel(ctx *WorldContext) error {
	if !ctx.HasPendingTravel() {
		return nil
	}
	url := ParseURL(ctx.travelURL)
	ctx.travelURL = ""
	return e.LoadMap(ctx, url)
}

// LoadMap replaces the world of ctx with the map named by url. The game instance and its local players survive;
// player controllers are respawned in the new world.
func (e *Engine) LoadMap(ctx *WorldContext, url URL) error {
	pkgName, _ := content.SplitObjectPath(url.Map)
	if !content.IsValidLongPackageName(pkgName) || !e.Content.Exists(pkgName) {
		return eris.Errorf("travel target %q does not exist", url.Map)
	}
	old := ctx.World()
	gi := ctx.OwningGameInstance

	if old != nil {
		for _, lp := range e.GamePlayers(old) {
			lp.PlayerController = nil
		}
		for _, a := range old.Actors() {
			RouteEndPlay(a, EndPlayLevelTransition)
		}
		old.SetBegunPlay(false)
		e.ShutdownWorldNetDriver(old)
		old.DestroyWorld()
		e.RemoveFromRoot(old)
	}

	pkg, err := e.CreatePackage(e.MakeUniquePackageName(pkgName), FlagTransient)
	if err != nil {
		return err
	}
	e.SetPreloadWorldType(pkgName, ctx.WorldType)
	err = e.LoadPackage(pkg, pkgName)
	e.ClearPreloadWorldType(pkgName)
	if err != nil {
		return eris.Wrapf(err, "failed to load map %q", pkgName)
	}
	w := FindWorldInPackage(pkg)
	if w == nil {
		if w, err = e.FollowWorldRedirectorInPackage(pkg); err != nil {
			return err
		}
	}
	w.WorldType = ctx.WorldType
	w.SetGameInstance(gi)
	ctx.SetCurrentWorld(w)
	e.activeWorld = w
	e.AddToRoot(w)

	iv := InitValues{}
	if old != nil {
		iv = old.initValues
		iv.DefaultGameMode = nil
	}
	if err := w.InitWorld(iv); err != nil {
		return err
	}
	w.SetGameMode(url)
	w.UpdateWorldComponents()
	w.FlushLevelStreaming()
	w.InitializeActorsForPlay(url)

	if gi != nil {
		for _, lp := range gi.LocalPlayers() {
			if _, errString := w.SpawnPlayActor(lp); errString != "" {
				log.Error().Str("map", pkgName).Int("controller_id", lp.ControllerID).Msg(errString)
			}
		}
	}
	w.BeginPlay()
	ctx.LastURL = url
	log.Debug().Str("map", pkgName).Str("world", w.Name()).Msg("Map loaded")
	return nil
}
