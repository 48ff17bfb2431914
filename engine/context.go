package engine

import (
	"fmt"
	"slices"
)

type TravelType int

const (
	TravelAbsolute TravelType = iota
	TravelPartial
	TravelRelative
)

// WorldContext binds a world to its game instance, viewport, and pending travel.
type WorldContext struct {
	WorldType          WorldType
	Handle             string
	OwningGameInstance *GameInstance
	GameViewport       *ViewportClient
	LastURL            URL

	world      *World
	travelURL  string
	travelType TravelType
}

func (c *WorldContext) World() *World {
	return c.world
}

func (c *WorldContext) SetCurrentWorld(w *World) {
	c.world = w
}

// HasPendingTravel reports whether a travel request waits for TickWorldTravel.
func (c *WorldContext) HasPendingTravel() bool {
	return c.travelURL != ""
}

func (c *WorldContext) SetClientTravel(url string, travelType TravelType) {
	c.travelURL = url
	c.travelType = travelType
}

func (e *Engine) CreateWorldContext(t WorldType) *WorldContext {
	e.contextCount++
	ctx := &WorldContext{
		WorldType: t,
		Handle:    fmt.Sprintf("Context_%d", e.contextCount),
	}
	e.contexts = append(e.contexts, ctx)
	return ctx
}

// DestroyWorldContext removes every context currently holding w.
func (e *Engine) DestroyWorldContext(w *World) {
	e.contexts = slices.DeleteFunc(e.contexts, func(ctx *WorldContext) bool {
		return ctx.world == w
	})
}

func (e *Engine) WorldContextFromWorld(w *World) *WorldContext {
	for _, ctx := range e.contexts {
		if ctx.world == w {
			return ctx
		}
	}
	return nil
}

func (e *Engine) WorldContexts() []*WorldContext {
	out := make([]*WorldContext, len(e.contexts))
	copy(out, e.contexts)
	return out
}
