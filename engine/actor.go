package engine

import (
	"slices"

	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/automation/class"
)

type EndPlayReason int

const (
	EndPlayDestroyed EndPlayReason = iota
	EndPlayLevelTransition
	EndPlayInEditor
	EndPlayRemovedFromWorld
	EndPlayQuit
)

func (r EndPlayReason) String() string {
	switch r {
	case EndPlayDestroyed:
		return "Destroyed"
	case EndPlayLevelTransition:
		return "LevelTransition"
	case EndPlayInEditor:
		return "EndPlayInEditor"
	case EndPlayRemovedFromWorld:
		return "RemovedFromWorld"
	default:
		return "Quit"
	}
}

type Vector struct {
	X, Y, Z float64
}

// Actor is an object placed in a world.
type Actor interface {
	Object
	BeginPlay()
	EndPlay(reason EndPlayReason)
	actor() *ActorBase
}

// Constructor is implemented by actors that finish setting themselves up once spawned.
type Constructor interface {
	OnConstruction()
}

// ComponentInitializer is implemented by actors that initialize state when the world prepares for play.
type ComponentInitializer interface {
	PostInitializeComponents()
}

// Tickable is anything advanced once per frame.
type Tickable interface {
	Tick(dt float64)
}

type ActorBase struct {
	ObjectBase
	Tags     []string
	Location Vector
	Hidden   bool

	world     *World
	label     string
	begunPlay bool
}

func (a *ActorBase) World() *World {
	return a.world
}

func (a *ActorBase) ActorLabel() string {
	return a.label
}

func (a *ActorBase) SetActorLabel(label string) {
	a.label = label
}

func (a *ActorBase) HasTag(tag string) bool {
	return slices.Contains(a.Tags, tag)
}

// AddTag adds tag unless it is already present.
func (a *ActorBase) AddTag(tag string) {
	if tag != "" && !a.HasTag(tag) {
		a.Tags = append(a.Tags, tag)
	}
}

func (a *ActorBase) RemoveTag(tag string) {
	a.Tags = slices.DeleteFunc(a.Tags, func(t string) bool { return t == tag })
}

func (a *ActorBase) HasActorBegunPlay() bool {
	return a.begunPlay
}

func (a *ActorBase) BeginPlay()            {}
func (a *ActorBase) EndPlay(EndPlayReason) {}

func (a *ActorBase) actor() *ActorBase {
	return a
}

// DispatchBeginPlay calls BeginPlay on a once.
func DispatchBeginPlay(a Actor) {
	b := a.actor()
	if b.begunPlay {
		return
	}
	b.begunPlay = true
	a.BeginPlay()
}

// RouteEndPlay calls EndPlay on a if it has begun play.
func RouteEndPlay(a Actor, reason EndPlayReason) {
	b := a.actor()
	if !b.begunPlay {
		return
	}
	a.EndPlay(reason)
	b.begunPlay = false
}

// SpawnParams tunes SpawnActor. A nil Outer places the actor in the persistent level.
type SpawnParams struct {
	Name     string
	Label    string
	Tags     []string
	Location Vector
	Outer    Object
	Flags    ObjectFlags
	// Deferred skips adding the actor to the world; the caller finishes with FinishSpawning.
	Deferred bool
}

// SpawnActor creates an actor of cls in w. Actors spawned after play began receive BeginPlay right away.
func (w *World) SpawnActor(cls *class.Class, params SpawnParams) (Actor, error) {
	if !cls.IsChildOf(w.engine.Core.Actor) {
		return nil, eris.Errorf("class %q is not an actor", cls.Path())
	}
	raw, err := cls.New()
	if err != nil {
		return nil, err
	}
	a, ok := raw.(Actor)
	if !ok {
		return nil, eris.Errorf("class %q does not produce an actor", cls.Path())
	}
	outer := params.Outer
	if outer == nil {
		outer = w
	}
	w.engine.track(a, outer, params.Name, params.Flags)
	b := a.actor()
	b.world = w
	b.Location = params.Location
	b.label = params.Label
	for _, tag := range params.Tags {
		b.AddTag(tag)
	}
	if b.label == "" {
		b.label = b.Name()
	}
	if params.Deferred {
		return a, nil
	}
	w.FinishSpawning(a)
	return a, nil
}

// FinishSpawning runs construction and adds a to the world.
func (w *World) FinishSpawning(a Actor) {
	if c, ok := a.(Constructor); ok {
		c.OnConstruction()
	}
	w.actors = append(w.actors, a)
	if w.actorsInitialized {
		if i, ok := a.(ComponentInitializer); ok {
			i.PostInitializeComponents()
		}
	}
	if w.begunPlay {
		DispatchBeginPlay(a)
	}
}

// DestroyActor ends play for a and removes it from the world.
func (w *World) DestroyActor(a Actor) bool {
	idx := slices.Index(w.actors, a)
	if idx < 0 {
		return false
	}
	RouteEndPlay(a, EndPlayDestroyed)
	w.actors = slices.Delete(w.actors, idx, idx+1)
	a.actor().MarkAsGarbage()
	if gm, ok := a.(GameMode); ok && gm == w.authGameMode {
		w.authGameMode = nil
	}
	return true
}

// Actors returns a snapshot of the actors in w.
func (w *World) Actors() []Actor {
	out := make([]Actor, len(w.actors))
	copy(out, w.actors)
	return out
}

// ActorsOf returns every actor of w assignable to T.
func ActorsOf[T Actor](w *World) []T {
	var out []T
	for _, a := range w.actors {
		if t, ok := a.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// FirstActorOf returns the first actor of w assignable to T.
func FirstActorOf[T Actor](w *World) (T, bool) {
	for _, a := range w.actors {
		if t, ok := a.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// FindActorByTag returns the first actor carrying tag.
func (w *World) FindActorByTag(tag string) Actor {
	for _, a := range w.actors {
		if a.actor().HasTag(tag) {
			return a
		}
	}
	return nil
}

// ActorBaseOf exposes the shared actor state of a.
func ActorBaseOf(a Actor) *ActorBase {
	return a.actor()
}
