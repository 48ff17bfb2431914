package automation

import (
	"errors"

	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/engine"
)

var ErrUnknownActorClass = errors.New("type is not a registered actor class")

// SpawnActorSimple spawns an actor of cls in the fixture world with default parameters.
func (fx *World) SpawnActorSimple(cls *class.Class) (engine.Actor, error) {
	return fx.SpawnActor(cls, engine.SpawnParams{})
}

func (fx *World) SpawnActor(cls *class.Class, params engine.SpawnParams) (engine.Actor, error) {
	if fx.world == nil {
		return nil, eris.New("cannot spawn into a destroyed world")
	}
	return fx.world.SpawnActor(cls, params)
}

// SpawnActor spawns an actor of the class registered for T.
func SpawnActor[T engine.Actor](fx *World, params engine.SpawnParams) (T, error) {
	var zero T
	cls := class.Of[T](fx.rt.Engine.Classes)
	if cls == nil {
		return zero, eris.Wrapf(ErrUnknownActorClass, "%T", zero)
	}
	a, err := fx.SpawnActor(cls, params)
	if err != nil {
		return zero, err
	}
	t, ok := a.(T)
	if !ok {
		return zero, eris.Errorf("actor of class %q is %T", cls.Path(), a)
	}
	return t, nil
}

// FindActorByTag returns the first actor of type T carrying tag.
func FindActorByTag[T engine.Actor](fx *World, tag string) (T, bool) {
	var zero T
	if fx.world == nil {
		return zero, false
	}
	for _, a := range engine.ActorsOf[T](fx.world) {
		if engine.ActorBaseOf(a).HasTag(tag) {
			return a, true
		}
	}
	return zero, false
}

// FindActorByType returns the first actor of type T.
func FindActorByType[T engine.Actor](fx *World) (T, bool) {
	var zero T
	if fx.world == nil {
		return zero, false
	}
	return engine.FirstActorOf[T](fx.world)
}
