package automation

import (
	"errors"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/subsystem"
)

var ErrUnknownSubsystem = errors.New("type is not a registered subsystem class")

// GetSubsystem returns the existing subsystem of cls from the world or game instance collection.
func (fx *World) GetSubsystem(cls *class.Class) subsystem.Subsystem {
	c := fx.collectionFor(cls)
	if c == nil {
		return nil
	}
	return c.Get(cls)
}

// GetOrCreateSubsystem returns the subsystem of cls, injecting it into the initialized collection when it was
// held back at creation. World subsystems injected this way receive the lifecycle callbacks they missed.
// Abstract classes and subsystems that decline to be created yield nil.
func (fx *World) GetOrCreateSubsystem(cls *class.Class) (subsystem.Subsystem, error) {
	if cls == nil || cls.IsAbstract() {
		return nil, nil //nolint:nilnil // nothing to create
	}
	category, ok := subsystem.CategoryOf(fx.rt.Engine.Classes, cls)
	if !ok {
		return nil, eris.Wrapf(subsystem.ErrWrongCategory, "class %q", cls.Path())
	}
	c := fx.collectionFor(cls)
	if c == nil {
		return nil, nil //nolint:nilnil // no owner for this category
	}
	if s := c.Get(cls); s != nil {
		return s, nil
	}

	var outer any = fx.world
	if category == subsystem.CategoryGameInstance {
		outer = fx.gameInstance.Self()
	}
	probe, err := cls.New()
	if err != nil {
		return nil, eris.Wrapf(err, "class %q", cls.Path())
	}
	if p, ok := probe.(subsystem.Subsystem); !ok || !p.ShouldCreateSubsystem(outer) {
		return nil, nil //nolint:nilnil // the subsystem declined
	}

	s, err := c.AddAndInitialize(cls)
	if err != nil {
		log.Error().Err(err).Str("operation", "GetOrCreateSubsystem").Str("class", cls.Path()).
			Msg("Failed to add subsystem")
		return nil, err
	}
	if ws, ok := s.(subsystem.WorldSubsystem); ok {
		ws.PostInitialize()
		ws.OnWorldComponentsUpdated()
		if fx.world.HasBegunPlay() {
			ws.OnWorldBeginPlay()
		}
	}
	return s, nil
}

// collectionFor returns the fixture collection owning subsystems of cls. Local player subsystems have no fixture
// collection.
func (fx *World) collectionFor(cls *class.Class) *subsystem.Collection {
	if fx.world == nil || !fx.world.IsInitialized() {
		return nil
	}
	category, ok := subsystem.CategoryOf(fx.rt.Engine.Classes, cls)
	if !ok {
		return nil
	}
	switch category {
	case subsystem.CategoryWorld:
		return fx.worldSubsystems
	case subsystem.CategoryGameInstance:
		if fx.gameInstance == nil {
			return nil
		}
		return fx.gameInstanceSubsystems
	default:
		return nil
	}
}

// GetSubsystem returns the subsystem of type T, if the fixture has one.
func GetSubsystem[T subsystem.Subsystem](fx *World) (T, bool) {
	var zero T
	cls := class.Of[T](fx.rt.Engine.Classes)
	if cls == nil {
		return zero, false
	}
	s, ok := fx.GetSubsystem(cls).(T)
	return s, ok
}

// GetOrCreateSubsystem returns the subsystem of type T, injecting it when needed.
func GetOrCreateSubsystem[T subsystem.Subsystem](fx *World) (T, error) {
	var zero T
	cls := class.Of[T](fx.rt.Engine.Classes)
	if cls == nil {
		return zero, eris.Wrapf(ErrUnknownSubsystem, "%T", zero)
	}
	s, err := fx.GetOrCreateSubsystem(cls)
	if err != nil || s == nil {
		return zero, err
	}
	t, ok := s.(T)
	if !ok {
		return zero, eris.Errorf("subsystem of class %q is %T", cls.Path(), s)
	}
	return t, nil
}
