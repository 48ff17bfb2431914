package subsystem

import (
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/automation/class"
)

const (
	BaseClassPath         = "/Script/Engine.Subsystem"
	WorldClassPath        = "/Script/Engine.WorldSubsystem"
	GameInstanceClassPath = "/Script/Engine.GameInstanceSubsystem"
	LocalPlayerClassPath  = "/Script/Engine.LocalPlayerSubsystem"
)

// Category selects which owner a subsystem class binds to.
type Category int

const (
	CategoryWorld Category = iota
	CategoryGameInstance
	CategoryLocalPlayer
)

func (c Category) String() string {
	switch c {
	case CategoryWorld:
		return "World"
	case CategoryGameInstance:
		return "GameInstance"
	case CategoryLocalPlayer:
		return "LocalPlayer"
	default:
		return "Unknown"
	}
}

func (c Category) classPath() string {
	switch c {
	case CategoryWorld:
		return WorldClassPath
	case CategoryGameInstance:
		return GameInstanceClassPath
	case CategoryLocalPlayer:
		return LocalPlayerClassPath
	default:
		return ""
	}
}

// Subsystem is an auto-instantiated service owned by a world, game instance, or local player.
type Subsystem interface {
	ShouldCreateSubsystem(outer any) bool
	Initialize(c *Collection)
	Deinitialize()
}

// WorldSubsystem receives world lifecycle notifications in addition to Subsystem's.
type WorldSubsystem interface {
	Subsystem
	PostInitialize()
	OnWorldComponentsUpdated()
	OnWorldBeginPlay()
	UpdateStreamingState()
}

type outerBinder interface {
	bindOuter(outer any)
}

// Base provides no-op Subsystem behavior. Embed it in concrete subsystems.
type Base struct {
	class.Base
	outer any
}

func (b *Base) ShouldCreateSubsystem(any) bool { return true }
func (b *Base) Initialize(*Collection)         {}
func (b *Base) Deinitialize()                  {}

// Outer returns the owner the subsystem was created for.
func (b *Base) Outer() any {
	return b.outer
}

func (b *Base) bindOuter(outer any) {
	b.outer = outer
}

type WorldBase struct {
	Base
}

func (w *WorldBase) PostInitialize()           {}
func (w *WorldBase) OnWorldComponentsUpdated() {}
func (w *WorldBase) OnWorldBeginPlay()         {}
func (w *WorldBase) UpdateStreamingState()     {}

type GameInstanceBase struct {
	Base
}

type LocalPlayerBase struct {
	Base
}

// RegisterBaseClasses installs the abstract subsystem hierarchy into r.
func RegisterBaseClasses(r *class.Registry) error {
	root, err := class.Register[Base](r, BaseClassPath, nil, class.Abstract())
	if err != nil {
		return eris.Wrap(err, "failed to register subsystem base class")
	}
	if _, err := class.Register[WorldBase](r, WorldClassPath, root, class.Abstract()); err != nil {
		return eris.Wrap(err, "failed to register world subsystem class")
	}
	if _, err := class.Register[GameInstanceBase](r, GameInstanceClassPath, root, class.Abstract()); err != nil {
		return eris.Wrap(err, "failed to register game instance subsystem class")
	}
	if _, err := class.Register[LocalPlayerBase](r, LocalPlayerClassPath, root, class.Abstract()); err != nil {
		return eris.Wrap(err, "failed to register local player subsystem class")
	}
	return nil
}

// BaseClass returns the abstract root class for a category.
func BaseClass(r *class.Registry, category Category) (*class.Class, error) {
	return r.Find(category.classPath())
}

// CategoryOf finds the category whose base class cls derives from.
func CategoryOf(r *class.Registry, cls *class.Class) (Category, bool) {
	for _, category := range []Category{CategoryWorld, CategoryGameInstance, CategoryLocalPlayer} {
		base, err := BaseClass(r, category)
		if err == nil && cls.IsChildOf(base) {
			return category, true
		}
	}
	return 0, false
}

// CategoryOfClass walks the parent chain of cls looking for a category base class path. It works without the
// registry the class was registered in.
func CategoryOfClass(cls *class.Class) (Category, bool) {
	for it := cls; it != nil; it = it.Parent() {
		for _, category := range []Category{CategoryWorld, CategoryGameInstance, CategoryLocalPlayer} {
			if it.Path() == category.classPath() {
				return category, true
			}
		}
	}
	return 0, false
}
