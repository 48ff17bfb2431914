package subsystem

import (
	"errors"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/class"
)

var (
	ErrWrongCategory  = errors.New("class does not belong to the collection category")
	ErrNotASubsystem  = errors.New("class does not produce a subsystem")
	ErrNotInitialized = errors.New("collection is not initialized")
)

// Collection owns the subsystems of a single outer object. Instances are keyed by class, kept in creation order,
// and indexed by base class on demand.
type Collection struct {
	registry *class.Registry
	category Category
	base     *class.Class
	outer    any

	subsystems map[*class.Class]Subsystem
	order      []*class.Class
	arrays     map[*class.Class][]Subsystem

	initialized  bool
	initializing bool
}

func NewCollection(registry *class.Registry, category Category) *Collection {
	return &Collection{
		registry:   registry,
		category:   category,
		subsystems: make(map[*class.Class]Subsystem),
		arrays:     make(map[*class.Class][]Subsystem),
	}
}

func (c *Collection) Category() Category {
	return c.category
}

func (c *Collection) Outer() any {
	return c.outer
}

func (c *Collection) IsInitialized() bool {
	return c.initialized
}

// Initialize creates every instantiable subsystem of the collection category that agrees to be created for outer.
func (c *Collection) Initialize(outer any) error {
	if c.initialized {
		return nil
	}
	base, err := BaseClass(c.registry, c.category)
	if err != nil {
		return eris.Wrapf(err, "failed to initialize %s subsystems", c.category)
	}
	c.base = base
	c.outer = outer
	c.initialized = true
	c.initializing = true
	defer func() { c.initializing = false }()

	for _, cls := range c.registry.DerivedClasses(base) {
		if !cls.Instantiable() {
			continue
		}
		if _, err := c.create(cls, true); err != nil {
			return err
		}
	}
	return nil
}

// InitializeDependency makes sure cls is created before the caller continues its own Initialize. It is only
// meaningful while the collection is initializing.
func (c *Collection) InitializeDependency(cls *class.Class) Subsystem {
	if !c.initializing {
		log.Warn().Str("class", cls.Path()).Msg("InitializeDependency called outside of collection initialization")
		return nil
	}
	if !cls.Instantiable() || !cls.IsChildOf(c.base) {
		return nil
	}
	s, err := c.create(cls, true)
	if err != nil {
		log.Error().Err(err).Str("class", cls.Path()).Msg("failed to initialize subsystem dependency")
		return nil
	}
	return s
}

// AddAndInitialize injects cls into an already initialized collection. The instance is registered, initialized,
// and appended to every cached base-class array it belongs to. The ShouldCreateSubsystem check is left to the
// caller.
func (c *Collection) AddAndInitialize(cls *class.Class) (Subsystem, error) {
	if !c.initialized {
		return nil, eris.Wrapf(ErrNotInitialized, "%s collection", c.category)
	}
	if cls == nil {
		return nil, eris.Wrap(ErrNotASubsystem, "nil class")
	}
	if cls.IsAbstract() {
		return nil, eris.Wrapf(class.ErrAbstractClass, "class %q", cls.Path())
	}
	if !cls.IsChildOf(c.base) {
		return nil, eris.Wrapf(ErrWrongCategory, "class %q in %s collection", cls.Path(), c.category)
	}
	return c.create(cls, false)
}

func (c *Collection) create(cls *class.Class, checkShouldCreate bool) (Subsystem, error) {
	if existing, ok := c.subsystems[cls]; ok {
		return existing, nil
	}
	obj, err := cls.New()
	if err != nil {
		return nil, err
	}
	s, ok := obj.(Subsystem)
	if !ok {
		return nil, eris.Wrapf(ErrNotASubsystem, "class %q", cls.Path())
	}
	if checkShouldCreate && !s.ShouldCreateSubsystem(c.outer) {
		return nil, nil //nolint:nilnil // declined subsystems are not an error
	}
	if b, ok := s.(outerBinder); ok {
		b.bindOuter(c.outer)
	}

	// Registered before Initialize so dependency lookups see it, ordered after so dependencies deinit last.
	c.subsystems[cls] = s
	s.Initialize(c)
	c.order = append(c.order, cls)

	for key, arr := range c.arrays {
		if cls.IsChildOf(key) {
			c.arrays[key] = append(arr, s)
		}
	}
	return s, nil
}

// Get returns the subsystem created for exactly cls.
func (c *Collection) Get(cls *class.Class) Subsystem {
	return c.subsystems[cls]
}

// GetArray returns every subsystem whose class derives from base, in creation order.
func (c *Collection) GetArray(base *class.Class) []Subsystem {
	if arr, ok := c.arrays[base]; ok {
		return arr
	}
	arr := make([]Subsystem, 0)
	for _, cls := range c.order {
		if cls.IsChildOf(base) {
			arr = append(arr, c.subsystems[cls])
		}
	}
	c.arrays[base] = arr
	return arr
}

// Subsystems returns all subsystems in creation order.
func (c *Collection) Subsystems() []Subsystem {
	out := make([]Subsystem, 0, len(c.order))
	for _, cls := range c.order {
		out = append(out, c.subsystems[cls])
	}
	return out
}

func (c *Collection) Classes() []*class.Class {
	out := make([]*class.Class, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Collection) Len() int {
	return len(c.order)
}

// Deinitialize tears subsystems down in reverse creation order and empties the collection.
func (c *Collection) Deinitialize() {
	for i := len(c.order) - 1; i >= 0; i-- {
		c.subsystems[c.order[i]].Deinitialize()
	}
	c.subsystems = make(map[*class.Class]Subsystem)
	c.arrays = make(map[*class.Class][]Subsystem)
	c.order = nil
	c.outer = nil
	c.initialized = false
}

// ForEachWorld calls fn for every world subsystem in creation order.
func (c *Collection) ForEachWorld(fn func(WorldSubsystem)) {
	for _, s := range c.Subsystems() {
		if ws, ok := s.(WorldSubsystem); ok {
			fn(ws)
		}
	}
}

// Find returns the first subsystem assignable to T.
func Find[T any](c *Collection) (T, bool) {
	for _, cls := range c.order {
		if s, ok := c.subsystems[cls].(T); ok {
			return s, true
		}
	}
	var zero T
	return zero, false
}
