package class

import (
	"errors"
	"reflect"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	ErrDuplicateClass = errors.New("class is already registered")
	ErrUnknownParent  = errors.New("parent class is not registered")
	ErrInvalidPath    = errors.New("invalid class path")
	ErrAbstractClass  = errors.New("class is abstract")
	ErrClassNotFound  = errors.New("class not found")
)

type Option func(*Class)

// Abstract marks the class as never instantiable.
func Abstract() Option {
	return func(c *Class) {
		c.flags |= FlagAbstract
	}
}

// WithFactory overrides the constructor generated from the Go type.
func WithFactory(f Factory) Option {
	return func(c *Class) {
		c.factory = f
	}
}

// Registry holds every class known to an engine instance. Classes are kept in registration order so that
// derived-class discovery is deterministic.
type Registry struct {
	byPath  map[string]*Class
	byType  map[reflect.Type]*Class
	ordered []*Class
}

func NewRegistry() *Registry {
	return &Registry{
		byPath: make(map[string]*Class),
		byType: make(map[reflect.Type]*Class),
	}
}

// Register adds a class backed by the Go type T. parent may be nil for root classes.
func Register[T any](r *Registry, path string, parent *Class, opts ...Option) (*Class, error) {
	goType := reflect.TypeOf((*T)(nil)).Elem()
	factory := func() any { return new(T) }
	return r.register(path, parent, goType, factory, opts...)
}

// MustRegister is Register for package-level class tables where a failure is a programming error.
func MustRegister[T any](r *Registry, path string, parent *Class, opts ...Option) *Class {
	c, err := Register[T](r, path, parent, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (r *Registry) register(
	path string, parent *Class, goType reflect.Type, factory Factory, opts ...Option,
) (*Class, error) {
	if !IsValidPath(path) {
		return nil, eris.Wrapf(ErrInvalidPath, "path %q", path)
	}
	if _, ok := r.byPath[path]; ok {
		return nil, eris.Wrapf(ErrDuplicateClass, "path %q", path)
	}
	if parent != nil && r.byPath[parent.path] != parent {
		return nil, eris.Wrapf(ErrUnknownParent, "class %q parent %q", path, parent.path)
	}
	c := &Class{
		name:    PathName(path),
		path:    path,
		parent:  parent,
		factory: factory,
		goType:  goType,
	}
	for _, opt := range opts {
		opt(c)
	}
	r.byPath[path] = c
	if _, ok := r.byType[goType]; !ok {
		r.byType[goType] = c
	}
	r.ordered = append(r.ordered, c)
	return c, nil
}

// Find returns the class registered under path.
func (r *Registry) Find(path string) (*Class, error) {
	c, ok := r.byPath[path]
	if !ok {
		return nil, eris.Wrapf(ErrClassNotFound, "path %q", path)
	}
	return c, nil
}

// FindByName returns the first class whose short name matches.
func (r *Registry) FindByName(name string) (*Class, error) {
	for _, c := range r.ordered {
		if c.name == name {
			return c, nil
		}
	}
	return nil, eris.Wrapf(ErrClassNotFound, "name %q", name)
}

// ByType returns the class registered for a Go type, or nil.
func (r *Registry) ByType(t reflect.Type) *Class {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return r.byType[t]
}

// Of returns the class registered for T, or nil.
func Of[T any](r *Registry) *Class {
	return r.ByType(reflect.TypeOf((*T)(nil)).Elem())
}

// OfValue returns the class of obj, either stamped on it or looked up by its Go type.
func (r *Registry) OfValue(obj any) *Class {
	if o, ok := obj.(Object); ok && o.Class() != nil {
		return o.Class()
	}
	if obj == nil {
		return nil
	}
	return r.ByType(reflect.TypeOf(obj))
}

// DerivedClasses returns every class deriving from base, excluding base itself.
func (r *Registry) DerivedClasses(base *Class) []*Class {
	var out []*Class
	for _, c := range r.ordered {
		if c != base && c.IsChildOf(base) {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Classes() []*Class {
	out := make([]*Class, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// IsValidPath accepts /Root/Module.Name style paths.
func IsValidPath(path string) bool {
	if !strings.HasPrefix(path, "/") {
		return false
	}
	dot := strings.LastIndexByte(path, '.')
	if dot <= 1 || dot == len(path)-1 {
		return false
	}
	return !strings.ContainsAny(path, " \t\n\r\\:*?\"<>|")
}

func abstractErr(c *Class) error {
	return eris.Wrapf(ErrAbstractClass, "class %q", c.path)
}
