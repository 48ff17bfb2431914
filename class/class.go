package class

import (
	"reflect"
	"strings"
)

type Flags uint32

const (
	// FlagAbstract marks a class that can never be instantiated.
	FlagAbstract Flags = 1 << iota
	// FlagNotInstantiable is toggled at runtime to keep a concrete class out of collection initialization.
	FlagNotInstantiable
)

// Factory builds a zero instance of a class.
type Factory func() any

// Class is the runtime descriptor of a registered type.
type Class struct {
	name    string
	path    string
	parent  *Class
	flags   Flags
	factory Factory
	goType  reflect.Type
}

func (c *Class) Name() string {
	return c.name
}

// Path returns the full class path, e.g. /Script/Engine.GameModeBase.
func (c *Class) Path() string {
	return c.path
}

func (c *Class) Parent() *Class {
	return c.parent
}

func (c *Class) GoType() reflect.Type {
	return c.goType
}

func (c *Class) Flags() Flags {
	return c.flags
}

func (c *Class) HasAnyFlags(f Flags) bool {
	return c.flags&f != 0
}

func (c *Class) SetFlags(f Flags) {
	c.flags |= f
}

func (c *Class) ClearFlags(f Flags) {
	c.flags &^= f
}

func (c *Class) IsAbstract() bool {
	return c.HasAnyFlags(FlagAbstract)
}

// Instantiable reports whether collection initialization may construct the class.
func (c *Class) Instantiable() bool {
	return !c.HasAnyFlags(FlagAbstract|FlagNotInstantiable) && c.factory != nil
}

// IsChildOf reports whether c is other or derives from it.
func (c *Class) IsChildOf(other *Class) bool {
	if other == nil {
		return false
	}
	for it := c; it != nil; it = it.parent {
		if it == other {
			return true
		}
	}
	return false
}

// New builds an instance of the class. Abstract classes yield ErrAbstractClass. Instances embedding Base are
// stamped with their class.
func (c *Class) New() (any, error) {
	if c.IsAbstract() || c.factory == nil {
		return nil, abstractErr(c)
	}
	obj := c.factory()
	if o, ok := obj.(Object); ok {
		o.SetClass(c)
	}
	return obj, nil
}

func (c *Class) String() string {
	return c.path
}

// PathName extracts the short name from a class path.
func PathName(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Object is implemented by instances that know their class.
type Object interface {
	Class() *Class
	SetClass(c *Class)
}

// Base is embedded by types that want New to stamp their class.
type Base struct {
	class *Class
}

func (b *Base) Class() *Class {
	return b.class
}

func (b *Base) SetClass(c *Class) {
	b.class = c
}

// IsA reports whether obj is an instance of cls or one of its subclasses.
func IsA(obj any, cls *Class) bool {
	o, ok := obj.(Object)
	if !ok || o.Class() == nil {
		return false
	}
	return o.Class().IsChildOf(cls)
}
