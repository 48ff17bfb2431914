package engine

import (
	"pkg.world.dev/world-engine/automation/class"
)

type ObjectFlags uint32

const (
	FlagRootSet ObjectFlags = 1 << iota
	FlagStandalone
	FlagTransient
	FlagGarbage
)

// KeepFlags are the object flags that keep an object alive through garbage collection without a reference.
const KeepFlags = FlagStandalone

// Object is anything tracked by the engine object table.
type Object interface {
	class.Object
	Name() string
	Outer() Object
	object() *ObjectBase
}

// Referencer reports the objects an object keeps alive.
type Referencer interface {
	ReferencedObjects() []Object
}

type ObjectBase struct {
	class.Base
	id    uint64
	name  string
	outer Object
	flags ObjectFlags
}

func (o *ObjectBase) Name() string {
	return o.name
}

func (o *ObjectBase) Outer() Object {
	return o.outer
}

func (o *ObjectBase) HasAnyFlags(f ObjectFlags) bool {
	return o.flags&f != 0
}

func (o *ObjectBase) SetFlags(f ObjectFlags) {
	o.flags |= f
}

func (o *ObjectBase) ClearFlags(f ObjectFlags) {
	o.flags &^= f
}

func (o *ObjectBase) IsRooted() bool {
	return o.HasAnyFlags(FlagRootSet)
}

// IsValid reports whether the object is alive and not marked as garbage.
func (o *ObjectBase) IsValid() bool {
	return o != nil && o.id != 0 && !o.HasAnyFlags(FlagGarbage)
}

func (o *ObjectBase) MarkAsGarbage() {
	o.flags |= FlagGarbage
}

// PathName returns the outer chain joined with dots, e.g. /Temp/Test_0.AutomationWorld.
func (o *ObjectBase) PathName() string {
	if o.outer == nil {
		return o.name
	}
	return o.outer.object().PathName() + "." + o.name
}

func (o *ObjectBase) object() *ObjectBase {
	return o
}

// IsValid is the nil-safe form of ObjectBase.IsValid for interface values.
func IsValid(obj Object) bool {
	if obj == nil {
		return false
	}
	b := obj.object()
	return b != nil && b.IsValid()
}

// TypedOuter walks the outer chain of obj and returns the first outer of type T.
func TypedOuter[T Object](obj Object) (T, bool) {
	for it := obj.Outer(); it != nil; it = it.Outer() {
		if t, ok := it.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
