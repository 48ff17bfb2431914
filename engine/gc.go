package engine

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/class"
)

func (e *Engine) track(obj Object, outer Object, name string, flags ObjectFlags) {
	b := obj.object()
	e.nextObjectID++
	b.id = e.nextObjectID
	b.outer = outer
	b.flags = flags
	if name == "" {
		name = e.MakeUniqueObjectName(obj)
	}
	b.name = name
	if b.Class() == nil {
		b.SetClass(e.Classes.OfValue(obj))
	}
	e.objects[b.id] = obj
}

// NewObject instantiates cls and tracks it.
func (e *Engine) NewObject(cls *class.Class, outer Object, name string, flags ObjectFlags) (Object, error) {
	raw, err := cls.New()
	if err != nil {
		return nil, err
	}
	obj, ok := raw.(Object)
	if !ok {
		return nil, eris.Errorf("class %q does not produce an engine object", cls.Path())
	}
	e.track(obj, outer, name, flags)
	return obj, nil
}

// MakeUniqueObjectName builds <ClassName>_<N>.
func (e *Engine) MakeUniqueObjectName(obj Object) string {
	base := "Object"
	if cls := e.Classes.OfValue(obj); cls != nil {
		base = cls.Name()
	}
	e.nameCounter++
	return fmt.Sprintf("%s_%d", base, e.nameCounter)
}

func (e *Engine) AddToRoot(obj Object) {
	obj.object().SetFlags(FlagRootSet)
}

func (e *Engine) RemoveFromRoot(obj Object) {
	obj.object().ClearFlags(FlagRootSet)
}

// IsTracked reports whether obj is still in the object table.
func (e *Engine) IsTracked(obj Object) bool {
	if obj == nil {
		return false
	}
	_, ok := e.objects[obj.object().id]
	return ok
}

func (e *Engine) NumObjects() int {
	return len(e.objects)
}

// CollectGarbage marks everything reachable from the root set, from objects carrying any of keep, and from the
// engine itself; every other object is marked as garbage and dropped from the object table.
func (e *Engine) CollectGarbage(keep ObjectFlags, fullPurge bool) int {
	marked := make(map[uint64]bool, len(e.objects))
	var stack []Object
	push := func(obj Object) {
		if obj == nil {
			return
		}
		b := obj.object()
		if b == nil || b.id == 0 || marked[b.id] {
			return
		}
		if b.HasAnyFlags(FlagGarbage) && !b.IsRooted() {
			return
		}
		marked[b.id] = true
		stack = append(stack, obj)
	}

	for _, obj := range e.objects {
		b := obj.object()
		if b.IsRooted() || b.HasAnyFlags(keep) {
			push(obj)
		}
	}
	for _, obj := range e.ReferencedObjects() {
		push(obj)
	}
	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		push(obj.Outer())
		if r, ok := obj.(Referencer); ok {
			for _, ref := range r.ReferencedObjects() {
				push(ref)
			}
		}
	}

	collected := 0
	for id, obj := range e.objects {
		if marked[id] {
			continue
		}
		obj.object().MarkAsGarbage()
		delete(e.objects, id)
		collected++
	}
	if fullPurge {
		for name, pkg := range e.packages {
			if !pkg.IsValid() {
				delete(e.packages, name)
			}
		}
	}
	log.Debug().Int("collected", collected).Int("alive", len(e.objects)).Bool("full_purge", fullPurge).
		Msg("Garbage collection finished")
	return collected
}

// ReferencedObjects returns what the engine itself keeps alive: world contexts and everything they own.
func (e *Engine) ReferencedObjects() []Object {
	var refs []Object
	for _, ctx := range e.contexts {
		if ctx.world != nil {
			refs = append(refs, ctx.world)
		}
		if ctx.OwningGameInstance != nil {
			refs = append(refs, ctx.OwningGameInstance.self)
		}
		if ctx.GameViewport != nil {
			refs = append(refs, ctx.GameViewport)
		}
	}
	return refs
}
