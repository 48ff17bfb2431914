package subsystem

import (
	"slices"

	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/class"
)

// Gate keeps discovered subsystem classes out of collection initialization for the duration of a scope. Every
// class not in the allow list or the persistent list is marked not instantiable on Enter; Exit clears exactly the
// marks this gate applied.
type Gate struct {
	category Category
	disabled []*class.Class
}

// Enter computes the disabled set for category and applies it.
func Enter(r *class.Registry, category Category, allowed []*class.Class, persistent []*class.Class) *Gate {
	g := &Gate{category: category}
	base, err := BaseClass(r, category)
	if err != nil {
		log.Error().Err(err).Str("category", category.String()).Msg("subsystem gate has no base class")
		return g
	}
	for _, cls := range r.DerivedClasses(base) {
		if cls.IsAbstract() || cls.HasAnyFlags(class.FlagNotInstantiable) {
			continue
		}
		if slices.Contains(allowed, cls) || slices.Contains(persistent, cls) {
			continue
		}
		cls.SetFlags(class.FlagNotInstantiable)
		g.disabled = append(g.disabled, cls)
	}
	return g
}

// Exit restores every class flagged by Enter. It is safe to call more than once.
func (g *Gate) Exit() {
	for _, cls := range g.disabled {
		cls.ClearFlags(class.FlagNotInstantiable)
	}
	g.disabled = nil
}

func (g *Gate) Category() Category {
	return g.category
}

// Disabled returns the classes currently held back by the gate.
func (g *Gate) Disabled() []*class.Class {
	out := make([]*class.Class, len(g.disabled))
	copy(out, g.disabled)
	return out
}
