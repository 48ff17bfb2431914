package stage

import (
	"errors"
	"sync/atomic"

	"github.com/rotisserie/eris"
)

type Stage string

const (
	Uninitialized Stage = "Uninitialized" // The default stage of a fixture
	Constructing  Stage = "Constructing"  // Fixture is moved to this stage when Create starts building the world
	Active        Stage = "Active"        // Fixture is moved to this stage once Create returns it
	EndingPlay    Stage = "EndingPlay"    // Fixture is moved to this stage when Destroy starts tearing it down
	Destroyed     Stage = "Destroyed"     // Fixture is moved to this stage when teardown has finished
)

var ErrInvalidTransition = errors.New("invalid stage transition")

var transitions = map[Stage][]Stage{
	Uninitialized: {Constructing},
	Constructing:  {Active, EndingPlay, Destroyed},
	Active:        {EndingPlay},
	EndingPlay:    {Destroyed},
}

// CanTransition reports whether a fixture may move from one stage to the other.
func CanTransition(from, to Stage) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Manager struct {
	current *atomic.Value
}

func NewManager() *Manager {
	m := &Manager{
		current: &atomic.Value{},
	}
	m.Store(Uninitialized)
	return m
}

func (m *Manager) CompareAndSwap(oldStage, newStage Stage) (swapped bool) {
	return m.current.CompareAndSwap(oldStage, newStage)
}

func (m *Manager) Current() Stage {
	return m.current.Load().(Stage)
}

func (m *Manager) Store(val Stage) {
	m.current.Store(val)
}

func (m *Manager) Swap(newStage Stage) (oldStage Stage) {
	return m.current.Swap(newStage).(Stage)
}

// Advance moves the manager to next if the current stage allows it.
func (m *Manager) Advance(next Stage) error {
	for {
		current := m.Current()
		if !CanTransition(current, next) {
			return eris.Wrapf(ErrInvalidTransition, "%s -> %s", current, next)
		}
		if m.CompareAndSwap(current, next) {
			return nil
		}
	}
}

// IsAlive reports whether the fixture holds a world, i.e. it is between construction and destruction.
func (m *Manager) IsAlive() bool {
	switch m.Current() {
	case Constructing, Active, EndingPlay:
		return true
	default:
		return false
	}
}
