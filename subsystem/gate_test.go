package subsystem_test

import (
	"testing"

	"pkg.world.dev/world-engine/assert"

	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/subsystem"
)

func TestGateDisablesAllButAllowedAndPersistent(t *testing.T) {
	f := newFixture(t)

	gate := subsystem.Enter(f.registry, subsystem.CategoryWorld, []*class.Class{f.weather}, []*class.Class{f.mixer})
	assert.IsEqual(t, []*class.Class{f.traffic, f.picky}, gate.Disabled())
	assert.Check(t, !f.traffic.Instantiable())
	assert.Check(t, f.weather.Instantiable())
	assert.Check(t, f.mixer.Instantiable())
	assert.Check(t, f.score.Instantiable(), "other categories are untouched")

	c := subsystem.NewCollection(f.registry, subsystem.CategoryWorld)
	assert.NilError(t, c.Initialize(nil))
	gate.Exit()

	assert.IsEqual(t, []*class.Class{f.weather, f.mixer}, c.Classes())
	assert.Check(t, f.traffic.Instantiable())
	assert.Check(t, f.picky.Instantiable())
}

func TestGateExitOnlyRestoresItsOwnMarks(t *testing.T) {
	f := newFixture(t)
	f.traffic.SetFlags(class.FlagNotInstantiable)

	gate := subsystem.Enter(f.registry, subsystem.CategoryWorld, nil, nil)
	assert.IsEqual(t, []*class.Class{f.weather, f.mixer, f.picky}, gate.Disabled())
	gate.Exit()
	gate.Exit()

	assert.Check(t, !f.traffic.Instantiable(), "pre-existing mark survives the gate")
	assert.Check(t, f.weather.Instantiable())
	assert.Check(t, !f.audio.Instantiable(), "abstract classes stay abstract")
}

func TestNestedGatesAreSymmetric(t *testing.T) {
	f := newFixture(t)

	outer := subsystem.Enter(f.registry, subsystem.CategoryWorld, []*class.Class{f.weather}, nil)
	inner := subsystem.Enter(f.registry, subsystem.CategoryWorld, nil, nil)
	assert.IsEqual(t, []*class.Class{f.weather}, inner.Disabled())

	inner.Exit()
	assert.Check(t, f.weather.Instantiable())
	assert.Check(t, !f.traffic.Instantiable())

	outer.Exit()
	for _, cls := range []*class.Class{f.traffic, f.weather, f.mixer, f.picky, f.score} {
		assert.Check(t, cls.Instantiable(), cls.Path())
	}
}
