package subsystem_test

import (
	"testing"

	"pkg.world.dev/world-engine/assert"

	"pkg.world.dev/world-engine/automation/class"
	"pkg.world.dev/world-engine/automation/subsystem"
)

var lifecycle []string

type weatherSubsystem struct {
	subsystem.WorldBase
}

func (w *weatherSubsystem) Initialize(*subsystem.Collection) {
	lifecycle = append(lifecycle, "init:weather")
}

func (w *weatherSubsystem) Deinitialize() {
	lifecycle = append(lifecycle, "deinit:weather")
}

type trafficSubsystem struct {
	subsystem.WorldBase
	weather subsystem.Subsystem
}

func (s *trafficSubsystem) Initialize(c *subsystem.Collection) {
	cls, _ := testRegistry.Find("/Script/Test.WeatherSubsystem")
	s.weather = c.InitializeDependency(cls)
	lifecycle = append(lifecycle, "init:traffic")
}

func (s *trafficSubsystem) Deinitialize() {
	lifecycle = append(lifecycle, "deinit:traffic")
}

type audioSubsystem struct {
	subsystem.WorldBase
}

type mixerSubsystem struct {
	audioSubsystem
}

type pickySubsystem struct {
	subsystem.WorldBase
}

func (p *pickySubsystem) ShouldCreateSubsystem(any) bool { return false }

type scoreSubsystem struct {
	subsystem.GameInstanceBase
}

var testRegistry *class.Registry

type fixture struct {
	registry *class.Registry
	traffic  *class.Class
	weather  *class.Class
	audio    *class.Class
	mixer    *class.Class
	picky    *class.Class
	score    *class.Class
}

func newFixture(t *testing.T) fixture {
	lifecycle = nil
	r := class.NewRegistry()
	assert.NilError(t, subsystem.RegisterBaseClasses(r))
	worldBase, err := subsystem.BaseClass(r, subsystem.CategoryWorld)
	assert.NilError(t, err)
	giBase, err := subsystem.BaseClass(r, subsystem.CategoryGameInstance)
	assert.NilError(t, err)

	f := fixture{registry: r}
	f.traffic = class.MustRegister[trafficSubsystem](r, "/Script/Test.TrafficSubsystem", worldBase)
	f.weather = class.MustRegister[weatherSubsystem](r, "/Script/Test.WeatherSubsystem", worldBase)
	f.audio = class.MustRegister[audioSubsystem](r, "/Script/Test.AudioSubsystem", worldBase, class.Abstract())
	f.mixer = class.MustRegister[mixerSubsystem](r, "/Script/Test.MixerSubsystem", f.audio)
	f.picky = class.MustRegister[pickySubsystem](r, "/Script/Test.PickySubsystem", worldBase)
	f.score = class.MustRegister[scoreSubsystem](r, "/Script/Test.ScoreSubsystem", giBase)
	testRegistry = r
	return f
}

func TestInitializeCreatesInstantiableSubsystems(t *testing.T) {
	f := newFixture(t)
	c := subsystem.NewCollection(f.registry, subsystem.CategoryWorld)
	outer := &struct{ name string }{name: "world"}

	assert.NilError(t, c.Initialize(outer))

	assert.IsEqual(t, []*class.Class{f.weather, f.traffic, f.mixer}, c.Classes())
	assert.Check(t, c.Get(f.picky) == nil)
	assert.Check(t, c.Get(f.score) == nil)
	assert.IsEqual(t, []string{"init:weather", "init:traffic"}, lifecycle)

	traffic := c.Get(f.traffic).(*trafficSubsystem)
	assert.Equal(t, traffic.weather, c.Get(f.weather))
	assert.Equal(t, traffic.Outer(), any(outer))
	assert.Equal(t, traffic.Class(), f.traffic)

	c.Deinitialize()
	assert.IsEqual(t, []string{"init:weather", "init:traffic", "deinit:traffic", "deinit:weather"}, lifecycle)
	assert.Equal(t, c.Len(), 0)
	assert.Check(t, !c.IsInitialized())
}

func TestAddAndInitializeBackfillsArrayCaches(t *testing.T) {
	f := newFixture(t)
	f.mixer.SetFlags(class.FlagNotInstantiable)
	c := subsystem.NewCollection(f.registry, subsystem.CategoryWorld)
	assert.NilError(t, c.Initialize(nil))
	f.mixer.ClearFlags(class.FlagNotInstantiable)

	assert.Equal(t, len(c.GetArray(f.audio)), 0)
	worldBase, err := subsystem.BaseClass(f.registry, subsystem.CategoryWorld)
	assert.NilError(t, err)
	assert.Equal(t, len(c.GetArray(worldBase)), 2)

	s, err := c.AddAndInitialize(f.mixer)
	assert.NilError(t, err)
	assert.Equal(t, c.Get(f.mixer), s)
	assert.IsEqual(t, []subsystem.Subsystem{s}, c.GetArray(f.audio))
	assert.Equal(t, len(c.GetArray(worldBase)), 3)

	again, err := c.AddAndInitialize(f.mixer)
	assert.NilError(t, err)
	assert.Equal(t, again, s)
	assert.Equal(t, len(c.GetArray(worldBase)), 3)
}

func TestAddAndInitializeRejectsInvalidClasses(t *testing.T) {
	f := newFixture(t)
	c := subsystem.NewCollection(f.registry, subsystem.CategoryWorld)

	_, err := c.AddAndInitialize(f.weather)
	assert.ErrorIs(t, err, subsystem.ErrNotInitialized)

	assert.NilError(t, c.Initialize(nil))
	_, err = c.AddAndInitialize(f.audio)
	assert.ErrorIs(t, err, class.ErrAbstractClass)
	_, err = c.AddAndInitialize(f.score)
	assert.ErrorIs(t, err, subsystem.ErrWrongCategory)
}

func TestFindByType(t *testing.T) {
	f := newFixture(t)
	c := subsystem.NewCollection(f.registry, subsystem.CategoryWorld)
	assert.NilError(t, c.Initialize(nil))

	weather, ok := subsystem.Find[*weatherSubsystem](c)
	assert.Check(t, ok)
	assert.Equal(t, subsystem.Subsystem(weather), c.Get(f.weather))

	_, ok = subsystem.Find[*scoreSubsystem](c)
	assert.Check(t, !ok)
}

func TestCategoryOf(t *testing.T) {
	f := newFixture(t)
	category, ok := subsystem.CategoryOf(f.registry, f.score)
	assert.Check(t, ok)
	assert.Equal(t, category, subsystem.CategoryGameInstance)

	category, ok = subsystem.CategoryOf(f.registry, f.mixer)
	assert.Check(t, ok)
	assert.Equal(t, category, subsystem.CategoryWorld)
}

func TestCategoryOfClassWalksParents(t *testing.T) {
	f := newFixture(t)
	category, ok := subsystem.CategoryOfClass(f.traffic)
	assert.Check(t, ok)
	assert.Equal(t, category, subsystem.CategoryWorld)

	category, ok = subsystem.CategoryOfClass(f.score)
	assert.Check(t, ok)
	assert.Equal(t, category, subsystem.CategoryGameInstance)

	_, ok = subsystem.CategoryOfClass(nil)
	assert.Check(t, !ok)
}
