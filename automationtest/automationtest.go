// Package automationtest builds automation runtimes for Go unit tests. Resources are cleaned up when the test
// completes.
package automationtest

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"pkg.world.dev/world-engine/assert"

	"pkg.world.dev/world-engine/automation"
	"pkg.world.dev/world-engine/automation/asset"
	"pkg.world.dev/world-engine/automation/config"
	"pkg.world.dev/world-engine/automation/content"
	"pkg.world.dev/world-engine/automation/engine"
	"pkg.world.dev/world-engine/automation/storage/redis"
)

const redisNamespace = "automation"

type options struct {
	settings    config.Settings
	packages    map[string]*content.File
	order       []string
	setup       []func(e *engine.Engine) error
	redis       bool
	engineOpts  []engine.Option
	runtimeOpts []automation.Option
}

type Option func(*options)

// WithSettings edits the settings the runtime is created with.
func WithSettings(fn func(s *config.Settings)) Option {
	return func(o *options) {
		fn(&o.settings)
	}
}

// WithPackage saves f as pkg in the test content store before it is indexed.
func WithPackage(pkg string, f *content.File) Option {
	return func(o *options) {
		if _, ok := o.packages[pkg]; !ok {
			o.order = append(o.order, pkg)
		}
		o.packages[pkg] = f
	}
}

// WithEngineSetup runs fn on the engine before the runtime binds to it, e.g. to register classes.
func WithEngineSetup(fn func(e *engine.Engine) error) Option {
	return func(o *options) {
		o.setup = append(o.setup, fn)
	}
}

// WithRedisRegistry indexes content into a miniredis backed asset registry instead of memory.
func WithRedisRegistry() Option {
	return func(o *options) {
		o.redis = true
	}
}

func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

func WithRuntimeOptions(opts ...automation.Option) Option {
	return func(o *options) {
		o.runtimeOpts = append(o.runtimeOpts, opts...)
	}
}

// NewRuntime creates an engine over a temporary /Game mount and binds an automation runtime to it. Fatal
// lifecycle errors fail the test. On cleanup the test run is ended, which collects garbage, and the runtime is
// closed.
func NewRuntime(t testing.TB, opts ...Option) *automation.Runtime {
	t.Helper()
	o := options{
		settings: config.Default(),
		packages: map[string]*content.File{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	store, err := content.NewStore(map[string]string{"/Game": t.TempDir()})
	assert.NilError(t, err)
	for _, pkg := range o.order {
		assert.NilError(t, store.Save(pkg, o.packages[pkg]))
	}

	e, err := engine.New(store, o.engineOpts...)
	assert.NilError(t, err)
	for _, fn := range o.setup {
		assert.NilError(t, fn(e))
	}

	runtimeOpts := []automation.Option{
		automation.WithFatalHandler(func(err error) {
			t.Fatalf("automation: %v", err)
		}),
	}
	if o.redis {
		runtimeOpts = append(runtimeOpts, automation.WithResolver(redisResolver(t, store, o.settings.AssetPaths)))
	}
	runtimeOpts = append(runtimeOpts, o.runtimeOpts...)

	rt, err := automation.NewRuntime(e, &o.settings, runtimeOpts...)
	assert.NilError(t, err)
	t.Cleanup(func() {
		rt.Framework.EndRun()
		rt.Close()
	})
	return rt
}

func redisResolver(t testing.TB, store *content.Store, searchPaths []string) *asset.Resolver {
	t.Helper()
	s := miniredis.RunT(t)
	rs := redis.NewRedisStorage(redis.Options{Addr: s.Addr()}, redisNamespace)
	t.Cleanup(func() {
		assert.NilError(t, rs.Close())
	})
	_, err := asset.Index(context.Background(), store, &rs.AssetRegistry)
	assert.NilError(t, err)
	return asset.NewResolver(store, &rs.AssetRegistry, searchPaths)
}

// Bind reports t to the runtime test framework for the duration of the test, so that package names carry the
// test name and a world still alive when the test ends is caught.
func Bind(t testing.TB, rt *automation.Runtime) {
	t.Helper()
	assert.NilError(t, rt.Framework.StartTest(t.Name()))
	t.Cleanup(func() {
		assert.NilError(t, rt.Framework.EndTest(t.Failed()))
	})
}

// GameWorld creates a game world with flags and destroys it on cleanup.
func GameWorld(t testing.TB, rt *automation.Runtime, flags automation.InitFlags) *automation.World {
	t.Helper()
	return World(t, rt, automation.NewInitParams(engine.WorldTypeGame, flags))
}

// World creates a fixture world from params and destroys it on cleanup.
func World(t testing.TB, rt *automation.Runtime, params automation.InitParams) *automation.World {
	t.Helper()
	fx, err := rt.Create(params)
	assert.NilError(t, err)
	t.Cleanup(fx.Destroy)
	return fx
}
