package engine

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"pkg.world.dev/world-engine/automation/content"
)

const maxRedirects = 8

var (
	ErrPackageExists = errors.New("package already exists")
	ErrNoWorld       = errors.New("package does not contain a world")
)

// Package is an in-memory package object. Its world, if any, is the package's only top-level object.
type Package struct {
	ObjectBase
	flags    content.PackageFlags
	world    *World
	redirect string
	source   string
}

func (p *Package) PackageFlags() content.PackageFlags {
	return p.flags
}

func (p *Package) SetPackageFlags(f content.PackageFlags) {
	p.flags |= f
}

// Source returns the on-disk package this package was loaded from, if any.
func (p *Package) Source() string {
	return p.source
}

func (p *Package) ReferencedObjects() []Object {
	if p.world == nil {
		return nil
	}
	return []Object{p.world}
}

// CreatePackage makes a new, empty in-memory package.
func (e *Engine) CreatePackage(name string, flags ObjectFlags) (*Package, error) {
	if existing, ok := e.packages[name]; ok && existing.IsValid() {
		return nil, eris.Wrapf(ErrPackageExists, "package %q", name)
	}
	pkg := &Package{}
	e.track(pkg, nil, name, flags)
	e.packages[name] = pkg
	return pkg, nil
}

func (e *Engine) FindPackage(name string) *Package {
	pkg, ok := e.packages[name]
	if !ok || !pkg.IsValid() {
		return nil
	}
	return pkg
}

// LoadPackage reads the on-disk package source into pkg. The world stored in it takes the pre-load world type
// registered for source, or WorldTypeInactive.
func (e *Engine) LoadPackage(pkg *Package, source string) error {
	file, err := e.Content.Load(source)
	if err != nil {
		return err
	}
	flags, err := file.Flags()
	if err != nil {
		return err
	}
	pkg.flags |= flags
	pkg.source = source
	if !file.HasWorld() {
		return nil
	}
	if file.IsRedirector() {
		pkg.redirect = file.World.Redirect
		return nil
	}
	worldType, ok := e.preloadWorldTypes[source]
	if !ok {
		worldType = WorldTypeInactive
	}
	_, err = e.worldFromFile(pkg, file, worldType)
	return err
}

// FindWorldInPackage returns the world stored directly in pkg.
func FindWorldInPackage(pkg *Package) *World {
	if pkg == nil {
		return nil
	}
	return pkg.world
}

// FollowWorldRedirectorInPackage resolves a redirector package by loading the target world into pkg.
func (e *Engine) FollowWorldRedirectorInPackage(pkg *Package) (*World, error) {
	target := pkg.redirect
	for hops := 0; target != ""; hops++ {
		if hops >= maxRedirects {
			return nil, eris.Errorf("too many redirects following %q", pkg.source)
		}
		targetPkg, _ := content.SplitObjectPath(target)
		file, err := e.Content.Load(targetPkg)
		if err != nil {
			return nil, eris.Wrapf(err, "redirect target %q", target)
		}
		if !file.HasWorld() {
			return nil, eris.Wrapf(ErrNoWorld, "redirect target %q", target)
		}
		if file.IsRedirector() {
			target = file.World.Redirect
			continue
		}
		log.Debug().Str("package", pkg.Name()).Str("target", target).Msg("Following world redirector")
		worldType, ok := e.preloadWorldTypes[pkg.source]
		if !ok {
			worldType = WorldTypeInactive
		}
		pkg.redirect = ""
		return e.worldFromFile(pkg, file, worldType)
	}
	return nil, eris.Wrapf(ErrNoWorld, "package %q", pkg.Name())
}

// ResolveRedirect follows redirectors starting at objectPath and returns the final world object path.
func (e *Engine) ResolveRedirect(objectPath string) (string, error) {
	current := objectPath
	for hops := 0; hops < maxRedirects; hops++ {
		pkgName, _ := content.SplitObjectPath(current)
		file, err := e.Content.Load(pkgName)
		if err != nil {
			return "", err
		}
		if !file.IsRedirector() {
			return current, nil
		}
		current = file.World.Redirect
	}
	return "", eris.Errorf("too many redirects following %q", objectPath)
}

func (e *Engine) worldFromFile(pkg *Package, file *content.File, worldType WorldType) (*World, error) {
	w, err := e.CreateWorld(worldType, pkg, file.World.Name)
	if err != nil {
		return nil, err
	}
	if file.World.GameMode != "" {
		gm, err := e.ResolveClass(file.World.GameMode, e.Core.GameModeBase)
		if err != nil {
			return nil, eris.Wrapf(err, "world %q game mode", file.World.Name)
		}
		w.settings.DefaultGameMode = gm
	}
	for _, record := range file.World.Actors {
		if _, err := w.spawnFromRecord(record, w); err != nil {
			return nil, eris.Wrapf(err, "world %q", file.World.Name)
		}
	}
	for _, sub := range file.World.Sublevels {
		w.AddStreamingLevel(sub, true)
	}
	return w, nil
}

// MakeUniquePackageName appends a counter to base.
func (e *Engine) MakeUniquePackageName(base string) string {
	e.nameCounter++
	return fmt.Sprintf("%s_%d", base, e.nameCounter)
}

func (w *World) spawnFromRecord(record content.ActorRecord, outer Object) (Actor, error) {
	cls, err := w.engine.ResolveClass(record.Class, w.engine.Core.Actor)
	if err != nil {
		return nil, err
	}
	params := SpawnParams{
		Name:  record.Name,
		Label: record.Label,
		Tags:  record.Tags,
		Outer: outer,
	}
	if len(record.Location) == 3 {
		params.Location = Vector{X: record.Location[0], Y: record.Location[1], Z: record.Location[2]}
	}
	return w.SpawnActor(cls, params)
}
