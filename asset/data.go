package asset

import (
	"pkg.world.dev/world-engine/automation/content"
	"pkg.world.dev/world-engine/automation/engine"
)

const (
	WorldClassPath      = engine.WorldClassPath
	RedirectorClassPath = "/Script/CoreUObject.ObjectRedirector"
)

// Data describes one asset found in the content store.
type Data struct {
	PackageName  string               `json:"package"`
	AssetName    string               `json:"name"`
	ClassPath    string               `json:"class"`
	PackageFlags content.PackageFlags `json:"flags"`
	// Redirect is the object path a redirector points at.
	Redirect string `json:"redirect,omitempty"`
}

// ObjectPath returns Package.Asset.
func (d Data) ObjectPath() string {
	return content.ObjectPath(d.PackageName, d.AssetName)
}

func (d Data) IsValid() bool {
	return d.PackageName != "" && d.AssetName != ""
}

func (d Data) IsRedirector() bool {
	return d.ClassPath == RedirectorClassPath
}

// FromFile lists the assets declared by a loaded package file.
func FromFile(pkg string, f *content.File) ([]Data, error) {
	flags, err := f.Flags()
	if err != nil {
		return nil, err
	}
	out := make([]Data, 0, len(f.Assets)+1)
	if f.HasWorld() {
		d := Data{PackageName: pkg, AssetName: f.World.Name, ClassPath: WorldClassPath, PackageFlags: flags}
		if f.IsRedirector() {
			d.ClassPath = RedirectorClassPath
			d.Redirect = f.World.Redirect
		}
		out = append(out, d)
	}
	for _, a := range f.Assets {
		out = append(out, Data{PackageName: pkg, AssetName: a.Name, ClassPath: a.Class, PackageFlags: flags})
	}
	return out, nil
}
