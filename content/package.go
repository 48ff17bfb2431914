package content

import (
	"strings"

	"github.com/rotisserie/eris"
)

type PackageFlags uint32

const (
	PackageContainsMap PackageFlags = 1 << iota
	PackagePlayInEditor
	PackageTransient
	PackageEditorOnly
)

var packageFlagNames = []struct {
	flag PackageFlags
	name string
}{
	{PackageContainsMap, "ContainsMap"},
	{PackagePlayInEditor, "PlayInEditor"},
	{PackageTransient, "Transient"},
	{PackageEditorOnly, "EditorOnly"},
}

// HasAll reports whether every flag in required is set.
func (f PackageFlags) HasAll(required PackageFlags) bool {
	return f&required == required
}

func (f PackageFlags) Names() []string {
	var out []string
	for _, n := range packageFlagNames {
		if f&n.flag != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

func (f PackageFlags) String() string {
	return strings.Join(f.Names(), "|")
}

func ParsePackageFlags(names []string) (PackageFlags, error) {
	var f PackageFlags
	for _, name := range names {
		found := false
		for _, n := range packageFlagNames {
			if strings.EqualFold(n.name, name) {
				f |= n.flag
				found = true
				break
			}
		}
		if !found {
			return 0, eris.Errorf("unknown package flag %q", name)
		}
	}
	return f, nil
}

// File is the on-disk form of a package.
type File struct {
	Package Header  `toml:"package"`
	Assets  []Asset `toml:"assets,omitempty"`
	World   World   `toml:"world,omitempty"`
}

type Header struct {
	Flags []string `toml:"flags,omitempty"`
}

// Asset declares an object stored in the package.
type Asset struct {
	Name  string `toml:"name"`
	Class string `toml:"class"`
}

// World is the saved state of a level. An empty Name means the package stores no world. A non-empty Redirect
// makes the entry a redirector to another world object path.
type World struct {
	Name      string        `toml:"name"`
	GameMode  string        `toml:"game_mode,omitempty"`
	Redirect  string        `toml:"redirect,omitempty"`
	Actors    []ActorRecord `toml:"actors,omitempty"`
	Sublevels []string      `toml:"sublevels,omitempty"`
}

type ActorRecord struct {
	Class    string    `toml:"class"`
	Name     string    `toml:"name"`
	Label    string    `toml:"label,omitempty"`
	Tags     []string  `toml:"tags,omitempty"`
	Location []float64 `toml:"location,omitempty"`
}

func (f *File) Flags() (PackageFlags, error) {
	return ParsePackageFlags(f.Package.Flags)
}

func (f *File) HasWorld() bool {
	return f.World.Name != ""
}

// IsRedirector reports whether the stored world only points at another world.
func (f *File) IsRedirector() bool {
	return f.HasWorld() && f.World.Redirect != ""
}
