package content

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/naoina/toml"
	"github.com/rotisserie/eris"
)

const fileExtension = ".toml"

var (
	ErrInvalidPackageName = errors.New("invalid long package name")
	ErrUnknownMount       = errors.New("package root is not mounted")
	ErrPackageNotFound    = errors.New("package does not exist")
)

type Mount struct {
	Root string
	Dir  string
}

// Store maps package roots such as /Game onto directories holding package files.
type Store struct {
	mu     sync.RWMutex
	mounts map[string]string
}

func NewStore(mounts map[string]string) (*Store, error) {
	s := &Store{mounts: make(map[string]string)}
	for root, dir := range mounts {
		if err := s.Mount(root, dir); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Mount(root, dir string) error {
	if !IsValidMountRoot(root) {
		return eris.Errorf("invalid mount root %q", root)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounts[root] = dir
	return nil
}

// IsValidMountRoot accepts single-segment roots like /Game.
func IsValidMountRoot(root string) bool {
	return len(root) > 1 && root[0] == '/' && !strings.ContainsAny(root[1:], "/"+invalidLongPackageCharacters)
}

// Mounts returns the mounts sorted by root.
func (s *Store) Mounts() []Mount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Mount, 0, len(s.mounts))
	for root, dir := range s.mounts {
		out = append(out, Mount{Root: root, Dir: dir})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Root < out[j].Root })
	return out
}

// Filename resolves a long package name to its file.
func (s *Store) Filename(pkg string) (string, error) {
	if !IsValidLongPackageName(pkg) {
		return "", eris.Wrapf(ErrInvalidPackageName, "package %q", pkg)
	}
	root, rel := SplitLongPackageName(pkg)
	s.mu.RLock()
	dir, ok := s.mounts[root]
	s.mu.RUnlock()
	if !ok {
		return "", eris.Wrapf(ErrUnknownMount, "package %q", pkg)
	}
	return filepath.Join(dir, filepath.FromSlash(rel)+fileExtension), nil
}

// Exists reports whether pkg resolves to a file on disk.
func (s *Store) Exists(pkg string) bool {
	filename, err := s.Filename(pkg)
	if err != nil {
		return false
	}
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}

func (s *Store) Load(pkg string) (*File, error) {
	filename, err := s.Filename(pkg)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrPackageNotFound, "package %q", pkg)
	} else if err != nil {
		return nil, eris.Wrapf(err, "failed to read package %q", pkg)
	}
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "failed to decode package %q", pkg)
	}
	if _, err := f.Flags(); err != nil {
		return nil, eris.Wrapf(err, "package %q", pkg)
	}
	return &f, nil
}

func (s *Store) Save(pkg string, f *File) error {
	filename, err := s.Filename(pkg)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(*f)
	if err != nil {
		return eris.Wrapf(err, "failed to encode package %q", pkg)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return eris.Wrapf(err, "failed to create directory for package %q", pkg)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return eris.Wrapf(err, "failed to write package %q", pkg)
	}
	return nil
}

// Scan lists every package stored under a mount root.
func (s *Store) Scan(ctx context.Context, root string) ([]string, error) {
	s.mu.RLock()
	dir, ok := s.mounts[root]
	s.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrUnknownMount, "root %q", root)
	}

	var packages []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || filepath.Ext(path) != fileExtension {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := root + "/" + strings.TrimSuffix(filepath.ToSlash(rel), fileExtension)
		if IsValidLongPackageName(name) {
			packages = append(packages, name)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "failed to scan %q", root)
	}
	sort.Strings(packages)
	return packages, nil
}
