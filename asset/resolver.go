package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coocood/freecache"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pkg.world.dev/world-engine/automation/content"
)

const (
	defaultCacheSizeKB  = 256
	bytesPerKb          = 1024
	cacheExpirySeconds  = 0
	maxLoggedSearchPath = 16
)

var (
	ErrInvalidPath   = errors.New("invalid asset path")
	ErrAssetNotFound = errors.New("asset not found")
)

// Resolver finds assets by package path or by short name over the configured search paths.
type Resolver struct {
	store       *content.Store
	registry    Registry
	searchPaths []string
	cache       *freecache.Cache
	tracer      trace.Tracer
}

type ResolverOption func(*Resolver)

// WithCacheSizeKB sizes the by-name lookup cache.
func WithCacheSizeKB(kb int) ResolverOption {
	return func(r *Resolver) {
		r.cache = freecache.NewCache(kb * bytesPerKb)
	}
}

func NewResolver(store *content.Store, registry Registry, searchPaths []string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:       store,
		registry:    registry,
		searchPaths: append([]string(nil), searchPaths...),
		tracer:      otel.Tracer("asset"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = freecache.NewCache(defaultCacheSizeKB * bytesPerKb)
	}
	return r
}

func (r *Resolver) SearchPaths() []string {
	return append([]string(nil), r.searchPaths...)
}

// FindByPath returns the first asset of the package at path that carries every required flag and, when classPath
// is not empty, has exactly that class.
func (r *Resolver) FindByPath(
	ctx context.Context, path string, required content.PackageFlags, classPath string,
) (Data, error) {
	ctx, span := r.tracer.Start(ctx, "asset.find_by_path", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	d, err := r.findByPath(ctx, path, required, classPath)
	if err != nil {
		log.Error().Err(err).Str("operation", "FindByPath").Str("path", path).
			Stringer("flags", required).Str("class", classPath).Msg("Failed to find asset")
		span.RecordError(err)
		return Data{}, err
	}
	return d, nil
}

func (r *Resolver) findByPath(
	ctx context.Context, path string, required content.PackageFlags, classPath string,
) (Data, error) {
	if !content.IsValidLongPackageName(path) {
		return Data{}, eris.Wrapf(ErrInvalidPath, "path %q", path)
	}
	if !r.store.Exists(path) {
		return Data{}, eris.Wrapf(ErrAssetNotFound, "package %q does not exist", path)
	}
	assets, err := r.registry.AssetsByPackage(ctx, path)
	if err != nil {
		return Data{}, eris.Wrapf(err, "failed to query assets of %q", path)
	}
	for _, a := range assets {
		if !a.PackageFlags.HasAll(required) {
			continue
		}
		if classPath != "" && a.ClassPath != classPath {
			continue
		}
		return a, nil
	}
	return Data{}, eris.Wrapf(ErrAssetNotFound, "no asset in %q matches flags %s class %q", path, required, classPath)
}

// FindByName tries name under each search path in order and returns the first match.
func (r *Resolver) FindByName(
	ctx context.Context, name string, required content.PackageFlags, classPath string,
) (Data, error) {
	ctx, span := r.tracer.Start(ctx, "asset.find_by_name", trace.WithAttributes(attribute.String("name", name)))
	defer span.End()

	key := []byte(fmt.Sprintf("%s|%d|%s", name, required, classPath))
	if cached, err := r.cache.Get(key); err == nil {
		var d Data
		if err := json.Unmarshal(cached, &d); err == nil && r.store.Exists(d.PackageName) {
			span.SetAttributes(attribute.Bool("cached", true))
			return d, nil
		}
		r.cache.Del(key)
	} else if !errors.Is(err, freecache.ErrNotFound) {
		log.Warn().Err(err).Msg("Asset lookup cache read failed")
	}

	attempted := make([]string, 0, len(r.searchPaths))
	for _, searchPath := range r.searchPaths {
		path := strings.TrimSuffix(searchPath, "/") + "/" + strings.TrimPrefix(name, "/")
		attempted = append(attempted, path)
		d, err := r.findByPath(ctx, path, required, classPath)
		if err != nil {
			continue
		}
		if bz, err := json.Marshal(d); err == nil {
			if err := r.cache.Set(key, bz, cacheExpirySeconds); err != nil {
				log.Warn().Err(err).Str("name", name).Msg("Asset lookup cache write failed")
			}
		}
		return d, nil
	}

	if len(attempted) > maxLoggedSearchPath {
		attempted = attempted[:maxLoggedSearchPath]
	}
	err := eris.Wrapf(ErrAssetNotFound, "name %q", name)
	log.Error().Str("operation", "FindByName").Str("name", name).Strs("attempted", attempted).
		Stringer("flags", required).Str("class", classPath).Msg("Failed to find asset")
	span.RecordError(err)
	return Data{}, err
}

// FindWorldByName finds a map package by short name.
func (r *Resolver) FindWorldByName(ctx context.Context, name string) (Data, error) {
	return r.FindByName(ctx, name, content.PackageContainsMap, WorldClassPath)
}

// FindWorldByPath finds the map stored in the package at path.
func (r *Resolver) FindWorldByPath(ctx context.Context, path string) (Data, error) {
	return r.FindByPath(ctx, path, content.PackageContainsMap, WorldClassPath)
}

// Purge drops every cached lookup.
func (r *Resolver) Purge() {
	r.cache.Clear()
}
