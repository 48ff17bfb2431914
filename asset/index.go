package asset

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"pkg.world.dev/world-engine/automation/content"
)

// Index scans every mount of store concurrently and registers the assets it finds. It returns the number of
// indexed packages.
func Index(ctx context.Context, store *content.Store, registry Registry) (int, error) {
	ctx, span := otel.Tracer("asset").Start(ctx, "asset.index")
	defer span.End()

	var indexed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for _, mount := range store.Mounts() {
		root := mount.Root
		g.Go(func() error {
			packages, err := store.Scan(ctx, root)
			if err != nil {
				return err
			}
			var assets []Data
			for _, pkg := range packages {
				file, err := store.Load(pkg)
				if err != nil {
					log.Warn().Err(err).Str("package", pkg).Msg("Skipping unreadable package")
					continue
				}
				found, err := FromFile(pkg, file)
				if err != nil {
					log.Warn().Err(err).Str("package", pkg).Msg("Skipping package with invalid flags")
					continue
				}
				assets = append(assets, found...)
				indexed.Add(1)
			}
			if len(assets) == 0 {
				return nil
			}
			return eris.Wrapf(registry.AddAssets(ctx, assets), "failed to register assets under %q", root)
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, eris.ToString(err, true))
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int64("packages", indexed.Load()))
	log.Debug().Int64("packages", indexed.Load()).Msg("Asset index built")
	return int(indexed.Load()), nil
}
