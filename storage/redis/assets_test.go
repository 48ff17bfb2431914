package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"pkg.world.dev/world-engine/assert"

	"pkg.world.dev/world-engine/automation/asset"
	"pkg.world.dev/world-engine/automation/content"
	"pkg.world.dev/world-engine/automation/storage/redis"
)

func getRedisStorage(t *testing.T) redis.Storage {
	s := miniredis.RunT(t)
	rs := redis.NewRedisStorage(redis.Options{
		Addr:     s.Addr(),
		Password: "",
		DB:       0,
	}, "automation")
	t.Cleanup(func() {
		assert.NilError(t, rs.Close())
	})
	return rs
}

func TestAssetRegistryKeepsDeclarationOrder(t *testing.T) {
	ctx := context.Background()
	rs := getRedisStorage(t)
	assert.NilError(t, rs.Ping(ctx))

	arena := asset.Data{
		PackageName:  "/Game/Maps/Arena",
		AssetName:    "Arena",
		ClassPath:    asset.WorldClassPath,
		PackageFlags: content.PackageContainsMap,
	}
	lights := asset.Data{PackageName: "/Game/Maps/Arena", AssetName: "Lights", ClassPath: "/Script/Game.LightRig"}
	caves := asset.Data{PackageName: "/Game/Maps/Caves", AssetName: "Caves", ClassPath: asset.WorldClassPath}
	assert.NilError(t, rs.AddAssets(ctx, []asset.Data{arena, caves, lights}))

	got, err := rs.AssetsByPackage(ctx, "/Game/Maps/Arena")
	assert.NilError(t, err)
	assert.IsEqual(t, []asset.Data{arena, lights}, got)

	got, err = rs.AssetsByPackage(ctx, "/Game/Maps/Nowhere")
	assert.NilError(t, err)
	assert.Equal(t, 0, len(got))
}

func TestAssetRegistryReplacesPackageEntries(t *testing.T) {
	ctx := context.Background()
	rs := getRedisStorage(t)

	old := asset.Data{PackageName: "/Game/Maps/Arena", AssetName: "Arena", ClassPath: asset.WorldClassPath}
	assert.NilError(t, rs.AddAssets(ctx, []asset.Data{old}))

	renamed := old
	renamed.AssetName = "Arena_v2"
	assert.NilError(t, rs.AddAssets(ctx, []asset.Data{renamed}))

	got, err := rs.AssetsByPackage(ctx, "/Game/Maps/Arena")
	assert.NilError(t, err)
	assert.IsEqual(t, []asset.Data{renamed}, got)
}

func TestResolverOverRedisIndex(t *testing.T) {
	ctx := context.Background()
	rs := getRedisStorage(t)

	store, err := content.NewStore(map[string]string{"/Game": t.TempDir()})
	assert.NilError(t, err)
	assert.NilError(t, store.Save("/Game/Maps/Arena", &content.File{
		Package: content.Header{Flags: []string{"ContainsMap"}},
		World:   content.World{Name: "Arena"},
	}))
	n, err := asset.Index(ctx, store, &rs.AssetRegistry)
	assert.NilError(t, err)
	assert.Equal(t, 1, n)

	r := asset.NewResolver(store, &rs.AssetRegistry, []string{"/Game/Maps"})
	d, err := r.FindWorldByName(ctx, "Arena")
	assert.NilError(t, err)
	assert.Equal(t, "/Game/Maps/Arena.Arena", d.ObjectPath())
}
