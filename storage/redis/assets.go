package redis

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/automation/asset"
)

var _ asset.Registry = &AssetRegistry{}

// AssetRegistry keeps one redis list per package holding its assets in declaration order.
type AssetRegistry struct {
	Client    *redis.Client
	namespace string
}

func NewAssetRegistry(client *redis.Client, namespace string) AssetRegistry {
	return AssetRegistry{
		Client:    client,
		namespace: namespace,
	}
}

func (r *AssetRegistry) AddAssets(ctx context.Context, assets []asset.Data) error {
	grouped := make(map[string][]any)
	var order []string
	for _, a := range assets {
		bz, err := json.Marshal(a)
		if err != nil {
			return eris.Wrapf(err, "failed to encode asset %q", a.ObjectPath())
		}
		if _, ok := grouped[a.PackageName]; !ok {
			order = append(order, a.PackageName)
		}
		grouped[a.PackageName] = append(grouped[a.PackageName], bz)
	}

	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, pkg := range order {
			key := r.packageKey(pkg)
			pipe.Del(ctx, key)
			pipe.RPush(ctx, key, grouped[pkg]...)
		}
		return nil
	})
	return eris.Wrap(err, "failed to store assets")
}

func (r *AssetRegistry) AssetsByPackage(ctx context.Context, pkg string) ([]asset.Data, error) {
	values, err := r.Client.LRange(ctx, r.packageKey(pkg), 0, -1).Result()
	if eris.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, eris.Wrapf(err, "failed to read assets of %q", pkg)
	}
	out := make([]asset.Data, 0, len(values))
	for _, v := range values {
		var d asset.Data
		if err := json.Unmarshal([]byte(v), &d); err != nil {
			return nil, eris.Wrapf(err, "corrupt asset entry in %q", pkg)
		}
		out = append(out, d)
	}
	return out, nil
}

/*
	KEYS:
-	PACKAGE ASSETS:	ASSETS:NS-automation:/Game/Maps/Arena	-> list of asset.Data json
*/

func (r *AssetRegistry) packageKey(pkg string) string {
	return fmt.Sprintf("ASSETS:NS-%s:%s", r.namespace, pkg)
}
