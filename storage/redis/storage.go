package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

type Storage struct {
	Namespace string
	Client    *redis.Client
	AssetRegistry
}

type Options = redis.Options

func NewRedisStorage(options Options, namespace string) Storage {
	client := redis.NewClient(&options)
	return Storage{
		Namespace:     namespace,
		Client:        client,
		AssetRegistry: NewAssetRegistry(client, namespace),
	}
}

// Ping checks that the server is reachable.
func (r *Storage) Ping(ctx context.Context) error {
	return eris.Wrap(r.Client.Ping(ctx).Err(), "failed to reach redis")
}

func (r *Storage) Close() error {
	log.Debug().Msg("Closing storage connection.")
	if err := r.Client.Close(); err != nil {
		return eris.Wrap(err, "")
	}
	log.Debug().Msg("Successfully closed storage connection.")
	return nil
}
