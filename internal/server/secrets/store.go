// Package secrets reads shared secrets from the managed secret store with a
// short in-process TTL cache. The cache is best-effort and per-instance: a
// fresh process refetches everything.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	gocache "github.com/patrickmn/go-cache"

	"github.com/m00n5h075/serenya-sub003/internal/common"
)

// SecretsAPI is the subset of the Secrets Manager client the store uses.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

const (
	defaultTTL      = 5 * time.Minute
	cleanupInterval = 10 * time.Minute
)

// Store fetches and caches named secrets decoded as flat JSON objects.
type Store struct {
	client SecretsAPI
	cache  *gocache.Cache
}

func NewStore(client SecretsAPI) *Store {
	return NewStoreWithTTL(client, defaultTTL)
}

// NewStoreWithTTL overrides the cache TTL, mainly for tests.
func NewStoreWithTTL(client SecretsAPI, ttl time.Duration) *Store {
	return &Store{
		client: client,
		cache:  gocache.New(ttl, cleanupInterval),
	}
}

// GetSecret returns the named secret as a string map, served from cache
// within the TTL.
func (s *Store) GetSecret(ctx context.Context, name string) (map[string]string, error) {
	if v, ok := s.cache.Get(name); ok {
		return v.(map[string]string), nil
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get secret %s: %v", common.ErrorDependency, name, err)
	}

	var blob map[string]string
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &blob); err != nil {
		return nil, fmt.Errorf("secret %s is not a flat JSON object: %w", name, err)
	}

	s.cache.SetDefault(name, blob)
	return blob, nil
}
