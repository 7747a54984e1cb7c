// Package keys obtains per-context data encryption keys from the managed
// key service and caches generated keys for a bounded time.
package keys

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/m00n5h075/serenya-sub003/internal/common"
)

// KMSAPI is the subset of the KMS client the provider uses.
type KMSAPI interface {
	GenerateDataKey(ctx context.Context, in *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, in *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// DataKey is a plaintext/wrapped 256-bit key pair usable for envelope
// operations under one encryption context.
type DataKey struct {
	Plaintext []byte
	Wrapped   []byte
}

const (
	defaultCacheSize = 100
	defaultCacheTTL  = 5 * time.Minute
)

// Provider issues data keys, serving repeat requests for the same
// (master key, context) pair from an in-process cache. The cache is a
// best-effort, per-instance optimization: entries expire after the TTL and
// the oldest entry is evicted when the cache is full. Concurrent misses for
// the same context may each fetch a fresh key and overwrite one another;
// that is acceptable because generated keys are interchangeable.
type Provider struct {
	client KMSAPI
	cache  *expirable.LRU[string, DataKey]
}

// NewProvider builds a provider with the default cache bounds.
func NewProvider(client KMSAPI) *Provider {
	return NewProviderWithCache(client, defaultCacheSize, defaultCacheTTL)
}

// NewProviderWithCache overrides the cache bounds, mainly for tests.
func NewProviderWithCache(client KMSAPI, size int, ttl time.Duration) *Provider {
	return &Provider{
		client: client,
		cache:  expirable.NewLRU[string, DataKey](size, nil, ttl),
	}
}

// cacheKey canonicalizes the encryption context so equal contexts hit the
// same entry regardless of map iteration order.
func cacheKey(masterKeyID string, encCtx map[string]string) string {
	names := make([]string, 0, len(encCtx))
	for k := range encCtx {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(masterKeyID)
	for _, k := range names {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(encCtx[k])
	}
	return b.String()
}

// GetDataKey returns a 256-bit data key for the master key and encryption
// context, reusing a cached pair when one is still live.
func (p *Provider) GetDataKey(ctx context.Context, masterKeyID string, encCtx map[string]string) (DataKey, error) {
	ck := cacheKey(masterKeyID, encCtx)
	if dk, ok := p.cache.Get(ck); ok {
		return dk, nil
	}

	out, err := p.client.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:             aws.String(masterKeyID),
		KeySpec:           types.DataKeySpecAes256,
		EncryptionContext: encCtx,
	})
	if err != nil {
		return DataKey{}, fmt.Errorf("%w: generate data key: %v", common.ErrorDependency, err)
	}

	dk := DataKey{Plaintext: out.Plaintext, Wrapped: out.CiphertextBlob}
	p.cache.Add(ck, dk)
	return dk, nil
}

// UnwrapDataKey decrypts a wrapped key under its encryption context. Always
// a network call: caching unwrapped keys per record would defeat the point
// of a small shared cache.
func (p *Provider) UnwrapDataKey(ctx context.Context, wrapped []byte, encCtx map[string]string) ([]byte, error) {
	out, err := p.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    wrapped,
		EncryptionContext: encCtx,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap data key: %v", common.ErrorDependency, err)
	}
	return out.Plaintext, nil
}
