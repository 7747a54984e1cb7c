package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/m00n5h075/serenya-sub003/internal/common"
)

type fakeSecretsAPI struct {
	calls int
	value string
	err   error
}

func (f *fakeSecretsAPI) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(f.value)}, nil
}

func TestGetSecret_DecodesAndCaches(t *testing.T) {
	t.Parallel()

	client := &fakeSecretsAPI{value: `{"token_signing_key":"k1","hash_secret":"h1"}`}
	s := NewStore(client)
	ctx := context.Background()

	got, err := s.GetSecret(ctx, "serenya/app")
	if err != nil {
		t.Fatalf("GetSecret error: %v", err)
	}
	if got["token_signing_key"] != "k1" || got["hash_secret"] != "h1" {
		t.Fatalf("unexpected secret: %v", got)
	}

	if _, err := s.GetSecret(ctx, "serenya/app"); err != nil {
		t.Fatalf("GetSecret error: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1 (second read must be cached)", client.calls)
	}
}

func TestGetSecret_TTLExpiry(t *testing.T) {
	t.Parallel()

	client := &fakeSecretsAPI{value: `{"k":"v"}`}
	s := NewStoreWithTTL(client, 20*time.Millisecond)
	ctx := context.Background()

	if _, err := s.GetSecret(ctx, "name"); err != nil {
		t.Fatalf("GetSecret error: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, err := s.GetSecret(ctx, "name"); err != nil {
		t.Fatalf("GetSecret error: %v", err)
	}

	if client.calls != 2 {
		t.Fatalf("calls = %d, want 2 after TTL expiry", client.calls)
	}
}

func TestGetSecret_ServiceError(t *testing.T) {
	t.Parallel()

	client := &fakeSecretsAPI{err: errors.New("access denied")}
	s := NewStore(client)

	_, err := s.GetSecret(context.Background(), "name")
	if !errors.Is(err, common.ErrorDependency) {
		t.Fatalf("got %v, want ErrorDependency", err)
	}
}

func TestGetSecret_NotAFlatObject(t *testing.T) {
	t.Parallel()

	client := &fakeSecretsAPI{value: `["not","an","object"]`}
	s := NewStore(client)

	if _, err := s.GetSecret(context.Background(), "name"); err == nil {
		t.Fatal("expected error for non-object secret")
	}
}
