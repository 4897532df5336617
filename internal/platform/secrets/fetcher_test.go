package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubSecretClient struct {
	responses map[string]string
	err       error
	calls     int
}

func (s *stubSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	value, ok := s.responses[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "secret not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (s *stubSecretClient) Close() error { return nil }

func TestResolveSecretRemote(t *testing.T) {
	client := &stubSecretClient{responses: map[string]string{
		"projects/demo/secrets/stripe-key/versions/latest": "sk_test_123",
	}}

	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(client),
		WithDefaultProject("demo"),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	value, err := fetcher.ResolveSecret(context.Background(), "secret://stripe-key")
	if err != nil {
		t.Fatalf("ResolveSecret: %v", err)
	}
	if value != "sk_test_123" {
		t.Fatalf("unexpected value: %q", value)
	}
}

func TestResolveSecretCaches(t *testing.T) {
	client := &stubSecretClient{responses: map[string]string{
		"projects/demo/secrets/stripe-key/versions/latest": "sk_test_123",
	}}

	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(client),
		WithDefaultProject("demo"),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	for i := 0; i < 3; i++ {
		if _, err := fetcher.ResolveSecret(context.Background(), "secret://stripe-key"); err != nil {
			t.Fatalf("ResolveSecret: %v", err)
		}
	}
	if client.calls != 1 {
		t.Fatalf("expected single remote fetch, got %d", client.calls)
	}

	fetcher.Invalidate("secret://stripe-key")
	if _, err := fetcher.ResolveSecret(context.Background(), "secret://stripe-key"); err != nil {
		t.Fatalf("ResolveSecret after invalidate: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", client.calls)
	}
}

func TestResolveSecretFallbackFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".secrets.local")
	content := "# local secrets\nsecret://sendgrid-key=SG.local\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fallback file: %v", err)
	}

	client := &stubSecretClient{err: status.Error(codes.PermissionDenied, "denied")}

	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(client),
		WithDefaultProject("demo"),
		WithFallbackFile(path),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	value, err := fetcher.ResolveSecret(context.Background(), "secret://sendgrid-key")
	if err != nil {
		t.Fatalf("ResolveSecret: %v", err)
	}
	if value != "SG.local" {
		t.Fatalf("unexpected fallback value: %q", value)
	}
}

func TestResolveSecretRejectsBadReference(t *testing.T) {
	fetcher, err := NewFetcher(context.Background(),
		WithSecretManagerClient(&stubSecretClient{}),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	cases := []string{"", "http://not-a-secret", "secret://"}
	for _, ref := range cases {
		if _, err := fetcher.ResolveSecret(context.Background(), ref); err == nil {
			t.Fatalf("expected error for ref %q", ref)
		}
	}
}
