package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(),
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{
			"STORE_CATALOG_BASE_URL": "https://catalog.example.com/api",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("unexpected read timeout: %v", cfg.Server.ReadTimeout)
	}
	if cfg.Cart.SessionHeader != "X-Session-ID" {
		t.Fatalf("unexpected session header: %q", cfg.Cart.SessionHeader)
	}
	if cfg.Cart.Currency != "MXN" {
		t.Fatalf("unexpected currency: %q", cfg.Cart.Currency)
	}
	if cfg.Cart.MaxLineQuantity != 99 {
		t.Fatalf("unexpected max line quantity: %d", cfg.Cart.MaxLineQuantity)
	}
	if cfg.Catalog.Timeout != 10*time.Second {
		t.Fatalf("unexpected catalog timeout: %v", cfg.Catalog.Timeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(context.Background(),
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{
			"STORE_SERVER_PORT":            "9090",
			"STORE_CATALOG_BASE_URL":       "https://catalog.example.com/api",
			"STORE_CATALOG_TIMEOUT":        "2s",
			"STORE_CART_CURRENCY":          "usd",
			"STORE_CART_MAX_LINE_QUANTITY": "10",
			"STORE_ORDERS_SINK_URL":        "https://orders.example.com/hooks",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("unexpected port: %q", cfg.Server.Port)
	}
	if cfg.Catalog.Timeout != 2*time.Second {
		t.Fatalf("unexpected catalog timeout: %v", cfg.Catalog.Timeout)
	}
	if cfg.Cart.Currency != "USD" {
		t.Fatalf("expected currency upper-cased, got %q", cfg.Cart.Currency)
	}
	if cfg.Cart.MaxLineQuantity != 10 {
		t.Fatalf("unexpected max line quantity: %d", cfg.Cart.MaxLineQuantity)
	}
	if cfg.Orders.SinkURL != "https://orders.example.com/hooks" {
		t.Fatalf("unexpected orders sink url: %q", cfg.Orders.SinkURL)
	}
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(context.Background(),
		WithEnvFile(""),
		WithoutSystemEnv(),
	)
	if err == nil {
		t.Fatal("expected validation error for missing catalog base url")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validationErr.Fields()
	found := false
	for _, f := range fields {
		if f == "Catalog.BaseURL" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Catalog.BaseURL in missing fields, got %v", fields)
	}
}

func TestLoadSecretResolution(t *testing.T) {
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref != "secret://projects/demo/secrets/stripe/versions/latest" {
			return "", errors.New("unexpected ref: " + ref)
		}
		return "sk_test_resolved", nil
	})

	cfg, err := Load(context.Background(),
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithSecretResolver(resolver),
		WithEnvMap(map[string]string{
			"STORE_CATALOG_BASE_URL":    "https://catalog.example.com/api",
			"STORE_PSP_STRIPE_API_KEY":  "sm://projects/demo/secrets/stripe/versions/latest",
			"STORE_MAIL_SENDGRID_API_KEY": "SG.plain-value",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.PSP.StripeAPIKey != "sk_test_resolved" {
		t.Fatalf("expected resolved stripe key, got %q", cfg.PSP.StripeAPIKey)
	}
	if cfg.Mail.SendGridAPIKey != "SG.plain-value" {
		t.Fatalf("plain values must pass through, got %q", cfg.Mail.SendGridAPIKey)
	}
}

func TestLoadSecretResolverFailure(t *testing.T) {
	resolver := SecretResolverFunc(func(_ context.Context, _ string) (string, error) {
		return "", errors.New("permission denied")
	})

	_, err := Load(context.Background(),
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithSecretResolver(resolver),
		WithEnvMap(map[string]string{
			"STORE_CATALOG_BASE_URL":   "https://catalog.example.com/api",
			"STORE_PSP_STRIPE_API_KEY": "secret://projects/demo/secrets/stripe/versions/latest",
		}),
	)
	if err == nil {
		t.Fatal("expected secret resolution error")
	}

	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if secretErr.Ref != "secret://projects/demo/secrets/stripe/versions/latest" {
		t.Fatalf("unexpected ref: %q", secretErr.Ref)
	}
}
