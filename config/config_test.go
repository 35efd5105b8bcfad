package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coachpo/starkbank/pkg/key"
	"github.com/coachpo/starkbank/pkg/user"
)

func TestDefaultSettings(t *testing.T) {
	cfg := Default()
	if cfg.Environment != user.Sandbox {
		t.Fatalf("expected sandbox default, got %s", cfg.Environment)
	}
	if cfg.Client.MaxAttempts != 3 || cfg.Client.Language != "en-US" {
		t.Fatalf("unexpected client defaults: %+v", cfg.Client)
	}
	if err := cfg.Validate(context.Background()); err == nil {
		t.Fatalf("expected defaults without credentials to fail validation")
	}
}

func TestFromEnvOverridesValues(t *testing.T) {
	t.Setenv("STARKBANK_ENVIRONMENT", "PRODUCTION")
	t.Setenv("STARKBANK_PROJECT_ID", "5656565656565656")
	t.Setenv("STARKBANK_TIMEOUT", "20s")
	t.Setenv("STARKBANK_RATE_LIMIT", "2.5")
	t.Setenv("STARKBANK_MAX_ATTEMPTS", "5")
	t.Setenv("STARKBANK_LANGUAGE", "pt-BR")

	cfg := FromEnv()
	if cfg.Environment != user.Production {
		t.Fatalf("expected production, got %s", cfg.Environment)
	}
	if cfg.Credentials.ProjectID != "5656565656565656" {
		t.Fatalf("expected project id override")
	}
	if cfg.Client.Timeout != 20*time.Second || cfg.Client.RateLimit != 2.5 || cfg.Client.MaxAttempts != 5 {
		t.Fatalf("unexpected client overrides: %+v", cfg.Client)
	}
	if cfg.Client.Language != "pt-BR" {
		t.Fatalf("expected language override")
	}
}

func TestLoadYAMLAndBuildClient(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := key.Create(dir); err != nil {
		t.Fatalf("create key: %v", err)
	}
	path := filepath.Join(dir, "starkbank.yaml")
	content := `
environment: sandbox
credentials:
  organizationId: "4545454545454545"
  workspaceId: "1212121212121212"
  privateKeyPath: ` + filepath.Join(dir, "privateKey.pem") + `
client:
  timeout: 5s
  maxAttempts: 2
ingest:
  outputDir: out
  feeds:
    - name: paid-invoices
      resource: invoice-log
      pageSize: 50
      types: [paid]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Client.Timeout != 5*time.Second || cfg.Client.MaxAttempts != 2 {
		t.Fatalf("unexpected client settings: %+v", cfg.Client)
	}
	if cfg.Client.Language != "en-US" {
		t.Fatalf("expected defaults to survive YAML overlay")
	}
	if len(cfg.Ingest.Feeds) != 1 || cfg.Ingest.Feeds[0].Types[0] != "paid" {
		t.Fatalf("unexpected feeds: %+v", cfg.Ingest.Feeds)
	}

	u, err := cfg.User()
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if u.AccessID() != "organization/4545454545454545/workspace/1212121212121212" {
		t.Fatalf("unexpected access id %s", u.AccessID())
	}
	if _, err := cfg.NewClient(nil, nil); err != nil {
		t.Fatalf("new client: %v", err)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	base := Apply(Default(), WithProject("1", "pem"))
	cases := map[string]Settings{
		"environment": Apply(base, func(s *Settings) { s.Environment = "staging" }),
		"both ids":    Apply(base, func(s *Settings) { s.Credentials.OrganizationID = "2" }),
		"no key":      Apply(base, func(s *Settings) { s.Credentials.PrivateKey = "" }),
		"language":    Apply(base, WithLanguage("fr-FR")),
		"rate":        Apply(base, func(s *Settings) { s.Client.RateLimit = -1 }),
		"feed":        Apply(base, WithFeeds(FeedSettings{Name: "x", Resource: "boleto"})),
		"dup feed":    Apply(base, WithFeeds(FeedSettings{Name: "x", Resource: FeedSplitLog}, FeedSettings{Name: "x", Resource: FeedSplitLog})),
		"page size":   Apply(base, WithFeeds(FeedSettings{Name: "x", Resource: FeedSplitLog, PageSize: 500})),
	}
	for name, cfg := range cases {
		if err := cfg.Validate(context.Background()); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := base.Validate(context.Background()); err != nil {
		t.Fatalf("expected base settings to validate: %v", err)
	}
}

func TestApplyClonesFeeds(t *testing.T) {
	base := Apply(Default(), WithFeeds(FeedSettings{Name: "a", Resource: FeedInvoiceLog, Types: []string{"paid"}}))
	derived := Apply(base)
	derived.Ingest.Feeds[0].Types[0] = "mutated"
	if base.Ingest.Feeds[0].Types[0] != "paid" {
		t.Fatalf("expected Apply to clone feeds")
	}
}
