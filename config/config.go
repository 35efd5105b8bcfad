// Package config centralises runtime configuration for StarkBank clients and
// the ingestion binaries.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"gopkg.in/yaml.v3"

	"github.com/coachpo/starkbank/internal/telemetry"
	"github.com/coachpo/starkbank/pkg/key"
	"github.com/coachpo/starkbank/pkg/observability"
	"github.com/coachpo/starkbank/pkg/rest"
	"github.com/coachpo/starkbank/pkg/user"
)

// Credentials identify the project or organization signing requests. Exactly
// one of ProjectID and OrganizationID must be set.
type Credentials struct {
	ProjectID      string `yaml:"projectId"`
	OrganizationID string `yaml:"organizationId"`
	WorkspaceID    string `yaml:"workspaceId"`
	PrivateKey     string `yaml:"privateKey"`
	PrivateKeyPath string `yaml:"privateKeyPath"`
}

// ClientSettings tune the HTTP transport.
type ClientSettings struct {
	Host           string        `yaml:"host"`
	Language       string        `yaml:"language"`
	Timeout        time.Duration `yaml:"timeout"`
	RateLimit      float64       `yaml:"rateLimit"`
	Burst          int           `yaml:"burst"`
	MaxAttempts    uint          `yaml:"maxAttempts"`
	InitialBackoff time.Duration `yaml:"initialBackoff"`
	MaxElapsed     time.Duration `yaml:"maxElapsed"`
}

// LogSettings configure the zap logger built by binaries.
type LogSettings struct {
	Level string `yaml:"level"`
}

// TelemetrySettings configure OTLP metric export.
type TelemetrySettings struct {
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"`
	Insecure bool          `yaml:"insecure"`
	Interval time.Duration `yaml:"interval"`
}

// DatabaseSettings locate the checkpoint database. An empty MigrationsDir
// applies the migrations embedded in the binary.
type DatabaseSettings struct {
	DSN           string `yaml:"dsn"`
	MigrationsDir string `yaml:"migrationsDir"`
}

// FeedSettings describe one log feed to ingest.
type FeedSettings struct {
	Name     string   `yaml:"name"`
	Resource string   `yaml:"resource"`
	PageSize int      `yaml:"pageSize"`
	Types    []string `yaml:"types"`
	After    string   `yaml:"after"`
}

// IngestSettings configure the ingestion service.
type IngestSettings struct {
	OutputDir string         `yaml:"outputDir"`
	Interval  time.Duration  `yaml:"interval"`
	Feeds     []FeedSettings `yaml:"feeds"`
}

// Settings is the full configuration tree loaded from defaults, an optional
// YAML file and STARKBANK_* environment variables.
type Settings struct {
	Environment user.Environment  `yaml:"environment"`
	Credentials Credentials       `yaml:"credentials"`
	Client      ClientSettings    `yaml:"client"`
	Log         LogSettings       `yaml:"log"`
	Telemetry   TelemetrySettings `yaml:"telemetry"`
	Database    DatabaseSettings  `yaml:"database"`
	Ingest      IngestSettings    `yaml:"ingest"`
}

// Feed resources accepted by the ingestion service.
const (
	FeedInvoiceLog       = "invoice-log"
	FeedSplitLog         = "split-log"
	FeedBrcodePaymentLog = "brcode-payment-log"
)

// Default returns the baseline configuration: sandbox, English messages,
// three GET attempts and no rate limit.
func Default() Settings {
	return Settings{
		Environment: user.Sandbox,
		Client: ClientSettings{
			Language:       rest.LanguageEnglish,
			Timeout:        15 * time.Second,
			MaxAttempts:    3,
			InitialBackoff: 250 * time.Millisecond,
			MaxElapsed:     30 * time.Second,
		},
		Log:       LogSettings{Level: "info"},
		Telemetry: TelemetrySettings{Endpoint: "localhost:4318", Interval: 30 * time.Second},
		Database:  DatabaseSettings{},
		Ingest: IngestSettings{
			OutputDir: "data",
			Interval:  time.Minute,
		},
	}
}

// FromEnv returns Default overridden by environment variables.
func FromEnv() Settings {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

// Load reads a YAML file over the defaults, applies environment overrides and
// validates the result.
func Load(ctx context.Context, path string) (Settings, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Settings{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(ctx); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Settings) {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil {
				*dst = parsed
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv("STARKBANK_ENVIRONMENT")); v != "" {
		cfg.Environment = user.Environment(strings.ToLower(v))
	}
	str("STARKBANK_PROJECT_ID", &cfg.Credentials.ProjectID)
	str("STARKBANK_ORGANIZATION_ID", &cfg.Credentials.OrganizationID)
	str("STARKBANK_WORKSPACE_ID", &cfg.Credentials.WorkspaceID)
	str("STARKBANK_PRIVATE_KEY", &cfg.Credentials.PrivateKey)
	str("STARKBANK_PRIVATE_KEY_PATH", &cfg.Credentials.PrivateKeyPath)
	str("STARKBANK_HOST", &cfg.Client.Host)
	str("STARKBANK_LANGUAGE", &cfg.Client.Language)
	dur("STARKBANK_TIMEOUT", &cfg.Client.Timeout)
	if v := strings.TrimSpace(os.Getenv("STARKBANK_RATE_LIMIT")); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Client.RateLimit = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("STARKBANK_MAX_ATTEMPTS")); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Client.MaxAttempts = uint(parsed)
		}
	}
	str("STARKBANK_LOG_LEVEL", &cfg.Log.Level)
	if v := strings.TrimSpace(os.Getenv("OTEL_ENABLED")); v != "" {
		cfg.Telemetry.Enabled = v == "true"
	}
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.Endpoint)
	str("STARKBANK_DATABASE_DSN", &cfg.Database.DSN)
	str("STARKBANK_MIGRATIONS_DIR", &cfg.Database.MigrationsDir)
	str("STARKBANK_OUTPUT_DIR", &cfg.Ingest.OutputDir)
	dur("STARKBANK_INGEST_INTERVAL", &cfg.Ingest.Interval)
}

// Option mutates Settings when applied via Apply.
type Option func(*Settings)

// Apply applies opts to a copy of base.
func Apply(base Settings, opts ...Option) Settings {
	cfg := base.clone()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithEnvironment selects sandbox or production.
func WithEnvironment(env user.Environment) Option {
	return func(s *Settings) {
		if env != "" {
			s.Environment = env
		}
	}
}

// WithProject authenticates as a project.
func WithProject(id, privateKey string) Option {
	return func(s *Settings) {
		s.Credentials = Credentials{ProjectID: strings.TrimSpace(id), PrivateKey: privateKey}
	}
}

// WithOrganization authenticates as an organization, optionally scoped to a workspace.
func WithOrganization(id, privateKey, workspaceID string) Option {
	return func(s *Settings) {
		s.Credentials = Credentials{
			OrganizationID: strings.TrimSpace(id),
			WorkspaceID:    strings.TrimSpace(workspaceID),
			PrivateKey:     privateKey,
		}
	}
}

// WithHost overrides the API root.
func WithHost(host string) Option {
	return func(s *Settings) { s.Client.Host = strings.TrimSpace(host) }
}

// WithLanguage selects the remote error language.
func WithLanguage(language string) Option {
	return func(s *Settings) { s.Client.Language = strings.TrimSpace(language) }
}

// WithDatabaseDSN points the checkpoint store at dsn.
func WithDatabaseDSN(dsn string) Option {
	return func(s *Settings) { s.Database.DSN = strings.TrimSpace(dsn) }
}

// WithFeeds replaces the ingestion feeds.
func WithFeeds(feeds ...FeedSettings) Option {
	return func(s *Settings) { s.Ingest.Feeds = append([]FeedSettings(nil), feeds...) }
}

// Validate performs semantic validation of the settings.
func (s Settings) Validate(ctx context.Context) error {
	if _, err := user.ParseEnvironment(string(s.Environment)); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	c := s.Credentials
	switch {
	case c.ProjectID == "" && c.OrganizationID == "":
		return fmt.Errorf("credentials: projectId or organizationId required")
	case c.ProjectID != "" && c.OrganizationID != "":
		return fmt.Errorf("credentials: projectId and organizationId are mutually exclusive")
	case strings.TrimSpace(c.PrivateKey) == "" && strings.TrimSpace(c.PrivateKeyPath) == "":
		return fmt.Errorf("credentials: privateKey or privateKeyPath required")
	}
	switch s.Client.Language {
	case "", rest.LanguageEnglish, rest.LanguagePortuguese:
	default:
		return fmt.Errorf("client.language must be %s or %s", rest.LanguageEnglish, rest.LanguagePortuguese)
	}
	if s.Client.RateLimit < 0 {
		return fmt.Errorf("client.rateLimit must be >=0")
	}
	if s.Client.Timeout < 0 {
		return fmt.Errorf("client.timeout must be >=0")
	}
	seen := make(map[string]struct{}, len(s.Ingest.Feeds))
	for i, feed := range s.Ingest.Feeds {
		if strings.TrimSpace(feed.Name) == "" {
			return fmt.Errorf("ingest.feeds[%d]: name required", i)
		}
		if _, dup := seen[feed.Name]; dup {
			return fmt.Errorf("ingest.feeds[%d]: duplicate name %q", i, feed.Name)
		}
		seen[feed.Name] = struct{}{}
		switch feed.Resource {
		case FeedInvoiceLog, FeedSplitLog, FeedBrcodePaymentLog:
		default:
			return fmt.Errorf("ingest.feeds[%d]: unknown resource %q", i, feed.Resource)
		}
		if feed.PageSize < 0 || feed.PageSize > 100 {
			return fmt.Errorf("ingest.feeds[%d]: pageSize must be between 1 and 100", i)
		}
	}
	return nil
}

// User builds the credentials described by the settings.
func (s Settings) User() (user.User, error) {
	c := s.Credentials
	pemText := c.PrivateKey
	if strings.TrimSpace(pemText) == "" && c.PrivateKeyPath != "" {
		k, err := key.LoadFile(c.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		if pemText, err = k.PEM(); err != nil {
			return nil, err
		}
	}
	if c.OrganizationID != "" {
		return user.NewOrganization(s.Environment, c.OrganizationID, pemText, c.WorkspaceID)
	}
	return user.NewProject(s.Environment, c.ProjectID, pemText)
}

// ClientOptions translates the client settings into rest options.
func (s Settings) ClientOptions() []rest.Option {
	return []rest.Option{
		rest.WithHost(s.Client.Host),
		rest.WithLanguage(s.Client.Language),
		rest.WithTimeout(s.Client.Timeout),
		rest.WithRateLimit(s.Client.RateLimit, s.Client.Burst),
		rest.WithRetry(s.Client.MaxAttempts, s.Client.InitialBackoff, s.Client.MaxElapsed),
	}
}

// NewClient builds a rest client from the settings.
func (s Settings) NewClient(logger observability.Logger, meter metric.Meter) (*rest.Client, error) {
	u, err := s.User()
	if err != nil {
		return nil, err
	}
	opts := append(s.ClientOptions(), rest.WithLogger(logger), rest.WithMeter(meter))
	return rest.New(u, opts...)
}

// TelemetryConfig maps the telemetry settings onto telemetry.Config.
func (s Settings) TelemetryConfig() telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.Enabled = s.Telemetry.Enabled
	if s.Telemetry.Endpoint != "" {
		cfg.OTLPEndpoint = s.Telemetry.Endpoint
	}
	cfg.OTLPInsecure = s.Telemetry.Insecure
	if s.Telemetry.Interval > 0 {
		cfg.MetricInterval = s.Telemetry.Interval
	}
	cfg.Environment = string(s.Environment)
	return cfg
}

func (s Settings) clone() Settings {
	out := s
	if s.Ingest.Feeds != nil {
		out.Ingest.Feeds = make([]FeedSettings, len(s.Ingest.Feeds))
		for i, feed := range s.Ingest.Feeds {
			feed.Types = append([]string(nil), feed.Types...)
			out.Ingest.Feeds[i] = feed
		}
	}
	return out
}
