// Package config loads and validates the vaultsync YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Direction restricts which side of a sync may create counterparts for the
// other.
type Direction string

const (
	// DirectionBoth creates counterparts on either side (default).
	DirectionBoth Direction = "both"
	// DirectionDocToRem only creates reminders for unpaired documents.
	DirectionDocToRem Direction = "doc->rem"
	// DirectionRemToDoc only creates documents for unpaired reminders.
	DirectionRemToDoc Direction = "rem->doc"
)

// VaultMapping is the default reminder list a vault's unrouted counterparts
// land in.
type VaultMapping struct {
	VaultID string `yaml:"vault_id"`
	ListID  string `yaml:"list_id"`
}

// VaultEntry names one document-store vault to sync: where it lives on disk
// and which reminder lists it draws from. VaultMappings and TagRoutes then
// decide routing by VaultID; VaultEntry only tells the engine where to look.
type VaultEntry struct {
	VaultID string   `yaml:"vault_id"`
	Name    string   `yaml:"name,omitempty"`
	Path    string   `yaml:"path"`
	ListIDs []string `yaml:"list_ids"`
}

// TagRoute is one entry of the ordered tag-routing table: the first rule in
// configuration order whose vault and tag match wins.
type TagRoute struct {
	VaultID string `yaml:"vault_id"`
	Tag     string `yaml:"tag"`
	ListID  string `yaml:"list_id"`
}

// RemToDocRule routes reminders from a given list name to a specific
// document-store file (and optional heading) on counterpart creation.
type RemToDocRule struct {
	ListName string `yaml:"list_name"`
	File     string `yaml:"file"`
	Heading  string `yaml:"heading,omitempty"`
}

// CreationConfig groups the Counterpart Creator's knobs.
type CreationConfig struct {
	// SinceDays, if > 0, skips records whose modified timestamp is older
	// than now minus this many days.
	SinceDays int `yaml:"since_days,omitempty"`

	// MaxCreatesPerRun caps total creations across both directions per
	// run. Zero means unlimited.
	MaxCreatesPerRun int `yaml:"max_creates_per_run,omitempty"`

	// IncludeCompleted overrides the top-level IncludeCompleted for
	// creation specifically; nil means inherit.
	IncludeCompleted *bool `yaml:"include_completed,omitempty"`

	// InboxFile is the document-store file new rem->doc tasks are
	// appended to when no rem_to_doc_rules entry matches.
	InboxFile string `yaml:"inbox_file,omitempty"`

	// RemDefaultListID is the fallback reminder list for doc->rem
	// creations when no tag route and no vault mapping applies.
	RemDefaultListID string `yaml:"rem_default_list_id,omitempty"`

	// RemToDocRules routes reminders by list name to a document file.
	RemToDocRules []RemToDocRule `yaml:"rem_to_doc_rules,omitempty"`
}

// TelemetryConfig holds optional OpenTelemetry settings. Omit the block
// entirely to disable telemetry.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection. Use for local collectors.
	Insecure bool `yaml:"insecure"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "vaultsync".
	ServiceName string `yaml:"service_name"`

	// Headers contains key-value pairs sent as gRPC metadata on every OTLP
	// request. Equivalent to the OTEL_EXPORTER_OTLP_HEADERS environment
	// variable. Use this for authentication tokens, e.g.:
	//   Authorization: "Bearer <token>"
	Headers map[string]string `yaml:"headers,omitempty"`
}

// GatewayBackend selects which concrete ReminderGateway implementation
// the CLI wires up.
type GatewayBackend string

const (
	// GatewayHomeAssistant talks to a Home Assistant todo entity over REST.
	GatewayHomeAssistant GatewayBackend = "homeassistant"
	// GatewayEventKit talks to native Apple Reminders via EventKit.
	GatewayEventKit GatewayBackend = "eventkit"
)

// GatewayConfig selects and configures the reminder-service backend.
type GatewayConfig struct {
	Backend GatewayBackend `yaml:"backend"`

	// HAURL and HAToken configure the Home Assistant backend.
	HAURL   string `yaml:"ha_url,omitempty"`
	HAToken string `yaml:"ha_token,omitempty"`
}

// Config holds the full application configuration loaded from YAML.
type Config struct {
	// MinScore is the Matcher's acceptance threshold; links scoring below
	// this are rejected. Default 0.75.
	MinScore float64 `yaml:"min_score,omitempty"`

	// DaysTolerance is the window within which two due dates are treated
	// as close but not equal by the Matcher. Default 1.
	DaysTolerance int `yaml:"days_tolerance,omitempty"`

	// IncludeCompleted controls whether done records participate in
	// matching. Default false.
	IncludeCompleted bool `yaml:"include_completed,omitempty"`

	// Vaults lists every document-store vault to sync and the reminder
	// lists it draws from. Required: at least one entry.
	Vaults []VaultEntry `yaml:"vaults,omitempty"`

	// Gateway selects and configures the reminder-service backend.
	Gateway GatewayConfig `yaml:"gateway"`

	// VaultMappings maps each vault to its default reminder list.
	VaultMappings []VaultMapping `yaml:"vault_mappings,omitempty"`

	// TagRoutes is the ordered tag-routing table; order is significant.
	TagRoutes []TagRoute `yaml:"tag_routes,omitempty"`

	// Direction restricts which side may create counterparts. Default "both".
	Direction Direction `yaml:"direction,omitempty"`

	// EnableDeduplication turns on the post-reconcile Deduplicator pass.
	EnableDeduplication bool `yaml:"enable_deduplication,omitempty"`

	// DedupAutoApply resolves clusters automatically (keep the protected
	// records, or else the one with the lowest uuid, and delete the rest)
	// instead of prompting interactively.
	DedupAutoApply bool `yaml:"dedup_auto_apply,omitempty"`

	// LinksPath is where the link store is persisted. Required.
	LinksPath string `yaml:"links_path"`

	// Creation groups Counterpart Creator settings.
	Creation CreationConfig `yaml:"creation,omitempty"`

	// PollInterval controls how often a daemon invocation re-syncs.
	// Minimum 10s, maximum 5m. Defaults to 30s if unset.
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`

	// AuditDBPath is where the forensic audit log is opened. Defaults
	// alongside LinksPath when unset.
	AuditDBPath string `yaml:"audit_db_path,omitempty"`
}

// Write serializes the config as YAML to the given path, creating parent
// directories as needed.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %q: %w", path, err)
	}
	return nil
}

// DefaultPath returns the default config file path: ~/.config/vaultsync/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vaultsync", "config.yaml"), nil
}

// Load reads and validates the configuration file at the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// validate fills in defaults and checks required fields and ranges.
func (c *Config) validate() error {
	if c.MinScore == 0 {
		c.MinScore = 0.75
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score %v must be in [0, 1]", c.MinScore)
	}

	if c.DaysTolerance == 0 {
		c.DaysTolerance = 1
	}
	if c.DaysTolerance < 0 {
		return fmt.Errorf("days_tolerance %d must be >= 0", c.DaysTolerance)
	}

	if c.Direction == "" {
		c.Direction = DirectionBoth
	}
	switch c.Direction {
	case DirectionBoth, DirectionDocToRem, DirectionRemToDoc:
	default:
		return fmt.Errorf("direction %q must be one of %q, %q, %q", c.Direction, DirectionBoth, DirectionDocToRem, DirectionRemToDoc)
	}

	if c.LinksPath == "" {
		return fmt.Errorf("links_path is required")
	}

	if c.PollInterval == 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.PollInterval < 10*time.Second {
		return fmt.Errorf("poll_interval %v is too short (minimum 10s)", c.PollInterval)
	}
	if c.PollInterval > 5*time.Minute {
		return fmt.Errorf("poll_interval %v is too long (maximum 5m)", c.PollInterval)
	}

	for i, v := range c.Vaults {
		if v.VaultID == "" {
			return fmt.Errorf("vaults[%d] has an empty vault_id", i)
		}
		if v.Path == "" {
			return fmt.Errorf("vaults[%q] has an empty path", v.VaultID)
		}
	}

	if c.Gateway.Backend == "" {
		c.Gateway.Backend = GatewayEventKit
	}
	switch c.Gateway.Backend {
	case GatewayHomeAssistant:
		if c.Gateway.HAURL == "" {
			return fmt.Errorf("gateway.ha_url is required for the homeassistant backend")
		}
	case GatewayEventKit:
		// no additional fields required
	default:
		return fmt.Errorf("gateway.backend %q must be one of %q, %q", c.Gateway.Backend, GatewayHomeAssistant, GatewayEventKit)
	}

	for _, vm := range c.VaultMappings {
		if vm.VaultID == "" {
			return fmt.Errorf("vault_mappings contains an empty vault_id")
		}
		if vm.ListID == "" {
			return fmt.Errorf("vault_mappings[%q] has an empty list_id", vm.VaultID)
		}
	}

	for i, tr := range c.TagRoutes {
		if tr.VaultID == "" || tr.Tag == "" || tr.ListID == "" {
			return fmt.Errorf("tag_routes[%d] must set vault_id, tag, and list_id", i)
		}
	}

	if c.Telemetry != nil && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
	}

	if c.AuditDBPath == "" {
		c.AuditDBPath = filepath.Join(filepath.Dir(c.LinksPath), "audit.db")
	}

	return nil
}

// DefaultListFor returns the reminder list a document task with the given
// vault id and tags should route to: tag_routes (first match wins, in
// configuration order), then vault_mappings, then the creation-level
// default list.
func (c *Config) DefaultListFor(vaultID string, tags []string) (listID string, ok bool) {
	for _, route := range c.TagRoutes {
		if route.VaultID != vaultID {
			continue
		}
		for _, tag := range tags {
			if tag == route.Tag {
				return route.ListID, true
			}
		}
	}
	for _, vm := range c.VaultMappings {
		if vm.VaultID == vaultID {
			return vm.ListID, true
		}
	}
	if c.Creation.RemDefaultListID != "" {
		return c.Creation.RemDefaultListID, true
	}
	return "", false
}

// EffectiveIncludeCompleted returns IncludeCompleted as it applies to
// creation decisions, honoring the per-creation override.
func (c *Config) EffectiveIncludeCompleted() bool {
	if c.Creation.IncludeCompleted != nil {
		return *c.Creation.IncludeCompleted
	}
	return c.IncludeCompleted
}
