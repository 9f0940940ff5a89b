package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/net/idna"
	"gopkg.in/yaml.v3"

	"github.com/evercode/routegen/pkg/inventory"
	"github.com/evercode/routegen/pkg/routing"
)

const (
	defaultListen         = ":8080"
	defaultPidFile        = "./run/routegen.pid"
	defaultInventoryFile  = "config.toml"
	defaultDebounceMs     = 300
	defaultDomain         = "evercode.se"
	defaultEntryPoint     = "websecure"
	defaultCertResolver   = "default"
	defaultAttachmentName = "routes.json"
	defaultNotifyTimeout  = 10000
	defaultMetricsPath    = "/metrics"
	defaultDotEnvFile     = ".env"
)

type LoggingConfig struct {
	Level                 string `yaml:"level"`
	AccessLog             bool   `yaml:"access_log"`
	AccessLogPath         string `yaml:"access_log_path"`
	AccessLogFormat       string `yaml:"access_log_format"`
	AccessLogFormatPreset string `yaml:"access_log_format_preset"`

	accessLogSet bool `yaml:"-"`
}

func (c *LoggingConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawLogging struct {
		Level                 string `yaml:"level"`
		AccessLog             bool   `yaml:"access_log"`
		AccessLogPath         string `yaml:"access_log_path"`
		AccessLogFormat       string `yaml:"access_log_format"`
		AccessLogFormatPreset string `yaml:"access_log_format_preset"`
	}
	var raw rawLogging
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Level = raw.Level
	c.AccessLog = raw.AccessLog
	c.AccessLogPath = raw.AccessLogPath
	c.AccessLogFormat = raw.AccessLogFormat
	c.AccessLogFormatPreset = raw.AccessLogFormatPreset
	c.accessLogSet = false

	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if strings.TrimSpace(value.Content[i].Value) == "access_log" {
			c.accessLogSet = true
		}
	}
	return nil
}

// Debug reports whether debug logging is enabled.
func (c LoggingConfig) Debug() bool {
	return strings.EqualFold(strings.TrimSpace(c.Level), "debug")
}

type Config struct {
	Server struct {
		Listen          string `yaml:"listen"`
		ReadTimeoutMs   int    `yaml:"read_timeout_ms"`
		WriteTimeoutMs  int    `yaml:"write_timeout_ms"`
		PidFile         string `yaml:"pid_file"`
		ValidateOnStart *bool  `yaml:"validate_on_start"`
	} `yaml:"server"`

	Inventory struct {
		File string `yaml:"file"`
		// Format is auto, toml or yaml. auto picks by file extension.
		Format     string `yaml:"format"`
		AutoReload struct {
			Enabled    bool `yaml:"enabled"`
			DebounceMs int  `yaml:"debounce_ms"`
		} `yaml:"auto_reload"`
	} `yaml:"inventory"`

	Routing struct {
		Domain       string `yaml:"domain"`
		EntryPoint   string `yaml:"entry_point"`
		CertResolver string `yaml:"cert_resolver"`
	} `yaml:"routing"`

	Notify struct {
		WebhookURL     string `yaml:"webhook_url"`
		Username       string `yaml:"username"`
		AttachFile     bool   `yaml:"attach_file"`
		AttachmentName string `yaml:"attachment_name"`
		TimeoutMs      int    `yaml:"timeout_ms"`
		// Schedule is an optional cron expression for re-publishing the
		// current snapshot.
		Schedule string `yaml:"schedule"`
		// OnReload also publishes after every successful reload.
		OnReload bool `yaml:"on_reload"`
	} `yaml:"notify"`

	Metrics struct {
		Enabled *bool  `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`

	Logging LoggingConfig `yaml:"logging"`

	// DotEnvFile is loaded into the process environment before env
	// overrides are applied. Missing files are ignored.
	DotEnvFile string `yaml:"dotenv_file"`
}

// ValidateOnStart reports whether serving runs the validation pass on the
// initial load and on every reload.
func (c *Config) ValidateOnStart() bool {
	return c.Server.ValidateOnStart == nil || *c.Server.ValidateOnStart
}

func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}

func (c *Config) InventoryFormat() inventory.Format {
	f, _ := inventory.ParseFormat(c.Inventory.Format)
	return f
}

// RoutingParams returns the projector parameters.
func (c *Config) RoutingParams() routing.Params {
	return routing.Params{
		Domain:       c.Routing.Domain,
		EntryPoint:   c.Routing.EntryPoint,
		CertResolver: c.Routing.CertResolver,
	}
}

// Load reads the yaml config at path. An empty path yields defaults plus
// environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if p := strings.TrimSpace(path); p != "" {
		// #nosec G304 -- path is provided by trusted config/flag.
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(&cfg)
	if err := loadDotEnv(cfg.DotEnvFile); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = defaultListen
	}
	if cfg.Server.ReadTimeoutMs <= 0 {
		cfg.Server.ReadTimeoutMs = 10000
	}
	if cfg.Server.WriteTimeoutMs <= 0 {
		cfg.Server.WriteTimeoutMs = 10000
	}
	if strings.TrimSpace(cfg.Server.PidFile) == "" {
		cfg.Server.PidFile = defaultPidFile
	}
	if strings.TrimSpace(cfg.Inventory.File) == "" {
		cfg.Inventory.File = defaultInventoryFile
	}
	if cfg.Inventory.AutoReload.DebounceMs <= 0 {
		cfg.Inventory.AutoReload.DebounceMs = defaultDebounceMs
	}
	if strings.TrimSpace(cfg.Routing.Domain) == "" {
		cfg.Routing.Domain = defaultDomain
	}
	if strings.TrimSpace(cfg.Routing.EntryPoint) == "" {
		cfg.Routing.EntryPoint = defaultEntryPoint
	}
	if strings.TrimSpace(cfg.Routing.CertResolver) == "" {
		cfg.Routing.CertResolver = defaultCertResolver
	}
	if strings.TrimSpace(cfg.Notify.AttachmentName) == "" {
		cfg.Notify.AttachmentName = defaultAttachmentName
	}
	if cfg.Notify.TimeoutMs <= 0 {
		cfg.Notify.TimeoutMs = defaultNotifyTimeout
	}
	if strings.TrimSpace(cfg.Metrics.Path) == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	// default true
	if !cfg.Logging.accessLogSet {
		cfg.Logging.AccessLog = true
	}
	if strings.TrimSpace(cfg.DotEnvFile) == "" {
		cfg.DotEnvFile = defaultDotEnvFile
	}
}

func loadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat dotenv file %q: %w", path, err)
	}
	// Existing process variables take precedence over the file.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load dotenv file %q: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	applyEnvServerOverrides(cfg)
	applyEnvInventoryRoutingOverrides(cfg)
	applyEnvNotifyOverrides(cfg)
	applyEnvLoggingOverrides(cfg)
}

func applyEnvServerOverrides(cfg *Config) {
	if n, ok := envInt("PORT"); ok && n > 0 {
		cfg.Server.Listen = "0.0.0.0:" + strconv.Itoa(n)
	}
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_LISTEN")); v != "" {
		cfg.Server.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_PID_FILE")); v != "" {
		cfg.Server.PidFile = v
	}
	if n, ok := envInt("ROUTEGEN_READ_TIMEOUT_MS"); ok && n > 0 {
		cfg.Server.ReadTimeoutMs = n
	}
	if n, ok := envInt("ROUTEGEN_WRITE_TIMEOUT_MS"); ok && n > 0 {
		cfg.Server.WriteTimeoutMs = n
	}
	if v, ok := envBoolPresent("ROUTEGEN_VALIDATE_ON_START"); ok {
		cfg.Server.ValidateOnStart = &v
	}
	if v, ok := envBoolPresent("ROUTEGEN_METRICS_ENABLED"); ok {
		cfg.Metrics.Enabled = &v
	}
}

func applyEnvInventoryRoutingOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_INVENTORY_FILE")); v != "" {
		cfg.Inventory.File = v
	}
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_INVENTORY_FORMAT")); v != "" {
		cfg.Inventory.Format = v
	}
	cfg.Inventory.AutoReload.Enabled = envBool("ROUTEGEN_INVENTORY_AUTO_RELOAD_ENABLED", cfg.Inventory.AutoReload.Enabled)
	if n, ok := envInt("ROUTEGEN_INVENTORY_AUTO_RELOAD_DEBOUNCE_MS"); ok {
		cfg.Inventory.AutoReload.DebounceMs = n
	}
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_DOMAIN")); v != "" {
		cfg.Routing.Domain = v
	}
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_ENTRY_POINT")); v != "" {
		cfg.Routing.EntryPoint = v
	}
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_CERT_RESOLVER")); v != "" {
		cfg.Routing.CertResolver = v
	}
}

func applyEnvNotifyOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL")); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_WEBHOOK_URL")); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_WEBHOOK_USERNAME")); v != "" {
		cfg.Notify.Username = v
	}
	cfg.Notify.AttachFile = envBool("ROUTEGEN_WEBHOOK_ATTACH_FILE", cfg.Notify.AttachFile)
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_NOTIFY_SCHEDULE")); v != "" {
		cfg.Notify.Schedule = v
	}
	cfg.Notify.OnReload = envBool("ROUTEGEN_NOTIFY_ON_RELOAD", cfg.Notify.OnReload)
}

func applyEnvLoggingOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	cfg.Logging.AccessLog = envBool("ROUTEGEN_ACCESS_LOG", cfg.Logging.AccessLog)
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_ACCESS_LOG_PATH")); v != "" {
		cfg.Logging.AccessLogPath = v
	}
	if v := os.Getenv("ROUTEGEN_ACCESS_LOG_FORMAT"); strings.TrimSpace(v) != "" {
		cfg.Logging.AccessLogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("ROUTEGEN_ACCESS_LOG_FORMAT_PRESET")); v != "" {
		cfg.Logging.AccessLogFormatPreset = v
	}
}

func validate(cfg *Config) error {
	if _, err := inventory.ParseFormat(cfg.Inventory.Format); err != nil {
		return err
	}
	if cfg.Inventory.AutoReload.Enabled && cfg.Inventory.AutoReload.DebounceMs <= 0 {
		return errors.New("inventory.auto_reload.debounce_ms must be > 0 when inventory.auto_reload.enabled=true")
	}

	domain, err := idna.Lookup.ToASCII(strings.TrimSpace(cfg.Routing.Domain))
	if err != nil {
		return fmt.Errorf("routing.domain %q is not a valid domain name: %w", cfg.Routing.Domain, err)
	}
	cfg.Routing.Domain = domain
	cfg.Routing.EntryPoint = strings.TrimSpace(cfg.Routing.EntryPoint)
	cfg.Routing.CertResolver = strings.TrimSpace(cfg.Routing.CertResolver)
	if err := cfg.RoutingParams().Validate(); err != nil {
		return err
	}

	if v := strings.TrimSpace(cfg.Notify.WebhookURL); v != "" {
		u, err := url.Parse(v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("notify.webhook_url must be an http(s) URL")
		}
	}
	if s := strings.TrimSpace(cfg.Notify.Schedule); s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			return fmt.Errorf("notify.schedule %q: %w", s, err)
		}
		if strings.TrimSpace(cfg.Notify.WebhookURL) == "" {
			return errors.New("notify.webhook_url is required when notify.schedule is set")
		}
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with '/'")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", cfg.Logging.Level)
	}
	return nil
}

func envInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(name string, def bool) bool {
	if v, ok := envBoolPresent(name); ok {
		return v
	}
	return def
}

func envBoolPresent(name string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return false, false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
