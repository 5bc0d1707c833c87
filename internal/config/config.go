package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for notifyd.
type Config struct {
	General     GeneralConfig     `json:"general"`
	Server      ServerConfig      `json:"server"`
	Notifier    NotifierConfig    `json:"notifier"`
	Ingest      IngestConfig      `json:"ingest"`
	Correlation CorrelationConfig `json:"correlation"`
	Platform    PlatformConfig    `json:"platform"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"`
}

type ServerConfig struct {
	Host string     `json:"host"`
	Port int        `json:"port"`
	Auth AuthConfig `json:"auth"`
}

// AuthConfig enables HTTP Basic authentication. Auth is enforced if and only
// if both fields are non-empty; loopback clients always bypass it.
type AuthConfig struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Required reports whether credentials are configured.
func (a AuthConfig) Required() bool {
	return a.Username != "" && a.Password != ""
}

type NotifierConfig struct {
	// Backend selects the presentation surface: "log" | "telegram".
	Backend string `json:"backend"`
	// ShowTimeoutSeconds bounds a single Show call. 0 = no bound (the
	// original behavior, which can hang the send path indefinitely).
	ShowTimeoutSeconds int            `json:"showTimeoutSeconds"`
	Telegram           TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Token  string `json:"token,omitempty"`
	ChatID int64  `json:"chatId,omitempty"`
}

type IngestConfig struct {
	// ScratchDir is the parent for per-request scratch directories.
	ScratchDir string `json:"scratchDir"`
	// MaxBodyBytes limits the request body size.
	MaxBodyBytes int64 `json:"maxBodyBytes"`
	// ScratchTTLHours: scratch directories older than this are swept.
	// 0 disables cleanup entirely (directories accumulate).
	ScratchTTLHours int `json:"scratchTtlHours"`
	// SweepSchedule is a cron expression for the cleanup sweeper.
	SweepSchedule string `json:"sweepSchedule"`
}

type CorrelationConfig struct {
	// TTLMinutes evicts correlation entries after the given time.
	// 0 keeps entries for the process lifetime (unbounded growth; the
	// original behavior).
	TTLMinutes int `json:"ttlMinutes"`
}

type PlatformConfig struct {
	AppID       string `json:"appId"`
	DisplayName string `json:"displayName"`
	// RegistrationDir holds the identity registration marker.
	RegistrationDir string `json:"registrationDir"`
	// Shell runs callback commands (default: sh -c).
	Shell string `json:"shell,omitempty"`
}

// DefaultConfigDir returns the default config directory (~/.notifyd).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".notifyd"
	}
	return filepath.Join(home, ".notifyd")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads a config file. JSON by default; files ending in .yaml/.yml are
// decoded as YAML and coerced through JSON so both formats share one schema.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	data, err = coerceToJSON(path, data)
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Ingest.ScratchDir = ExpandPath(cfg.Ingest.ScratchDir)
	cfg.Platform.RegistrationDir = ExpandPath(cfg.Platform.RegistrationDir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// coerceToJSON converts YAML input to JSON bytes so the JSON decoder serves
// both formats.
func coerceToJSON(path string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	j, err := json.Marshal(normalizeYAML(v))
	if err != nil {
		return nil, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, nil
}

// normalizeYAML ensures all map keys are strings so the result can be
// JSON-marshaled.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = normalizeYAML(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}
	if (cfg.Server.Auth.Username == "") != (cfg.Server.Auth.Password == "") {
		errs = append(errs, "server.auth requires both username and password, or neither")
	}

	switch cfg.Notifier.Backend {
	case "log", "telegram":
		// valid
	default:
		errs = append(errs, "notifier.backend must be one of: log, telegram")
	}
	if cfg.Notifier.Backend == "telegram" && cfg.Notifier.Telegram.Token == "" {
		errs = append(errs, "notifier.telegram.token is required for the telegram backend")
	}
	if cfg.Notifier.ShowTimeoutSeconds < 0 {
		errs = append(errs, "notifier.showTimeoutSeconds must be >= 0")
	}

	if cfg.Ingest.MaxBodyBytes < 1 {
		errs = append(errs, "ingest.maxBodyBytes must be >= 1")
	}
	if cfg.Ingest.ScratchTTLHours < 0 {
		errs = append(errs, "ingest.scratchTtlHours must be >= 0")
	}
	if cfg.Correlation.TTLMinutes < 0 {
		errs = append(errs, "correlation.ttlMinutes must be >= 0")
	}

	if cfg.Platform.AppID == "" {
		errs = append(errs, "platform.appId must not be empty")
	}

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
