// Package config provides JSON/YAML configuration loading for tzbot.
package config

import (
    "errors"
    "fmt"
    "math"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/go-viper/mapstructure/v2"
    "github.com/spf13/viper"
)

// ErrInvalid marks configuration that cannot be used to build a client.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix is the prefix of environment overrides, e.g. TZBOT_PORT=4000.
const EnvPrefix = "TZBOT"

// Config is the root client configuration.
type Config struct {
    // Address of the timezone service (host name or IP)
    Address string `mapstructure:"address"`
    // Port of the timezone service, 0..65535
    Port int `mapstructure:"port"`
    // APIKey is injected into every request; empty when not configured
    APIKey string `mapstructure:"apiKey"`

    // EncryptionConfig holds the optional shared key material.
    EncryptionConfig `mapstructure:",squash"`

    // Gunzip compresses requests by default
    Gunzip bool `mapstructure:"gunzip"`
    // Msgpack serializes requests as MessagePack by default
    Msgpack bool `mapstructure:"msgpack"`

    // Timeout bounds one request/response exchange. Zero waits forever.
    Timeout time.Duration `mapstructure:"timeout"`

    // Log holds logging configuration
    Log LogConfig `mapstructure:"log"`
}

// LogConfig defines logger settings.
type LogConfig struct {
    // Level: debug, info, warn, error
    Level string `mapstructure:"level"`
    // Format: console or json
    Format string `mapstructure:"format"`
    // Outputs: list of outputs: stdout, stderr, or file paths
    Outputs []string `mapstructure:"outputs"`

    // Rotation controls file rotation when writing to files
    Rotation RotationConfig `mapstructure:"rotation"`
    // Development toggles development-friendly logging options
    Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
    Enable     bool   `mapstructure:"enable"`
    Filename   string `mapstructure:"filename"`
    MaxSizeMB  int    `mapstructure:"max_size_mb"`
    MaxBackups int    `mapstructure:"max_backups"`
    MaxAgeDays int    `mapstructure:"max_age_days"`
    Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config populated with defaults. Address and Port have no
// sensible default and must be provided.
func Default() *Config {
    return &Config{
        Timeout: 5 * time.Second,
        Log: LogConfig{
            Level:   "info",
            Format:  "console",
            Outputs: []string{"stderr"},
            Rotation: RotationConfig{
                Enable:     false,
                Filename:   "logs/tzbot.log",
                MaxSizeMB:  10,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
    }
}

// fieldKinds lists the document keys whose JSON/YAML type is checked before
// decoding. Values coming from the environment are always strings and are
// converted instead.
var fieldKinds = map[string]string{
    "address":              "string",
    "port":                 "integer",
    "apikey":               "string",
    "encryptionkey":        "string",
    "encryptionkeyfile":    "string",
    "encryptionpassphrase": "string",
    "encryptionsalt":       "string",
    "gunzip":               "bool",
    "msgpack":              "bool",
    "timeout":              "string",
    "log.level":            "string",
    "log.format":           "string",
    "log.development":      "bool",
}

// Override sets a key after files and environment have been read. Command
// line flags use it to take precedence over both.
type Override func(v *viper.Viper)

// Set returns an Override assigning value to key (dotted, e.g. "log.level").
func Set(key string, value any) Override {
    return func(v *viper.Viper) { v.Set(key, value) }
}

// Load reads configuration from path (JSON or YAML, chosen by extension).
// When path is empty, TZBOT_CONFIG is consulted and then ./tzbot.*,
// ./configs/tzbot.* and ~/.tzbot/tzbot.* are searched. Environment variables
// with the TZBOT prefix override file values; `.` becomes `_`.
// Example: TZBOT_LOG_LEVEL=debug
func Load(path string, overrides ...Override) (*Config, error) {
    cfg := Default()

    v := viper.New()
    v.SetEnvPrefix(EnvPrefix)
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()

    // keys without defaults still need binding so env-only configs decode
    for _, k := range []string{"address", "port", "apikey", "encryptionkey", "encryptionkeyfile", "encryptionpassphrase", "encryptionsalt"} {
        _ = v.BindEnv(k)
    }
    v.SetDefault("gunzip", cfg.Gunzip)
    v.SetDefault("msgpack", cfg.Msgpack)
    v.SetDefault("timeout", cfg.Timeout.String())
    v.SetDefault("log.level", cfg.Log.Level)
    v.SetDefault("log.format", cfg.Log.Format)
    v.SetDefault("log.outputs", cfg.Log.Outputs)
    v.SetDefault("log.development", cfg.Log.Development)
    v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
    v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
    v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
    v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
    v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
    v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

    if path == "" {
        if envPath := os.Getenv(EnvPrefix + "_CONFIG"); envPath != "" {
            path = envPath
        }
    }
    if path != "" {
        v.SetConfigFile(path)
    } else {
        v.SetConfigName("tzbot")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        if home, err := os.UserHomeDir(); err == nil {
            v.AddConfigPath(filepath.Join(home, ".tzbot"))
        }
    }

    // a missing file is fine when searching; everything may come from env
    if err := v.ReadInConfig(); err != nil {
        var notFound viper.ConfigFileNotFoundError
        if !errors.As(err, &notFound) {
            return nil, fmt.Errorf("%w: read config: %w", ErrInvalid, err)
        }
    }

    for _, o := range overrides {
        o(v)
    }

    if err := checkKinds(v); err != nil {
        return nil, err
    }
    hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
        mapstructure.StringToTimeDurationHookFunc(),
        mapstructure.StringToSliceHookFunc(","), // TZBOT_LOG_OUTPUTS=stderr,logs/a.log
    ))
    if err := v.Unmarshal(cfg, hook); err != nil {
        return nil, fmt.Errorf("%w: decode config: %w", ErrInvalid, err)
    }
    if !v.IsSet("address") {
        return nil, fmt.Errorf("%w: address is required", ErrInvalid)
    }
    if !v.IsSet("port") {
        return nil, fmt.Errorf("%w: port is required", ErrInvalid)
    }
    if err := cfg.Validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

func checkKinds(v *viper.Viper) error {
    for key, kind := range fieldKinds {
        if !v.InConfig(key) || envSet(key) {
            continue
        }
        raw := v.Get(key)
        if raw == nil {
            continue
        }
        ok := false
        switch kind {
        case "string":
            _, ok = raw.(string)
        case "bool":
            _, ok = raw.(bool)
        case "integer":
            ok = isInteger(raw)
        }
        if !ok {
            return fmt.Errorf("%w: %s must be %s, got %T", ErrInvalid, key, kind, raw)
        }
    }
    return nil
}

func envSet(key string) bool {
    name := EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
    _, ok := os.LookupEnv(name)
    return ok
}

func isInteger(raw any) bool {
    switch n := raw.(type) {
    case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
        return true
    case float64:
        return n == math.Trunc(n) && !math.IsInf(n, 0)
    case float32:
        return float64(n) == math.Trunc(float64(n))
    default:
        return false
    }
}

// Validate checks field ranges and normalizes optional fields.
func (c *Config) Validate() error {
    if strings.TrimSpace(c.Address) == "" {
        return fmt.Errorf("%w: address is required", ErrInvalid)
    }
    if c.Port < 0 || c.Port > 65535 {
        return fmt.Errorf("%w: port %d out of range 0..65535", ErrInvalid, c.Port)
    }
    if c.Timeout < 0 {
        return fmt.Errorf("%w: timeout must not be negative", ErrInvalid)
    }
    lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
    if lvl == "" {
        lvl, c.Log.Level = "info", "info"
    }
    switch lvl {
    case "debug", "info", "warn", "warning", "error":
        // ok
    default:
        return fmt.Errorf("%w: invalid log.level: %q", ErrInvalid, c.Log.Level)
    }
    if c.Log.Format == "" {
        c.Log.Format = "console"
    }
    if len(c.Log.Outputs) == 0 {
        c.Log.Outputs = []string{"stderr"}
    }
    if _, err := c.KeyBytes(); err != nil {
        return err
    }
    return nil
}

// Endpoint returns address:port suitable for net.Dial.
func (c *Config) Endpoint() string {
    return joinHostPort(c.Address, c.Port)
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
    cfg, err := Load(path)
    if err != nil {
        panic(err)
    }
    return cfg
}
