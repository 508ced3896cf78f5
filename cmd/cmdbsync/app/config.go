package app

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/agentstation/cmdbsync/internal/auth"
	"github.com/agentstation/cmdbsync/pkg/constants"
	"github.com/agentstation/cmdbsync/pkg/errors"
)

// Setting keys. They double as flag names; environment variables use the
// CMDBSYNC_ prefix with dashes replaced by underscores.
const (
	keyConfig         = "config"
	keyReadEndpoint   = "cmdb-read-endpoint"
	keyWriteEndpoint  = "cmdb-write-endpoint"
	keyAllowInsecure  = "cmdb-allow-insecure"
	keyClientID       = "oidc-client-id"
	keyClientSecret   = "oidc-client-secret"
	keyTokenEndpoint  = "oidc-token-endpoint"
	keyUsername       = "oidc-username"
	keyPassword       = "oidc-password"
	keySiteName       = "sitename"
	keyDeleteNonLocal = "delete-non-local-images"
	keyDryRun         = "dry-run"
	keyInput          = "input"
	keyMetricsFile    = "metrics-file"
	keyTimeout        = "timeout"
	keyVerbose        = "verbose"
	keyQuiet          = "quiet"
	keyDebug          = "debug"
	keyOutput         = "output"
	keyFormat         = "format"
	keyLogLevel       = "log-level"
)

// Config holds the application configuration loaded from flags,
// environment variables, .env files and the config file.
type Config struct {
	// Config file
	ConfigFile string

	// Catalog
	ReadEndpoint  string
	WriteEndpoint string
	AllowInsecure bool

	// OIDC password grant
	ClientID      string
	ClientSecret  string
	TokenEndpoint string
	Username      string
	Password      string

	// Run
	SiteName       string
	DeleteNonLocal bool
	DryRun         bool
	Input          string
	MetricsFile    string
	Timeout        time.Duration

	// Global flags
	Verbose bool
	Quiet   bool
	Debug   bool
	Format  string

	// Logging configuration
	LogLevel    string // --log-level or CMDBSYNC_LOG_LEVEL
	EnvLogLevel string // LOG_LEVEL
	LogFormat   string
	LogOutput   string
}

// newViper creates a viper instance reading .env files, CMDBSYNC_*
// environment variables and defaults.
func newViper() *viper.Viper {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyReadEndpoint, constants.DefaultReadEndpoint)
	v.SetDefault(keyWriteEndpoint, constants.DefaultWriteEndpoint)
	v.SetDefault(keyTimeout, constants.SyncTimeout)
	return v
}

// LoadConfig builds the configuration in order of precedence:
//  1. Command-line flags bound with BindFlags
//  2. Environment variables (CMDBSYNC_*)
//  3. .env files
//  4. Config file (--config or ~/.cmdbsync.yaml)
//  5. Defaults
func LoadConfig(v *viper.Viper) (*Config, error) {
	if configFile := v.GetString(keyConfig); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+configFile, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.ConfigFileName)
		// The default config file is optional
		_ = v.ReadInConfig()
	}

	return &Config{
		ConfigFile: v.ConfigFileUsed(),

		ReadEndpoint:  v.GetString(keyReadEndpoint),
		WriteEndpoint: v.GetString(keyWriteEndpoint),
		AllowInsecure: v.GetBool(keyAllowInsecure),

		ClientID:      v.GetString(keyClientID),
		ClientSecret:  v.GetString(keyClientSecret),
		TokenEndpoint: v.GetString(keyTokenEndpoint),
		Username:      v.GetString(keyUsername),
		Password:      v.GetString(keyPassword),

		SiteName:       v.GetString(keySiteName),
		DeleteNonLocal: v.GetBool(keyDeleteNonLocal),
		DryRun:         v.GetBool(keyDryRun),
		Input:          v.GetString(keyInput),
		MetricsFile:    v.GetString(keyMetricsFile),
		Timeout:        v.GetDuration(keyTimeout),

		Verbose: v.GetBool(keyVerbose),
		Quiet:   v.GetBool(keyQuiet),
		Debug:   v.GetBool(keyDebug),
		Format:  firstNonEmpty(v.GetString(keyOutput), v.GetString(keyFormat)),

		LogLevel:    v.GetString(keyLogLevel),
		EnvLogLevel: os.Getenv("LOG_LEVEL"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput:   getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}, nil
}

// BindFlags binds every flag of fs to v so flag values take precedence.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if err := v.BindPFlags(fs); err != nil {
		return errors.NewConfigError("flags", "cannot bind flags", err)
	}
	return nil
}

// Credentials returns the OIDC settings for the token provider.
func (c *Config) Credentials() auth.Credentials {
	return auth.Credentials{
		ClientID:      c.ClientID,
		ClientSecret:  c.ClientSecret,
		Username:      c.Username,
		Password:      c.Password,
		TokenEndpoint: c.TokenEndpoint,
		Scopes:        strings.Fields(constants.DefaultOIDCScopes),
	}
}

// ValidateRead checks the settings every command that reads the catalog
// needs.
func (c *Config) ValidateRead() error {
	if strings.TrimSpace(c.SiteName) == "" {
		return errors.NewConfigError(keySiteName, "a site name is required (--sitename or CMDBSYNC_SITENAME)", nil)
	}
	if err := validateURL(keyReadEndpoint, c.ReadEndpoint); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return errors.NewConfigError(keyTimeout, "must be non-negative", nil)
	}
	return nil
}

// ValidateWrite checks the write endpoint and the OIDC credentials.
func (c *Config) ValidateWrite() error {
	if err := validateURL(keyWriteEndpoint, c.WriteEndpoint); err != nil {
		return err
	}
	return c.ValidateCredentials()
}

// ValidateCredentials checks the OIDC settings locally and names every
// missing or invalid one.
func (c *Config) ValidateCredentials() error {
	problems := auth.Problems(auth.Check(c.Credentials()))
	if len(problems) == 0 {
		return nil
	}
	summaries := make([]string, len(problems))
	for i, p := range problems {
		summaries[i] = p.Summary
	}
	return errors.NewConfigError("oidc", strings.Join(summaries, "; "), nil)
}

func validateURL(setting, value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.NewConfigError(setting, "must be an http(s) URL", err)
	}
	return nil
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		// godotenv.Load never overrides variables that are already set, so
		// the file loaded first wins.
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
