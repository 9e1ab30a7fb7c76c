package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const defaultConfigFile = "client.toml"

type Config struct {
	// Backend
	APIURL         string
	APIPort        string
	GoogleClientID string
	RequestTimeout time.Duration
	ProcessTimeout time.Duration

	// Event stream
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	// Session
	SessionDatabaseURL string
	StateDir           string

	// Local status API
	StatusAddr     string
	StatusAPIToken string

	// Logging
	LogLevel    string
	LogFormat   string
	Environment string
}

func Default() *Config {
	stateDir := defaultStateDir()
	return &Config{
		RequestTimeout:    30 * time.Second,
		ProcessTimeout:    60 * time.Second,
		ReconnectAttempts: 5,
		ReconnectDelay:    time.Second,
		StateDir:          stateDir,
		StatusAddr:        "127.0.0.1:8787",
		LogLevel:          "info",
		LogFormat:         "text",
		Environment:       "development",
	}
}

// Load layers defaults, the optional TOML file and environment variables, in
// that order, then validates the result.
func Load() (*Config, error) {
	cfg := Default()

	path := getEnv("CONFIG_FILE", "")
	required := path != ""
	if path == "" {
		path = defaultConfigFile
	}
	if err := cfg.loadFile(path, required); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc.apply(c)
}

// fileConfig mirrors Config with durations kept as strings ("30s").
type fileConfig struct {
	APIURL             string `toml:"api_url"`
	APIPort            string `toml:"api_port"`
	GoogleClientID     string `toml:"google_client_id"`
	RequestTimeout     string `toml:"request_timeout"`
	ProcessTimeout     string `toml:"process_timeout"`
	ReconnectAttempts  *int   `toml:"reconnect_attempts"`
	ReconnectDelay     string `toml:"reconnect_delay"`
	SessionDatabaseURL string `toml:"session_database_url"`
	StateDir           string `toml:"state_dir"`
	StatusAddr         string `toml:"status_addr"`
	StatusAPIToken     string `toml:"status_api_token"`
	LogLevel           string `toml:"log_level"`
	LogFormat          string `toml:"log_format"`
	Environment        string `toml:"environment"`
}

func (fc fileConfig) apply(c *Config) error {
	setString(&c.APIURL, fc.APIURL)
	setString(&c.APIPort, fc.APIPort)
	setString(&c.GoogleClientID, fc.GoogleClientID)
	setString(&c.SessionDatabaseURL, fc.SessionDatabaseURL)
	setString(&c.StateDir, fc.StateDir)
	setString(&c.StatusAddr, fc.StatusAddr)
	setString(&c.StatusAPIToken, fc.StatusAPIToken)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.Environment, fc.Environment)
	if fc.ReconnectAttempts != nil {
		c.ReconnectAttempts = *fc.ReconnectAttempts
	}

	durations := []struct {
		key    string
		raw    string
		target *time.Duration
	}{
		{"request_timeout", fc.RequestTimeout, &c.RequestTimeout},
		{"process_timeout", fc.ProcessTimeout, &c.ProcessTimeout},
		{"reconnect_delay", fc.ReconnectDelay, &c.ReconnectDelay},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: %w", d.key, err)
		}
		*d.target = parsed
	}
	return nil
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func (c *Config) applyEnv() error {
	c.APIURL = getEnv("API_URL", c.APIURL)
	c.APIPort = getEnv("API_PORT", c.APIPort)
	c.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", c.GoogleClientID)

	c.SessionDatabaseURL = getEnv("SESSION_DATABASE_URL", c.SessionDatabaseURL)
	c.StateDir = getEnv("STATE_DIR", c.StateDir)

	c.StatusAddr = getEnv("STATUS_ADDR", c.StatusAddr)
	c.StatusAPIToken = getEnv("STATUS_API_TOKEN", c.StatusAPIToken)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	var err error
	if c.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.ProcessTimeout, err = getDuration("PROCESS_TIMEOUT", c.ProcessTimeout); err != nil {
		return err
	}
	if c.ReconnectDelay, err = getDuration("RECONNECT_DELAY", c.ReconnectDelay); err != nil {
		return err
	}
	if c.ReconnectAttempts, err = getInt("RECONNECT_ATTEMPTS", c.ReconnectAttempts); err != nil {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("API_URL is required")
	}
	if c.APIPort == "" {
		return fmt.Errorf("API_PORT is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if _, err := strconv.Atoi(c.APIPort); err != nil {
		return fmt.Errorf("API_PORT must be numeric, got %q", c.APIPort)
	}
	if c.ReconnectAttempts < 0 {
		return fmt.Errorf("RECONNECT_ATTEMPTS must not be negative")
	}
	if c.ProcessTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// GoogleSignInEnabled reports whether the optional OAuth client id is set.
func (c *Config) GoogleSignInEnabled() bool {
	return strings.TrimSpace(c.GoogleClientID) != ""
}

// BackendURL resolves the HTTP base URL. A bare IPv4 host is paired with
// API_PORT; a named host is used exactly as configured.
func (c *Config) BackendURL() string {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return strings.TrimSuffix(c.APIURL, "/")
	}
	if ip := net.ParseIP(u.Hostname()); ip != nil && ip.To4() != nil {
		return "http://" + net.JoinHostPort(u.Hostname(), c.APIPort)
	}
	return strings.TrimSuffix(c.APIURL, "/")
}

// SessionDSN returns the session database location, defaulting to a SQLite
// file inside StateDir.
func (c *Config) SessionDSN() string {
	if c.SessionDatabaseURL != "" {
		return c.SessionDatabaseURL
	}
	return filepath.Join(c.StateDir, "session.db")
}

// SocketURL is the origin of the event stream. The socket.io client appends
// its own path and switches to ws(s) for the websocket transport.
func (c *Config) SocketURL() string {
	u, err := url.Parse(c.BackendURL())
	if err != nil {
		return ""
	}
	u.Path = ""
	u.RawQuery = ""
	return u.String()
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "image-studio")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
