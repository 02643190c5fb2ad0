package config

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"sync"
	"time"
)

// Config holds all application configuration values for the Xtream gateway.
// It covers the HTTP surface, the catalog/account database, EPG windows and
// the background write pool.
type Config struct {
	BaseURL          string        `json:"baseURL"`          // Public base URL of this gateway (used in playlists and server_info)
	ListenAddr       string        `json:"listenAddr"`       // Address for the HTTP listener (e.g. ":8080")
	DatabasePath     string        `json:"databasePath"`     // Path to the SQLite catalog/account database
	LogLevel         string        `json:"logLevel"`         // Log level: DEBUG, INFO, WARN, ERROR
	Debug            bool          `json:"debug"`            // Enable debug logging
	ObfuscateUrls    bool          `json:"obfuscateUrls"`    // Obfuscate upstream URLs in logs
	ServerName       string        `json:"serverName"`       // Server name reported in server_info
	Timezone         string        `json:"timezone"`         // Timezone reported in server_info
	HTTPPort         string        `json:"httpPort"`         // Port advertised to Xtream clients
	HTTPSPort        string        `json:"httpsPort"`        // HTTPS port advertised to Xtream clients
	RTMPPort         string        `json:"rtmpPort"`         // RTMP port advertised to Xtream clients
	ShortEPGLimit    int           `json:"shortEpgLimit"`    // Default listing count for get_short_epg
	XMLTVPastWindow  time.Duration `json:"xmltvPastWindow"`  // Trailing window included in XMLTV export
	XMLTVAheadWindow time.Duration `json:"xmltvAheadWindow"` // Forward window included in XMLTV export
	XMLTVCacheTTL    time.Duration `json:"xmltvCacheTtl"`    // TTL for the rendered XMLTV document cache
	WorkerThreads    int           `json:"workerThreads"`    // Worker pool size for async store writes
	SessionWriteRate int           `json:"sessionWriteRate"` // Max async store writes submitted per second
}

// ConfigFile represents the JSON file structure for unmarshaling configuration.
// Duration fields are strings (e.g. "24h") parsed into time.Duration values.
type ConfigFile struct {
	BaseURL          string `json:"baseURL"`
	ListenAddr       string `json:"listenAddr"`
	DatabasePath     string `json:"databasePath"`
	LogLevel         string `json:"logLevel"`
	Debug            bool   `json:"debug"`
	ObfuscateUrls    bool   `json:"obfuscateUrls"`
	ServerName       string `json:"serverName"`
	Timezone         string `json:"timezone"`
	HTTPPort         string `json:"httpPort"`
	HTTPSPort        string `json:"httpsPort"`
	RTMPPort         string `json:"rtmpPort"`
	ShortEPGLimit    int    `json:"shortEpgLimit"`
	XMLTVPastWindow  string `json:"xmltvPastWindow"`  // Duration string (e.g. "24h")
	XMLTVAheadWindow string `json:"xmltvAheadWindow"` // Duration string (e.g. "168h")
	XMLTVCacheTTL    string `json:"xmltvCacheTtl"`    // Duration string (e.g. "1h")
	WorkerThreads    int    `json:"workerThreads"`
	SessionWriteRate int    `json:"sessionWriteRate"`
}

var (
	configCache *Config      // Cached configuration instance (singleton)
	configMutex sync.RWMutex // Mutex for safe concurrent access to configCache
)

// DefaultPath is where LoadConfig looks when XC_GATE_CONFIG is not set.
const DefaultPath = "/settings/config.json"

// LoadConfig loads the configuration from file or returns the cached instance.
//
// Process:
//   - Uses double-checked locking to avoid redundant reloads.
//   - Attempts to load from XC_GATE_CONFIG, falling back to DefaultPath.
//   - Falls back to default config if the file is missing or invalid.
//   - Runs validation to ensure safe defaults.
func LoadConfig() *Config {
	configMutex.RLock()
	if configCache != nil {
		defer configMutex.RUnlock()
		return configCache
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	// Double-check under write lock
	if configCache != nil {
		return configCache
	}

	configPath := os.Getenv("XC_GATE_CONFIG")
	if configPath == "" {
		configPath = DefaultPath
	}

	config, err := loadFromFile(configPath)
	if err != nil {
		log.Printf("Failed to load config from %s: %v", configPath, err)
		log.Printf("Falling back to default configuration...")
		config = getDefaultConfig()
	}

	validateAndSetDefaults(config)
	configCache = config

	if config.Debug {
		log.Printf("Configuration loaded:")
		log.Printf("  Base URL: %s", config.BaseURL)
		log.Printf("  Listen Addr: %s", config.ListenAddr)
		log.Printf("  Database: %s", config.DatabasePath)
		log.Printf("  XMLTV window: -%s / +%s", config.XMLTVPastWindow, config.XMLTVAheadWindow)
	}

	return config
}

// loadFromFile reads and parses the configuration from a JSON file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var configFile ConfigFile
	if err := json.Unmarshal(data, &configFile); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return convertFromFile(&configFile)
}

// convertFromFile converts a ConfigFile to Config,
// parsing duration strings into time.Duration.
func convertFromFile(cf *ConfigFile) (*Config, error) {
	config := &Config{
		BaseURL:          cf.BaseURL,
		ListenAddr:       cf.ListenAddr,
		DatabasePath:     cf.DatabasePath,
		LogLevel:         cf.LogLevel,
		Debug:            cf.Debug,
		ObfuscateUrls:    cf.ObfuscateUrls,
		ServerName:       cf.ServerName,
		Timezone:         cf.Timezone,
		HTTPPort:         cf.HTTPPort,
		HTTPSPort:        cf.HTTPSPort,
		RTMPPort:         cf.RTMPPort,
		ShortEPGLimit:    cf.ShortEPGLimit,
		WorkerThreads:    cf.WorkerThreads,
		SessionWriteRate: cf.SessionWriteRate,
	}

	var err error
	if cf.XMLTVPastWindow != "" {
		if config.XMLTVPastWindow, err = time.ParseDuration(cf.XMLTVPastWindow); err != nil {
			return nil, fmt.Errorf("invalid xmltvPastWindow: %w", err)
		}
	}
	if cf.XMLTVAheadWindow != "" {
		if config.XMLTVAheadWindow, err = time.ParseDuration(cf.XMLTVAheadWindow); err != nil {
			return nil, fmt.Errorf("invalid xmltvAheadWindow: %w", err)
		}
	}
	if cf.XMLTVCacheTTL != "" {
		if config.XMLTVCacheTTL, err = time.ParseDuration(cf.XMLTVCacheTTL); err != nil {
			return nil, fmt.Errorf("invalid xmltvCacheTtl: %w", err)
		}
	}

	return config, nil
}

// getDefaultConfig returns a baseline configuration
// with sensible defaults when no file is present.
func getDefaultConfig() *Config {
	return &Config{
		BaseURL:          "http://localhost:8080",
		ListenAddr:       ":8080",
		DatabasePath:     "/data/xc-gate.db",
		LogLevel:         "INFO",
		Debug:            false,
		ObfuscateUrls:    false,
		ServerName:       "xc-gate",
		Timezone:         "UTC",
		HTTPPort:         "8080",
		HTTPSPort:        "443",
		RTMPPort:         "1935",
		ShortEPGLimit:    4,
		XMLTVPastWindow:  24 * time.Hour,
		XMLTVAheadWindow: 7 * 24 * time.Hour,
		XMLTVCacheTTL:    time.Hour,
		WorkerThreads:    8,
		SessionWriteRate: 100,
	}
}

// validateAndSetDefaults ensures all config values are valid,
// filling in defaults for missing/invalid ones.
func validateAndSetDefaults(config *Config) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080"
	}
	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}
	if config.DatabasePath == "" {
		config.DatabasePath = "/data/xc-gate.db"
	}
	if config.LogLevel == "" {
		config.LogLevel = "INFO"
	}
	if config.ServerName == "" {
		config.ServerName = "xc-gate"
	}
	if config.Timezone == "" {
		config.Timezone = "UTC"
	}
	if config.HTTPPort == "" {
		config.HTTPPort = "8080"
	}
	if config.HTTPSPort == "" {
		config.HTTPSPort = "443"
	}
	if config.RTMPPort == "" {
		config.RTMPPort = "1935"
	}
	if config.ShortEPGLimit <= 0 {
		config.ShortEPGLimit = 4
	}
	if config.XMLTVPastWindow <= 0 {
		config.XMLTVPastWindow = 24 * time.Hour
	}
	if config.XMLTVAheadWindow <= 0 {
		config.XMLTVAheadWindow = 7 * 24 * time.Hour
	}
	if config.XMLTVCacheTTL <= 0 {
		config.XMLTVCacheTTL = time.Hour
	}
	if config.WorkerThreads <= 0 {
		config.WorkerThreads = 8
	}
	if config.SessionWriteRate <= 0 {
		config.SessionWriteRate = 100
	}
}

// CreateExampleConfig creates an example config file on disk.
func CreateExampleConfig(path string) error {
	example := ConfigFile{
		BaseURL:          "http://localhost:8080",
		ListenAddr:       ":8080",
		DatabasePath:     "/data/xc-gate.db",
		LogLevel:         "INFO",
		Debug:            false,
		ObfuscateUrls:    true,
		ServerName:       "xc-gate",
		Timezone:         "UTC",
		HTTPPort:         "8080",
		HTTPSPort:        "443",
		RTMPPort:         "1935",
		ShortEPGLimit:    4,
		XMLTVPastWindow:  "24h",
		XMLTVAheadWindow: "168h",
		XMLTVCacheTTL:    "1h",
		WorkerThreads:    8,
		SessionWriteRate: 100,
	}

	data, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ClearConfigCache resets the configCache to nil.
// Forces a reload on the next LoadConfig() call.
func ClearConfigCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	configCache = nil
}

// ObfuscateURL masks sensitive parts of a URL for logging.
//
// Example:
//
//	Input:  "http://example.com/secret/stream.m3u8?token=abc"
//	Output: "http://example.com/***?***"
func ObfuscateURL(urlStr string) string {
	if urlStr == "" {
		return ""
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return "***OBFUSCATED***"
	}
	result := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		result += "/***"
	}
	if u.RawQuery != "" {
		result += "?***"
	}
	if u.Fragment != "" {
		result += "#***"
	}
	return result
}

// LogURL returns either the original URL or an obfuscated version for logging.
func (c *Config) LogURL(url string) string {
	if c.ObfuscateUrls {
		return ObfuscateURL(url)
	}
	return url
}
