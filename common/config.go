package common

import (
	"encoding/json"
	"os"
	"path"
	"strconv"
	"strings"
)

type Config struct {
	ListenAddr        string `json:"listen_addr"`
	RedisAddr         string `json:"redis_addr"`
	RedisPassword     string `json:"redis_password"`
	RedisPrefix       string `json:"redis_prefix"`
	SessionTTLMinutes int    `json:"session_ttl_minutes"`

	CatalogServiceURL string `json:"catalog_service_url"`
	CatalogAPIKey     string `json:"catalog_api_key"`
	OrderServiceURL   string `json:"order_service_url"`
	OrderAPIKey       string `json:"order_api_key"`

	ApiFrontendKey string `json:"api_frontend_key"`
}

func LoadConfig(dir string) (*Config, error) {
	cfg := DefaultConfig()

	// Load config (JSON + env overrides)
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = DEFAULT_CONFIG_FILE
	}

	if !strings.HasPrefix(configPath, "/") && dir != "" {
		configPath = path.Join(dir, configPath)
	}

	if _, err := os.Stat(configPath); err == nil {
		fileCfg, err := LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg.applyConfigOverrides(fileCfg)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		f, err := os.Open(path)
		if err == nil {
			defer f.Close()
			dec := json.NewDecoder(f)
			_ = dec.Decode(&cfg) // ignore error, fallback to env/defaults
		}
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		ListenAddr:        DEFAULT_LISTEN_ADDR,
		RedisAddr:         DEFAULT_REDIS_ADDR,
		RedisPassword:     "",
		RedisPrefix:       DEFAULT_REDIS_PREFIX,
		SessionTTLMinutes: DEFAULT_SESSION_TTL_MINUTES,
		CatalogServiceURL: DEFAULT_CATALOG_SERVICE_URL,
		CatalogAPIKey:     "",
		OrderServiceURL:   DEFAULT_ORDER_SERVICE_URL,
		OrderAPIKey:       "",
		ApiFrontendKey:    "",
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("REDIS_PREFIX"); v != "" {
		c.RedisPrefix = v
	}
	if v := os.Getenv("SESSION_TTL_MINUTES"); v != "" {
		c.SessionTTLMinutes = atoiOrDefault(v, c.SessionTTLMinutes)
	}
	if v := os.Getenv("CATALOG_SERVICE_URL"); v != "" {
		c.CatalogServiceURL = v
	}
	if v := os.Getenv("CATALOG_API_KEY"); v != "" {
		c.CatalogAPIKey = v
	}
	if v := os.Getenv("ORDER_SERVICE_URL"); v != "" {
		c.OrderServiceURL = v
	}
	if v := os.Getenv("ORDER_API_KEY"); v != "" {
		c.OrderAPIKey = v
	}
	if v := os.Getenv("API_FRONTEND_KEY"); v != "" {
		c.ApiFrontendKey = v
	}
}

func (c *Config) applyConfigOverrides(cfg *Config) {
	if cfg.ListenAddr != "" {
		c.ListenAddr = cfg.ListenAddr
	}
	if cfg.RedisAddr != "" {
		c.RedisAddr = cfg.RedisAddr
	}
	if cfg.RedisPassword != "" {
		c.RedisPassword = cfg.RedisPassword
	}
	if cfg.RedisPrefix != "" {
		c.RedisPrefix = cfg.RedisPrefix
	}
	if cfg.SessionTTLMinutes != 0 {
		c.SessionTTLMinutes = cfg.SessionTTLMinutes
	}
	if cfg.CatalogServiceURL != "" {
		c.CatalogServiceURL = cfg.CatalogServiceURL
	}
	if cfg.CatalogAPIKey != "" {
		c.CatalogAPIKey = cfg.CatalogAPIKey
	}
	if cfg.OrderServiceURL != "" {
		c.OrderServiceURL = cfg.OrderServiceURL
	}
	if cfg.OrderAPIKey != "" {
		c.OrderAPIKey = cfg.OrderAPIKey
	}
	if cfg.ApiFrontendKey != "" {
		c.ApiFrontendKey = cfg.ApiFrontendKey
	}
}

func atoiOrDefault(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
