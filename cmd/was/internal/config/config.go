package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DiscoveryMode represents where the site document is loaded from
type DiscoveryMode string

const (
	DiscoveryFile       DiscoveryMode = "file"
	DiscoveryKubernetes DiscoveryMode = "kubernetes"
)

// Config holds all application configuration
type Config struct {
	// Core
	Debug           bool
	ServerSignature string

	// Server
	HealthServerPort string
	WorkerCount      int // 0 keeps the site document's threadCount
	ReadTimeout      time.Duration

	// Security rules
	DeniedExtensions []string

	// Site discovery
	DiscoveryMode     DiscoveryMode
	SitesFile         string
	SitesConfigMap    string
	SitesConfigMapKey string
	Namespace         string
	KubeConfigPath    string
	KubeContext       string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Core
		Debug:           getEnvBool("DEBUG", false),
		ServerSignature: getEnv("SERVER_SIGNATURE", "SimpleWas"),

		// Server
		HealthServerPort: os.Getenv("HEALTH_SERVER_PORT"),
		WorkerCount:      getEnvInt("WORKER_COUNT", 0),
		ReadTimeout:      getEnvDuration("READ_TIMEOUT", 30*time.Second),

		// Security rules
		DeniedExtensions: getEnvList("DENIED_EXTENSIONS", []string{"exe"}),

		// Site discovery
		DiscoveryMode:     determineDiscoveryMode(),
		SitesFile:         getEnv("SITES_FILE", "server.json"),
		SitesConfigMap:    getEnv("SITES_CONFIGMAP", ""),
		SitesConfigMapKey: getEnv("SITES_CONFIGMAP_KEY", "server.json"),
		Namespace:         determineNamespace(),
		KubeConfigPath:    getEnv("KUBECONFIG", ""),
		KubeContext:       getEnv("KUBE_CONTEXT", ""),
	}

	if _, ok := os.LookupEnv("HEALTH_SERVER_PORT"); !ok {
		cfg.HealthServerPort = "8081"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate ensures configuration is coherent
func (c *Config) validate() error {
	if c.WorkerCount < 0 {
		return fmt.Errorf("WORKER_COUNT must not be negative: %d", c.WorkerCount)
	}

	if c.ReadTimeout < 0 {
		return fmt.Errorf("READ_TIMEOUT must not be negative: %s", c.ReadTimeout)
	}

	switch c.DiscoveryMode {
	case DiscoveryFile:
		if c.SitesFile == "" {
			return fmt.Errorf("SITES_FILE must be set when using file discovery")
		}
	case DiscoveryKubernetes:
		if c.SitesConfigMap == "" {
			return fmt.Errorf("SITES_CONFIGMAP must be set when using kubernetes discovery")
		}
	default:
		return fmt.Errorf("unsupported DISCOVERY_MODE: %s (supported: %s, %s)",
			c.DiscoveryMode, DiscoveryFile, DiscoveryKubernetes)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func determineDiscoveryMode() DiscoveryMode {
	// Explicit mode
	if mode := os.Getenv("DISCOVERY_MODE"); mode != "" {
		switch strings.ToLower(mode) {
		case "kubernetes", "k8s", "configmap":
			return DiscoveryKubernetes
		case "file", "static":
			return DiscoveryFile
		}
		return DiscoveryMode(strings.ToLower(mode))
	}

	// Auto-detect: ConfigMap if SITES_CONFIGMAP is set
	if os.Getenv("SITES_CONFIGMAP") != "" {
		return DiscoveryKubernetes
	}

	return DiscoveryFile
}

func determineNamespace() string {
	// Explicit namespace
	if ns := os.Getenv("NAMESPACE"); ns != "" {
		return ns
	}

	// Kubernetes downward API
	if ns := os.Getenv("POD_NAMESPACE"); ns != "" {
		return ns
	}

	// Read from service account (in-cluster)
	if data, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace"); err == nil {
		return strings.TrimSpace(string(data))
	}

	return "default"
}
