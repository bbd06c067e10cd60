package config

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	// Batch inputs
	InputCSV   string
	OutputCSV  string
	CacheDir   string
	AskRepeats int

	// Inference configuration
	Model     string
	Timeout   time.Duration
	OllamaURL string
	NatsURL   string
	ClientID  string

	// Audit store (empty disables)
	AuditDB string
}

// Load fills environment-backed defaults. Values the CLI surface
// exposes as flags are applied on top by the command layer.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := loadDotEnv(envFile); err != nil {
			slog.Warn("Could not load env file", "file", envFile, "error", err)
		} else {
			slog.Info("Environment loaded", "file", envFile)
		}
	}

	return &Config{
		CacheDir:   getEnv("CACHE_DIR", "./code_cache"),
		AskRepeats: 5,
		Timeout:    getEnvDuration("MODEL_TIMEOUT", "180s"),
		OllamaURL:  getEnv("OLLAMA_URL", "http://localhost:11434"),
		NatsURL:    getEnv("NATS_URL", ""),
		ClientID:   getEnv("CLIENT_ID", "estimate-time"),
		AuditDB:    getEnv("AUDIT_DB", ""),
	}, nil
}

func loadDotEnv(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key, defaultVal string) time.Duration {
	val := getEnv(key, defaultVal)
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaultVal)
	return d
}
