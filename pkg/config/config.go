package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Database struct {
		URL       string `yaml:"url"`
		ListLimit int    `yaml:"list_limit"`
	} `yaml:"database"`

	Embedding struct {
		APIKey            string        `yaml:"api_key"`
		Model             string        `yaml:"model"`
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
	} `yaml:"embedding"`

	LLM struct {
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model"`
		MaxTokens   int           `yaml:"max_tokens"`
		Temperature float64       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`

	Ingest struct {
		ChunkTokens     int           `yaml:"chunk_tokens"`
		ChunkOverlap    int           `yaml:"chunk_overlap"`
		MaxFileMB       int           `yaml:"max_file_mb"`
		MaxTotalMB      int           `yaml:"max_total_mb"`
		StageTTL        time.Duration `yaml:"stage_ttl"`
		JanitorInterval time.Duration `yaml:"janitor_interval"`
	} `yaml:"ingest"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/vasdom/knowledge.yaml"),
			"/etc/vasdom/knowledge.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if config.Database.ListLimit == 0 {
		config.Database.ListLimit = 200
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = "text-embedding-3-large"
	}
	if config.Embedding.Timeout == 0 {
		config.Embedding.Timeout = 30 * time.Second
	}
	if config.Embedding.RequestsPerSecond == 0 {
		config.Embedding.RequestsPerSecond = 5
	}

	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-4o-mini"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 400
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.3
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 30 * time.Second
	}

	if config.Ingest.ChunkTokens == 0 {
		config.Ingest.ChunkTokens = 1200
	}
	if config.Ingest.ChunkOverlap == 0 {
		config.Ingest.ChunkOverlap = 200
	}
	if config.Ingest.MaxFileMB == 0 {
		config.Ingest.MaxFileMB = 50
	}
	if config.Ingest.MaxTotalMB == 0 {
		config.Ingest.MaxTotalMB = 200
	}
	if config.Ingest.StageTTL == 0 {
		config.Ingest.StageTTL = 6 * time.Hour
	}
	if config.Ingest.JanitorInterval == 0 {
		config.Ingest.JanitorInterval = 30 * time.Minute
	}
}

func mergeWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.Embedding.APIKey = key
	}
	if key := os.Getenv("EMERGENT_LLM_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if mb, err := strconv.Atoi(os.Getenv("AI_MAX_FILE_MB")); err == nil && mb > 0 {
		config.Ingest.MaxFileMB = mb
	}
	if mb, err := strconv.Atoi(os.Getenv("AI_MAX_TOTAL_MB")); err == nil && mb > 0 {
		config.Ingest.MaxTotalMB = mb
	}
}

// MaxFileBytes returns the per-file ingestion ceiling in bytes.
func (c *Config) MaxFileBytes() int64 {
	return int64(c.Ingest.MaxFileMB) * 1024 * 1024
}

// MaxTotalBytes returns the aggregate ingestion ceiling in bytes.
func (c *Config) MaxTotalBytes() int64 {
	return int64(c.Ingest.MaxTotalMB) * 1024 * 1024
}
