package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Database  DatabaseConfig   `json:"database"`
	Embedding EmbeddingConfig  `json:"embedding"`
	Retrieval RetrievalConfig  `json:"retrieval"`
	Chunking  ChunkingConfig   `json:"chunking"`
	Vault     VaultConfig      `json:"vault"`
	Schedule  ScheduleConfig   `json:"schedule"`
	LogConfig logger.LogConfig `json:"log_config"`
}

type DatabaseConfig struct {
	Type       string `json:"type"` // postgres or memory
	DSN        string `json:"dsn"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	User       string `json:"user"`
	Password   string `json:"password"`
	DBName     string `json:"db_name"`
	SSLMode    string `json:"ssl_mode"`
	Collection string `json:"collection"`
}

type EmbeddingConfig struct {
	Provider  string      `json:"provider"`
	Model     string      `json:"model"`
	CacheSize int         `json:"cache_size"`
	CacheTTL  int         `json:"cache_ttl_seconds"`
	Data      interface{} `json:"data"`
}

type RetrievalConfig struct {
	TopK           int     `json:"top_k"`
	SemanticWeight float64 `json:"semantic_weight"`
	KeywordWeight  float64 `json:"keyword_weight"`
	ThreatWeight   float64 `json:"threat_weight"`
}

type ChunkingConfig struct {
	Size    int    `json:"size"`
	Overlap int    `json:"overlap"`
	Mode    string `json:"mode"`
}

type VaultConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ScheduleConfig struct {
	VaultIngestSpec string `json:"vault_ingest_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	switch cfg.Database.Type {
	case "postgres":
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return nil, fmt.Errorf("database.dsn or database.host is required")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("database.type must be postgres or memory")
	}
	if cfg.Database.Collection == "" {
		cfg.Database.Collection = "idcsa_docs"
	}
	if cfg.Embedding.Provider == "" {
		return nil, fmt.Errorf("embedding.provider is required")
	}
	if cfg.Embedding.Model == "" {
		return nil, fmt.Errorf("embedding.model is required")
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.SemanticWeight == 0 && cfg.Retrieval.KeywordWeight == 0 && cfg.Retrieval.ThreatWeight == 0 {
		cfg.Retrieval.SemanticWeight = 0.7
		cfg.Retrieval.KeywordWeight = 0.2
		cfg.Retrieval.ThreatWeight = 0.1
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 1000
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 150
	}
	if cfg.Chunking.Mode == "" {
		cfg.Chunking.Mode = "fixed"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	return &cfg, nil
}
