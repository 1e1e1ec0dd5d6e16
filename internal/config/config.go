package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Mode string `yaml:"mode"` // dev | prod, drives logger config
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey         string `yaml:"apiKey"`
		Model          string `yaml:"model"`
		EmbeddingModel string `yaml:"embeddingModel"`
	} `yaml:"openai"`

	Qdrant struct {
		URL        string `yaml:"url"`
		APIKey     string `yaml:"apiKey"`
		Collection string `yaml:"collection"`
		VectorDim  int    `yaml:"vectorDim"`
	} `yaml:"qdrant"`

	Analysis struct {
		MinScore          float64 `yaml:"minScore"`
		SearchLimit       int     `yaml:"searchLimit"`
		DigestMinScore    float64 `yaml:"digestMinScore"`
		DigestSearchLimit int     `yaml:"digestSearchLimit"`
		SafetyFactor      float64 `yaml:"safetyFactor"`
	} `yaml:"analysis"`

	Digest struct {
		Cron string `yaml:"cron"`
	} `yaml:"digest"`
}

// Load reads and validates the yaml config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "materials"
	}
	if c.Qdrant.VectorDim <= 0 {
		// text-embedding-3-small dimensionality
		c.Qdrant.VectorDim = 1536
	}
	if c.Analysis.MinScore <= 0 {
		c.Analysis.MinScore = 0.30
	}
	if c.Analysis.SearchLimit <= 0 {
		c.Analysis.SearchLimit = 1000
	}
	if c.Analysis.DigestMinScore <= 0 {
		c.Analysis.DigestMinScore = c.Analysis.MinScore
	}
	if c.Analysis.DigestSearchLimit <= 0 {
		c.Analysis.DigestSearchLimit = 10000
	}
	if c.Analysis.SafetyFactor <= 0 || c.Analysis.SafetyFactor >= 1 {
		c.Analysis.SafetyFactor = 0.8
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 9 * * *"
	}
}

// MySQLDSN builds the DSN for the mysql driver
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the connection string for lib/pq
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}
