package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Auth    Auth    `yaml:"auth"`
	Content Content `yaml:"content"`
}

type Server struct {
	ListenAddr    string `yaml:"listenAddr"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Auth struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"tokenTTL"`
}

type Content struct {
	DefaultLocale string           `yaml:"defaultLocale"`
	Collections   []CollectionSpec `yaml:"collections"`
}

// CollectionSpec declares a content type in the config file. Collections
// registered in code take precedence over declarations with the same name.
type CollectionSpec struct {
	Name          string      `yaml:"name"`
	SchemaVersion int         `yaml:"schemaVersion"`
	Fields        []FieldSpec `yaml:"fields"`
}

type FieldSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = ":8000"
	}
	if config.Content.DefaultLocale == "" {
		config.Content.DefaultLocale = "en"
	}
	if config.Auth.Issuer == "" {
		config.Auth.Issuer = "palimpsest"
	}
	if config.Auth.TokenTTL == 0 {
		config.Auth.TokenTTL = 24 * time.Hour
	}

	return config, nil
}
