package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// ExtractionPrompts overrides the built-in prompt templates. Empty fields
// keep the defaults.
type ExtractionPrompts struct {
	Classify string `toml:"classify"`
	Invoice  string `toml:"invoice"`
	Contract string `toml:"contract"`
	Paystub  string `toml:"paystub"`
	// MaxInputTokens truncates the document text before extraction; 0 disables.
	MaxInputTokens int `toml:"max_input_tokens" validate:"gte=0"`
}

type LLMConfig struct {
	Provider string `toml:"provider" validate:"oneof=openai gemini claude ollama"`
	Model    string `toml:"model" validate:"required"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type EmbeddingConfig struct {
	Provider string `toml:"provider" validate:"oneof=openai gemini ollama"`
	Model    string `toml:"model" validate:"required"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type Neo4jConfig struct {
	URI      string `toml:"uri" validate:"required"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

type ParserConfig struct {
	Backend      string   `toml:"backend" validate:"oneof=llamaparse local"`
	APIKey       string   `toml:"api_key"`
	BaseURL      string   `toml:"base_url" validate:"omitempty,url"`
	PollInterval Duration `toml:"poll_interval"`
	Timeout      Duration `toml:"timeout"`
}

type CacheConfig struct {
	Backend  string `toml:"backend" validate:"oneof=file memory s3"`
	Dir      string `toml:"dir" validate:"required_if=Backend file"`
	Bucket   string `toml:"bucket" validate:"required_if=Backend s3"`
	Prefix   string `toml:"prefix"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`
	// Static S3 credentials; empty uses the default AWS chain.
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

type PipelineConfig struct {
	Workers         int      `toml:"workers" validate:"gte=1"`
	MaxRetries      uint64   `toml:"max_retries"`
	InitialInterval Duration `toml:"initial_interval"`
	MaxInterval     Duration `toml:"max_interval"`
	DryRun          bool     `toml:"dry_run"`
}

type CorpusConfig struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

type ServerConfig struct {
	Addr string `toml:"addr" validate:"required"`
	// Root confines paths accepted by POST /ingest.
	Root string `toml:"root"`
}

type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

type Config struct {
	LLM        LLMConfig         `toml:"llm"`
	Embedding  EmbeddingConfig   `toml:"embedding"`
	Neo4j      Neo4jConfig       `toml:"neo4j"`
	Parser     ParserConfig      `toml:"parser"`
	Cache      CacheConfig       `toml:"cache"`
	Pipeline   PipelineConfig    `toml:"pipeline"`
	Corpus     CorpusConfig      `toml:"corpus"`
	Extraction ExtractionPrompts `toml:"extraction"`
	Server     ServerConfig      `toml:"server"`
	Log        LogConfig         `toml:"log"`
}

// Duration decodes TOML strings such as "5s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Embedding: EmbeddingConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Neo4j: Neo4jConfig{
			URI:  "bolt://localhost:7687",
			User: "neo4j",
		},
		Parser: ParserConfig{
			Backend:      "llamaparse",
			BaseURL:      "https://api.cloud.llamaindex.ai/api/parsing",
			PollInterval: Duration{5 * time.Second},
			Timeout:      Duration{5 * time.Minute},
		},
		Cache: CacheConfig{
			Backend: "file",
			Dir:     ".cache",
		},
		Pipeline: PipelineConfig{
			Workers:         1,
			MaxRetries:      3,
			InitialInterval: Duration{500 * time.Millisecond},
			MaxInterval:     Duration{10 * time.Second},
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads a TOML file on top of Default. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	setString(&c.Neo4j.URI, "NEO4J_URI")
	setString(&c.Neo4j.User, "NEO4J_USERNAME")
	setString(&c.Neo4j.Password, "NEO4J_PASSWORD")
	setString(&c.Neo4j.Database, "NEO4J_DATABASE")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")

	setString(&c.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&c.Embedding.Model, "LLM_EMBEDDING_MODEL")
	setString(&c.Embedding.APIKey, "EMBEDDING_API_KEY")
	setString(&c.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	if c.Embedding.APIKey == "" && c.Embedding.Provider == c.LLM.Provider {
		c.Embedding.APIKey = c.LLM.APIKey
	}

	setString(&c.Parser.Backend, "PARSER_BACKEND")
	setString(&c.Parser.APIKey, "LLAMA_PARSE_API_KEY")

	setString(&c.Cache.Backend, "CACHE_BACKEND")
	setString(&c.Cache.Dir, "CACHE_DIR")
	setString(&c.Cache.Bucket, "CACHE_BUCKET")
	setString(&c.Cache.Region, "AWS_REGION")
	setString(&c.Cache.Endpoint, "AWS_ENDPOINT")
	setString(&c.Cache.AccessKey, "CACHE_ACCESS_KEY")
	setString(&c.Cache.SecretKey, "CACHE_SECRET_KEY")

	if v := os.Getenv("PIPELINE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.Workers = n
		}
	}
	setString(&c.Server.Addr, "SERVER_ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
