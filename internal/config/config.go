package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"cv-rag/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Keys        APIKeys
	Ai          AIConfig
	VectorStore VectorStoreConfig
	Rag         RAGConfig
	Storage     ObjectStorageConfig
}

type AppConfig struct {
	Port               string `validate:"required"`
	Environment        string `validate:"required"`
	LogFilePath        string `validate:"required"`
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	IngestTopic        string `validate:"required"`
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	VectorStore string
	Generator   string
	Jina        string
	Gemini      string
	OpenAI      string
	HuggingFace string
}

// GeneratorKey is GENERATOR_API_KEY, or HUGGINGFACE_API_KEY for the
// huggingface generator when the former is unset.
func (c *Config) GeneratorKey() string {
	if c.Keys.Generator == "" && c.Ai.LLMProvider == "huggingface" {
		return c.Keys.HuggingFace
	}
	return c.Keys.Generator
}

type AIConfig struct {
	EmbeddingProvider  string `validate:"oneof=hashing ollama jina gemini openai langchain"`
	EmbeddingModel     string
	EmbeddingDimension int    `validate:"gt=0"`
	EmbeddingBaseURL   string
	LLMProvider        string `validate:"oneof=ollama huggingface openai groq langchain"`
	LLMModel           string `validate:"required"`
	LLMBaseURL         string
	Temperature        float64 `validate:"gte=0,lte=2"`
	MaxTokens          int     `validate:"gt=0"`
}

type VectorStoreConfig struct {
	Backend     string `validate:"oneof=memory pgvector chromem"`
	Environment string
	Cloud       string
	Region      string
	Namespace   string `validate:"required"`
	Metric      string `validate:"oneof=cosine dot"`
	ChromemPath string
	BatchSize   int `validate:"gt=0"`
}

// RAGConfig holds the retrieval tuning knobs. It can also be read from a YAML
// file named by RAG_CONFIG_FILE; environment variables win over the file.
type RAGConfig struct {
	ChunkStrategy    string        `yaml:"chunk_strategy" validate:"required"`
	ChunkSize        int           `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap     int           `yaml:"chunk_overlap" validate:"gte=0"`
	TopK             int           `yaml:"top_k" validate:"gt=0"`
	MaxContextLength int           `yaml:"max_context_length" validate:"gte=0"`
	MinScore         float64       `yaml:"min_score" validate:"gte=-1,lte=1"`
	CallTimeout      time.Duration `yaml:"call_timeout" validate:"gt=0"`
	MaxRetries       int           `yaml:"max_retries" validate:"gte=0"`
	EmbedConcurrency int           `yaml:"embed_concurrency" validate:"gt=0"`
	EmbedRateLimit   float64       `yaml:"embed_rate_limit" validate:"gte=0"`
	MaxInputChars    int           `yaml:"max_input_chars" validate:"gte=0"`
}

type ObjectStorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func defaultRAG() RAGConfig {
	return RAGConfig{
		ChunkStrategy:    "SIMPLE",
		ChunkSize:        200,
		ChunkOverlap:     50,
		TopK:             3,
		MaxContextLength: 2000,
		MinScore:         0,
		CallTimeout:      30 * time.Second,
		MaxRetries:       2,
		EmbedConcurrency: 4,
		EmbedRateLimit:   0,
		MaxInputChars:    8000,
	}
}

// Load reads .env, the optional RAG YAML overlay and the environment.
// It does not validate; call Validate before wiring components.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	rag := defaultRAG()
	if path := getEnv("RAG_CONFIG_FILE", ""); path != "" {
		if err := loadRAGFile(path, &rag); err != nil {
			log.Printf("[WARN] Ignoring RAG config file %s: %v", path, err)
		}
	}

	vectorEnv := getEnv("VECTOR_STORE_ENVIRONMENT", "")
	cloud, region := ParseEnvironment(vectorEnv)

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/cv-rag.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			IngestTopic:        getEnv("INGEST_TOPIC_NAME", "INGEST_DOCUMENT"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			VectorStore: getEnv("VECTOR_STORE_API_KEY", ""),
			Generator:   getEnv("GENERATOR_API_KEY", ""),
			Jina:        getEnv("JINA_API_KEY", ""),
			Gemini:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:      getEnv("OPENAI_API_KEY", ""),
			HuggingFace: getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", "hashing"),
			EmbeddingModel:     getEnv("EMBEDDING_MODEL", ""),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 384),
			EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", ""),
			LLMProvider:        getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:           getEnv("LLM_MODEL", "llama3.1"),
			LLMBaseURL:         getEnv("LLM_BASE_URL", ""),
			Temperature:        getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:          getEnvAsInt("LLM_MAX_TOKENS", 1000),
		},
		VectorStore: VectorStoreConfig{
			Backend:     getEnv("VECTOR_STORE_BACKEND", "memory"),
			Environment: vectorEnv,
			Cloud:       cloud,
			Region:      region,
			Namespace:   getEnv("VECTOR_NAMESPACE", "cv-rag"),
			Metric:      getEnv("VECTOR_METRIC", "cosine"),
			ChromemPath: getEnv("CHROMEM_PATH", ""),
			BatchSize:   getEnvAsInt("UPSERT_BATCH_SIZE", 100),
		},
		Rag: RAGConfig{
			ChunkStrategy:    getEnv("CHUNK_STRATEGY", rag.ChunkStrategy),
			ChunkSize:        getEnvAsInt("CHUNK_SIZE", rag.ChunkSize),
			ChunkOverlap:     getEnvAsInt("CHUNK_OVERLAP", rag.ChunkOverlap),
			TopK:             getEnvAsInt("TOP_K", rag.TopK),
			MaxContextLength: getEnvAsInt("MAX_CONTEXT_LENGTH", rag.MaxContextLength),
			MinScore:         getEnvAsFloat("MIN_SCORE", rag.MinScore),
			CallTimeout:      getEnvAsDuration("RAG_CALL_TIMEOUT", rag.CallTimeout),
			MaxRetries:       getEnvAsInt("RAG_MAX_RETRIES", rag.MaxRetries),
			EmbedConcurrency: getEnvAsInt("EMBED_CONCURRENCY", rag.EmbedConcurrency),
			EmbedRateLimit:   getEnvAsFloat("EMBED_RATE_LIMIT", rag.EmbedRateLimit),
			MaxInputChars:    getEnvAsInt("EMBED_MAX_INPUT_CHARS", rag.MaxInputChars),
		},
		Storage: ObjectStorageConfig{
			Endpoint:  getEnv("OBJECT_STORAGE_ENDPOINT", ""),
			AccessKey: getEnv("OBJECT_STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("OBJECT_STORAGE_SECRET_KEY", ""),
			UseSSL:    getEnvAsBool("OBJECT_STORAGE_USE_SSL", true),
		},
	}
}

func loadRAGFile(path string, rag *RAGConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file struct {
		RAG RAGConfig `yaml:"rag"`
	}
	file.RAG = *rag
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	*rag = file.RAG
	return nil
}

// ParseEnvironment splits a vector store environment such as
// "us-east-1-aws" into its cloud ("aws") and region ("us-east-1").
// Unrecognized values are returned as region with an empty cloud.
func ParseEnvironment(env string) (cloud, region string) {
	for _, c := range []string{"aws", "gcp", "azure"} {
		if suffix := "-" + c; strings.HasSuffix(env, suffix) {
			return c, strings.TrimSuffix(env, suffix)
		}
	}
	return "", env
}

var validate = validator.New()

// Validate reports every problem at once as a configuration error.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if strings.EqualFold(c.Rag.ChunkStrategy, "SIMPLE") && c.Rag.ChunkOverlap >= c.Rag.ChunkSize {
		problems = append(problems, fmt.Sprintf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.Rag.ChunkOverlap, c.Rag.ChunkSize))
	}

	switch c.VectorStore.Backend {
	case "pgvector":
		if c.Database.Connection == "" {
			problems = append(problems, "DB_CONNECTION_STRING is required for the pgvector backend")
		}
	case "chromem":
		if c.VectorStore.ChromemPath == "" {
			log.Println("[INFO] CHROMEM_PATH not set, chromem index is in-memory only")
		}
	}

	switch c.Ai.EmbeddingProvider {
	case "jina":
		if c.Keys.Jina == "" {
			problems = append(problems, "JINA_API_KEY is required for the jina embedding provider")
		}
	case "gemini":
		if c.Keys.Gemini == "" {
			problems = append(problems, "GOOGLE_GEMINI_API_KEY is required for the gemini embedding provider")
		}
	case "openai":
		if c.Keys.OpenAI == "" {
			problems = append(problems, "OPENAI_API_KEY is required for the openai embedding provider")
		}
	}

	switch c.Ai.LLMProvider {
	case "openai", "groq":
		if c.GeneratorKey() == "" {
			problems = append(problems, fmt.Sprintf("GENERATOR_API_KEY is required for the %s generator", c.Ai.LLMProvider))
		}
	case "huggingface":
		if c.GeneratorKey() == "" {
			problems = append(problems, "GENERATOR_API_KEY or HUGGINGFACE_API_KEY is required for the huggingface generator")
		}
	}

	if c.Storage.Endpoint != "" && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		problems = append(problems, "OBJECT_STORAGE_ACCESS_KEY and OBJECT_STORAGE_SECRET_KEY are required when OBJECT_STORAGE_ENDPOINT is set")
	}

	if len(problems) > 0 {
		return apperror.Configuration("config", "invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MustLoad loads and validates, exiting the process on failure.
func MustLoad() *Config {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
