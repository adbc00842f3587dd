package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Rag      RagConfig
	Splitter SplitterConfig
	Topics   TopicConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "openai", "gemini", "ollama" or "voyage"
	EmbeddingModel    string
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string

	LLMProvider string // "ollama" or "openai"
	LLMModel    string
	LLMBaseURL  string
	LLMAPIKey   string
}

type RagConfig struct {
	TopK                  int
	ScoreThreshold        float64
	GradingEnabled        bool
	GroundednessEnabled   bool
	GroundednessThreshold float64
	RunTimeoutSeconds     int
}

type SplitterConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

type TopicConfig struct {
	ProcessDocument string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingAPIKey:   getEnv("EMBEDDING_API_KEY", ""),
			EmbeddingBaseURL:  getEnv("EMBEDDING_BASE_URL", "http://localhost:11434"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", "http://localhost:11434"),
			LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		},
		Rag: RagConfig{
			TopK:                  getEnvAsInt("RAG_TOP_K", 5),
			ScoreThreshold:        getEnvAsFloat("RAG_SCORE_THRESHOLD", 0.7),
			GradingEnabled:        getEnvAsBool("RAG_GRADING_ENABLED", true),
			GroundednessEnabled:   getEnvAsBool("RAG_GROUNDEDNESS_ENABLED", true),
			GroundednessThreshold: getEnvAsFloat("RAG_GROUNDEDNESS_THRESHOLD", 0.7),
			RunTimeoutSeconds:     getEnvAsInt("RAG_RUN_TIMEOUT_SECONDS", 300),
		},
		Splitter: SplitterConfig{
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 200),
		},
		Topics: TopicConfig{
			ProcessDocument: getEnv("PROCESS_DOCUMENT_TOPIC_NAME", "PROCESS_DOCUMENT"),
		},
	}
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
