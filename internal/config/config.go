package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Data   DataConfig
	Model  ModelConfig
	Engine EngineConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	RedisURL           string
}

type DataConfig struct {
	KnowledgeBasePath   string
	FallbackDatasetPath string
}

type ModelConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

type EngineConfig struct {
	NegativeBoostMultiplier float64
	DefaultTopK             int
	FallbackToGlobalPop     bool
	SessionTTLMinutes       int
	EventTopic              string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/diagnosis_audit.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Data: DataConfig{
			KnowledgeBasePath:   getEnv("KNOWLEDGE_BASE_PATH", "data/knowledge_base.json"),
			FallbackDatasetPath: getEnv("FALLBACK_DATASET_PATH", "data/disease_symptoms.csv"),
		},
		Model: ModelConfig{
			BaseURL:        getEnv("MODEL_SERVER_URL", ""),
			TimeoutSeconds: getEnvAsInt("MODEL_SERVER_TIMEOUT_SECONDS", 15),
		},
		Engine: EngineConfig{
			NegativeBoostMultiplier: getEnvAsFloat("NEGATIVE_BOOST_MULTIPLIER", -0.25),
			DefaultTopK:             getEnvAsInt("DEFAULT_TOP_K", 3),
			FallbackToGlobalPop:     getEnvAsBool("FALLBACK_TO_GLOBAL_POP", true),
			SessionTTLMinutes:       getEnvAsInt("SESSION_TTL_MINUTES", 60),
			EventTopic:              getEnv("DIAGNOSIS_EVENT_TOPIC", "DIAGNOSIS_EVENTS"),
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
