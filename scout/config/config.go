package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultDirectoryURL = "https://searx.space/data/instances.json"
	DefaultFallbackURL  = "https://search.us.projectsegfau.lt"
	DefaultMaxTokens    = 2048
)

type Config struct {
	ServerAddr string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	JWTSecret  string

	// MinIO page archive; disabled when MinIOEndpoint is empty.
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string

	// Agent backend: "agixt", "ollama" or "openai".
	AgentBackend  string
	AgentName     string
	AgixtURI      string
	AgixtAPIKey   string
	OllamaURL     string
	OpenAIBaseURL string
	OpenAIAPIKey  string
	LLMModel      string
	PromptsFile   string
	MaxTokens     int

	// Search
	SearchBackend        string
	SearxInstanceURL     string
	SearxDirectoryURL    string
	SearxFallbackURL     string
	SearchRequestTimeout time.Duration

	// Crawl; Renderer is "playwright" or "static"
	Renderer             string
	RespectRobots        bool
	NavigationTimeout    time.Duration
	MaxConcurrentFetches int
	MaxCrawlDepth        int
}

func LoadConfig() Config {
	// .env is optional; system environment variables win.
	_ = godotenv.Load()

	return Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8000"),

		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBName:     getEnv("DB_NAME", ""),
		JWTSecret:  getEnv("JWT_SECRET", ""),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "scout-pages"),

		AgentBackend:  strings.ToLower(getEnv("AGENT_BACKEND", "agixt")),
		AgentName:     getEnv("AGENT_NAME", "gpt4free"),
		AgixtURI:      getEnv("AGIXT_URI", "http://localhost:7437"),
		AgixtAPIKey:   getEnv("AGIXT_API_KEY", ""),
		OllamaURL:     getEnv("OLLAMA_URL", "http://localhost:11434/api"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.groq.com/openai/v1"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		LLMModel:      getEnv("LLM_MODEL", "llama3:8b"),
		PromptsFile:   getEnv("PROMPTS_FILE", "prompts.yaml"),
		MaxTokens:     getEnvInt("MAX_TOKENS", DefaultMaxTokens),

		SearchBackend:        strings.ToLower(getEnv("SEARCH_BACKEND", "searxng")),
		SearxInstanceURL:     getEnv("SEARXNG_INSTANCE_URL", ""),
		SearxDirectoryURL:    getEnv("SEARXNG_DIRECTORY_URL", DefaultDirectoryURL),
		SearxFallbackURL:     getEnv("SEARXNG_FALLBACK_URL", DefaultFallbackURL),
		SearchRequestTimeout: getEnvSeconds("SEARCH_TIMEOUT_SECONDS", 15),

		Renderer:             strings.ToLower(getEnv("RENDERER", "playwright")),
		RespectRobots:        getEnvBool("RESPECT_ROBOTS", false),
		NavigationTimeout:    getEnvSeconds("NAV_TIMEOUT_SECONDS", 30),
		MaxConcurrentFetches: getEnvInt("MAX_CONCURRENT_FETCHES", 4),
		MaxCrawlDepth:        getEnvInt("MAX_CRAWL_DEPTH", 0),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}
