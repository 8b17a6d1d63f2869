package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config armazena as configurações da aplicação
type Config struct {
	// Inference API (OpenAI-compatible chat completions)
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	// Data store: Postgres DSN + provider auth endpoint
	DatabaseURL        string
	DBMaxOpenConns     int // 0 usa o padrão do pool
	SupabaseURL        string
	SupabaseServiceKey string

	// Google Calendar OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	// TokenEncryptionKey protege os tokens OAuth persistidos
	TokenEncryptionKey string

	FrontendURL string
	Port        string
	GinMode     string
	LogLevel    string
	LogJSON     bool

	ValidationCacheTTL        time.Duration
	ValidationCacheMaxEntries int
}

// ErrMissingRequired indica que uma variável obrigatória não foi configurada
var ErrMissingRequired = errors.New("variável de ambiente obrigatória não configurada")

const (
	defaultLLMBaseURL = "https://api.groq.com/openai/v1"
	defaultLLMModel   = "llama-3.3-70b-versatile"
)

// Load carrega as configurações do ambiente
func Load() (*Config, error) {
	// Tenta carregar .env de múltiplos locais
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	return FromEnv(os.Getenv)
}

// FromEnv monta a configuração a partir de uma função de lookup
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		LLMAPIKey:          getenv("LLM_API_KEY"),
		LLMBaseURL:         getenv("LLM_BASE_URL"),
		LLMModel:           getenv("LLM_MODEL"),
		DatabaseURL:        getenv("DATABASE_URL"),
		SupabaseURL:        getenv("SUPABASE_URL"),
		SupabaseServiceKey: getenv("SUPABASE_SERVICE_KEY"),
		GoogleClientID:     getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  getenv("GOOGLE_REDIRECT_URI"),
		TokenEncryptionKey: getenv("TOKEN_ENCRYPTION_KEY"),
		FrontendURL:        getenv("FRONTEND_URL"),
		Port:               getenv("PORT"),
		GinMode:            getenv("GIN_MODE"),
		LogLevel:           getenv("LOG_LEVEL"),
	}

	// Validações obrigatórias
	required := map[string]string{
		"LLM_API_KEY":          cfg.LLMAPIKey,
		"DATABASE_URL":         cfg.DatabaseURL,
		"SUPABASE_URL":         cfg.SupabaseURL,
		"SUPABASE_SERVICE_KEY": cfg.SupabaseServiceKey,
	}
	for _, name := range []string{"LLM_API_KEY", "DATABASE_URL", "SUPABASE_URL", "SUPABASE_SERVICE_KEY"} {
		if required[name] == "" {
			return nil, fmt.Errorf("%s: %w", name, ErrMissingRequired)
		}
	}

	if v := getenv("LOG_JSON"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("LOG_JSON inválido: %w", err)
		}
		cfg.LogJSON = parsed
	}

	cfg.ValidationCacheTTL = time.Hour
	if v := getenv("VALIDATION_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("VALIDATION_CACHE_TTL inválido: %q", v)
		}
		cfg.ValidationCacheTTL = ttl
	}

	if v := getenv("DB_MAX_OPEN_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("DB_MAX_OPEN_CONNS inválido: %q", v)
		}
		cfg.DBMaxOpenConns = n
	}

	cfg.ValidationCacheMaxEntries = 10000
	if v := getenv("VALIDATION_CACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("VALIDATION_CACHE_MAX_ENTRIES inválido: %q", v)
		}
		cfg.ValidationCacheMaxEntries = n
	}

	// Tokens OAuth só são persistidos cifrados
	if cfg.CalendarEnabled() && cfg.TokenEncryptionKey == "" {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY: %w", ErrMissingRequired)
	}

	// Defaults
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = defaultLLMBaseURL
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultLLMModel
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:3000"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.GinMode == "" {
		cfg.GinMode = "debug"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// CalendarEnabled indica se o fluxo OAuth do Google está configurado
func (c *Config) CalendarEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURI != ""
}
