package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ujjwal16295/book-ai/internal/logging"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress       string
	GoogleBooksAPIKey string
	GeminiAPIKey      string
	GeminiModelID     string
	DeepgramAPIKey    string
	DeepgramVoice     string
	CatalogCachePath  string
	SuggestMaxResults int
	Debug             bool
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logging.Debug("no .env file loaded", "err", err)
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	booksKey := os.Getenv("GOOGLE_BOOKS_API_KEY")
	if booksKey == "" {
		logging.Warn("GOOGLE_BOOKS_API_KEY not set - suggestion lookups may be rate limited by the catalog")
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		logging.Warn("GEMINI_API_KEY not set - summary generation will not work")
	}
	geminiModel := os.Getenv("GEMINI_MODEL_ID")
	if geminiModel == "" {
		geminiModel = "gemini-2.0-flash"
	}

	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if deepgramKey == "" {
		logging.Warn("DEEPGRAM_API_KEY not set - spoken playback will be unavailable")
	}
	deepgramVoice := os.Getenv("DEEPGRAM_VOICE")
	if deepgramVoice == "" {
		deepgramVoice = "aura-2-thalia-en"
	}

	maxResults := 8
	if v := os.Getenv("SUGGEST_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxResults = n
		}
	}

	debug := os.Getenv("DEBUG") == "1" || os.Getenv("DEBUG") == "true"

	logging.Info("config loaded", "http_address", addr, "gemini_model", geminiModel)
	return Config{
		HTTPAddress:       addr,
		GoogleBooksAPIKey: booksKey,
		GeminiAPIKey:      geminiKey,
		GeminiModelID:     geminiModel,
		DeepgramAPIKey:    deepgramKey,
		DeepgramVoice:     deepgramVoice,
		CatalogCachePath:  os.Getenv("CATALOG_CACHE_PATH"),
		SuggestMaxResults: maxResults,
		Debug:             debug,
	}
}
