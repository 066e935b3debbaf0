package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	OCR      OCRConfig
	Search   SearchConfig
	Pipeline PipelineConfig
	Settings SettingsConfig
	Sessions SessionsConfig
	Inbox    InboxConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr       string
	MaxUploadBytes int
}

// OCRConfig holds OCR and rasterization tool configuration
type OCRConfig struct {
	Engine           string // "cli" | "gosseract"
	Tesseract        string
	Languages        []string
	PSM              int
	OEM              int
	TessdataDir      string
	Pdftoppm         string
	Pdfinfo          string
	HeicConverter    string
	ArtifactCacheDir string
}

// SearchConfig bounds the geometric symbol search
type SearchConfig struct {
	Workers       int
	MaxCandidates int
	MaxPixels     int // per rendering, 0 for no ceiling
}

// PipelineConfig holds orchestrator limits
type PipelineConfig struct {
	MaxPages      int
	PageTimeout   time.Duration
	SearchTimeout time.Duration // per raster scale
	OCRTimeout    time.Duration
	RunTimeout    time.Duration
	FallbackScale float64
}

// SettingsConfig selects where the tracking id grammar is read from
type SettingsConfig struct {
	Source string // "env" | "file" | "sql"
	File   string
	DBURL  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// SessionsConfig selects the manual crop session store
type SessionsConfig struct {
	RedisAddr string // empty keeps sessions in memory
	RedisDB   int
	TTL       time.Duration
}

// InboxConfig configures the watched drop folder
type InboxConfig struct {
	Dir        string // empty disables the watcher
	Report     string // XLSX written on shutdown, empty to skip
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCAddr:       getEnv("GRPC_ADDR", ":8080"),
			MaxUploadBytes: getEnvAsInt("MAX_UPLOAD_BYTES", 32<<20),
		},
		OCR: OCRConfig{
			Engine:           getEnv("OCR_ENGINE", "cli"),
			Tesseract:        getEnv("TESSERACT_BIN", "tesseract"),
			Languages:        getEnvAsList("OCR_LANGUAGES", []string{"eng"}),
			PSM:              getEnvAsInt("OCR_PSM", 0),
			OEM:              getEnvAsInt("OCR_OEM", 0),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			Pdftoppm:         getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Pdfinfo:          getEnv("PDFINFO_BIN", "pdfinfo"),
			HeicConverter:    getEnv("HEIC_CONVERTER", "magick"),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", ""),
		},
		Search: SearchConfig{
			Workers:       getEnvAsInt("SEARCH_WORKERS", 1),
			MaxCandidates: getEnvAsInt("MAX_CANDIDATES", 0),
			MaxPixels:     getEnvAsInt("MAX_RENDER_PIXELS", 24_000_000),
		},
		Pipeline: PipelineConfig{
			MaxPages:      getEnvAsInt("MAX_PAGES", 5),
			PageTimeout:   getEnvAsDuration("PAGE_TIMEOUT", 60*time.Second),
			SearchTimeout: getEnvAsDuration("SEARCH_TIMEOUT", 12*time.Second),
			OCRTimeout:    getEnvAsDuration("OCR_TIMEOUT", 30*time.Second),
			RunTimeout:    getEnvAsDuration("RUN_TIMEOUT", 3*time.Minute),
			FallbackScale: getEnvAsFloat64("FALLBACK_SCALE", 2),
		},
		Settings: SettingsConfig{
			Source:          getEnv("SETTINGS_SOURCE", "env"),
			File:            getEnv("SETTINGS_FILE", ""),
			DBURL:           getEnv("SETTINGS_DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 4),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Sessions: SessionsConfig{
			RedisAddr: getEnv("REDIS_ADDR", ""),
			RedisDB:   getEnvAsInt("REDIS_DB", 0),
			TTL:       getEnvAsDuration("SESSION_TTL", 15*time.Minute),
		},
		Inbox: InboxConfig{
			Dir:        getEnv("INBOX_DIR", ""),
			Report:     getEnv("INBOX_REPORT", ""),
			Workers:    getEnvAsInt("INBOX_WORKERS", 2),
			QueueSize:  getEnvAsInt("INBOX_QUEUE_SIZE", 64),
			JobTimeout: getEnvAsDuration("INBOX_JOB_TIMEOUT", 5*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma or plus separated value ("eng+deu").
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, f := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '+' }) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.GRPCAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR is required", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "cli", "gosseract":
	default:
		return NewAppError(CodeConfig, "OCR_ENGINE must be cli or gosseract", ErrInvalidInput)
	}
	switch c.OCR.HeicConverter {
	case "", "none", "heif-convert", "magick", "sips":
	default:
		return NewAppError(CodeConfig, "HEIC_CONVERTER must be heif-convert, magick, sips or none", ErrUnsupported)
	}
	switch c.Settings.Source {
	case "env":
	case "file":
		if c.Settings.File == "" {
			return NewAppError(CodeConfig, "SETTINGS_FILE is required when SETTINGS_SOURCE=file", ErrInvalidInput)
		}
	case "sql":
		if c.Settings.DBURL == "" {
			return NewAppError(CodeConfig, "SETTINGS_DB_URL is required when SETTINGS_SOURCE=sql", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, "SETTINGS_SOURCE must be env, file or sql", ErrInvalidInput)
	}

	v := NewValidator().
		Field("MAX_PAGES", c.Pipeline.MaxPages, Positive).
		Field("FALLBACK_SCALE", c.Pipeline.FallbackScale, Positive).
		Field("SEARCH_WORKERS", c.Search.Workers, Positive).
		Field("MAX_CANDIDATES", c.Search.MaxCandidates, NonNegative).
		Field("MAX_RENDER_PIXELS", c.Search.MaxPixels, NonNegative).
		Field("SEARCH_TIMEOUT", int64(c.Pipeline.SearchTimeout), Positive).
		Field("OCR_TIMEOUT", int64(c.Pipeline.OCRTimeout), Positive).
		Field("INBOX_WORKERS", c.Inbox.Workers, Positive)
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
