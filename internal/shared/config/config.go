package config

import (
	"log"
	"os"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	JWTSecret       string
	TempDir         string

	BlobStoreType      string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	GCSBucket          string
	GCSCredentialsFile string

	DriveRootFolder      string
	DriveCredentialsFile string
	DriveTokenFile       string
	DriveRefreshToken    string
	GoogleClientID       string
	GoogleClientSecret   string
	GoogleRedirectURL    string

	RecordStoreType string
	RecordsXLSXPath string
	RecordsSheet    string
	DatabaseURL     string
	RedisAddr       string

	Extractor      string
	ExtractCommand string
	OCRCommand     string
	KeywordsFile   string

	DocumentAIProject   string
	DocumentAILocation  string
	DocumentAIProcessor string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	recordStore := normalizeRecordStore(getEnv("RECORD_STORE", "xlsx"))
	dbURL := os.Getenv("DATABASE_URL")

	if recordStore == "postgres" && dbURL == "" {
		log.Printf("RECORD_STORE=postgres requires DATABASE_URL")
	}

	return Config{
		Port:            getEnv("PORT", "5000"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		Env:             env,
		JWTSecret:       getEnv("JWT_SECRET", ""),
		TempDir:         getEnv("TEMP_DIR", os.TempDir()),

		BlobStoreType:      normalizeBlobStore(getEnv("BLOB_STORE", "local")),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", "./data/blobs"),
		AWSRegion:          getEnv("AWS_REGION", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", ""),
		GCSBucket:          getEnv("GCS_BUCKET", ""),
		GCSCredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),

		DriveRootFolder:      getEnv("DRIVE_ROOT_FOLDER", ""),
		DriveCredentialsFile: getEnv("DRIVE_CREDENTIALS_FILE", ""),
		DriveTokenFile:       getEnv("DRIVE_TOKEN_FILE", "./drive_oauth.json"),
		DriveRefreshToken:    getEnv("DRIVE_OAUTH_REFRESH_TOKEN", ""),
		GoogleClientID:       getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
		GoogleRedirectURL:    getEnv("GOOGLE_OAUTH_REDIRECT_URI", ""),

		RecordStoreType: recordStore,
		RecordsXLSXPath: getEnv("RECORDS_XLSX_PATH", "./student_data.xlsx"),
		RecordsSheet:    getEnv("RECORDS_SHEET", ""),
		DatabaseURL:     dbURL,
		RedisAddr:       getEnv("REDIS_ADDR", ""),

		Extractor:      normalizeExtractor(getEnv("EXTRACTOR", "native")),
		ExtractCommand: getEnv("EXTRACT_COMMAND", "pdftotext -layout -enc UTF-8 {path} -"),
		OCRCommand:     getEnv("OCR_COMMAND", "tesseract {path} stdout"),
		KeywordsFile:   getEnv("KEYWORDS_FILE", ""),

		DocumentAIProject:   getEnv("DOCUMENTAI_PROJECT", ""),
		DocumentAILocation:  getEnv("DOCUMENTAI_LOCATION", "us"),
		DocumentAIProcessor: getEnv("DOCUMENTAI_PROCESSOR", ""),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeBlobStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "gcs":
		return "gcs"
	case "drive", "gdrive":
		return "drive"
	default:
		return "local"
	}
}

func normalizeRecordStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "memory":
		return "memory"
	default:
		return "xlsx"
	}
}

func normalizeExtractor(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "command", "cmd":
		return "command"
	case "chain":
		return "chain"
	case "documentai", "docai":
		return "documentai"
	default:
		return "native"
	}
}

// IsDevLike reports whether env allows development shortcuts (header identities, memory stores).
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
