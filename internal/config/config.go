package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewFeePolicyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string
	Telemetry    TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	MoMo    MoMoConfig
	VNPay   VNPayConfig
	ZaloPay ZaloPayConfig

	Invoice InvoiceConfig

	SchedulerInterval    time.Duration
	SchedulerBatchSize   int
	SchedulerEnabledJobs []string
	PollAfter            time.Duration

	WebhookRateLimit float64
	WebhookRateBurst int
}

// TelemetryConfig controls logging output and OTLP export.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	Export        bool
	Protocol      string
	SamplingRatio float64
}

type MoMoConfig struct {
	Endpoint    string
	PartnerCode string
	AccessKey   string
	SecretKey   string
}

type VNPayConfig struct {
	Endpoint   string
	TmnCode    string
	HashSecret string
}

type ZaloPayConfig struct {
	Endpoint string
	AppID    string
	Key1     string
	Key2     string
}

// InvoiceConfig controls invoice numbering and where rendered documents go.
type InvoiceConfig struct {
	NumberTemplate string
	SellerName     string
	Storage        string
	LocalDir       string
	PublicBaseURL  string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
}

const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "picklepay"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "picklepay"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", ""),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		RedisAddr:         strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           getenvInt("REDIS_DB", 0),
		LockTTL:           getenvDuration("PAYMENT_LOCK_TTL", 30*time.Second),
		MoMo: MoMoConfig{
			Endpoint:    getenv("MOMO_ENDPOINT", "https://test-payment.momo.vn"),
			PartnerCode: strings.TrimSpace(getenv("MOMO_PARTNER_CODE", "")),
			AccessKey:   strings.TrimSpace(getenv("MOMO_ACCESS_KEY", "")),
			SecretKey:   strings.TrimSpace(getenv("MOMO_SECRET_KEY", "")),
		},
		VNPay: VNPayConfig{
			Endpoint:   getenv("VNPAY_ENDPOINT", "https://sandbox.vnpayment.vn/merchant_webapi/api/transaction"),
			TmnCode:    strings.TrimSpace(getenv("VNPAY_TMN_CODE", "")),
			HashSecret: strings.TrimSpace(getenv("VNPAY_HASH_SECRET", "")),
		},
		ZaloPay: ZaloPayConfig{
			Endpoint: getenv("ZALOPAY_ENDPOINT", "https://sb-openapi.zalopay.vn"),
			AppID:    strings.TrimSpace(getenv("ZALOPAY_APP_ID", "")),
			Key1:     strings.TrimSpace(getenv("ZALOPAY_KEY1", "")),
			Key2:     strings.TrimSpace(getenv("ZALOPAY_KEY2", "")),
		},
		Invoice: InvoiceConfig{
			NumberTemplate: getenv("INVOICE_NUMBER_TEMPLATE", ""),
			SellerName:     getenv("INVOICE_SELLER_NAME", "PicklePickle"),
			Storage:        strings.ToLower(getenv("INVOICE_STORAGE", StorageLocal)),
			LocalDir:       getenv("INVOICE_LOCAL_DIR", "./data/invoices"),
			PublicBaseURL:  strings.TrimRight(getenv("INVOICE_PUBLIC_BASE_URL", ""), "/"),
			S3Bucket:       strings.TrimSpace(getenv("INVOICE_S3_BUCKET", "")),
			S3Region:       getenv("INVOICE_S3_REGION", "ap-southeast-1"),
			S3Endpoint:     strings.TrimSpace(getenv("INVOICE_S3_ENDPOINT", "")),
			S3AccessKey:    strings.TrimSpace(getenv("INVOICE_S3_ACCESS_KEY", "")),
			S3SecretKey:    strings.TrimSpace(getenv("INVOICE_S3_SECRET_KEY", "")),
		},
		SchedulerInterval:    getenvDuration("SCHEDULER_INTERVAL", time.Minute),
		SchedulerBatchSize:   getenvInt("SCHEDULER_BATCH_SIZE", 50),
		SchedulerEnabledJobs: parseList(getenv("SCHEDULER_ENABLED_JOBS", "")),
		PollAfter:            getenvDuration("PAYMENT_POLL_AFTER", 2*time.Minute),
		WebhookRateLimit:     getenvFloat("WEBHOOK_RATE_LIMIT", 0),
		WebhookRateBurst:     getenvInt("WEBHOOK_RATE_BURST", 20),
	}

	cfg.Telemetry = loadTelemetry(cfg)

	return cfg
}

func loadTelemetry(cfg Config) TelemetryConfig {
	protocol := getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	if traces := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); traces != "" {
		protocol = traces
	}
	return TelemetryConfig{
		LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		Export:        getenvBool("OTEL_ENABLED", cfg.IsProduction()),
		Protocol:      strings.ToLower(strings.TrimSpace(protocol)),
		SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
