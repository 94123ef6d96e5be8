package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	CacheTTLDays   int

	// Page rendering
	SettleMs            int
	ScrollStepPx        int
	ScrollPauseMs       int
	MaxScrollIterations int
	PerURLTimeoutSecs   int
	AllowedDomains      []string
	ChromeBin           string

	// Financial parameters
	GSTRate            float64
	TaxRate            float64
	CommissionRate     float64
	MinProfitThreshold float64
	TargetProfitMin    float64
	TargetProfitMax    float64

	DefaultInsurance        float64
	DefaultRenovationBudget float64
	DefaultLegalExpenses    float64
	DefaultCouncilRates     float64
	DefaultInterestRate     float64
	DefaultRenovationMonths int
	DefaultDaysOnMarket     int

	InputCSVPath   string
	CSVOutputPath  string
	JSONOutputPath string

	Debug bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "flip"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "flip123"),
		PostgresDB:       getEnv("POSTGRES_DB", "property_flip"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 5),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		CacheTTLDays:   getEnvInt("CACHE_TTL_DAYS", 7),

		SettleMs:            getEnvInt("SETTLE_MS", 3000),
		ScrollStepPx:        getEnvInt("SCROLL_STEP_PX", 500),
		ScrollPauseMs:       getEnvInt("SCROLL_PAUSE_MS", 1000),
		MaxScrollIterations: getEnvInt("MAX_SCROLL_ITERATIONS", 12),
		PerURLTimeoutSecs:   getEnvInt("PER_URL_TIMEOUT_SECS", 10),
		AllowedDomains: getEnvList("ALLOWED_DOMAINS",
			"trademe.co.nz,homes.co.nz,realestate.co.nz"),
		ChromeBin: getEnv("CHROME_BIN", ""),

		GSTRate:            getEnvFloat("GST_RATE", 0.15),
		TaxRate:            getEnvFloat("TAX_RATE", 0.33),
		CommissionRate:     getEnvFloat("COMMISSION_RATE", 0.018),
		MinProfitThreshold: getEnvFloat("MIN_PROFIT_THRESHOLD", 25000),
		TargetProfitMin:    getEnvFloat("TARGET_PROFIT_MIN", 25000),
		TargetProfitMax:    getEnvFloat("TARGET_PROFIT_MAX", 30000),

		DefaultInsurance:        getEnvFloat("DEFAULT_INSURANCE", 1800),
		DefaultRenovationBudget: getEnvFloat("DEFAULT_RENOVATION_BUDGET", 100000),
		DefaultLegalExpenses:    getEnvFloat("DEFAULT_LEGAL_EXPENSES", 2500),
		DefaultCouncilRates:     getEnvFloat("DEFAULT_COUNCIL_RATES", 2000),
		DefaultInterestRate:     getEnvFloat("DEFAULT_INTEREST_RATE", 0.075),
		DefaultRenovationMonths: getEnvInt("DEFAULT_RENOVATION_MONTHS", 6),
		DefaultDaysOnMarket:     getEnvInt("DEFAULT_DAYS_ON_MARKET", 30),

		InputCSVPath:   getEnv("INPUT_CSV_PATH", "./data/addresses.csv"),
		CSVOutputPath:  getEnv("CSV_OUTPUT_PATH", "./output/flip_scores.csv"),
		JSONOutputPath: getEnv("JSON_OUTPUT_PATH", "./output/flip_scores.json"),

		Debug: getEnvBool("DEBUG", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
