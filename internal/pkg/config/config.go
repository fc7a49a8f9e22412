package config

import (
	"strings"

	"github.com/nzci/enrolbridge/internal/pkg/env"
)

const (
	defaultEdAppBaseURL = "https://rest.edapp.com"
	defaultLedgerPath   = "/tmp/nzci_sales_log.json"
	defaultTokenPath    = "/tmp/nzci_linkedin_token.json"

	defaultProduct = "nzci-flexi"
	defaultCourse  = "6243abf7"
)

// Config carries all runtime settings. It is built once at startup and
// passed explicitly into every component; nothing reads env vars afterwards.
type Config struct {
	EdAppAPIKey  string
	EdAppBaseURL string

	LinkedInClientID     string
	LinkedInClientSecret string
	LinkedInRedirectURI  string

	LedgerBackend string // "file" or "mysql"
	LedgerPath    string
	TokenBackend  string // "file" or "redis"
	TokenPath     string

	DashboardPassword string

	// Gumroad product permalink -> EdApp course ID. Total lookup via
	// DefaultProduct entry; unmapped permalinks resolve to DefaultCourse.
	CourseMap      map[string]string
	DefaultProduct string
	DefaultCourse  string

	// Whole-dollar price -> tier label. Cosmetic only, never gates enrollment.
	PriceTiers map[int]string
}

// NewFromEnv builds the immutable runtime configuration.
func NewFromEnv() *Config {
	return &Config{
		EdAppAPIKey:  strings.TrimSpace(env.GetEnv("EDAPP_API_KEY", "")),
		EdAppBaseURL: strings.TrimRight(env.GetEnv("EDAPP_BASE_URL", defaultEdAppBaseURL), "/"),

		LinkedInClientID:     strings.TrimSpace(env.GetEnv("LINKEDIN_CLIENT_ID", "")),
		LinkedInClientSecret: strings.TrimSpace(env.GetEnv("LINKEDIN_CLIENT_SECRET", "")),
		LinkedInRedirectURI:  strings.TrimSpace(env.GetEnv("LINKEDIN_REDIRECT_URI", "")),

		LedgerBackend: strings.ToLower(env.GetEnv("LEDGER_BACKEND", "file")),
		LedgerPath:    env.GetEnv("LEDGER_PATH", defaultLedgerPath),
		TokenBackend:  strings.ToLower(env.GetEnv("TOKEN_BACKEND", "file")),
		TokenPath:     env.GetEnv("TOKEN_PATH", defaultTokenPath),

		DashboardPassword: env.GetEnv("DASHBOARD_PASSWORD", ""),

		CourseMap: map[string]string{
			"wqlta":        "6243abf7",
			"emmgw":        "612f306e",
			"wpkqyo":       "612f3428",
			defaultProduct: defaultCourse,
		},
		DefaultProduct: defaultProduct,
		DefaultCourse:  env.GetEnv("DEFAULT_COURSE_ID", defaultCourse),

		PriceTiers: map[int]string{
			97:  "Intro",
			497: "Certificate",
			997: "Corporate",
		},
	}
}
