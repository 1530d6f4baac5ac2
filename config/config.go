package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	// Server Configuration
	Server ServerConfig `koanf:"server"`

	// Logging Configuration
	Log LogConfig `koanf:"log"`

	// Database Configuration
	DB DBConfig `koanf:"db"`

	// Auth Configuration
	Auth AuthConfig `koanf:"auth"`

	// LLM Configuration
	LLM LLMConfig `koanf:"llm"`

	// Business Logic Configuration
	Profile    ProfileConfig    `koanf:"profile"`
	Candidates CandidatesConfig `koanf:"candidates"`
	Scoring    ScoringConfig    `koanf:"scoring"`
	Ranker     RankerConfig     `koanf:"ranker"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	PublicBaseURL   string        `koanf:"public_base_url"` // empty: derived from the request
	MediaPath       string        `koanf:"media_path"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MetricsEnabled  bool          `koanf:"metrics_enabled"`
}

// MediaBaseURL joins PublicBaseURL with MediaPath. It is empty when no
// public base is configured.
func (c ServerConfig) MediaBaseURL() string {
	base := strings.TrimRight(c.PublicBaseURL, "/")
	if base == "" {
		return ""
	}
	return c.JoinMedia(base)
}

// JoinMedia appends MediaPath to base
func (c ServerConfig) JoinMedia(base string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Trim(c.MediaPath, "/") + "/"
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

type DBConfig struct {
	Driver      string `koanf:"driver"` // sqlite or postgres
	Path        string `koanf:"path"`   // sqlite file
	DSN         string `koanf:"dsn"`    // postgres url
	MaxConns    int    `koanf:"max_conns"`
	CatalogFile string `koanf:"catalog_file"`
	SeedDemo    bool   `koanf:"seed_demo"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	// AllowHeaderIdentity accepts X-User-ID without a token. Local development only.
	AllowHeaderIdentity bool `koanf:"allow_header_identity"`
}

type LLMConfig struct {
	Provider    string        `koanf:"provider"` // "openai" or "groq"
	OpenAIKey   string        `koanf:"openai_key"`
	GroqKey     string        `koanf:"groq_key"`
	BaseURL     string        `koanf:"base_url"`
	Model       string        `koanf:"model"`
	MaxTokens   int           `koanf:"max_tokens"`
	Temperature float32       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
	// Disabled skips the model call; every request uses the fallback ranking.
	Disabled bool `koanf:"disabled"`

	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

type ProfileConfig struct {
	WindowDays     int    `koanf:"window_days"`
	RecentDays     int    `koanf:"recent_days"`
	RecentLimit    int    `koanf:"recent_limit"`
	TopBrands      int    `koanf:"top_brands"`
	PurchaseWeight int    `koanf:"purchase_weight"`
	ViewPriceCap   int    `koanf:"view_price_cap"`
	TimeZone       string `koanf:"time_zone"`
}

type CandidatesConfig struct {
	DefaultLimit    int `koanf:"default_limit"`
	CategoryMinimum int `koanf:"category_minimum"`
	CategoryBlend   int `koanf:"category_blend"`
	PriceNarrowMin  int `koanf:"price_narrow_min"`
	PriceWideMin    int `koanf:"price_wide_min"`
}

type ScoringConfig struct {
	Base           float64 `koanf:"base"`
	CategoryWeight float64 `koanf:"category_weight"`
	BrandWeight    float64 `koanf:"brand_weight"`
	BrandCap       float64 `koanf:"brand_cap"`
	ReviewWeight   float64 `koanf:"review_weight"`
	ReviewCap      float64 `koanf:"review_cap"`
	RatingWeight   float64 `koanf:"rating_weight"`
}

type RankerConfig struct {
	DefaultCount   int `koanf:"default_count"`
	Headroom       int `koanf:"headroom"`
	FallbackScore  int `koanf:"fallback_score"`
	DescriptionLen int `koanf:"description_len"`
}

// Default returns the built-in configuration. The business constants match
// the values the recommendation pipeline was tuned with.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			MediaPath:       "/media/",
			ShutdownTimeout: 10 * time.Second,
			MetricsEnabled:  true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		DB: DBConfig{
			Driver:      "sqlite",
			Path:        "shop.db",
			MaxConns:    10,
			CatalogFile: "data/products.json",
		},
		LLM: LLMConfig{
			Provider:        "openai",
			BaseURL:         "https://api.groq.com/openai/v1",
			Model:           "gpt-4o-mini",
			MaxTokens:       1000,
			Temperature:     0.7,
			Timeout:         30 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  time.Minute,
		},
		Profile: ProfileConfig{
			WindowDays:     90,
			RecentDays:     7,
			RecentLimit:    10,
			TopBrands:      10,
			PurchaseWeight: 3,
			ViewPriceCap:   5,
			TimeZone:       "UTC",
		},
		Candidates: CandidatesConfig{
			DefaultLimit:    20,
			CategoryMinimum: 10,
			CategoryBlend:   10,
			PriceNarrowMin:  5,
			PriceWideMin:    3,
		},
		Scoring: ScoringConfig{
			Base:           10.0,
			CategoryWeight: 0.5,
			BrandWeight:    3.0,
			BrandCap:       50.0,
			ReviewWeight:   0.5,
			ReviewCap:      15.0,
			RatingWeight:   3.0,
		},
		Ranker: RankerConfig{
			DefaultCount:   5,
			Headroom:       2,
			FallbackScore:  7,
			DescriptionLen: 100,
		},
	}
}

// Validate checks the values that would otherwise fail late at request time.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port must not be empty")
	}

	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			return errors.New("db.path is required for the sqlite driver")
		}
	case "postgres":
		if c.DB.DSN == "" {
			return errors.New("db.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid db driver: %s", c.DB.Driver)
	}

	if !c.LLM.Disabled {
		switch c.LLM.Provider {
		case "openai":
			if c.LLM.OpenAIKey == "" {
				return errors.New("OPENAI_API_KEY is required when llm.provider is 'openai'")
			}
		case "groq":
			if c.LLM.GroqKey == "" {
				return errors.New("GROQ_API_KEY is required when llm.provider is 'groq'")
			}
		default:
			return fmt.Errorf("invalid LLM provider: %s", c.LLM.Provider)
		}
	}

	if c.Candidates.DefaultLimit <= 0 || c.Ranker.DefaultCount <= 0 || c.Ranker.Headroom <= 0 {
		return errors.New("candidate limit, ranker count and headroom must be positive")
	}
	if c.Profile.WindowDays <= 0 || c.Profile.RecentDays <= 0 {
		return errors.New("profile windows must be positive")
	}
	if _, err := time.LoadLocation(c.Profile.TimeZone); err != nil {
		return fmt.Errorf("invalid profile.time_zone: %w", err)
	}
	return nil
}
