package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port        int    `env:"PORT" envDefault:"8080"`
		FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	}

	Database struct {
		URL string `env:"DATABASE_URL,required"`
	}

	Redis struct {
		URL string `env:"REDIS_URL" envDefault:""`
	}

	Session struct {
		Secret       string        `env:"SESSION_SECRET,required"`
		TTL          time.Duration `env:"SESSION_TTL" envDefault:"720h"`
		CookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	}

	Voting struct {
		// Fallback budget when neither the event row nor its embedded
		// configuration carries credits_per_voter.
		DefaultCredits int    `env:"DEFAULT_CREDITS" envDefault:"5"`
		AdminExportKey string `env:"ADMIN_EXPORT_KEY" envDefault:""`
	}

	RateLimit struct {
		Enabled bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
		Max     int           `env:"RATE_LIMIT_MAX" envDefault:"30"`
		Window  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	}

	Google struct {
		ClientID     string `env:"GOOGLE_CLIENT_ID" envDefault:""`
		ClientSecret string `env:"GOOGLE_CLIENT_SECRET" envDefault:""`
		RedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:""`
	}

	Line struct {
		ClientID     string `env:"LINE_CLIENT_ID" envDefault:""`
		ClientSecret string `env:"LINE_CLIENT_SECRET" envDefault:""`
		RedirectURL  string `env:"LINE_REDIRECT_URL" envDefault:""`
	}
}

func Load() (*Config, error) {
	// Missing .env is fine; production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
