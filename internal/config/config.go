package config

import (
	"flag"
	"github.com/caarlos0/env/v6"
)

const (
	DefaultRunAddress            = "localhost:8080"
	DefaultDatabaseURI           = ""
	DefaultJWTSecret             = "supersecretkey"
	DefaultAdminLogin            = "admin"
	DefaultDisposableDomainsFile = ""
	DefaultDisposableDomainsURL  = ""
)

type Config struct {
	RunAddress            string `env:"RUN_ADDRESS"`
	DatabaseURI           string `env:"DATABASE_URI"`
	JWTSecret             string `env:"JWT_SECRET"`
	AdminLogin            string `env:"ADMIN_LOGIN"`
	DisposableDomainsFile string `env:"DISPOSABLE_DOMAINS_FILE"`
	DisposableDomainsURL  string `env:"DISPOSABLE_DOMAINS_URL"`
}

func New() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", DefaultRunAddress, "server address")
	flag.StringVar(&cfg.DatabaseURI, "d", DefaultDatabaseURI, "database URI")
	flag.StringVar(&cfg.JWTSecret, "j", DefaultJWTSecret, "jwt secret key")
	flag.StringVar(&cfg.AdminLogin, "m", DefaultAdminLogin, "administrator login")
	flag.StringVar(&cfg.DisposableDomainsFile, "f", DefaultDisposableDomainsFile, "disposable domain list file")
	flag.StringVar(&cfg.DisposableDomainsURL, "u", DefaultDisposableDomainsURL, "disposable domain list URL")
	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
