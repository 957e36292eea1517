package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"local"`
	Storage    Storage    `yaml:"storage"`
	Tokens     Tokens     `yaml:"tokens"`
	Password   Password   `yaml:"password"`
	HTTPServer HTTPServer `yaml:"http_server"`
	Grpc       GRPCConfig `yaml:"grpc"`
	RabbitMQ   RabbitMQ   `yaml:"rabbitmq"`
}

type Storage struct {
	Driver   string   `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`
	Mongo    Mongo    `yaml:"mongo"`
	SQLite   SQLite   `yaml:"sqlite"`
	Postgres Postgres `yaml:"postgres"`
}

type Mongo struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"vidtube"`
}

type SQLite struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"./storage/vidtube.db"`
}

type Postgres struct {
	DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
}

// Tokens holds the signing configuration for access and refresh tokens.
// The two secrets are independent: a token signed for one purpose never
// verifies for the other.
type Tokens struct {
	AccessSecret  string        `yaml:"access_secret" env:"ACCESS_TOKEN_SECRET"`
	AccessTTL     time.Duration `yaml:"access_ttl" env:"ACCESS_TOKEN_EXPIRY" env-default:"15m"`
	RefreshSecret string        `yaml:"refresh_secret" env:"REFRESH_TOKEN_SECRET"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl" env:"REFRESH_TOKEN_EXPIRY" env-default:"240h"`
}

type Password struct {
	Cost int `yaml:"cost" env:"PASSWORD_COST" env-default:"10"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8000"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// InsecureCookie drops the Secure flag from session cookies. The zero
	// value keeps cookies secure.
	InsecureCookie bool      `yaml:"insecure_cookie" env:"HTTP_INSECURE_COOKIE"`
	RateLimit      RateLimit `yaml:"rate_limit"`
}

// RateLimit caps requests per client IP on the public user routes.
type RateLimit struct {
	LoginRequests    int           `yaml:"login_requests" env:"RATE_LIMIT_LOGIN_REQUESTS" env-default:"10"`
	LoginWindow      time.Duration `yaml:"login_window" env:"RATE_LIMIT_LOGIN_WINDOW" env-default:"5m"`
	RegisterRequests int           `yaml:"register_requests" env:"RATE_LIMIT_REGISTER_REQUESTS" env-default:"5"`
	RegisterWindow   time.Duration `yaml:"register_window" env:"RATE_LIMIT_REGISTER_WINDOW" env-default:"1h"`
	RefreshRequests  int           `yaml:"refresh_requests" env:"RATE_LIMIT_REFRESH_REQUESTS" env-default:"30"`
	RefreshWindow    time.Duration `yaml:"refresh_window" env:"RATE_LIMIT_REFRESH_WINDOW" env-default:"10m"`
	LogoutRequests   int           `yaml:"logout_requests" env:"RATE_LIMIT_LOGOUT_REQUESTS" env-default:"20"`
	LogoutWindow     time.Duration `yaml:"logout_window" env:"RATE_LIMIT_LOGOUT_WINDOW" env-default:"10m"`
}

type GRPCConfig struct {
	Port    int           `yaml:"port" env:"GRPC_PORT" env-default:"44044"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env:"RABBITMQ_QUEUE" env-default:"vidtube.users"`
}

var (
	ErrMissingSecret    = errors.New("token secret is required")
	ErrSameSecrets      = errors.New("access and refresh secrets must differ")
	ErrInvalidTTL       = errors.New("token ttl must be positive")
	ErrRefreshTTL       = errors.New("refresh ttl must be longer than access ttl")
	ErrUnknownDriver    = errors.New("unknown storage driver")
	ErrInsecureCookies  = errors.New("insecure_cookie is only allowed in local env")
	ErrInvalidRateLimit = errors.New("rate limit requests and window must be positive")
)

// MustLoad reads the config from the --config flag or CONFIG_PATH env and
// panics on any error. A misconfigured signing setup is fatal at start-up.
func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to read config: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Tokens.Validate(); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case DriverMongo, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Storage.Driver)
	}

	if c.HTTPServer.InsecureCookie && c.Env != "local" {
		return ErrInsecureCookies
	}

	return c.HTTPServer.RateLimit.Validate()
}

func (r RateLimit) Validate() error {
	limits := []struct {
		route    string
		requests int
		window   time.Duration
	}{
		{"login", r.LoginRequests, r.LoginWindow},
		{"register", r.RegisterRequests, r.RegisterWindow},
		{"refresh", r.RefreshRequests, r.RefreshWindow},
		{"logout", r.LogoutRequests, r.LogoutWindow},
	}

	for _, l := range limits {
		if l.requests <= 0 || l.window <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidRateLimit, l.route)
		}
	}

	return nil
}

func (t Tokens) Validate() error {
	if t.AccessSecret == "" || t.RefreshSecret == "" {
		return ErrMissingSecret
	}
	if t.AccessSecret == t.RefreshSecret {
		return ErrSameSecrets
	}
	if t.AccessTTL <= 0 || t.RefreshTTL <= 0 {
		return ErrInvalidTTL
	}
	if t.RefreshTTL <= t.AccessTTL {
		return ErrRefreshTTL
	}

	return nil
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
