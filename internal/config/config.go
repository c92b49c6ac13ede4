package config

import (
	"errors"
	"io/fs"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DefaultAdminUser     = "admin"
	DefaultAdminPassword = "password123"
)

type Config struct {
	Env         string      `yaml:"env" env:"ENV" env-default:"local"`
	StaticDir   string      `yaml:"static_dir" env:"STATIC_DIR" env-default:"./public"`
	HTTPServer  HTTPServer  `yaml:"http_server"`
	Storage     Storage     `yaml:"storage"`
	Admin       Admin       `yaml:"admin"`
	RateLimit   RateLimit   `yaml:"rate_limit"`
	CORS        CORS        `yaml:"cors"`
	Concurrency Concurrency `yaml:"concurrency"`
}

type HTTPServer struct {
	Host        string        `yaml:"host" env:"HOST" env-default:"0.0.0.0"`
	Port        int           `yaml:"port" env:"PORT" env-default:"3000"`
	Timeout     time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"120s"`
}

// Address is the listen address built from Host and Port.
func (s HTTPServer) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type Storage struct {
	Path string `yaml:"path" env:"NAMES_FILE" env-default:"./names.json"`
}

type Admin struct {
	User     string `yaml:"user" env:"ADMIN_USER" env-default:"admin"`
	Password string `yaml:"password" env:"ADMIN_PASS" env-default:"password123"`
	Realm    string `yaml:"realm" env:"ADMIN_REALM" env-default:"Owner Area"`
}

// UsesDefaults reports whether the built-in insecure credentials are active.
func (a Admin) UsesDefaults() bool {
	return a.User == DefaultAdminUser && a.Password == DefaultAdminPassword
}

type RateLimit struct {
	Max      int           `yaml:"max" env:"RATE_LIMIT_MAX" env-default:"10"`
	Window   time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"60s"`
	TrustXFF bool          `yaml:"trust_xff" env:"TRUST_XFF" env-default:"false"`
	Headers  bool          `yaml:"headers" env:"RATE_LIMIT_HEADERS" env-default:"true"`
	Stats    RateStats     `yaml:"stats"`
}

type RateStats struct {
	RedisAddr     string        `yaml:"redis_addr" env:"RATE_STATS_REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"RATE_STATS_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"RATE_STATS_REDIS_DB" env-default:"0"`
	Prefix        string        `yaml:"prefix" env:"RATE_STATS_PREFIX" env-default:"namecollector:ratelimit"`
	TTL           time.Duration `yaml:"ttl" env:"RATE_STATS_TTL" env-default:"24h"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

type Concurrency struct {
	Max            int           `yaml:"max" env:"CONCURRENCY_MAX" env-default:"100"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout" env:"CONCURRENCY_TIMEOUT" env-default:"0s"`
}

// Load reads the YAML file at path when it exists, otherwise the
// environment alone. Environment variables override file values.
func Load(path string) (*Config, error) {
	var cfg Config

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/local.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config %s: %v", configPath, err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}
	if c.HTTPServer.Port <= 0 || c.HTTPServer.Port > 65535 {
		return errors.New("http_server.port must be in 1..65535")
	}
	if c.RateLimit.Max <= 0 {
		return errors.New("rate_limit.max must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.window must be > 0")
	}
	if c.Concurrency.Max < 0 {
		return errors.New("concurrency.max must be >= 0")
	}
	if c.Admin.User == "" || c.Admin.Password == "" {
		return errors.New("admin.user and admin.password must not be empty")
	}
	return nil
}
