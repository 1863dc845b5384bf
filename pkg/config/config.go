package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every configuration variable.
	EnvPrefix = "RIA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "RIA_DB_DSN"
	EnvDBHost = "RIA_DB_HOST"
	EnvDBUser = "RIA_DB_USER"
	EnvDBName = "RIA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	FeatureFlags  FeatureFlagsConfig
	Stripe        StripeConfig
	Settings      SettingsConfig
	AuthRateLimit AuthRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RIA_APP_ENV" required:"true"`
	Port         string `envconfig:"RIA_APP_PORT" required:"true"`
	FrontendURL  string `envconfig:"RIA_APP_FRONTEND_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"RIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RIA_DB_DSN"`
	Driver string `envconfig:"RIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RIA_DB_HOST"`
	LegacyPort     int    `envconfig:"RIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RIA_DB_USER"`
	LegacyPassword string `envconfig:"RIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"RIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"RIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RIA_REDIS_ADDR"`
	Password     string        `envconfig:"RIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"RIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RIA_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// AccessTokenTTL returns the configured access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RIA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RIA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RIA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RIA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RIA_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RIA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RIA_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey        string        `envconfig:"RIA_STRIPE_API_KEY"`
	WebhookSecret string        `envconfig:"RIA_STRIPE_WEBHOOK_SECRET"`
	Env           string        `envconfig:"RIA_STRIPE_ENV" default:"test"`
	CallTimeout   time.Duration `envconfig:"RIA_STRIPE_CALL_TIMEOUT" default:"15s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SettingsConfig struct {
	CacheTTL time.Duration `envconfig:"RIA_SETTINGS_CACHE_TTL" default:"1h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"RIA_AUTH_RL_LOGIN_WINDOW" default:"5m"`
	LoginIPLimit       int           `envconfig:"RIA_AUTH_RL_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit    int           `envconfig:"RIA_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"5"`
	RegisterWindow     time.Duration `envconfig:"RIA_AUTH_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"RIA_AUTH_RL_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"RIA_AUTH_RL_REGISTER_EMAIL_LIMIT" default:"3"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
