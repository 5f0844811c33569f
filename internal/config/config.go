package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	StaticDir      string        `mapstructure:"static_dir"`
}

type StorageConfig struct {
	Driver     string `mapstructure:"driver"` // memory, sqlite, redis, postgres
	SQLitePath string `mapstructure:"sqlite_path"`
	LogMode    bool   `mapstructure:"log_mode"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type JWTConfig struct {
	SecretKey   string `mapstructure:"secret_key"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type WalletConfig struct {
	StartingBalance      string `mapstructure:"starting_balance"`
	SeedDemoTransactions bool   `mapstructure:"seed_demo_transactions"`
	MonthlyBudget        string `mapstructure:"monthly_budget"`
}

type PaymentConfig struct {
	PIN                    string        `mapstructure:"pin"`
	Mode                   string        `mapstructure:"mode"` // simulated or remote
	Delay                  time.Duration `mapstructure:"delay"`
	SuccessRate            float64       `mapstructure:"success_rate"`
	RequireSufficientFunds bool          `mapstructure:"require_sufficient_funds"`
	RemoteURL              string        `mapstructure:"remote_url"`
	RemoteToken            string        `mapstructure:"remote_token"`
	RemoteTimeout          time.Duration `mapstructure:"remote_timeout"`
}

type QRConfig struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Size int           `mapstructure:"size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	QR       QRConfig       `mapstructure:"qr"`
	Log      LogConfig      `mapstructure:"log"`
}

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.static_dir", "./static/glyphs")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "./data/wallet.db")
	v.SetDefault("storage.log_mode", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "wallet")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", true)

	v.SetDefault("jwt.secret_key", "change-me")
	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("wallet.starting_balance", "12547.50")
	v.SetDefault("wallet.seed_demo_transactions", true)
	v.SetDefault("wallet.monthly_budget", "15000")

	v.SetDefault("payment.pin", "1234")
	v.SetDefault("payment.mode", "simulated")
	v.SetDefault("payment.delay", 2*time.Second)
	v.SetDefault("payment.success_rate", 0.9)
	v.SetDefault("payment.require_sufficient_funds", false)
	v.SetDefault("payment.remote_url", "http://localhost:8080")
	v.SetDefault("payment.remote_timeout", 10*time.Second)

	v.SetDefault("qr.ttl", 5*time.Minute)
	v.SetDefault("qr.size", 256)

	v.SetDefault("log.level", "info")
}

// bindEnv keeps the unprefixed variable names used by deployments
func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.sqlite_path", "SQLITE_PATH")

	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.name", "DATABASE_NAME")
	v.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")

	v.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	v.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")

	v.BindEnv("payment.pin", "WALLET_PIN")
	v.BindEnv("payment.mode", "PAYMENT_MODE")
	v.BindEnv("payment.remote_url", "PAYMENT_REMOTE_URL")
	v.BindEnv("payment.remote_token", "PAYMENT_REMOTE_TOKEN")

	v.BindEnv("log.level", "LOG_LEVEL")
}

// Load reads configuration from an optional file, then the environment.
// A missing file is not an error; defaults cover every key.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "memory", "sqlite", "redis", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	switch c.Payment.Mode {
	case "simulated", "remote":
	default:
		errs = append(errs, fmt.Errorf("unknown payment mode %q", c.Payment.Mode))
	}

	if !pinPattern.MatchString(c.Payment.PIN) {
		errs = append(errs, errors.New("payment pin must be 4 digits"))
	}
	if c.Payment.SuccessRate < 0 || c.Payment.SuccessRate > 1 {
		errs = append(errs, fmt.Errorf("payment success rate %v outside [0,1]", c.Payment.SuccessRate))
	}

	// execution outlives the request, so its reply must fit in the write deadline
	if wt := c.Server.WriteTimeout; wt > 0 {
		if c.Payment.Delay >= wt {
			errs = append(errs, fmt.Errorf("payment delay %s must be shorter than server write timeout %s", c.Payment.Delay, wt))
		}
		if c.Payment.RemoteTimeout >= wt {
			errs = append(errs, fmt.Errorf("payment remote timeout %s must be shorter than server write timeout %s", c.Payment.RemoteTimeout, wt))
		}
	}

	if b, err := decimal.NewFromString(c.Wallet.StartingBalance); err != nil || b.IsNegative() {
		errs = append(errs, fmt.Errorf("invalid starting balance %q", c.Wallet.StartingBalance))
	}
	if b, err := decimal.NewFromString(c.Wallet.MonthlyBudget); err != nil || !b.IsPositive() {
		errs = append(errs, fmt.Errorf("invalid monthly budget %q", c.Wallet.MonthlyBudget))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// StartingBalance returns the validated seed balance
func (c *Config) StartingBalance() decimal.Decimal {
	return decimal.RequireFromString(c.Wallet.StartingBalance)
}

// MonthlyBudget returns the validated default budget ceiling
func (c *Config) MonthlyBudget() decimal.Decimal {
	return decimal.RequireFromString(c.Wallet.MonthlyBudget)
}
