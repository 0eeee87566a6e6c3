package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr           string
		Environment    string
		AllowedOrigins []string
		TrustedProxies []string
		Version        string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret      string
		Issuer         string
		TokenTTL       time.Duration
		RegisterSecret string
		BcryptCost     int
	}
	Lockout struct {
		MaxAttempts int
		Duration    time.Duration
	}
	Contact struct {
		DuplicateWindow time.Duration
	}
	Mail struct {
		Host       string
		Port       int
		Username   string
		Password   string
		From       string
		AdminEmail string
		Timeout    time.Duration
	}
	Storage struct {
		Bucket        string
		KeyPrefix     string
		Region        string
		Endpoint      string
		PublicBaseURL string
		PresignTTL    time.Duration
	}
	AWS struct {
		Profile string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	RateLimit struct {
		Window        time.Duration
		GlobalLimit   int
		ContactLimit  int
		ContactWindow time.Duration
		Prefix        string
	}
	AMQP struct {
		URL   string
		Queue string
	}
	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// .env never overrides variables already present in the environment.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BUREAU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.Server.TrustedProxies = splitList(cfg.Server.TrustedProxies)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowedorigins", []string{"http://localhost:3000"})
	v.SetDefault("server.trustedproxies", []string{})
	v.SetDefault("server.version", "1.0.0")
	v.SetDefault("database.path", "data/bureau.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.issuer", "bureau-engine")
	v.SetDefault("auth.tokenttl", 7*24*time.Hour)
	v.SetDefault("auth.registersecret", "")
	v.SetDefault("auth.bcryptcost", 12)
	v.SetDefault("lockout.maxattempts", 5)
	v.SetDefault("lockout.duration", 2*time.Hour)
	v.SetDefault("contact.duplicatewindow", time.Hour)
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.adminemail", "")
	v.SetDefault("mail.timeout", 30*time.Second)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicbaseurl", "")
	v.SetDefault("storage.presignttl", 24*time.Hour)
	v.SetDefault("aws.profile", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.window", 15*time.Minute)
	v.SetDefault("ratelimit.globallimit", 100)
	v.SetDefault("ratelimit.contactlimit", 3)
	v.SetDefault("ratelimit.contactwindow", 15*time.Minute)
	v.SetDefault("ratelimit.prefix", "bureau:ratelimit")
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.queue", "bureau.notifications")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// splitList accepts both list values and a single comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// IsProduction reports whether the server runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}
