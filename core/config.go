package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName                   string
		Env                       string // DEV (local; default), TEST, QA, PROD
		Build                     string
		Debug                     bool
		TestMode                  bool
		SecretKey                 string
		FrontendBaseURL           string
		PasswordResetTimeoutDelta time.Duration
		RollbarToken              string
		SendgridAPIKey            string

		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetRateLimit    int // requests per email per hour
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite file
	}

	RedisConfig struct {
		Addr     string // empty: in-memory cache
		Password string
		DB       int
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, strconv.Itoa(dbc.Port))
}

func (dbc DatabaseConfig) IsSQLite() bool {
	return dbc.Engine == "sqlite"
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: "noreply@localhost"}
	}
	if addr.Name == "" {
		addr.Name = conf.AppName
	}
	return *addr
}

// NewConfig loads the configuration from the environment.
// ENV selects the environment and the env vars prefix (eg. PROD_SECRET_KEY);
// config/.env.<env> is loaded beforehand if it exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("test_mode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("app_name", "Shule")
	v.SetDefault("secret_key", "kq9-2mer)fnb$+31=dz&uoxh7(h!x)#*c2(#yg4h^$cegm2pmz")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("default_from_email", "Shule <noreply@localhost>")
	v.SetDefault("password_reset_timeout_delta", 3*24*time.Hour)
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")

	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_address", ":8000")
	v.SetDefault("server_debug_host", ":4000")
	v.SetDefault("server_shutdown_timeout", 5*time.Second)
	v.SetDefault("server_jwt_expiration_delta", 7*24*time.Hour)
	v.SetDefault("server_jwt_refresh_expiration_delta", 30*24*time.Hour)
	v.SetDefault("server_password_reset_rate_limit", 5)

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", 5432)
	v.SetDefault("database_name", "shule")
	v.SetDefault("database_user", "shule")
	v.SetDefault("database_password", "shule")
	v.SetDefault("database_admin_user", "postgres")
	v.SetDefault("database_admin_password", "")
	v.SetDefault("database_disable_tls", true)
	v.SetDefault("database_path", "shule.db")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("test_mode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:                   v.GetString("app_name"),
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("test_mode"),
		SecretKey:                 v.GetString("secret_key"),
		FrontendBaseURL:           v.GetString("frontend_base_url"),
		PasswordResetTimeoutDelta: v.GetDuration("password_reset_timeout_delta"),
		RollbarToken:              v.GetString("rollbar_token"),
		SendgridAPIKey:            v.GetString("sendgrid_api_key"),
		defaultFromEmail:          v.GetString("default_from_email"),
		Server: ServerConfig{
			Host:                      v.GetString("server_host"),
			Address:                   v.GetString("server_address"),
			DebugHost:                 v.GetString("server_debug_host"),
			ShutdownTimeout:           v.GetDuration("server_shutdown_timeout"),
			JWTExpirationDelta:        v.GetDuration("server_jwt_expiration_delta"),
			JWTRefreshExpirationDelta: v.GetDuration("server_jwt_refresh_expiration_delta"),
			PasswordResetRateLimit:    v.GetInt("server_password_reset_rate_limit"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database_engine"),
			Host:          v.GetString("database_host"),
			Port:          v.GetInt("database_port"),
			Name:          v.GetString("database_name"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_admin_user"),
			AdminPassword: v.GetString("database_admin_password"),
			DisableTLS:    v.GetBool("database_disable_tls"),
			Path:          v.GetString("database_path"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: sqlite, in-memory cache, no remote services.
func NewTestConfig() *Config {
	return &Config{
		AppName:                   "Shule",
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		SecretKey:                 "test-secret",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		defaultFromEmail:          "Shule <noreply@localhost>",
		Server: ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			PasswordResetRateLimit:    3,
		},
		Database: DatabaseConfig{Engine: "sqlite"},
	}
}
