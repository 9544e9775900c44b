// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する。
// 起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Server
	ServerPort string
	BaseURL    string

	// Blog
	BlogTitle string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// FileConfig はCONFIG_FILEで指定されたYAMLファイルの内容を表す。
// 環境変数が設定されている項目は環境変数が優先される。
type FileConfig struct {
	DatabaseURL        string `yaml:"databaseURL"`
	PgsqlHost          string `yaml:"pgsqlHost"`
	PgsqlDatabase      string `yaml:"pgsqlDatabase"`
	PgsqlUser          string `yaml:"pgsqlUser"`
	PgsqlPassword      string `yaml:"pgsqlPassword"`
	PgsqlSSLMode       string `yaml:"pgsqlSSLMode"`
	GoogleClientID     string `yaml:"googleClientID"`
	GoogleClientSecret string `yaml:"googleClientSecret"`
	GoogleRedirectURL  string `yaml:"googleRedirectURL"`
	SessionSecret      string `yaml:"sessionSecret"`
	SessionMaxAge      int    `yaml:"sessionMaxAge"`
	ServerPort         string `yaml:"serverPort"`
	BaseURL            string `yaml:"baseURL"`
	BlogTitle          string `yaml:"blogTitle"`
	CookieDomain       string `yaml:"cookieDomain"`
}

const (
	defaultServerPort    = "8888"
	defaultSessionMaxAge = 86400
	defaultBlogTitle     = "Launch Log"

	defaultPgsqlHost     = "127.0.0.1:5432"
	defaultPgsqlDatabase = "rocketui"
	defaultPgsqlUser     = "rocketui"
	defaultPgsqlPassword = "rocketui"
	defaultPgsqlSSLMode  = "disable"
)

// Load は環境変数からConfigを読み込む。
// CONFIG_FILEが設定されている場合は先にYAMLファイルを読み込み、環境変数で上書きする。
// 必須項目が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	var file FileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.GoogleClientID = getEnvString("GOOGLE_CLIENT_ID", file.GoogleClientID)
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = getEnvString("GOOGLE_CLIENT_SECRET", file.GoogleClientSecret)
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.SessionSecret = getEnvString("SESSION_SECRET", file.SessionSecret)
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = strings.TrimRight(getEnvString("BASE_URL", file.BaseURL), "/")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DatabaseURL = getEnvString("DATABASE_URL", file.DatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = buildDatabaseURL(
			getEnvString("PGSQL_HOST", orDefault(file.PgsqlHost, defaultPgsqlHost)),
			getEnvString("PGSQL_DATABASE", orDefault(file.PgsqlDatabase, defaultPgsqlDatabase)),
			getEnvString("PGSQL_USER", orDefault(file.PgsqlUser, defaultPgsqlUser)),
			getEnvString("PGSQL_PASSWORD", orDefault(file.PgsqlPassword, defaultPgsqlPassword)),
			getEnvString("PGSQL_SSLMODE", orDefault(file.PgsqlSSLMode, defaultPgsqlSSLMode)),
		)
	}

	cfg.GoogleRedirectURL = getEnvString("GOOGLE_REDIRECT_URL", orDefault(file.GoogleRedirectURL, cfg.BaseURL+"/auth/login"))
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", orDefaultInt(file.SessionMaxAge, defaultSessionMaxAge))
	if cfg.SessionMaxAge <= 0 {
		return nil, fmt.Errorf("SESSION_MAX_AGE must be a positive number of seconds, got %d", cfg.SessionMaxAge)
	}
	cfg.ServerPort = getEnvString("SERVER_PORT", orDefault(file.ServerPort, defaultServerPort))
	cfg.BlogTitle = getEnvString("BLOG_TITLE", orDefault(file.BlogTitle, defaultBlogTitle))
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", file.CookieDomain)

	return cfg, nil
}

// LoadFile はYAML設定ファイルを読み込む。
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

// buildDatabaseURL はホスト・DB名・認証情報からPostgreSQLの接続URLを組み立てる。
func buildDatabaseURL(host, database, user, password, sslMode string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host,
		Path:     "/" + database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

func orDefault(v, defaultVal string) string {
	if v != "" {
		return v
	}
	return defaultVal
}

func orDefaultInt(v, defaultVal int) int {
	if v != 0 {
		return v
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
