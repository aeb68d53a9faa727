package config

import (
	"bytes"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 2333
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBName     = "newsbrief"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultIndexKey   = "archive:index"
	defaultBaseURL    = "http://localhost:2333"

	defaultCaptchaVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
)

// AppConfig holds runtime startup configuration loaded from YAML, with
// secrets overridable from the environment.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	S3             S3Config              `yaml:"s3"`
	Captcha        CaptchaConfig         `yaml:"captcha"`
	Mail           MailConfig            `yaml:"mail"`
	Site           SiteConfig            `yaml:"site"`
	AllowedOrigins []string              `yaml:"allowed_origins"`

	// AdminSecret guards the admin endpoints (?secret= and Bearer).
	AdminSecret string `yaml:"admin_secret"`
	// LinkSecret is the HMAC key for unsubscribe link signatures. Rotating it
	// invalidates every previously issued unsubscribe link.
	LinkSecret string `yaml:"link_secret"`
	// DoubleOptIn makes brand-new subscribers pending until the emailed
	// verification link is clicked. Off by default: a passing captcha is
	// treated as sufficient proof.
	DoubleOptIn bool `yaml:"double_opt_in"`

	ArchiveIndexKey string `yaml:"archive_index_key"`

	// DSN and RedisURL are derived from the nested sections.
	DSN      string `yaml:"-"`
	RedisURL string `yaml:"-"`
}

type DatabaseRuntimeConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	Loc      string `yaml:"loc"`
}

type RedisRuntimeConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyleAccess bool   `yaml:"path_style_access"`
}

type CaptchaConfig struct {
	Secret    string `yaml:"secret"`
	VerifyURL string `yaml:"verify_url"`
}

// MailConfig describes the outbound mail provider: an OAuth2
// client-credentials token endpoint plus a JSON send API.
type MailConfig struct {
	Enable       bool   `yaml:"enable"`
	From         string `yaml:"from"`
	TokenURL     string `yaml:"token_url"`
	SendURL      string `yaml:"send_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Scope        string `yaml:"scope"`
}

type SiteConfig struct {
	BaseURL string `yaml:"base_url"`
	Title   string `yaml:"title"`
}

// Load reads the YAML config file, applies defaults, then applies
// environment overrides for secrets.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()

	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
		// Missing file is fine: everything can come from the environment.
	} else {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	normalize(&cfg)

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.LinkSecret == "" {
		return nil, fmt.Errorf("link_secret is required (config or NB_LINK_SECRET)")
	}
	if cfg.AdminSecret == "" {
		return nil, fmt.Errorf("admin_secret is required (config or NB_ADMIN_SECRET)")
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Host:    defaultDBHost,
			Port:    defaultDBPort,
			User:    defaultDBUser,
			Name:    defaultDBName,
			Charset: defaultDBCharset,
			Loc:     defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
		},
		Captcha: CaptchaConfig{
			VerifyURL: defaultCaptchaVerifyURL,
		},
		Site: SiteConfig{
			BaseURL: defaultBaseURL,
			Title:   "Newsbrief",
		},
		ArchiveIndexKey: defaultIndexKey,
	}
}

// applyEnvOverrides lets every secret live outside the YAML file.
func applyEnvOverrides(cfg *AppConfig) {
	setIfEnv := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setIfEnv(&cfg.AdminSecret, "NB_ADMIN_SECRET")
	setIfEnv(&cfg.LinkSecret, "NB_LINK_SECRET")
	setIfEnv(&cfg.Captcha.Secret, "NB_CAPTCHA_SECRET")
	setIfEnv(&cfg.Database.DSN, "NB_DATABASE_DSN")
	setIfEnv(&cfg.Database.Password, "NB_DATABASE_PASSWORD")
	setIfEnv(&cfg.Redis.URL, "NB_REDIS_URL")
	setIfEnv(&cfg.Redis.Password, "NB_REDIS_PASSWORD")
	setIfEnv(&cfg.S3.AccessKeyID, "NB_S3_ACCESS_KEY_ID")
	setIfEnv(&cfg.S3.SecretAccessKey, "NB_S3_SECRET_ACCESS_KEY")
	setIfEnv(&cfg.Mail.ClientID, "NB_MAIL_CLIENT_ID")
	setIfEnv(&cfg.Mail.ClientSecret, "NB_MAIL_CLIENT_SECRET")
}

func normalize(cfg *AppConfig) {
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.ArchiveIndexKey == "" {
		cfg.ArchiveIndexKey = defaultIndexKey
	}
	if cfg.Captcha.VerifyURL == "" {
		cfg.Captcha.VerifyURL = defaultCaptchaVerifyURL
	}
	cfg.Site.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Site.BaseURL), "/")
	if cfg.Site.BaseURL == "" {
		cfg.Site.BaseURL = defaultBaseURL
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
}

func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultDBHost
	}
	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}
	user := strings.TrimSpace(c.User)
	if user == "" {
		user = defaultDBUser
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = defaultDBName
	}
	charset := strings.TrimSpace(c.Charset)
	if charset == "" {
		charset = defaultDBCharset
	}
	loc := strings.TrimSpace(c.Loc)
	if loc == "" {
		loc = defaultDBLoc
	}

	params := neturl.Values{}
	params.Set("charset", charset)
	params.Set("parseTime", "true")
	params.Set("loc", loc)

	auth := user
	if password := strings.TrimSpace(c.Password); password != "" {
		auth += ":" + password
	}

	return fmt.Sprintf("%s@tcp(%s)/%s?%s",
		auth, net.JoinHostPort(host, strconv.Itoa(port)), name, params.Encode())
}

func (c RedisRuntimeConfig) URLValue() string {
	if trimmed := strings.TrimSpace(c.URL); trimmed != "" {
		if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
			return trimmed
		}
		return "redis://" + trimmed
	}

	host := strings.TrimSpace(c.Host)
	if host == "" {
		host = defaultRedisHost
	}
	port := c.Port
	if port == 0 {
		port = defaultRedisPort
	}

	scheme := "redis"
	if c.TLS {
		scheme = "rediss"
	}

	u := &neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + strconv.Itoa(c.DB),
	}
	username := strings.TrimSpace(c.Username)
	password := strings.TrimSpace(c.Password)
	switch {
	case username != "" && password != "":
		u.User = neturl.UserPassword(username, password)
	case username != "":
		u.User = neturl.User(username)
	case password != "":
		u.User = neturl.UserPassword("", password)
	}
	return u.String()
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}
