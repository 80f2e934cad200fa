package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	TG3D     TG3DConfig     `mapstructure:"tg3d"`
	Tables   TablesConfig   `mapstructure:"tables"`
	Matching MatchingConfig `mapstructure:"matching"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Mail     MailConfig     `mapstructure:"mail"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TG3DConfig holds scan provider configuration
type TG3DConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryMax          int           `mapstructure:"retry_max"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	PoseInterval      time.Duration `mapstructure:"pose_interval"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	RecordLimit       int           `mapstructure:"record_limit"`
}

// TablesConfig names the lookup tables, their encodings and column mapping
type TablesConfig struct {
	Dir           string        `mapstructure:"dir"`
	SizeFile      string        `mapstructure:"size_file"`
	ProductFile   string        `mapstructure:"product_file"`
	AttributeFile string        `mapstructure:"attribute_file"`
	URLFile       string        `mapstructure:"url_file"`
	Encodings     []string      `mapstructure:"encodings"`
	GroupColumn   string        `mapstructure:"group_column"`
	Columns       ColumnsConfig `mapstructure:"columns"`
}

// ColumnsConfig maps table fields to header names
type ColumnsConfig struct {
	UpperMin       string `mapstructure:"upper_min"`
	UpperMax       string `mapstructure:"upper_max"`
	LowerMin       string `mapstructure:"lower_min"`
	LowerMax       string `mapstructure:"lower_max"`
	SizeLabel      string `mapstructure:"size_label"`
	ProductCode    string `mapstructure:"product_code"`
	Attribute      string `mapstructure:"attribute"`
	URLProductCode string `mapstructure:"url_product_code"`
	URL            string `mapstructure:"url"`
}

// MatchingConfig holds keyword, classifier and adjustment settings
type MatchingConfig struct {
	Mode            string   `mapstructure:"mode"`       // "contains" or "prefix"
	Classifier      string   `mapstructure:"classifier"` // "keyword" or "exact"; empty picks by attribute table
	Vocabulary      []string `mapstructure:"vocabulary"`
	AdjustAttribute string   `mapstructure:"adjust_attribute"`
	AdjustOffset    float64  `mapstructure:"adjust_offset"`
}

// DefaultsConfig holds the readings used when a scan lacks them
type DefaultsConfig struct {
	UpperBust           float64 `mapstructure:"upper_bust"`
	LowerBust           float64 `mapstructure:"lower_bust"`
	ShoulderNippleLeft  float64 `mapstructure:"shoulder_nipple_left"`
	ShoulderNippleRight float64 `mapstructure:"shoulder_nipple_right"`
}

// MailConfig holds SMTP settings for report delivery
type MailConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	FromName string        `mapstructure:"from_name"`
	Subject  string        `mapstructure:"subject"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuditConfig holds the audit log database location
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"` // 0 keeps tables for the process lifetime
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level    string        `mapstructure:"level"`
	FilePath string        `mapstructure:"file_path"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// RequireProvider checks the settings needed to call the scan provider
func (c *Config) RequireProvider() error {
	if c.TG3D.APIKey == "" {
		return fmt.Errorf("TG3D API key is required (set SIZEADVISOR_TG3D_API_KEY)")
	}
	return nil
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/sizeadvisor/")

	// SIZEADVISOR_TG3D_API_KEY -> tg3d.api_key
	v.SetEnvPrefix("SIZEADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	config.Matching.Classifier = resolveClassifier(config.Matching.Classifier, config.Tables.AttributeFile)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads .env from the working directory when present
func loadEnvFile() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// TG3D defaults
	v.SetDefault("tg3d.api_key", "")
	v.SetDefault("tg3d.base_url", "https://api.tg3ds.com/api/v1")
	v.SetDefault("tg3d.timeout", "10s")
	v.SetDefault("tg3d.retry_max", 2)
	v.SetDefault("tg3d.requests_per_second", 5.0)
	v.SetDefault("tg3d.burst", 5)
	v.SetDefault("tg3d.pose_interval", "500ms")
	v.SetDefault("tg3d.backoff_base", "500ms")
	v.SetDefault("tg3d.record_limit", 20)

	// Table defaults
	v.SetDefault("tables.dir", ".")
	v.SetDefault("tables.size_file", "調整尺寸_2.58版.csv")
	v.SetDefault("tables.product_file", "商品對應尺寸表.csv")
	v.SetDefault("tables.attribute_file", "胸型屬性.csv")
	v.SetDefault("tables.url_file", "款式官網連結.csv")
	v.SetDefault("tables.encodings", []string{"utf-8-sig", "utf-8", "cp950", "big5"})
	v.SetDefault("tables.group_column", "對應尺寸群組")
	v.SetDefault("tables.columns.upper_min", "上胸圍1")
	v.SetDefault("tables.columns.upper_max", "上胸圍2")
	v.SetDefault("tables.columns.lower_min", "下胸圍1")
	v.SetDefault("tables.columns.lower_max", "下胸圍2")
	v.SetDefault("tables.columns.size_label", "對應尺寸請使用.號隔開")
	v.SetDefault("tables.columns.product_code", "款式代號")
	v.SetDefault("tables.columns.attribute", "胸型屬性")
	v.SetDefault("tables.columns.url_product_code", "款式號碼")
	v.SetDefault("tables.columns.url", "官網連結")

	// Matching defaults
	v.SetDefault("matching.mode", "contains")
	v.SetDefault("matching.classifier", "")
	v.SetDefault("matching.vocabulary", []string{})
	v.SetDefault("matching.adjust_attribute", "成熟承托型")
	v.SetDefault("matching.adjust_offset", 3.0)

	// Measurement defaults
	v.SetDefault("defaults.upper_bust", 82.0)
	v.SetDefault("defaults.lower_bust", 65.0)
	v.SetDefault("defaults.shoulder_nipple_left", 20.0)
	v.SetDefault("defaults.shoulder_nipple_right", 20.0)

	// Mail defaults
	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from_name", "黛莉貝爾智能導購")
	v.SetDefault("mail.subject", "您的黛莉貝爾專業尺寸建議報告")
	v.SetDefault("mail.timeout", "15s")

	// Audit defaults
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.path", "sizeadvisor.db")

	// Cache defaults
	v.SetDefault("cache.ttl", "0s")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_age", "168h")
}

// resolveClassifier fills an unset classifier: the attribute table is keyed by the
// provider's descriptive names, so exact matching is used whenever one is configured.
func resolveClassifier(classifier, attributeFile string) string {
	if classifier != "" {
		return classifier
	}
	if attributeFile != "" {
		return "exact"
	}
	return "keyword"
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Matching.Mode != "contains" && config.Matching.Mode != "prefix" {
		return fmt.Errorf("matching mode must be 'contains' or 'prefix', got: %s", config.Matching.Mode)
	}

	if config.Matching.Classifier != "keyword" && config.Matching.Classifier != "exact" {
		return fmt.Errorf("classifier must be 'keyword' or 'exact', got: %s", config.Matching.Classifier)
	}

	if config.Tables.SizeFile == "" || config.Tables.ProductFile == "" {
		return fmt.Errorf("size and product table files are required")
	}

	if config.Mail.Enabled && (config.Mail.Username == "" || config.Mail.Password == "") {
		return fmt.Errorf("mail username and password are required when mail is enabled")
	}

	if config.Mail.Enabled && config.Mail.Timeout <= 0 {
		return fmt.Errorf("mail timeout must be positive, got: %v", config.Mail.Timeout)
	}

	if config.Audit.Enabled && config.Audit.Path == "" {
		return fmt.Errorf("audit path is required when the audit log is enabled")
	}

	return nil
}
