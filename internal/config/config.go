package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	WalletEvents  string `mapstructure:"wallet_events"`
	BillingEvents string `mapstructure:"billing_events"`
}

type AuthConfig struct {
	// APIKey 静态服务密钥，命中即为 system 身份（super_admin）
	APIKey string `mapstructure:"api_key"`
	// JWTSecret 身份提供方签发令牌的验签密钥
	JWTSecret string `mapstructure:"jwt_secret"`
}

type PaymentConfig struct {
	// WebhookSecret 回调签名密钥
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type UploadConfig struct {
	// Dir 上传文件落盘目录（对外公开目录）
	Dir string `mapstructure:"dir"`
	// MaxSizeMB 单文件大小上限
	MaxSizeMB int `mapstructure:"max_size_mb"`
}

type BusinessConfig struct {
	InviteTTLHours int `mapstructure:"invite_ttl_hours"`
	MaxRetryCount  int `mapstructure:"max_retry_count"`
}

var GlobalConfig *Config

// LoadConfig 加载配置文件，环境变量优先于文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 敏感配置走环境变量注入
	bindEnvs := map[string]string{
		"auth.api_key":           "SUPER_ADMIN_API_KEY",
		"auth.jwt_secret":        "AUTH_JWT_SECRET",
		"payment.webhook_secret": "PAYMENT_WEBHOOK_SECRET",
		"smtp.host":              "SMTP_HOST",
		"smtp.port":              "SMTP_PORT",
		"smtp.username":          "SMTP_USER",
		"smtp.password":          "SMTP_PASS",
		"smtp.from":              "EMAIL_FROM",
	}
	for key, env := range bindEnvs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("绑定环境变量失败: %s -> %s: %v", env, key, err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
