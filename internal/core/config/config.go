package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Log struct {
	Level string
	JSON  bool
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// AWS 对象存储（证件/医学证明/截图）。EndpointURL 非空时指向 LocalStack
type AWS struct {
	Region      string `mapstructure:"region"`
	AccessKeyID string `mapstructure:"access_key_id"`
	SecretKey   string `mapstructure:"secret_key"`
	EndpointURL string `mapstructure:"endpoint_url"`
	Bucket      string `mapstructure:"bucket"`
}

// SNS 短信。Region 为空 → 降级为日志 no-op
type SNS struct {
	Region string `mapstructure:"region"`
}

// SMTP 邮件。Host 为空 → 降级为日志 no-op
type SMTP struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	From     string `mapstructure:"from"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Geocode 正向地理编码（Nominatim 兼容接口）
type Geocode struct {
	BaseURL    string `mapstructure:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

type Alerts struct {
	OpenTTLHours int `mapstructure:"open_ttl_hours"` // 超过时限懒转 expired
	CacheTTLSec  int `mapstructure:"cache_ttl_sec"`  // 公开告警列表缓存
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	DB      DB
	Redis   Redis   `mapstructure:"redis"`
	AWS     AWS     `mapstructure:"aws"`
	SNS     SNS     `mapstructure:"sns"`
	SMTP    SMTP    `mapstructure:"smtp"`
	Geocode Geocode `mapstructure:"geocode"`
	Alerts  Alerts  `mapstructure:"alerts"`
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	if c.Alerts.OpenTTLHours <= 0 {
		c.Alerts.OpenTTLHours = 24
	}
	if c.Alerts.CacheTTLSec <= 0 {
		c.Alerts.CacheTTLSec = 30
	}
	return &c
}
