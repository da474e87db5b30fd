package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	BucketMedia        = "media"
	BucketCertificates = "certificates"
)

type Config struct {
	Env           string     `yaml:"env" env:"APP_ENV" env-default:"local"`
	PublicBaseURL string     `yaml:"public_base_url" env:"PUBLIC_BASE_URL" env-default:"http://localhost:8081"`
	HTTPServer    HTTPServer `yaml:"http_server"`
	Postgres      Postgres   `yaml:"postgres"`
	JWT           JWT        `yaml:"jwt"`
	Minio         Minio      `yaml:"minio"`
	Stripe        Stripe     `yaml:"stripe"`
	SendGrid      SendGrid   `yaml:"sendgrid"`
	Redis         Redis      `yaml:"redis"`
	Scheduler     Scheduler  `yaml:"scheduler"`
}

type Minio struct {
	Endpoint  string                  `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"minio:9000"`
	AccessKey string                  `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string                  `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	UseSSL    bool                    `yaml:"use_ssl" env:"MINIO_USE_SSL"`
	Buckets   map[string]BucketConfig `yaml:"buckets"`
}

type BucketConfig struct {
	Name       string        `yaml:"name"`
	PresignTTL time.Duration `yaml:"presign_ttl" env-default:"1h"`
}

type JWT struct {
	SecretKey  string        `yaml:"secret_key" env:"JWT_SECRET_KEY"`
	Issuer     string        `yaml:"issuer" env-default:"course-market"`
	AccessTTL  time.Duration `yaml:"access_token_ttl" env-default:"15m"`
	RefreshTTL time.Duration `yaml:"refresh_token_ttl" env-default:"720h"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
	Migrate  bool   `yaml:"migrate" env-default:"true"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8081"`
	Timeout     time.Duration `yaml:"timeout" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// Upload limit for multipart video and thumbnail requests.
	MaxUploadBytes int64    `yaml:"max_upload_bytes" env-default:"1073741824"`
	AllowOrigins   []string `yaml:"allow_origins" env-default:"http://localhost:5173"`
}

type Stripe struct {
	SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	Currency      string `yaml:"currency" env-default:"usd"`
}

type SendGrid struct {
	APIKey    string `yaml:"api_key" env:"SENDGRID_API_KEY"`
	FromEmail string `yaml:"from_email" env:"SENDGRID_FROM_EMAIL" env-default:"no-reply@coursemarket.local"`
	FromName  string `yaml:"from_name" env-default:"Course Market"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env-default:"0"`
	EventTTL time.Duration `yaml:"event_ttl" env-default:"72h"`
}

type Scheduler struct {
	OverdueSpec string `yaml:"overdue_spec" env-default:"0 3 * * *"`
}

func MustLoad() *Config {
	// A missing .env is fine; secrets may come from the real environment.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can not read config file: %s", err)
	}

	return &cfg
}

// Bucket returns the named bucket settings, falling back to the key as bucket name.
func (m Minio) Bucket(key string) BucketConfig {
	if bc, ok := m.Buckets[key]; ok && bc.Name != "" {
		if bc.PresignTTL == 0 {
			bc.PresignTTL = time.Hour
		}
		return bc
	}
	return BucketConfig{Name: key, PresignTTL: time.Hour}
}
