package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	_ "github.com/joho/godotenv/autoload"

	"smartroom/utils/mongodb"
)

// Config holds all application configuration
type Config struct {
	MongoDB mongodb.Config
	Server  ServerConfig
	Redis   RedisConfig
	Minio   MinioConfig
	JWT     JWTConfig
	Media   MediaConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string `env:"SERVER_PORT" envDefault:"8080"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET" envDefault:"smartroom-media"`
	PublicURL string `env:"MINIO_PUBLIC_URL" envDefault:"http://localhost:9000"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET,required"`
	TTL    time.Duration `env:"JWT_TTL" envDefault:"72h"`
}

// MediaConfig names the upload failure policy per call site: a missing avatar
// is tolerable at registration, a missing room photo is not.
type MediaConfig struct {
	AvatarPlaceholderURL     string `env:"AVATAR_PLACEHOLDER_URL" envDefault:"https://res.cloudinary.com/demo/image/upload/v1625213715/sample.jpg"`
	AllowAvatarUploadFailure bool   `env:"ALLOW_AVATAR_UPLOAD_FAILURE" envDefault:"true"`
}

// NewConfig creates a new Config
func NewConfig() (*Config, error) {
	cfg := new(Config)
	err := env.Parse(cfg)

	return cfg, err
}
