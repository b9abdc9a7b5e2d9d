// config.go
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port              string
	MongoURI          string
	MongoDBName       string
	MongoTransactions bool
	RabbitURL         string
	RabbitExchange    string
	JWTSecret         string
	AppEnv            string
	LogLevel          string
	ReportTimezone    string
}

// Load lee .env (si existe) y luego las variables de entorno.
func Load() (*Config, error) {
	// .env es opcional; en contenedores todo viene del entorno
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:              v.GetString("PORT"),
		MongoURI:          v.GetString("MONGO_URI"),
		MongoDBName:       v.GetString("MONGO_DB_NAME"),
		MongoTransactions: v.GetBool("MONGO_TRANSACTIONS"),
		RabbitURL:         v.GetString("RABBIT_URL"),
		RabbitExchange:    v.GetString("RABBIT_EXCHANGE"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		AppEnv:            strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:          v.GetString("LOG_LEVEL"),
		ReportTimezone:    v.GetString("REPORT_TIMEZONE"),
	}

	if cfg.IsProduction() && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET es obligatorio en producción")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://host.docker.internal:27017")
	v.SetDefault("MONGO_DB_NAME", "petshop")
	v.SetDefault("MONGO_TRANSACTIONS", false)
	v.SetDefault("RABBIT_URL", "amqp://host.docker.internal")
	v.SetDefault("RABBIT_EXCHANGE", "pedidos")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REPORT_TIMEZONE", "America/Santiago")
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location es la zona horaria usada para agrupar los reportes.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("REPORT_TIMEZONE inválida %q: %w", c.ReportTimezone, err)
	}
	return loc, nil
}
