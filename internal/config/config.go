package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	JWTSecret   string
	KafkaBroker string
	AuditTopic  string

	MailgunDomain string
	MailgunAPIKey string
	MailFrom      string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
}

// Load reads .env (if present) and assembles the config from environment
// variables. Missing optional values fall back to development defaults.
func Load() *Config {
	loadEnv()

	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))

	return &Config{
		Port:        getEnv("PORT", "9000"),
		Env:         getEnv("APP_ENV", "development"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		KafkaBroker: getEnv("KAFKA_BROKER", "localhost:9092"),
		AuditTopic:  getEnv("KAFKA_AUDIT_TOPIC", "audit_logs"),

		MailgunDomain: getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey: getEnv("MAILGUN_API_KEY", ""),
		MailFrom:      getEnv("MAIL_FROM", "BinWise <no-reply@binwise.app>"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     port,
		DBUser:     getEnv("POSTGRES_USER", "postgres"),
		DBPassword: getEnv("POSTGRES_PASSWORD", "postgres"),
		DBName:     getEnv("POSTGRES_DB", "binwise"),
	}
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func loadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("Error getting working directory: %v", err)
		return
	}

	possiblePaths := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}

	for _, envPath := range possiblePaths {
		if err := godotenv.Load(envPath); err == nil {
			log.Printf("Loaded environment variables from %s", envPath)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
