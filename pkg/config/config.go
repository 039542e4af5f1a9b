package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
	Slack    SlackConfig
	Session  SessionConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	Path string
}

type GitHubConfig struct {
	Organization string
	Token        string
	ClientID     string
	ClientSecret string
	CallbackURL  string
	ProxyURL     string
	DefaultTeam  []string
	DefaultRepos []string
}

type SlackConfig struct {
	Token   string
	Channel string
}

type SessionConfig struct {
	Secret string
}

type PipelineConfig struct {
	Workers        int
	ProxyRateLimit int
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 15),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./prtracker.db"),
		},
		GitHub: GitHubConfig{
			Organization: getEnv("GITHUB_ORG", "GoHighLevel"),
			Token:        getEnv("GITHUB_TOKEN", ""),
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			CallbackURL:  getEnv("GITHUB_CALLBACK_URL", ""),
			ProxyURL:     getEnv("GITHUB_PROXY_URL", "http://localhost:8080/github-api"),
			DefaultTeam:  getEnvAsList("DEFAULT_TEAM_MEMBERS", "ajayreddy611,ayush-highlevel,nihalmaddela12,hammad-ghl"),
			DefaultRepos: getEnvAsList("DEFAULT_REPOS", "leadgen-marketplace-backend,ghl-content-ai,spm-ts,platform-backend"),
		},
		Slack: SlackConfig{
			Token:   getEnv("SLACK_TOKEN", ""),
			Channel: getEnv("SLACK_CHANNEL", ""),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", "default-secret-key"),
		},
		Pipeline: PipelineConfig{
			Workers:        getEnvAsInt("PIPELINE_WORKERS", 6),
			ProxyRateLimit: getEnvAsInt("PROXY_RATE_LIMIT", 60),
		},
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsList gets a comma-separated environment variable as a string slice
func getEnvAsList(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
