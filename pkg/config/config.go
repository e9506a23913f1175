package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Mongo     MongoConfig
	SQLite    SQLiteConfig
	LLM       LLMConfig
	Assistant AssistantConfig
	Upload    UploadConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	ReadTimeout   int
	WriteTimeout  int
	BodyLimit     int
	CORSOrigins   string
	IsDevelopment bool
}

// StorageConfig selects the ChatMessage store: "sqlite" or "mongo".
type StorageConfig struct {
	Driver string
}

type MongoConfig struct {
	URL        string
	Database   string
	Collection string
}

type SQLiteConfig struct {
	Path string
}

type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
	// IntentModels overrides Model per message type.
	IntentModels map[string]string
}

type AssistantConfig struct {
	ProductName string
	Audience    string
}

type UploadConfig struct {
	MaxFileSize  int
	MaxTextChars int
	TempDir      string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// AllowedOrigins splits the comma separated CORS origin list.
func (s ServerConfig) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(s.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/wikiai")

	v.SetEnvPrefix("WIKIAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// A Mongo URL implies the Mongo store unless a driver was chosen explicitly.
	if config.Storage.Driver == "" {
		config.Storage.Driver = "sqlite"
		if config.Mongo.URL != "" {
			config.Storage.Driver = "mongo"
		}
	}

	return &config, nil
}

// bindLegacyEnv keeps the variable names deployments of the service already use.
func bindLegacyEnv(v *viper.Viper) error {
	if err := v.BindEnv("storage.driver"); err != nil {
		return fmt.Errorf("failed to bind storage driver: %w", err)
	}

	legacy := map[string]string{
		"mongo.url":          "MONGO_URL",
		"mongo.database":     "DB_NAME",
		"llm.apiKey":         "EMERGENT_LLM_KEY",
		"server.corsOrigins": "CORS_ORIGINS",
	}
	for key, env := range legacy {
		prefixed := "WIKIAI_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)
	v.SetDefault("server.bodyLimit", 32*1024*1024)
	v.SetDefault("server.corsOrigins", "*")
	v.SetDefault("server.isDevelopment", false)

	v.SetDefault("mongo.url", "")
	v.SetDefault("mongo.database", "wikiai")
	v.SetDefault("mongo.collection", "chat_messages")

	v.SetDefault("sqlite.path", "./data/wikiai.db")

	v.SetDefault("llm.baseURL", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.maxTokens", 2048)
	v.SetDefault("llm.timeoutSec", 60)
	v.SetDefault("llm.intentModels", map[string]string{})

	v.SetDefault("assistant.productName", "WikiAI")
	v.SetDefault("assistant.audience", "étudiants québécois")

	v.SetDefault("upload.maxFileSize", 10*1024*1024)
	v.SetDefault("upload.maxTextChars", 50000)
	v.SetDefault("upload.tempDir", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
