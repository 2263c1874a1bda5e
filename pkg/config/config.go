package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"github.com/xaenox/sentia/internal/classifier"
	"github.com/xaenox/sentia/internal/storage"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
}

type ClassifierConfig struct {
	MaxWords         int     `mapstructure:"max_words"`
	MaxLen           int     `mapstructure:"max_len"`
	EmbeddingDim     int     `mapstructure:"embedding_dim"`
	LSTMUnits        int     `mapstructure:"lstm_units"`
	DenseUnits       int     `mapstructure:"dense_units"`
	Dropout          float64 `mapstructure:"dropout"`
	RecurrentDropout float64 `mapstructure:"recurrent_dropout"`
	Epochs           int     `mapstructure:"epochs"`
	BatchSize        int     `mapstructure:"batch_size"`
	ValidationSplit  float64 `mapstructure:"validation_split"`
	LearningRate     float64 `mapstructure:"learning_rate"`
	Seed             int64   `mapstructure:"seed"`
	ModelID          string  `mapstructure:"model_id"`
	Workers          int     `mapstructure:"workers"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// Model converts the classifier section into training hyperparameters. The
// dense dropout follows the LSTM input dropout.
func (c ClassifierConfig) Model() classifier.Config {
	return classifier.Config{
		MaxWords:         c.MaxWords,
		MaxLen:           c.MaxLen,
		EmbeddingDim:     c.EmbeddingDim,
		Units:            c.LSTMUnits,
		DenseUnits:       c.DenseUnits,
		Dropout:          c.Dropout,
		RecurrentDropout: c.RecurrentDropout,
		DenseDropout:     c.Dropout,
		Epochs:           c.Epochs,
		BatchSize:        c.BatchSize,
		ValidationSplit:  c.ValidationSplit,
		LearningRate:     c.LearningRate,
		Seed:             c.Seed,
		ModelID:          c.ModelID,
		Workers:          c.Workers,
	}
}

// Enabled reports whether an API key was configured for the external model.
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

func (c OpenAIConfig) GPT() classifier.GPTConfig {
	return classifier.GPTConfig{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
}

func (c DatabaseConfig) Postgres() storage.DatabaseConfig {
	return storage.DatabaseConfig{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.DBName,
		SSLMode:  c.SSLMode,
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory, DriverPostgres:
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	cl := c.Classifier
	sizes := map[string]int{
		"classifier.max_words":     cl.MaxWords,
		"classifier.max_len":       cl.MaxLen,
		"classifier.embedding_dim": cl.EmbeddingDim,
		"classifier.lstm_units":    cl.LSTMUnits,
		"classifier.dense_units":   cl.DenseUnits,
		"classifier.epochs":        cl.Epochs,
		"classifier.batch_size":    cl.BatchSize,
		"classifier.workers":       cl.Workers,
	}
	for key, v := range sizes {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, v)
		}
	}
	if cl.Dropout < 0 || cl.Dropout >= 1 {
		return fmt.Errorf("classifier.dropout must be in [0, 1), got %v", cl.Dropout)
	}
	if cl.RecurrentDropout < 0 || cl.RecurrentDropout >= 1 {
		return fmt.Errorf("classifier.recurrent_dropout must be in [0, 1), got %v", cl.RecurrentDropout)
	}
	if cl.ValidationSplit <= 0 || cl.ValidationSplit >= 1 {
		return fmt.Errorf("classifier.validation_split must be in (0, 1), got %v", cl.ValidationSplit)
	}
	if cl.LearningRate <= 0 {
		return fmt.Errorf("classifier.learning_rate must be positive, got %v", cl.LearningRate)
	}
	return nil
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q", u.Port())
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Driver:   DriverPostgres,
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  sslMode,
	}, nil
}

// LoadEnv loads KEY=VALUE pairs from file into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadEnv(file string) error {
	if err := gotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", file, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "sentia")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "sentia.db")

	defaults := classifier.DefaultConfig()
	v.SetDefault("classifier.max_words", defaults.MaxWords)
	v.SetDefault("classifier.max_len", defaults.MaxLen)
	v.SetDefault("classifier.embedding_dim", defaults.EmbeddingDim)
	v.SetDefault("classifier.lstm_units", defaults.Units)
	v.SetDefault("classifier.dense_units", defaults.DenseUnits)
	v.SetDefault("classifier.dropout", defaults.Dropout)
	v.SetDefault("classifier.recurrent_dropout", defaults.RecurrentDropout)
	v.SetDefault("classifier.epochs", defaults.Epochs)
	v.SetDefault("classifier.batch_size", defaults.BatchSize)
	v.SetDefault("classifier.validation_split", defaults.ValidationSplit)
	v.SetDefault("classifier.learning_rate", defaults.LearningRate)
	v.SetDefault("classifier.seed", defaults.Seed)
	v.SetDefault("classifier.model_id", defaults.ModelID)
	v.SetDefault("classifier.workers", defaults.Workers)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 150)
	v.SetDefault("openai.temperature", 0.0)

	v.SetDefault("telegram.token", "")
	v.SetDefault("log.development", false)
}

// LoadConfig reads the optional YAML file at path, applies environment
// overrides (server.addr <- SERVER_ADDR and so on, plus DATABASE_URL) and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.Path = config.Database.Path
		config.Database = dbConfig
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
