package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every service setting.
type Config struct {
	Server  ServerConfig
	Prose   ProseConfig
	Media   MediaConfig
	Speech  SpeechConfig
	Storage StorageConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	prose, err := loadProseConfig()
	if err != nil {
		return nil, err
	}

	media, err := loadMediaConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Prose:   prose,
		Media:   media,
		Speech:  speech,
		Storage: loadStorageConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener and the externally visible base
// URL used when building share links.
type ServerConfig struct {
	Addr string
	// PublicBaseURL prefixes share URLs. Empty means relative links.
	PublicBaseURL string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3001"
	}

	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")

	if strings.Contains(port, ":") {
		// Allow passing ":3001" or "127.0.0.1:3001" directly.
		return ServerConfig{Addr: port, PublicBaseURL: baseURL}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, PublicBaseURL: baseURL}, nil
}

// ProseConfig describes the text generation model.
type ProseConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c ProseConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds the chat model instance from the configuration.
func (c ProseConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("prose model credentials missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadProseConfig() (ProseConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return ProseConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return ProseConfig{}, err
	}

	return ProseConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

// MediaConfig describes the asynchronous image/animation backend.
type MediaConfig struct {
	BaseURL      string
	APIToken     string
	ModelVersion string
	Width        int
	Height       int
	Steps        int
	Guidance     float64
	PollInterval time.Duration
	MaxAttempts  int
}

// Enabled reports whether the media backend can be called.
func (c MediaConfig) Enabled() bool {
	return c.APIToken != "" && c.ModelVersion != ""
}

func loadMediaConfig() (MediaConfig, error) {
	pollSeconds, err := parseOptionalIntEnv("MEDIA_POLL_INTERVAL_SECONDS")
	if err != nil {
		return MediaConfig{}, err
	}
	pollInterval := 2 * time.Second
	if pollSeconds != nil && *pollSeconds > 0 {
		pollInterval = time.Duration(*pollSeconds) * time.Second
	}

	maxAttempts := 60
	if attempts, err := parseOptionalIntEnv("MEDIA_POLL_MAX_ATTEMPTS"); err != nil {
		return MediaConfig{}, err
	} else if attempts != nil && *attempts > 0 {
		maxAttempts = *attempts
	}

	width, err := parseIntEnvOrDefault("MEDIA_WIDTH", 1344)
	if err != nil {
		return MediaConfig{}, err
	}
	height, err := parseIntEnvOrDefault("MEDIA_HEIGHT", 768)
	if err != nil {
		return MediaConfig{}, err
	}
	steps, err := parseIntEnvOrDefault("MEDIA_STEPS", 30)
	if err != nil {
		return MediaConfig{}, err
	}

	guidance := 7.5
	if g, err := parseOptionalFloatEnv("MEDIA_GUIDANCE"); err != nil {
		return MediaConfig{}, err
	} else if g != nil {
		guidance = *g
	}

	return MediaConfig{
		BaseURL:      getEnvOrDefault("MEDIA_BASE_URL", "https://api.replicate.com"),
		APIToken:     strings.TrimSpace(os.Getenv("MEDIA_API_TOKEN")),
		ModelVersion: strings.TrimSpace(os.Getenv("MEDIA_MODEL_VERSION")),
		Width:        width,
		Height:       height,
		Steps:        steps,
		Guidance:     guidance,
		PollInterval: pollInterval,
		MaxAttempts:  maxAttempts,
	}, nil
}

// SpeechConfig describes the narration backend.
type SpeechConfig struct {
	Endpoint    string
	AppID       string
	AccessToken string
	Voice       string
	Speed       float32
	Volume      float32
	Enabled     bool
}

func loadSpeechConfig() (SpeechConfig, error) {
	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsSpeed := float32(1.0)
	if speed != nil {
		ttsSpeed = *speed
	}

	volume, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsVolume := float32(1.0)
	if volume != nil {
		ttsVolume = *volume
	}

	appID := strings.TrimSpace(os.Getenv("SPEECH_APP_ID"))
	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))

	return SpeechConfig{
		Endpoint:    getEnvOrDefault("SPEECH_ENDPOINT", "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"),
		AppID:       appID,
		AccessToken: accessToken,
		Voice:       getEnvOrDefault("SPEECH_TTS_VOICE", ""),
		Speed:       ttsSpeed,
		Volume:      ttsVolume,
		Enabled:     appID != "" && accessToken != "",
	}, nil
}

// StorageConfig describes where records and files live on disk.
type StorageConfig struct {
	DataDir  string
	AssetDir string
	MediaDir string
}

// DBPath is the SQLite database location.
func (c StorageConfig) DBPath() string {
	return c.DataDir + "/chronicles.db"
}

func loadStorageConfig() StorageConfig {
	dataDir := getEnvOrDefault("DATA_DIR", "data")
	return StorageConfig{
		DataDir:  dataDir,
		AssetDir: getEnvOrDefault("ASSET_DIR", dataDir+"/pool"),
		MediaDir: getEnvOrDefault("MEDIA_DIR", dataDir+"/media"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnvOrDefault(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	return *val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
