// Package config loads FaceGuard's env-backed settings (spec.md §6) and
// seeds the local rule-config store from a YAML file at boot, mirroring
// the teacher's config/default.yaml + env var pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config bundles every setting spec.md §6's Configuration paragraph names.
type Config struct {
	ServiceHost string
	ServicePort int
	LogLevel    string

	CameraSources              []string
	CameraFrameRate            int
	CameraResolutionWidth      int
	CameraResolutionHeight     int
	CameraReconnectAttempts    int
	CameraReconnectDelay       int
	CameraHealthCheckInterval  int

	FrameQualityThreshold float64
	FrameBufferSize       int
	MaxConcurrentCameras  int

	CoreDataServiceURL       string
	FaceRecognitionServiceURL string
	IntegrationTimeout       int
	IntegrationRetryAttempts int

	RedisHost string
	RedisPort int
	RedisDB   int

	NATSURL string

	DBHost string
	DBPort int
	DBUser string
	DBPass string
	DBName string

	EncryptionKey string

	EventChannel   string
	EventBatchSize int

	WebhookIngestSecret string

	RulesConfigPath string

	Features FeatureFlags
}

// FeatureFlags are the boolean toggles spec.md §6 lists alongside the
// numeric/env settings.
type FeatureFlags struct {
	MultiCamera        bool
	FrameQualityCheck  bool
	EventPublishing    bool
	HealthMonitoring   bool
	Analytics          bool
}

// Load reads every setting from the environment, applying the defaults
// and ranges spec.md §6 specifies (camera_frame_rate 1-30, etc).
func Load() (*Config, error) {
	c := &Config{
		ServiceHost: getEnv("SERVICE_HOST", "0.0.0.0"),
		ServicePort: getEnvInt("SERVICE_PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		CameraSources:             splitList(getEnv("CAMERA_SOURCES", "")),
		CameraFrameRate:           getEnvInt("CAMERA_FRAME_RATE", 5),
		CameraResolutionWidth:     getEnvInt("CAMERA_RESOLUTION_WIDTH", 1280),
		CameraResolutionHeight:    getEnvInt("CAMERA_RESOLUTION_HEIGHT", 720),
		CameraReconnectAttempts:   getEnvInt("CAMERA_RECONNECT_ATTEMPTS", 5),
		CameraReconnectDelay:      getEnvInt("CAMERA_RECONNECT_DELAY", 5),
		CameraHealthCheckInterval: getEnvInt("CAMERA_HEALTH_CHECK_INTERVAL", 15),

		FrameQualityThreshold: getEnvFloat("FRAME_QUALITY_THRESHOLD", 0.5),
		FrameBufferSize:       getEnvInt("FRAME_BUFFER_SIZE", 16),
		MaxConcurrentCameras:  getEnvInt("MAX_CONCURRENT_CAMERAS", 8),

		CoreDataServiceURL:        getEnv("CORE_DATA_SERVICE_URL", "http://localhost:9001"),
		FaceRecognitionServiceURL: getEnv("FACE_RECOGNITION_SERVICE_URL", "http://localhost:9002"),
		IntegrationTimeout:        getEnvInt("INTEGRATION_TIMEOUT", 5),
		IntegrationRetryAttempts:  getEnvInt("INTEGRATION_RETRY_ATTEMPTS", 3),

		RedisHost: getEnv("REDIS_HOST", "localhost"),
		RedisPort: getEnvInt("REDIS_PORT", 6379),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		NATSURL: getEnv("NATS_URL", "nats://localhost:4222"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnvInt("DB_PORT", 5432),
		DBUser: getEnv("DB_USER", "faceguard"),
		DBPass: getEnv("DB_PASSWORD", ""),
		DBName: getEnv("DB_NAME", "faceguard"),

		EncryptionKey: getEnv("CHANNEL_ENCRYPTION_KEY", ""),

		EventChannel:   getEnv("EVENT_CHANNEL", "faceguard.events"),
		EventBatchSize: getEnvInt("EVENT_BATCH_SIZE", 20),

		WebhookIngestSecret: getEnv("WEBHOOK_INGEST_SECRET", ""),

		RulesConfigPath: getEnv("RULES_CONFIG_PATH", "config/rules.yaml"),

		Features: FeatureFlags{
			MultiCamera:       getEnvBool("FEATURE_MULTI_CAMERA", true),
			FrameQualityCheck: getEnvBool("FEATURE_FRAME_QUALITY_CHECK", true),
			EventPublishing:   getEnvBool("FEATURE_EVENT_PUBLISHING", true),
			HealthMonitoring:  getEnvBool("FEATURE_HEALTH_MONITORING", true),
			Analytics:         getEnvBool("FEATURE_ANALYTICS", false),
		},
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.CameraFrameRate < 1 || c.CameraFrameRate > 30 {
		return fmt.Errorf("camera_frame_rate must be 1-30, got %d", c.CameraFrameRate)
	}
	if c.CameraReconnectAttempts < 1 || c.CameraReconnectAttempts > 10 {
		return fmt.Errorf("camera_reconnect_attempts must be 1-10, got %d", c.CameraReconnectAttempts)
	}
	if c.CameraReconnectDelay < 1 || c.CameraReconnectDelay > 60 {
		return fmt.Errorf("camera_reconnect_delay must be 1-60, got %d", c.CameraReconnectDelay)
	}
	if c.FrameQualityThreshold < 0 || c.FrameQualityThreshold > 1 {
		return fmt.Errorf("frame_quality_threshold must be 0-1, got %f", c.FrameQualityThreshold)
	}
	if c.MaxConcurrentCameras < 1 || c.MaxConcurrentCameras > 16 {
		return fmt.Errorf("max_concurrent_cameras must be 1-16, got %d", c.MaxConcurrentCameras)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
