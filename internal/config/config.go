// Package config loads moodcam settings from the environment and an optional
// .env file.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ayusman/moodcam/internal/gesture"
)

// Config holds every setting of the moodcam binary.
type Config struct {
	// Server
	Addr      string
	DataDir   string
	StaticDir string
	NoTray    bool

	// Camera
	CameraID   int
	Width      int
	Height     int
	FPS        int
	Mirror     bool
	Downsample int
	DisplayFPS int

	// Face analysis service
	FaceURL     string
	FaceBackend string

	// Hand keypoints
	HandModel     string
	ORTLib        string
	MaxHands      int
	MinConfidence float64

	// Gesture thresholds
	Thresholds gesture.Thresholds

	// MQTT events
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string

	// Plugins
	PluginDir string
}

// DBPath returns the session database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "moodcam.db")
}

// Load reads the .env file if it exists, then the environment.
func Load() *Config {
	_ = godotenv.Load()

	dataDir := getEnv("MOODCAM_DATA_DIR", defaultDataDir())
	defaults := gesture.DefaultThresholds()

	return &Config{
		Addr:      getEnv("MOODCAM_ADDR", ":8080"),
		DataDir:   dataDir,
		StaticDir: getEnv("MOODCAM_STATIC_DIR", ""),
		NoTray:    getEnvBool("MOODCAM_NO_TRAY", false),

		CameraID:   getEnvInt("MOODCAM_CAMERA_ID", 0),
		Width:      getEnvInt("MOODCAM_WIDTH", 1280),
		Height:     getEnvInt("MOODCAM_HEIGHT", 720),
		FPS:        getEnvInt("MOODCAM_FPS", 30),
		Mirror:     getEnvBool("MOODCAM_MIRROR", true),
		Downsample: getEnvInt("MOODCAM_DOWNSAMPLE", 4),
		DisplayFPS: getEnvInt("MOODCAM_DISPLAY_FPS", 60),

		FaceURL:     getEnv("MOODCAM_FACE_URL", "http://localhost:5005"),
		FaceBackend: getEnv("MOODCAM_FACE_BACKEND", "opencv"),

		HandModel:     getEnv("MOODCAM_HAND_MODEL", ""),
		ORTLib:        getEnv("MOODCAM_ORT_LIB", ""),
		MaxHands:      getEnvInt("MOODCAM_MAX_HANDS", 2),
		MinConfidence: getEnvFloat("MOODCAM_MIN_CONFIDENCE", 0.5),

		Thresholds: gesture.Thresholds{
			ThumbExtendedDeg:  getEnvFloat("MOODCAM_THUMB_EXTENDED_DEG", defaults.ThumbExtendedDeg),
			FingerExtendedDeg: getEnvFloat("MOODCAM_FINGER_EXTENDED_DEG", defaults.FingerExtendedDeg),
			OKRatio:           getEnvFloat("MOODCAM_OK_RATIO", defaults.OKRatio),
			ThumbSticky:       getEnvFloat("MOODCAM_THUMB_STICKY", defaults.ThumbSticky),
			ThumbDetachMargin: getEnvFloat("MOODCAM_THUMB_DETACH_MARGIN", defaults.ThumbDetachMargin),
		},

		MQTTBroker:   getEnv("MOODCAM_MQTT_BROKER", ""),
		MQTTClientID: getEnv("MOODCAM_MQTT_CLIENT_ID", "moodcam"),
		MQTTUsername: getEnv("MOODCAM_MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MOODCAM_MQTT_PASSWORD", ""),
		MQTTTopic:    getEnv("MOODCAM_MQTT_TOPIC", "moodcam"),

		PluginDir: getEnv("MOODCAM_PLUGIN_DIR", filepath.Join(dataDir, "plugins")),
	}
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".moodcam"
	}
	return filepath.Join(homeDir, ".moodcam")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, strconv.Atoi)
}

func getEnvFloat(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

func getEnvBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, strconv.ParseBool)
}

// parseEnv returns the parsed value of key, or defaultValue when the variable
// is unset or malformed. A malformed value is logged so a typo in .env is not
// silently ignored.
func parseEnv[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}

	value, err := parse(raw)
	if err != nil {
		log.Printf("Ignoring %s=%q, keeping %v: %v", key, raw, defaultValue, err)
		return defaultValue
	}
	return value
}
