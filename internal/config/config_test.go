package config

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/moodcam/internal/gesture"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MOODCAM_DATA_DIR", "/tmp/moodcam-data")

	cfg := Load()

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.Downsample != 4 || cfg.DisplayFPS != 60 {
		t.Errorf("unexpected frame defaults: downsample %d, fps %d", cfg.Downsample, cfg.DisplayFPS)
	}
	if cfg.FaceURL != "http://localhost:5005" || cfg.FaceBackend != "opencv" {
		t.Errorf("unexpected face defaults: %q %q", cfg.FaceURL, cfg.FaceBackend)
	}
	if cfg.MQTTBroker != "" {
		t.Errorf("MQTT should be disabled by default, got %q", cfg.MQTTBroker)
	}
	if cfg.Thresholds != gesture.DefaultThresholds() {
		t.Errorf("Thresholds = %+v, want defaults", cfg.Thresholds)
	}
	if !cfg.Mirror {
		t.Error("Mirror should default to true")
	}
	if want := filepath.Join("/tmp/moodcam-data", "moodcam.db"); cfg.DBPath() != want {
		t.Errorf("DBPath() = %s, want %s", cfg.DBPath(), want)
	}
	if want := filepath.Join("/tmp/moodcam-data", "plugins"); cfg.PluginDir != want {
		t.Errorf("PluginDir = %s, want %s", cfg.PluginDir, want)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MOODCAM_ADDR", ":9000")
	t.Setenv("MOODCAM_CAMERA_ID", "2")
	t.Setenv("MOODCAM_DOWNSAMPLE", "not-a-number")
	t.Setenv("MOODCAM_OK_RATIO", "0.4")
	t.Setenv("MOODCAM_MIRROR", "false")
	t.Setenv("MOODCAM_MQTT_BROKER", "tcp://broker:1883")

	cfg := Load()

	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Addr)
	}
	if cfg.CameraID != 2 {
		t.Errorf("CameraID = %d, want 2", cfg.CameraID)
	}
	if cfg.Downsample != 4 {
		t.Errorf("invalid value should fall back to default, got %d", cfg.Downsample)
	}
	if cfg.Thresholds.OKRatio != 0.4 {
		t.Errorf("OKRatio = %v, want 0.4", cfg.Thresholds.OKRatio)
	}
	if cfg.Mirror {
		t.Error("Mirror should be false")
	}
	if cfg.MQTTBroker != "tcp://broker:1883" {
		t.Errorf("MQTTBroker = %q", cfg.MQTTBroker)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	env := "MOODCAM_FACE_URL=http://faces:5005\nMOODCAM_MQTT_TOPIC=home/moodcam\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	// godotenv does not override variables that are already set.
	t.Setenv("MOODCAM_FACE_URL", "http://override:5005")
	t.Setenv("MOODCAM_MQTT_TOPIC", "")
	os.Unsetenv("MOODCAM_MQTT_TOPIC")

	cfg := Load()

	if cfg.FaceURL != "http://override:5005" {
		t.Errorf("environment should win over .env, got %q", cfg.FaceURL)
	}
	if cfg.MQTTTopic != "home/moodcam" {
		t.Errorf("MQTTTopic = %q, want home/moodcam from .env", cfg.MQTTTopic)
	}
}

func TestParseEnv(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int
		wantLog bool
	}{
		{"unset", "", 7, false},
		{"valid", "12", 12, false},
		{"surrounding spaces", "  12 ", 12, false},
		{"blank", "   ", 7, false},
		{"malformed", "twelve", 7, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MOODCAM_TEST_INT", tt.value)

			var buf bytes.Buffer
			log.SetOutput(&buf)
			defer log.SetOutput(os.Stderr)

			if got := getEnvInt("MOODCAM_TEST_INT", 7); got != tt.want {
				t.Errorf("getEnvInt() = %d, want %d", got, tt.want)
			}
			logged := strings.Contains(buf.String(), "MOODCAM_TEST_INT")
			if logged != tt.wantLog {
				t.Errorf("logged = %v, want %v (output %q)", logged, tt.wantLog, buf.String())
			}
		})
	}
}

func TestLoad_MalformedValuesKeepDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MOODCAM_MIRROR", "sometimes")
	t.Setenv("MOODCAM_MIN_CONFIDENCE", "high")
	t.Setenv("MOODCAM_FPS", "30fps")

	cfg := Load()

	if !cfg.Mirror {
		t.Error("Mirror should keep its default of true")
	}
	if cfg.MinConfidence != 0.5 {
		t.Errorf("MinConfidence = %v, want 0.5", cfg.MinConfidence)
	}
	if cfg.FPS != 30 {
		t.Errorf("FPS = %d, want 30", cfg.FPS)
	}
}
