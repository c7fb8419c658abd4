package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDashboardURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := dashboardURL(tt.addr); got != tt.want {
				t.Errorf("dashboardURL(%q) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}

func TestFindWebDir(t *testing.T) {
	t.Chdir(t.TempDir())
	dataDir := t.TempDir()

	if got := findWebDir(dataDir); got != "" {
		t.Errorf("expected no web dir, got %s", got)
	}

	dataWeb := filepath.Join(dataDir, "web")
	if err := os.Mkdir(dataWeb, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if got := findWebDir(dataDir); got != dataWeb {
		t.Errorf("findWebDir() = %s, want %s", got, dataWeb)
	}

	if err := os.Mkdir("web", 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	got := findWebDir(dataDir)
	if filepath.Base(got) != "web" || got == dataWeb {
		t.Errorf("relative web dir should win, got %s", got)
	}
}
