package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writePlugin creates a plugin directory with the given manifest.
func writePlugin(t *testing.T, root, dir, manifest string) {
	t.Helper()

	path := filepath.Join(root, dir)
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	if manifest == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(path, "plugin.json"), []byte(manifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()

	writePlugin(t, root, "lights", `{"name":"lights","executable":"run.sh","gestures":["thumbs_up","fist"]}`)
	writePlugin(t, root, "logger", `{"name":"logger","executable":"log.sh","emotions":["*"]}`)
	writePlugin(t, root, "broken", `{not json`)
	writePlugin(t, root, "nameless", `{"executable":"x.sh"}`)
	writePlugin(t, root, "empty", "")
	if err := os.WriteFile(filepath.Join(root, "README"), []byte("not a plugin"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plugins := m.List()
	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
	if plugins[0].Manifest.Name != "lights" || plugins[1].Manifest.Name != "logger" {
		t.Errorf("expected plugins sorted by name, got %s, %s", plugins[0].Manifest.Name, plugins[1].Manifest.Name)
	}

	lights, err := m.Get("lights")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if want := filepath.Join(root, "lights", "run.sh"); lights.Executable != want {
		t.Errorf("Executable = %s, want %s", lights.Executable, want)
	}
	if len(lights.Manifest.Gestures) != 2 {
		t.Errorf("expected 2 gesture subscriptions, got %v", lights.Manifest.Gestures)
	}

	if _, err := m.Get("broken"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "lights", `{"name":"lights","executable":"run.sh"}`)

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if err := os.RemoveAll(filepath.Join(root, "lights")); err != nil {
		t.Fatalf("failed to remove plugin: %v", err)
	}
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if len(m.List()) != 0 {
		t.Error("removed plugin should disappear after a rescan")
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	m := NewManager(dir)

	if err := m.Discover(); err != nil {
		t.Errorf("Discover() on a missing dir should not fail, got %v", err)
	}
	if len(m.List()) != 0 {
		t.Error("expected no plugins")
	}
	if m.PluginDir() != dir {
		t.Errorf("PluginDir() = %s, want %s", m.PluginDir(), dir)
	}
}

func TestPlugin_Subscriptions(t *testing.T) {
	p := &Plugin{Manifest: Manifest{
		Gestures: []string{"ok", "fist"},
		Emotions: []string{"*"},
	}}

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"listed gesture", p.WantsGesture("ok"), true},
		{"unlisted gesture", p.WantsGesture("thumbs_up"), false},
		{"wildcard emotion", p.WantsEmotion("sad"), true},
		{"no subscriptions", (&Plugin{}).WantsGesture("ok"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
