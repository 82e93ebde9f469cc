package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Device != "/dev/video0" {
		t.Errorf("Device = %q, want /dev/video0", cfg.Device)
	}
	if cfg.MatchThreshold != 0.90 {
		t.Errorf("MatchThreshold = %v, want 0.90", cfg.MatchThreshold)
	}
	if cfg.WarmupDelay() != time.Second {
		t.Errorf("WarmupDelay() = %v, want 1s", cfg.WarmupDelay())
	}
	if cfg.CaptureDuration() != 2*time.Second {
		t.Errorf("CaptureDuration() = %v, want 2s", cfg.CaptureDuration())
	}
	if cfg.FrameInterval() != 100*time.Millisecond {
		t.Errorf("FrameInterval() = %v, want 100ms", cfg.FrameInterval())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lxfu.yaml")
	content := `
device: /dev/video2
match_threshold: 0.85
service_capture_duration: 3.5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Device != "/dev/video2" {
		t.Errorf("Device = %q, want /dev/video2", cfg.Device)
	}
	if cfg.MatchThreshold != 0.85 {
		t.Errorf("MatchThreshold = %v, want 0.85", cfg.MatchThreshold)
	}
	if cfg.CaptureDuration() != 3500*time.Millisecond {
		t.Errorf("CaptureDuration() = %v, want 3.5s", cfg.CaptureDuration())
	}
	// Untouched keys keep their defaults.
	if cfg.ModelPath != "/usr/share/lxfu/dinov2.onnx" {
		t.Errorf("ModelPath = %q, want default", cfg.ModelPath)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() with a missing explicit path succeeded, want error")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lxfu.yaml")
	if err := os.WriteFile(path, []byte("device: [unclosed"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() with invalid YAML succeeded, want error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LXFU_DEVICE", "/dev/video9")
	t.Setenv("LXFU_MATCH_THRESHOLD", "0.75")
	t.Setenv("LXFU_FRAME_INTERVAL", "0.25")

	cfg := Default()
	cfg.applyEnv()
	if cfg.Device != "/dev/video9" {
		t.Errorf("Device = %q, want /dev/video9", cfg.Device)
	}
	if cfg.MatchThreshold != 0.75 {
		t.Errorf("MatchThreshold = %v, want 0.75", cfg.MatchThreshold)
	}
	if cfg.FrameInterval() != 250*time.Millisecond {
		t.Errorf("FrameInterval() = %v, want 250ms", cfg.FrameInterval())
	}
}

func TestEnvFloatInvalid(t *testing.T) {
	t.Setenv("LXFU_MATCH_THRESHOLD", "not-a-number")

	cfg := Default()
	cfg.applyEnv()
	if cfg.MatchThreshold != 0.90 {
		t.Errorf("MatchThreshold = %v, want default 0.90", cfg.MatchThreshold)
	}
}
