package audio

import (
	"errors"
	"testing"
)

// TestPlayerConfig tests the player configuration validation.
func TestPlayerConfig(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*PlayerConfig)
		expectErr bool
	}{
		{"default", func(*PlayerConfig) {}, false},
		{"48000Hz stereo", func(c *PlayerConfig) { c.SampleRate = 48000; c.Channels = 2 }, false},
		{"invalid sample rate", func(c *PlayerConfig) { c.SampleRate = 22050 }, true},
		{"invalid channels", func(c *PlayerConfig) { c.Channels = 3 }, true},
		{"volume too loud", func(c *PlayerConfig) { c.Volume = 1.5 }, true},
		{"negative buffer", func(c *PlayerConfig) { c.BufferSize = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPlayerConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestMockPlayerLifecycle(t *testing.T) {
	mp := NewMockPlayer()
	finished := 0

	if err := mp.Play(testClip(44100, 1, 100), func() { finished++ }); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !mp.IsPlaying() {
		t.Fatal("expected playing after Play")
	}

	if err := mp.Resume(); err == nil {
		t.Error("Resume while playing should fail")
	}
	if err := mp.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if mp.State() != StatePaused {
		t.Errorf("State() = %s, want paused", mp.State())
	}
	if err := mp.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	if err := mp.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if finished != 1 {
		t.Errorf("onFinish called %d times, want 1", finished)
	}
	if mp.State() != StateStopped {
		t.Errorf("State() = %s, want stopped", mp.State())
	}
}

func TestMockPlayerStopSkipsFinish(t *testing.T) {
	mp := NewMockPlayer()
	called := false

	_ = mp.Play(testClip(44100, 1, 100), func() { called = true })
	_ = mp.Stop()
	_ = mp.Stop()

	if err := mp.Finish(); err == nil {
		t.Error("Finish after Stop should report nothing playing")
	}
	if called {
		t.Error("onFinish must not run after Stop")
	}
	if mp.Releases != 1 {
		t.Errorf("Releases = %d, want 1", mp.Releases)
	}
}

func TestMockPlayerClosed(t *testing.T) {
	mp := NewMockPlayer()
	_ = mp.Close()

	err := mp.Play(testClip(44100, 1, 10), nil)
	if !errors.Is(err, ErrPlayerClosed) {
		t.Errorf("Play() after Close error = %v, want ErrPlayerClosed", err)
	}
}
