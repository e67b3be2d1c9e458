package audio

import (
	"errors"
	"fmt"
	"sync"
)

// MockPlayer implements the player contract without producing sound. Tests
// drive natural completion with Finish.
type MockPlayer struct {
	mu       sync.Mutex
	state    PlayerState
	clip     *Clip
	onFinish func()

	// PlayErr, when set, is returned by the next Play calls.
	PlayErr error

	// Call counters
	Plays   int
	Pauses  int
	Resumes int
	Stops   int
	// Releases counts Stop calls that actually released a clip.
	Releases int
}

// NewMockPlayer creates a stopped mock player.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{state: StateStopped}
}

// Play records the clip and its completion callback.
func (mp *MockPlayer) Play(clip *Clip, onFinish func()) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state == StateClosed {
		return ErrPlayerClosed
	}
	if mp.PlayErr != nil {
		return mp.PlayErr
	}
	if err := clip.Validate(); err != nil {
		return err
	}

	mp.clip = clip
	mp.onFinish = onFinish
	mp.state = StatePlaying
	mp.Plays++
	return nil
}

// Pause pauses the current playback.
func (mp *MockPlayer) Pause() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state != StatePlaying {
		return fmt.Errorf("cannot pause: player is %s", mp.state)
	}
	mp.state = StatePaused
	mp.Pauses++
	return nil
}

// Resume resumes paused playback.
func (mp *MockPlayer) Resume() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state != StatePaused {
		return fmt.Errorf("cannot resume: player is %s", mp.state)
	}
	mp.state = StatePlaying
	mp.Resumes++
	return nil
}

// Stop stops playback and drops the clip.
func (mp *MockPlayer) Stop() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.Stops++
	if mp.clip != nil {
		mp.Releases++
	}
	mp.clip = nil
	mp.onFinish = nil
	if mp.state != StateClosed {
		mp.state = StateStopped
	}
	return nil
}

// IsPlaying returns whether audio is currently playing.
func (mp *MockPlayer) IsPlaying() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.state == StatePlaying
}

// State returns the current player state.
func (mp *MockPlayer) State() PlayerState {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.state
}

// Clip returns the clip currently loaded, if any.
func (mp *MockPlayer) Clip() *Clip {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.clip
}

// Finish simulates the loaded clip playing to its end.
func (mp *MockPlayer) Finish() error {
	mp.mu.Lock()
	if mp.clip == nil {
		mp.mu.Unlock()
		return errors.New("nothing is playing")
	}
	fn := mp.onFinish
	mp.clip = nil
	mp.onFinish = nil
	mp.state = StateStopped
	mp.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Close marks the player closed.
func (mp *MockPlayer) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.clip = nil
	mp.onFinish = nil
	mp.state = StateClosed
	return nil
}
