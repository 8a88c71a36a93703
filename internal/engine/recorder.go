// File: internal/engine/recorder.go

package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinkertool/tinker/api/schemas"
	"go.uber.org/zap"
)

// RecordedEvent is one event plus its offset from the start of the session.
type RecordedEvent struct {
	Timestamp time.Duration `json:"timestamp"`
	Event     schemas.Event `json:"event"`
}

// Recorder captures the event stream of a session so it can be replayed
// later. It is safe for concurrent use; the dispatcher records from its own
// goroutine while the API may start, stop or save from handlers.
type Recorder struct {
	logger *zap.Logger

	mu        sync.Mutex
	sessionID string
	recording bool
	startedAt time.Time
	events    []RecordedEvent
}

// NewRecorder builds an idle recorder.
func NewRecorder(logger *zap.Logger) *Recorder {
	return &Recorder{logger: logger.Named("recorder")}
}

// Start clears any previous session and begins stamping events against a
// fresh origin.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = uuid.NewString()
	r.recording = true
	r.startedAt = time.Now()
	r.events = r.events[:0]
	r.logger.Info("Recording started", zap.String("session_id", r.sessionID))
}

// Stop ends the session, keeping the captured events for Save.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.recording = false
	r.logger.Info("Recording stopped",
		zap.String("session_id", r.sessionID), zap.Int("events", len(r.events)))
}

// Recording reports whether a session is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// SessionID returns the identifier of the current or last session.
func (r *Recorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// Record appends an event stamped with its offset from session start.
// Events arriving while no session is active are dropped.
func (r *Recorder) Record(ev schemas.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.events = append(r.events, RecordedEvent{
		Timestamp: time.Since(r.startedAt),
		Event:     ev,
	})
}

// Events returns a copy of the captured session.
func (r *Recorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Save writes the session as JSON. The write is atomic: a temp file in the
// target directory is renamed into place, so readers never see a partial
// session.
func (r *Recorder) Save(path string) error {
	events := r.Events()

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing session file: %w", err)
	}

	r.logger.Info("Session saved", zap.String("path", path), zap.Int("events", len(events)))
	return nil
}

// LoadSession reads a previously saved session from disk.
func LoadSession(path string) ([]RecordedEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var events []RecordedEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return events, nil
}

// Player replays a recorded session, preserving the original inter-event
// gaps scaled by a speed factor.
type Player struct {
	events    []RecordedEvent
	index     int
	startedAt time.Time
	speed     float64
}

// NewPlayer builds a player over a session. speed > 1 replays faster than
// real time; values <= 0 are treated as 1.
func NewPlayer(events []RecordedEvent, speed float64) *Player {
	if speed <= 0 {
		speed = 1
	}
	return &Player{
		events:    events,
		startedAt: time.Now(),
		speed:     speed,
	}
}

// Next returns the next event once its scaled timestamp has elapsed, or
// (nil, false) if it is not yet due. Done is true when the session is
// exhausted.
func (p *Player) Next() (ev *schemas.Event, due bool) {
	if p.Done() {
		return nil, false
	}
	next := p.events[p.index]
	scaled := time.Duration(float64(next.Timestamp) / p.speed)
	if time.Since(p.startedAt) < scaled {
		return nil, false
	}
	p.index++
	return &next.Event, true
}

// Done reports whether all events have been replayed.
func (p *Player) Done() bool {
	return p.index >= len(p.events)
}

// Remaining returns the number of events not yet replayed.
func (p *Player) Remaining() int {
	return len(p.events) - p.index
}
