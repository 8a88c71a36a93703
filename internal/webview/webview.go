// File: internal/webview/webview.go

// Package webview defines the narrow port through which the engine drives a
// page host, plus an in-memory stub for headless operation and tests.
package webview

import (
	"context"
	"fmt"
	"sync"
)

// Host is the rendering backend seen by the dispatcher. Implementations load
// URLs, evaluate scripts inside the page and hand back raw RGBA frames.
type Host interface {
	// Navigate loads the given URL. It returns once the load is committed.
	Navigate(ctx context.Context, url string) error

	// Eval runs a script in the page and returns its JSON-serialized
	// result. Script exceptions surface as errors.
	Eval(ctx context.Context, script string) (string, error)

	// CapturePixels returns the current frame as tightly packed RGBA.
	CapturePixels(ctx context.Context) (pix []byte, width, height int, err error)
}

type evalReply struct {
	result string
	err    error
}

// StubHost is an in-memory Host for tests and `serve --headless`. It records
// navigations, replays scripted Eval replies and serves a solid-color frame.
type StubHost struct {
	mu          sync.Mutex
	navigations []string
	evalCalls   []string
	evalQueue   []evalReply
	navErr      error

	frameW, frameH int
	frameColor     [4]byte
}

// NewStubHost returns a stub serving a 2x2 opaque white frame.
func NewStubHost() *StubHost {
	return &StubHost{
		frameW:     2,
		frameH:     2,
		frameColor: [4]byte{255, 255, 255, 255},
	}
}

// Navigate records the destination.
func (s *StubHost) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.navErr != nil {
		return s.navErr
	}
	s.navigations = append(s.navigations, url)
	return nil
}

// Eval records the script and pops the next scripted reply. With nothing
// queued it returns "null", matching a page that evaluates to no value.
func (s *StubHost) Eval(ctx context.Context, script string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evalCalls = append(s.evalCalls, script)

	if len(s.evalQueue) == 0 {
		return "null", nil
	}
	reply := s.evalQueue[0]
	s.evalQueue = s.evalQueue[1:]
	return reply.result, reply.err
}

// CapturePixels serves the configured solid-color frame.
func (s *StubHost) CapturePixels(ctx context.Context) ([]byte, int, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, 0, err
	}

	s.mu.Lock()
	w, h, c := s.frameW, s.frameH, s.frameColor
	s.mu.Unlock()

	if w <= 0 || h <= 0 {
		return nil, 0, 0, fmt.Errorf("stub frame has no size")
	}
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		copy(pix[i:i+4], c[:])
	}
	return pix, w, h, nil
}

// SetFrame reconfigures the served frame.
func (s *StubHost) SetFrame(width, height int, rgba [4]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameW, s.frameH, s.frameColor = width, height, rgba
}

// QueueEvalResult schedules the next Eval reply.
func (s *StubHost) QueueEvalResult(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evalQueue = append(s.evalQueue, evalReply{result: result})
}

// QueueEvalError schedules the next Eval to fail, emulating a script
// exception.
func (s *StubHost) QueueEvalError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evalQueue = append(s.evalQueue, evalReply{err: err})
}

// FailNavigation makes subsequent Navigate calls return err; pass nil to
// restore normal behavior.
func (s *StubHost) FailNavigation(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navErr = err
}

// Navigations returns the recorded destinations in order.
func (s *StubHost) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.navigations))
	copy(out, s.navigations)
	return out
}

// EvalCalls returns the recorded scripts in order.
func (s *StubHost) EvalCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.evalCalls))
	copy(out, s.evalCalls)
	return out
}
