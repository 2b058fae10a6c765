package camx

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
)

// State is a step of the capture flow.
type State int

const (
	// StateInstructions is the resting state: no stream is open and the UI
	// shows capture guidance (and the last error message, if any).
	StateInstructions State = iota

	// StateAcquiring means a stream request is in flight.
	StateAcquiring

	// StatePreviewing means a live stream is open and rendering.
	StatePreviewing

	// StateSubmitting means a still frame was taken and is with the server.
	StateSubmitting

	// StateSuccess is terminal: the server accepted the frame and the stream
	// has been released.
	StateSuccess
)

func (s State) String() string {
	switch s {
	case StateInstructions:
		return "instructions"
	case StateAcquiring:
		return "acquiring"
	case StatePreviewing:
		return "previewing"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// ErrStreamOpen reports an acquire while a stream is already open. One device
// handle per Capture, enforced at the acquire entry point.
var ErrStreamOpen = errors.New("camx: a capture stream is already open")

// ErrNotPreviewing reports a capture attempt without a live stream.
var ErrNotPreviewing = errors.New("camx: no live preview to capture from")

// ErrTornDown reports use of a Capture after Close.
var ErrTornDown = errors.New("camx: capture session is torn down")

// SubmitFunc delivers an encoded frame to the server. Implemented by the
// auth gateway's FaceVerify/FaceEnroll operations.
type SubmitFunc func(ctx context.Context, imageDataURI string) error

// Capture drives one biometric capture session. It owns at most one open
// stream and releases it on every exit path: success, submission failure
// (stop then re-acquire), cancellation, and teardown.
//
// A Capture is not reusable after Close.
type Capture struct {
	device      Device
	constraints Constraints
	submit      SubmitFunc
	logger      *slog.Logger

	mu        sync.Mutex
	state     State
	stream    Stream
	lastFrame image.Image
	message   string
	closed    bool
}

// CaptureOption configures a Capture.
type CaptureOption func(*Capture)

// WithCaptureLogger sets the structured logger. Defaults to slog.Default().
func WithCaptureLogger(l *slog.Logger) CaptureOption {
	return func(c *Capture) { c.logger = l }
}

// NewCapture creates a capture session in StateInstructions.
func NewCapture(device Device, constraints Constraints, submit SubmitFunc, opts ...CaptureOption) *Capture {
	c := &Capture{
		device:      device,
		constraints: constraints,
		submit:      submit,
		logger:      slog.Default(),
		state:       StateInstructions,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current capture step.
func (c *Capture) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Message returns the user-facing message attached to the current state,
// typically the reason the flow fell back to Instructions or Previewing.
func (c *Capture) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// LastFrame returns the most recently captured still frame, or nil.
func (c *Capture) LastFrame() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFrame
}

// Start acquires the camera stream and enters Previewing. On denial or
// hardware failure the machine returns to Instructions with a user-facing
// message and no dangling handle.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrTornDown
	}
	if c.stream != nil {
		c.mu.Unlock()
		return ErrStreamOpen
	}
	c.state = StateAcquiring
	c.message = ""
	c.mu.Unlock()

	return c.acquire(ctx)
}

// acquire opens the device stream and installs it, falling back to
// Instructions on failure. The single-handle invariant is re-checked under
// the lock before installing, so a Close that raced the open wins.
func (c *Capture) acquire(ctx context.Context) error {
	stream, err := c.device.Open(ctx, c.constraints)
	if err != nil {
		devErr := &DeviceError{
			Message: "unable to access the camera, check that permission is granted",
			Err:     err,
		}

		c.mu.Lock()
		c.state = StateInstructions
		c.message = devErr.Message
		c.mu.Unlock()

		c.logger.Warn("camera acquisition failed", "error", err)
		return devErr
	}

	c.mu.Lock()
	if c.closed || c.stream != nil {
		// Torn down (or raced) while the open was in flight; the new handle
		// must not leak.
		closed := c.closed
		c.mu.Unlock()
		_ = stream.Close()
		if closed {
			return ErrTornDown
		}
		return ErrStreamOpen
	}
	c.stream = stream
	c.state = StatePreviewing
	c.message = ""
	c.mu.Unlock()
	return nil
}

// Submit captures the current frame, encodes it and delivers it to the
// server. On success the session is terminal and the stream is released. On
// a server rejection the stream is explicitly stopped and a fresh one
// acquired before the machine returns to Previewing; a stale handle is never
// reused across a failed submission.
func (c *Capture) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrTornDown
	}
	if c.state != StatePreviewing || c.stream == nil {
		c.mu.Unlock()
		return ErrNotPreviewing
	}
	stream := c.stream
	c.mu.Unlock()

	frame, err := stream.ReadFrame(ctx)
	if err != nil {
		capErr := &CaptureError{Err: err}
		c.setMessage(StatePreviewing, "could not read a frame, try again")
		return capErr
	}

	payload, err := EncodeJPEGDataURI(frame)
	if err != nil {
		capErr := &CaptureError{Err: err}
		c.setMessage(StatePreviewing, "could not encode the frame, try again")
		return capErr
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrTornDown
	}
	c.state = StateSubmitting
	c.lastFrame = frame
	c.mu.Unlock()

	if err := c.submit(ctx, payload); err != nil {
		c.logger.Info("frame submission rejected", "error", err)
		if rerr := c.recycleStream(ctx); rerr != nil {
			return fmt.Errorf("submission failed and stream recovery failed: %w", errors.Join(err, rerr))
		}
		c.setMessage(StatePreviewing, "verification failed, try again")
		return err
	}

	c.teardown()
	c.mu.Lock()
	c.state = StateSuccess
	c.message = ""
	c.mu.Unlock()
	return nil
}

// recycleStream stops the current stream and acquires a fresh one. Mirrors
// the stop-then-reinitialize recovery the UI expects after a rejected
// submission.
func (c *Capture) recycleStream(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrTornDown
	}
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
	c.state = StateAcquiring
	c.mu.Unlock()

	return c.acquire(ctx)
}

// Cancel abandons the session and returns to Instructions, releasing the
// stream. The Capture may be started again.
func (c *Capture) Cancel() {
	c.teardown()
	c.mu.Lock()
	if !c.closed {
		c.state = StateInstructions
		c.message = ""
	}
	c.mu.Unlock()
}

// Close tears the session down permanently. Always releases the stream; safe
// to call from any state, any number of times. Every code path that opens a
// stream must be paired with a deferred Close.
func (c *Capture) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.teardown()
	return nil
}

// teardown releases the stream if one is open.
func (c *Capture) teardown() {
	c.mu.Lock()
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()

	if stream != nil {
		if err := stream.Close(); err != nil {
			c.logger.Warn("failed to release camera stream", "error", err)
		}
	}
}

// setMessage records a user-facing message and state.
func (c *Capture) setMessage(state State, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.state = state
	c.message = message
}
