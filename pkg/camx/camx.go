// Package camx owns camera access for biometric capture: acquiring a video
// stream, holding it for preview, producing a single still-frame JPEG on
// demand, and guaranteeing the stream is released on every exit path. The
// live stream never leaves this package; the only artifact handed to the
// auth layer is an encoded data URI.
package camx

import (
	"context"
	"fmt"
	"image"
)

// Constraints describes the stream a capture session wants. Dimensions are
// ideals, not requirements; a device may hand back the closest mode it has.
type Constraints struct {
	// FacingMode selects the camera, e.g. "user" for the front-facing one.
	FacingMode string

	// Width and Height are the ideal frame dimensions in pixels.
	Width  int
	Height int
}

// DefaultConstraints matches the capture settings used for facial login:
// front-facing camera at 720p.
var DefaultConstraints = Constraints{
	FacingMode: "user",
	Width:      1280,
	Height:     720,
}

// Device is a source of video streams. Exactly one stream per Capture may be
// open at a time; the Capture enforces that, implementations do not have to.
type Device interface {
	// Open acquires a stream honoring the constraints. Failures (permission
	// denied, no hardware) must not leave a partially-open handle behind.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open capture device handle.
type Stream interface {
	// ReadFrame returns the current video frame.
	ReadFrame(ctx context.Context) (image.Image, error)

	// Close stops the stream and releases every underlying track. Closing a
	// closed stream is a no-op.
	Close() error
}

// DeviceError reports that a stream could not be acquired: permission was
// denied or no suitable hardware exists. It is recoverable; the capture
// machine returns to Instructions and acquisition may be retried.
type DeviceError struct {
	// Message is the user-facing explanation
	Message string

	// Err is the underlying device failure
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera unavailable: %s", e.Message)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// CaptureError reports that a frame could not be read or encoded. Treated
// like a failed submission: the machine returns to Previewing for a retry.
type CaptureError struct {
	// Err is the underlying read or encode failure
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("failed to capture frame: %v", e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
