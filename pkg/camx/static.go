package camx

import (
	"context"
	"image"
	"sync"
)

// StaticDevice is a Device backed by a single fixed frame. It stands in for
// real camera hardware in CLI environments and tests, and keeps a count of
// open stream handles so callers can verify every acquired stream gets
// released.
type StaticDevice struct {
	// Frame is returned by every ReadFrame call. If nil, a small opaque
	// placeholder image is used.
	Frame image.Image

	// OpenErr, when set, makes Open fail. Simulates a denied or missing
	// camera.
	OpenErr error

	mu     sync.Mutex
	opens  int
	closes int
}

func (d *StaticDevice) Open(ctx context.Context, _ Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.OpenErr != nil {
		return nil, &DeviceError{Message: "camera unavailable", Err: d.OpenErr}
	}

	frame := d.Frame
	if frame == nil {
		frame = image.NewRGBA(image.Rect(0, 0, 2, 2))
	}

	d.mu.Lock()
	d.opens++
	d.mu.Unlock()

	return &staticStream{device: d, frame: frame}, nil
}

// Opens reports how many streams have been acquired from the device.
func (d *StaticDevice) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// ActiveStreams reports how many acquired streams have not been closed yet.
func (d *StaticDevice) ActiveStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens - d.closes
}

type staticStream struct {
	device *StaticDevice
	frame  image.Image

	mu     sync.Mutex
	closed bool
}

func (s *staticStream) ReadFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &CaptureError{Err: context.Canceled}
	}
	return s.frame, nil
}

func (s *staticStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.device.mu.Lock()
	s.device.closes++
	s.device.mu.Unlock()
	return nil
}
