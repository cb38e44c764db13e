package faceauth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrCameraDenied is reported by a BufferCamera marked unavailable.
var ErrCameraDenied = errors.New("camera permission denied")

// BufferCamera is a frame source fed by uploads. Each pushed frame is
// handed out by at most one Snapshot.
type BufferCamera struct {
	mu          sync.Mutex
	frame       []byte
	unavailable bool
	opens       int
	active      int
}

// NewBufferCamera creates an empty camera.
func NewBufferCamera() *BufferCamera {
	return &BufferCamera{}
}

// Push replaces the pending frame.
func (c *BufferCamera) Push(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = frame
}

// SetAvailable records whether the browser granted camera access.
func (c *BufferCamera) SetAvailable(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unavailable = !ok
}

// Open returns a stream unless the camera was marked unavailable.
func (c *BufferCamera) Open(context.Context) (Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return nil, ErrCameraDenied
	}
	c.opens++
	c.active++
	return &bufferStream{cam: c}, nil
}

// Stats returns how many streams were opened and how many are still open.
func (c *BufferCamera) Stats() (opens, active int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens, c.active
}

func (c *BufferCamera) take() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.frame
	c.frame = nil
	return f
}

type bufferStream struct {
	cam    *BufferCamera
	once   sync.Once
	closed bool
	mu     sync.Mutex
}

func (s *bufferStream) Snapshot() []byte {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil
	}
	return s.cam.take()
}

func (s *bufferStream) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cam.mu.Lock()
		s.cam.active--
		s.cam.mu.Unlock()
	})
}

// FileCamera replays image files, one per Snapshot, then runs dry.
type FileCamera struct {
	mu     sync.Mutex
	frames [][]byte
	next   int
}

// NewFileCamera loads the given image files.
func NewFileCamera(paths ...string) (*FileCamera, error) {
	if len(paths) == 0 {
		return nil, errors.New("no image files given")
	}
	frames := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read frame %s: %w", p, err)
		}
		frames = append(frames, data)
	}
	return &FileCamera{frames: frames}, nil
}

func (c *FileCamera) Open(context.Context) (Stream, error) {
	return c, nil
}

func (c *FileCamera) Snapshot() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next >= len(c.frames) {
		return nil
	}
	f := c.frames[c.next]
	c.next++
	return f
}

func (c *FileCamera) Close() {}
