// Package orchestrator is C8: it owns the camera registry, runs one stream
// loop per active camera with blocking capture delegated to a bounded
// worker pool, and periodically scans for stale/errored cameras.
package orchestrator

import (
	"errors"
	"sync"

	"github.com/faceguard/core/internal/domain"
)

var (
	ErrCameraNotFound = errors.New("orchestrator: camera not found")
	ErrCameraExists   = errors.New("orchestrator: camera already registered")
)

// Registry is the exclusive owner of every Camera, per spec.md §3's
// ownership rule. Add/remove is serialized with stream loops by holding
// the same mutex the stream-loop supervisor locks around status writes.
type Registry struct {
	mu    sync.Mutex
	byID  map[string]*domain.Camera
	loops map[string]*streamLoop
}

func NewRegistry() *Registry {
	return &Registry{
		byID:  make(map[string]*domain.Camera),
		loops: make(map[string]*streamLoop),
	}
}

func (r *Registry) Add(cam domain.Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[cam.ID]; exists {
		return ErrCameraExists
	}
	cam.Status = domain.CameraDisconnected
	r.byID[cam.ID] = &cam
	return nil
}

func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrCameraNotFound
	}
	if loop, ok := r.loops[id]; ok {
		loop.stop()
		delete(r.loops, id)
	}
	delete(r.byID, id)
	return nil
}

func (r *Registry) Get(id string) (domain.Camera, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cam, ok := r.byID[id]
	if !ok {
		return domain.Camera{}, ErrCameraNotFound
	}
	return *cam, nil
}

func (r *Registry) List() []domain.Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Camera, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, *c)
	}
	return out
}

// hasLoop reports whether a stream loop is currently registered for id,
// used by the health monitor to avoid starting a second loop over one
// that's already running.
func (r *Registry) hasLoop(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loops[id]
	return ok
}

// mutate applies fn to the stored Camera under the registry lock — the
// only way runtime fields (status, frames_processed, last_error, ...) are
// ever written, per spec.md §3.
func (r *Registry) mutate(id string, fn func(*domain.Camera)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cam, ok := r.byID[id]; ok {
		fn(cam)
	}
}

// Mutate exposes mutate to callers outside the package (the HTTP API's
// camera-update and pause/resume handlers) that need to change
// user-configurable fields without going through a stream loop.
func (r *Registry) Mutate(id string, fn func(*domain.Camera)) {
	r.mutate(id, fn)
}
