package ml

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	ModelStatusEmpty    = "empty"
	ModelStatusBuilding = "building"
	ModelStatusReady    = "ready"
	ModelStatusFailed   = "failed"
)

// ModelInfo describes one registered model: an index snapshot or the encoder.
type ModelInfo struct {
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	Kind        string     `json:"kind"`
	Dimensions  int        `json:"dimensions,omitempty"`
	Status      string     `json:"status"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	BuildCount  int        `json:"build_count"`
	LastBuilt   *time.Time `json:"last_built,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// ModelRegistry is the explicit owner of model lifecycle state. Handlers and
// services receive it by reference and read under a read lock; there is no
// process-global model cache.
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[string]*ModelInfo
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{models: make(map[string]*ModelInfo)}
}

func (r *ModelRegistry) Register(info *ModelInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info.Status == "" {
		info.Status = ModelStatusEmpty
	}
	r.models[info.Name] = info
}

func (r *ModelRegistry) Get(name string) (*ModelInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("model %s not registered", name)
	}
	copied := *info
	return &copied, nil
}

// List returns all registered models sorted by name.
func (r *ModelRegistry) List() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelInfo, 0, len(r.models))
	for _, info := range r.models {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *ModelRegistry) MarkBuilding(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.models[name]; ok {
		info.Status = ModelStatusBuilding
	}
}

// MarkReady records a successful build and bumps the monotonic build counter
// used for snapshot versioning.
func (r *ModelRegistry) MarkReady(name, fingerprint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.models[name]
	if !ok {
		return
	}
	now := time.Now()
	info.Status = ModelStatusReady
	info.Fingerprint = fingerprint
	info.BuildCount++
	info.LastBuilt = &now
	info.LastError = ""
}

func (r *ModelRegistry) MarkFailed(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.models[name]
	if !ok {
		return
	}
	info.Status = ModelStatusFailed
	if err != nil {
		info.LastError = err.Error()
	}
}

// IsReady reports whether the named model has at least one successful build.
func (r *ModelRegistry) IsReady(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.models[name]
	return ok && info.BuildCount > 0
}
