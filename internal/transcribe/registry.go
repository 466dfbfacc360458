package transcribe

import "sync"

// Registry holds the configured recognizers by name, with a primary and an
// optional fallback used when the primary cannot start a run.
type Registry struct {
	mu       sync.RWMutex
	recs     map[string]Recognizer
	primary  string
	fallback string
}

// NewRegistry creates an empty recognizer registry.
func NewRegistry() *Registry {
	return &Registry{recs: make(map[string]Recognizer)}
}

// Register adds a recognizer. The first registered recognizer becomes the
// primary by default.
func (r *Registry) Register(rec Recognizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs[rec.Name()] = rec
	if r.primary == "" {
		r.primary = rec.Name()
	}
}

// SetPrimary selects the primary recognizer by name.
func (r *Registry) SetPrimary(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.primary = name
}

// SetFallback selects the fallback recognizer by name.
func (r *Registry) SetFallback(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = name
}

// Get returns a recognizer by name, or false if not registered.
func (r *Registry) Get(name string) (Recognizer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recs[name]
	return rec, ok
}

// Primary returns the primary recognizer, or nil if none registered.
func (r *Registry) Primary() Recognizer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recs[r.primary]
}

// Fallback returns the fallback recognizer, or nil if none configured.
func (r *Registry) Fallback() Recognizer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.fallback == "" {
		return nil
	}
	return r.recs[r.fallback]
}

// Names returns the registered recognizer names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.recs))
	for name := range r.recs {
		names = append(names, name)
	}
	return names
}
