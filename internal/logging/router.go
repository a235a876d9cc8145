package logging

import "sync"

// Router fans events out to every sink enabled by its Config, dropping
// events below the configured minimum severity. It is safe for
// concurrent use: every Room, the reconciler, and the admin API all
// publish through the same router.
type Router struct {
	mu    sync.Mutex
	cfg   Config
	sinks map[string]Sink
}

// NewRouter constructs a Router. Only sinks named in cfg.EnabledSinks and
// present in sinks are wired; an enabled-but-missing sink name is ignored
// rather than treated as an error.
func NewRouter(cfg Config, sinks map[string]Sink) *Router {
	wired := make(map[string]Sink, len(cfg.EnabledSinks))
	for _, name := range cfg.EnabledSinks {
		if sink, ok := sinks[name]; ok {
			wired[name] = sink
		}
	}
	return &Router{cfg: cfg, sinks: wired}
}

// Publish implements Publisher.
func (r *Router) Publish(e Event) {
	if r == nil {
		return
	}
	if e.Severity < r.cfg.MinimumSeverity {
		return
	}
	r.mu.Lock()
	sinks := make([]Sink, 0, len(r.sinks))
	for _, sink := range r.sinks {
		sinks = append(sinks, sink)
	}
	r.mu.Unlock()

	for _, sink := range sinks {
		_ = sink.Write(e)
	}
}
