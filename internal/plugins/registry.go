package plugins

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	mu       sync.RWMutex
	registry = map[string]Plugin{}
)

func Register(p Plugin) {
	mu.Lock()
	defer mu.Unlock()
	registry[p.Name()] = p
}

// All returns the registered plugins ordered by name.
func All() []Plugin {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Plugin, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func Get(name string) (Plugin, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[name]
	return p, ok
}

// AttachAll attaches every registered plugin to h in name order.
func AttachAll(h Hooker) error {
	for _, p := range All() {
		if err := p.Attach(h); err != nil {
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		log.Debug().Str("plugin", p.Name()).Msg("plugins.AttachAll")
	}
	return nil
}
