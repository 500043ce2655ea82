package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/edgeopslabs/appkit/pkg/app"
)

var (
	mu   sync.RWMutex
	apps = make(map[string]*app.App)
)

// Register adds a compiled-in app. Apps call it from init; registering the
// same id twice is a programming error.
func Register(a *app.App) {
	if a == nil {
		panic("registry: nil app")
	}
	id := a.Key()
	if id == "" {
		panic("registry: app has neither id nor name")
	}

	mu.Lock()
	defer mu.Unlock()

	if _, exists := apps[id]; exists {
		panic(fmt.Sprintf("app already registered: %s", id))
	}
	apps[id] = a
}

func Lookup(id string) (*app.App, bool) {
	mu.RLock()
	defer mu.RUnlock()

	a, ok := apps[id]
	return a, ok
}

// All returns the registered apps ordered by id.
func All() []*app.App {
	mu.RLock()
	defer mu.RUnlock()

	ids := make([]string, 0, len(apps))
	for id := range apps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*app.App, 0, len(ids))
	for _, id := range ids {
		out = append(out, apps[id])
	}
	return out
}
