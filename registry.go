package receiptocr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a Provider from the client configuration.
type Factory func(ctx context.Context, cfg Config) (Provider, error)

var (
	providersMu sync.RWMutex
	providers   = make(map[string]Factory)
)

// Register makes a provider factory available under the given name. Provider
// packages call Register in an init function, so importing a provider package
// is what enables it:
//
//	import _ "github.com/fiscflow/receipt-ocr/providers/vision"
//
// Register panics if name is empty, factory is nil, or the name is already
// taken.
func Register(name string, factory Factory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	if name == "" {
		panic("receiptocr: Register with empty provider name")
	}
	if factory == nil {
		panic("receiptocr: Register with nil factory for " + name)
	}
	if _, dup := providers[name]; dup {
		panic("receiptocr: Register called twice for provider " + name)
	}
	providers[name] = factory
}

// Providers returns the names of all registered providers, sorted.
func Providers() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (Factory, error) {
	providersMu.RLock()
	factory, ok := providers[name]
	providersMu.RUnlock()
	if !ok {
		registered := Providers()
		if len(registered) == 0 {
			return nil, fmt.Errorf("unknown provider %q: no providers registered (missing import?)", name)
		}
		return nil, fmt.Errorf("unknown provider %q: registered providers are %s", name, strings.Join(registered, ", "))
	}
	return factory, nil
}
