package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// Registry holds every registered tool, wrapped and native alike.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]core.SecurityTool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]core.SecurityTool),
	}
}

func (r *Registry) Register(tool core.SecurityTool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (core.SecurityTool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrToolNotFound, name)
	}
	return tool, nil
}

// List returns tools in registration order.
func (r *Registry) List() []core.SecurityTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.SecurityTool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

func (r *Registry) ByCategory(category types.ToolCategory) []core.SecurityTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []core.SecurityTool
	for _, name := range r.order {
		if tool := r.tools[name]; tool.Category() == category {
			out = append(out, tool)
		}
	}
	return out
}

// Names returns registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}
