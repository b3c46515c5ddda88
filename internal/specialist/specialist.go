// Package specialist defines the plugin interface for specialist work units
// and the coordinator that auctions a task across every eligible specialist.
package specialist

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// TaskContext is everything a specialist sees when asked to propose an
// artifact for one node.
type TaskContext struct {
	// RunID and StepID identify the node being worked.
	RunID  types.ID
	StepID string

	// Goal is the mission goal; Inputs are the mission's key/value inputs.
	Goal   string
	Inputs map[string]string

	// Fixes carries remediation instructions from a rejected review when the
	// task is resubmitted during a revision loop. Empty on first attempt.
	Fixes []string
}

// Contribution is one specialist's bid in an auction. Contributions are
// ephemeral: the set for one node is discarded once a winner is chosen.
type Contribution struct {
	SpecialistID string   `json:"specialist_id"`
	Response     string   `json:"response"`
	Confidence   float64  `json:"confidence"`
	Suggestions  []string `json:"suggestions,omitempty"`
}

// Specialist is the plugin interface external collaborators implement. The
// coordinator is agnostic to what a specialist actually does (LLM call,
// static analysis, subprocess) as long as it returns a response with a
// confidence score, or an error on failure.
//
// Propose must be safe to call again with the same context: the scheduler
// guarantees at-least-once execution, not exactly-once.
type Specialist interface {
	// Name returns the unique specialist identifier.
	Name() string

	// Capabilities returns the capability names this specialist serves.
	Capabilities() []string

	// Propose produces a candidate artifact for the task.
	Propose(ctx context.Context, task TaskContext) (*Contribution, error)
}

// Registry maps capability names to eligible specialists. It is an explicit
// dependency passed into the coordinator, never a process-wide singleton.
type Registry struct {
	mu           sync.RWMutex
	byName       map[string]Specialist
	byCapability map[string][]Specialist
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:       make(map[string]Specialist),
		byCapability: make(map[string][]Specialist),
	}
}

// Register adds a specialist for every capability it declares.
func (r *Registry) Register(s Specialist) error {
	if s == nil {
		return fmt.Errorf("specialist cannot be nil")
	}
	if s.Name() == "" {
		return fmt.Errorf("specialist name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[s.Name()]; exists {
		return fmt.Errorf("specialist %s is already registered", s.Name())
	}
	r.byName[s.Name()] = s
	for _, capability := range s.Capabilities() {
		r.byCapability[capability] = append(r.byCapability[capability], s)
	}
	return nil
}

// CapabilityAny is the wildcard capability. Specialists registered under it
// are eligible for any capability that has no dedicated specialists.
const CapabilityAny = "*"

// ForCapability returns all specialists eligible for the capability, falling
// back to wildcard registrations when none serve it directly.
func (r *Registry) ForCapability(capability string) []Specialist {
	r.mu.RLock()
	defer r.mu.RUnlock()

	eligible := r.byCapability[capability]
	if len(eligible) == 0 && capability != CapabilityAny {
		eligible = r.byCapability[CapabilityAny]
	}
	out := make([]Specialist, len(eligible))
	copy(out, eligible)
	return out
}

// Capabilities returns every capability with at least one specialist, sorted.
func (r *Registry) Capabilities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make([]string, 0, len(r.byCapability))
	for capability := range r.byCapability {
		caps = append(caps, capability)
	}
	sort.Strings(caps)
	return caps
}

// Get returns a specialist by name.
func (r *Registry) Get(name string) (Specialist, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// Func wraps a plain function as a Specialist, for external collaborators
// registering a capability name to callable mapping.
type Func struct {
	SpecialistName string
	Serves         []string
	Fn             func(ctx context.Context, task TaskContext) (*Contribution, error)
}

// Name returns the specialist identifier.
func (f *Func) Name() string { return f.SpecialistName }

// Capabilities returns the capabilities this function serves.
func (f *Func) Capabilities() []string { return f.Serves }

// Propose calls the wrapped function.
func (f *Func) Propose(ctx context.Context, task TaskContext) (*Contribution, error) {
	return f.Fn(ctx, task)
}

var _ Specialist = (*Func)(nil)
