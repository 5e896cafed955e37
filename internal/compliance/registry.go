package compliance

// Registry holds the active rule set in a fixed order. Rules are independent,
// so ordering cannot change outcomes, but a stable order keeps the returned
// violation list deterministic for callers and tests.
type Registry struct {
	rules []Rule
}

// NewRegistry builds a registry evaluating rules in the given order.
func NewRegistry(rules ...Rule) *Registry {
	return &Registry{rules: append([]Rule(nil), rules...)}
}

// Rules returns the active rules in registration order. The returned slice
// is a copy; the registry is read-only after construction.
func (r *Registry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Len reports the number of registered rules.
func (r *Registry) Len() int { return len(r.rules) }
