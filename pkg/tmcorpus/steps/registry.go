package steps

// Registry holds the steps applied to one dataset. Each dataset owns its own
// registry; it is not safe for concurrent use.
type Registry struct {
	applied Set
}

// NewRegistry creates a registry seeded with a previously persisted step record.
func NewRegistry(initial Set) *Registry {
	return &Registry{applied: initial.Clone()}
}

// Get returns a snapshot of the applied steps.
func (r *Registry) Get() Set {
	return r.applied.Clone()
}

// Merge records updates. A true flag marks the step applied; false never
// downgrades a step that was applied before. Non-empty parameters replace the
// recorded value. Merging the same updates twice is the same as merging once.
func (r *Registry) Merge(updates Set) {
	for step, value := range updates {
		value = Normalize(value)
		if flag, ok := value.(bool); ok {
			if flag {
				r.applied[step] = true
			}
			continue
		}
		if isEmpty(value) {
			continue
		}
		r.applied[step] = value
	}
}
