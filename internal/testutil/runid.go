package testutil

// FixedRunID returns the same run ID every time.
//
// Unlike engine.FixedGenerator, which returns IDs in sequence and panics when
// they run out, this generator never runs out. Useful where log correlation
// does not matter but output must be byte-identical across runs.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator returning id. An empty id becomes
// "test-run".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed ID.
func (g *FixedRunID) Generate() string {
	return g.id
}
