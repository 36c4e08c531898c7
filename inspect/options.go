package inspect

// DefaultMaxDepth is the recursion depth at which arrays and objects are
// emitted with an empty payload.
const DefaultMaxDepth = 10

// HolePolicy decides how ArrayLike holes are represented.
type HolePolicy uint8

const (
	HolesEmpty HolePolicy = iota // emit an empty Node, length preserved
	HolesSkip                    // omit the slot
)

type config struct {
	maxDepth     int
	detectCycles bool
	holes        HolePolicy
}

func defaults() config {
	return config{
		maxDepth:     DefaultMaxDepth,
		detectCycles: true,
		holes:        HolesEmpty,
	}
}

// Option customises Introspect.
type Option func(*config)

// WithMaxDepth sets the depth guard. Values <= 0 keep DefaultMaxDepth: the
// guard cannot be disabled.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithCycleDetection toggles the ancestor-chain identity check. The depth
// guard still bounds recursion when it is off.
func WithCycleDetection(on bool) Option { return func(c *config) { c.detectCycles = on } }

// WithHoles sets the hole policy for ArrayLike values.
func WithHoles(p HolePolicy) Option { return func(c *config) { c.holes = p } }
