package evaluator

// Config tunes the engine's cache TTL window and its behavior when the rule
// store is unreachable.
type Config struct {
	// MinTTLSeconds and MaxTTLSeconds bound the jittered decision TTL. Each
	// decision gets a TTL drawn uniformly from [min, max], so cache entries
	// written in a burst do not all expire in the same instant. An invalid
	// window (max <= min) falls back to a fixed 60 seconds.
	MinTTLSeconds int `env:"CACHE_TTL_MIN_SECONDS" envDefault:"30"`
	MaxTTLSeconds int `env:"CACHE_TTL_MAX_SECONDS" envDefault:"120"`

	// FailOpen selects the decision returned when the rule store is
	// unreachable: enabled with reason fail_open when true, disabled with
	// reason db_unavailable when false. Never retried inline either way.
	FailOpen bool `env:"FAIL_OPEN" envDefault:"false"`
}

const fallbackTTLSeconds = 60
