package termauto

import "time"

// Defaults for a single probe invocation. The retry budgets and cadences
// here are tuned against observed startup latencies of real agent CLIs;
// treat them as configuration, not as values to re-derive.
const (
	DefaultRows    uint16 = 50
	DefaultCols    uint16 = 160
	DefaultTimeout        = 20 * time.Second

	DefaultInitialDelay    = 400 * time.Millisecond
	DefaultSettleAfterStop = 250 * time.Millisecond
)

// Options configures one Run invocation. The zero value is usable; zero
// fields fall back to the defaults above.
type Options struct {
	// Terminal geometry handed to the PTY.
	Rows uint16
	Cols uint16

	// Timeout is the hard wall-clock deadline for the whole invocation.
	Timeout time.Duration

	// IdleTimeout, when set, stops the probe once output has been seen and
	// then goes quiet for this long.
	IdleTimeout time.Duration

	// WorkDir is the child's working directory ("" inherits ours).
	WorkDir string

	// ExtraArgs are appended to the child's argv.
	ExtraArgs []string

	// Env is the complete child environment. Empty inherits ours.
	Env []string

	// InitialDelay is how long to wait after spawn before the first send.
	InitialDelay time.Duration

	// SendEnterEvery, when set, sends a bare carriage return at this
	// interval to keep prompts alive. Suppressed once a URL is seen.
	SendEnterEvery time.Duration

	// SendOnSubstrings maps trigger substrings to keystrokes written when
	// the trigger first appears in the output. Each fires at most once.
	SendOnSubstrings map[string]string

	// StopOnURL stops the probe when an http(s) URL shows up.
	StopOnURL bool

	// StopOnSubstrings stops the probe when any entry appears.
	StopOnSubstrings []string

	// SettleAfterStop keeps the session attached this long after a stop
	// condition, still answering terminal queries, before teardown.
	SettleAfterStop time.Duration

	// OnOutput, when non-nil, observes every raw chunk as it is read.
	// Called inline from the poll loop; keep it fast.
	OnOutput func(chunk []byte)
}

func (o Options) withDefaults() Options {
	if o.Rows == 0 {
		o.Rows = DefaultRows
	}
	if o.Cols == 0 {
		o.Cols = DefaultCols
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.SettleAfterStop <= 0 {
		o.SettleAfterStop = DefaultSettleAfterStop
	}
	return o
}
