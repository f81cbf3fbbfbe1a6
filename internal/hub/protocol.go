package hub

// UsageInfo is the wire shape of one provider's usage snapshot.
type UsageInfo struct {
	Provider   string  `json:"provider"`
	Outcome    string  `json:"outcome"`
	Account    string  `json:"account,omitempty"`
	Plan       string  `json:"plan,omitempty"`
	SessionPct float64 `json:"session_pct"`
	WeekPct    float64 `json:"week_pct"`
	CapturedAt int64   `json:"captured_at"`
}

// SnapshotMessage is the first frame every client receives: the latest
// known usage for each provider.
type SnapshotMessage struct {
	Type string      `json:"type"`
	List []UsageInfo `json:"list"`
}

type ProbeStartedMessage struct {
	Type     string `json:"type"`
	Provider string `json:"provider"`
	Ts       int64  `json:"ts"`
}

// ProbeOutputMessage streams a plain-text slice of the live capture while
// a probe is running.
type ProbeOutputMessage struct {
	Type     string `json:"type"`
	Provider string `json:"provider"`
	Text     string `json:"text"`
	Ts       int64  `json:"ts"`
}

type ProbeDoneMessage struct {
	Type       string     `json:"type"`
	Provider   string     `json:"provider"`
	Outcome    string     `json:"outcome"`
	DurationMs int64      `json:"duration_ms"`
	Usage      *UsageInfo `json:"usage,omitempty"`
	Ts         int64      `json:"ts"`
}

// ClientMessage is anything a client sends us. "refresh" asks for an
// immediate re-probe of one provider (or all, when Provider is empty).
type ClientMessage struct {
	Type     string `json:"type"`
	Provider string `json:"provider,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
