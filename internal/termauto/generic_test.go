package termauto

import (
	"strings"
	"testing"
	"time"
)

var policyEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// tickAt drives a policy with a synthetic clock so retry cadences can be
// tested without sleeping.
func tickAt(p policy, offset time.Duration, chunk string, captured int, lastOutput time.Duration, exited bool) tickAction {
	return p.tick(tickInput{
		now:         policyEpoch.Add(offset),
		chunk:       []byte(chunk),
		captured:    captured,
		lastOutput:  policyEpoch.Add(lastOutput),
		childExited: exited,
	})
}

func sentData(act tickAction) string {
	var b strings.Builder
	for _, s := range act.sends {
		b.Write(s.data)
	}
	return b.String()
}

func TestGenericScriptSentOnceAfterDelay(t *testing.T) {
	opts := Options{InitialDelay: 400 * time.Millisecond}.withDefaults()
	p := newGenericPolicy("login", opts, nil)

	if got := sentData(tickAt(p, 0, "", 0, 0, false)); got != "" {
		t.Fatalf("sent %q before the initial delay", got)
	}
	if got := sentData(tickAt(p, 500*time.Millisecond, "", 0, 0, false)); got != "login\r" {
		t.Fatalf("after delay sent %q, want %q", got, "login\r")
	}
	if got := sentData(tickAt(p, time.Second, "", 0, 0, false)); got != "" {
		t.Fatalf("script resent: %q", got)
	}
}

// TestGenericTriggerFiresOnce feeds the trigger phrase split across three
// chunks, twice over; the mapped keystrokes must go out exactly once.
func TestGenericTriggerFiresOnce(t *testing.T) {
	opts := Options{
		SendOnSubstrings: map[string]string{"trust this folder?": "y\r"},
	}.withDefaults()
	p := newGenericPolicy("", opts, nil)

	chunks := []string{"Do you trust", " this fo", "lder? ", "Do you trust", " this fo", "lder? "}
	var fired int
	for i, c := range chunks {
		act := tickAt(p, time.Duration(i)*50*time.Millisecond, c, 10, 0, false)
		fired += strings.Count(sentData(act), "y\r")
	}
	if fired != 1 {
		t.Fatalf("trigger fired %d times, want exactly 1", fired)
	}
}

// Needles hidden behind carriage-return redraws must still match via the
// accumulated plain-text scan.
func TestGenericTriggerAcrossCarriageReturns(t *testing.T) {
	opts := Options{
		SendOnSubstrings: map[string]string{"Press Enter to continue": "\r"},
	}.withDefaults()
	p := newGenericPolicy("", opts, nil)

	act := tickAt(p, 0, "Press Enter\r\r to continue", 0, 0, false)
	if !strings.Contains(sentData(act), "\r") {
		t.Fatal("trigger did not fire on CR-interrupted phrase")
	}
}

func TestGenericStopOnSubstring(t *testing.T) {
	opts := Options{StopOnSubstrings: []string{"Login successful"}}.withDefaults()
	p := newGenericPolicy("", opts, nil)

	if act := tickAt(p, 0, "Logging in...\n", 14, 0, false); act.stop {
		t.Fatal("stopped before the stop marker appeared")
	}
	if act := tickAt(p, 100*time.Millisecond, "Login successful\n", 31, 0, false); !act.stop {
		t.Fatal("did not stop on the stop marker")
	}
}

func TestGenericURLCallbackAndStop(t *testing.T) {
	var seen []string
	opts := Options{StopOnURL: true}.withDefaults()
	p := newGenericPolicy("", opts, func(u string) { seen = append(seen, u) })

	act := tickAt(p, 0, "Open https://example.com/auth?c=1 to continue\n", 10, 0, false)
	if !act.stop {
		t.Fatal("StopOnURL set but policy did not stop")
	}
	if len(seen) != 1 || seen[0] != "https://example.com/auth?c=1" {
		t.Fatalf("URL callback got %v", seen)
	}

	// Second sighting must not re-fire the callback.
	tickAt(p, time.Second, "again https://example.com/auth?c=1\n", 20, 0, false)
	if len(seen) != 1 {
		t.Fatalf("URL callback fired %d times, want 1", len(seen))
	}
}

func TestGenericIdleTimeout(t *testing.T) {
	opts := Options{IdleTimeout: 2 * time.Second}.withDefaults()
	p := newGenericPolicy("", opts, nil)

	// Output exists but is fresh: keep going.
	if act := tickAt(p, time.Second, "", 50, 900*time.Millisecond, false); act.stop {
		t.Fatal("stopped while output was still fresh")
	}
	// Quiet past the idle window: stop.
	if act := tickAt(p, 4*time.Second, "", 50, 900*time.Millisecond, false); !act.stop {
		t.Fatal("did not stop after idle timeout")
	}
	// No output at all: idle stop never applies.
	p2 := newGenericPolicy("", opts, nil)
	if act := tickAt(p2, 10*time.Second, "", 0, 0, false); act.stop {
		t.Fatal("idle-stopped with zero output")
	}
}

func TestGenericPeriodicEnter(t *testing.T) {
	opts := Options{SendEnterEvery: time.Second, InitialDelay: 10 * time.Second}.withDefaults()
	p := newGenericPolicy("", opts, nil)

	tickAt(p, 0, "", 0, 0, false)
	if got := sentData(tickAt(p, 1100*time.Millisecond, "", 0, 0, false)); got != keyEnter {
		t.Fatalf("keepalive sent %q, want bare Enter", got)
	}
	// Once a URL is visible the keepalive must go quiet.
	tickAt(p, 1200*time.Millisecond, "visit https://login.example\n", 10, 0, false)
	if got := sentData(tickAt(p, 3*time.Second, "", 10, 0, false)); strings.Contains(got, keyEnter) {
		t.Fatalf("keepalive still active after URL: %q", got)
	}
}

func TestGenericChildExitStops(t *testing.T) {
	p := newGenericPolicy("", Options{}.withDefaults(), nil)
	if act := tickAt(p, 0, "bye\n", 4, 0, true); !act.stop {
		t.Fatal("did not stop on child exit")
	}
}

// TestCursorEchoThrottle feeds the DSR query faster than once per second
// and expects exactly one reply per one-second window.
func TestCursorEchoThrottle(t *testing.T) {
	c := newCursorEcho()
	var replies int
	for i := 0; i < 25; i++ {
		now := policyEpoch.Add(time.Duration(i) * 100 * time.Millisecond)
		if c.reply([]byte(cursorQuery), now) != nil {
			replies++
		}
	}
	// 2.5 seconds of spam: replies at 0s, 1s, 2s.
	if replies != 3 {
		t.Fatalf("got %d replies over 2.5s, want 3", replies)
	}
}

func TestCursorEchoSplitQuery(t *testing.T) {
	c := newCursorEcho()
	if c.reply([]byte("\x1b["), policyEpoch) != nil {
		t.Fatal("replied to a half query")
	}
	if c.reply([]byte("6n"), policyEpoch.Add(50*time.Millisecond)) == nil {
		t.Fatal("missed a query split across chunks")
	}
}

func TestFindURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"go to https://a.example/x now", "https://a.example/x"},
		{"http://plain.example\nnext", "http://plain.example"},
		{"(https://paren.example)", "https://paren.example"},
		{"no links here", ""},
	}
	for _, c := range cases {
		if got := findURL(c.in); got != c.want {
			t.Errorf("findURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
