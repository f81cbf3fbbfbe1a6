// Package ansi reduces raw terminal output to plain text. Agent CLIs paint
// their UIs with cursor movement, color and alternate-screen sequences;
// pattern matching and usage parsing both want the text underneath.
package ansi

import "regexp"

// Escape sequence families, broadest terminators first. OSC/DCS/PM/APC are
// string sequences ended by BEL or ST; the final single-char rule mops up
// whatever is left after the structured ones ran.
var sequences = []*regexp.Regexp{
	regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`),       // CSI
	regexp.MustCompile(`\x1b\].*?(?:\x07|\x1b\\)`),      // OSC
	regexp.MustCompile(`\x1bP.*?\x1b\\`),                // DCS
	regexp.MustCompile(`\x1b\^.*?\x1b\\`),               // PM
	regexp.MustCompile(`\x1b_.*?\x1b\\`),                // APC
	regexp.MustCompile(`\x1bk.*?\x1b\\`),                // old-style title
	regexp.MustCompile(`\x1b[()][0-9A-Za-z]`),           // charset selection
	regexp.MustCompile(`\x1b[=>]`),                      // keypad modes
	regexp.MustCompile(`\x1b.`),                         // any other ESC pair
}

// Strip removes escape sequences and control bytes, applies backspaces, and
// drops carriage returns. Line feeds and tabs survive.
func Strip(s string) string {
	for _, re := range sequences {
		s = re.ReplaceAllString(s, "")
	}

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '\r':
			// dropped: interactive UIs redraw lines with bare CRs
		case ch == '\b':
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case (ch < 0x20 || ch == 0x7f) && ch != '\n' && ch != '\t':
			// other control bytes
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

// StripCR removes carriage returns only, leaving escape sequences intact.
// Needle matching runs against both forms: some programs emit "\r\n" in the
// middle of a phrase, others hide it behind styling.
func StripCR(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\r' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
