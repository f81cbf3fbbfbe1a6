package termauto

// Raw byte sequences written to the child. Interactive CLIs expect a
// carriage return for Enter, not a line feed.
const (
	keyEnter  = "\r"
	keyEscape = "\x1b"
	keyDown   = "\x1b[B"
)

// Device Status Report handshake. Terminal-aware programs emit the query
// and may block until something answers; we always claim row 1, column 1.
const (
	cursorQuery = "\x1b[6n"
	cursorReply = "\x1b[1;1R"
)
