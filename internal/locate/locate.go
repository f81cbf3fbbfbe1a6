// Package locate resolves agent CLI names to absolute executable paths and
// builds the environment the child runs with. Menubar-style launches do not
// inherit a login shell, so the PATH the probe sees is often missing the
// directories the CLIs actually install into.
package locate

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/zzfadi/CodexBar-sub003/internal/termauto"
)

// extraDirs are appended to PATH when absent: Homebrew on both macOS
// layouts, npm globals, and user-local bins.
var extraDirs = []string{
	"/opt/homebrew/bin",
	"/usr/local/bin",
	"~/.local/bin",
	"~/.npm-global/bin",
	"~/bin",
}

// Resolve turns a program name or path into an absolute executable path.
// Order: the per-binary override variable (CODEXBAR_<NAME>_BINARY), an
// explicit path given by the caller, then a search over the enriched PATH.
// Failure is a *termauto.BinaryNotFoundError.
func Resolve(name string) (string, error) {
	if override := os.Getenv(OverrideVar(name)); override != "" {
		if isExecutable(override) {
			return override, nil
		}
		return "", &termauto.BinaryNotFoundError{Name: name}
	}

	if strings.ContainsRune(name, os.PathSeparator) {
		abs, err := filepath.Abs(name)
		if err == nil && isExecutable(abs) {
			return abs, nil
		}
		return "", &termauto.BinaryNotFoundError{Name: filepath.Base(name)}
	}

	for _, dir := range filepath.SplitList(EnrichedPath()) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", &termauto.BinaryNotFoundError{Name: name}
}

// EnrichedPath returns PATH with the well-known install directories
// appended when they are not already present.
func EnrichedPath() string {
	path := os.Getenv("PATH")
	present := make(map[string]bool)
	for _, dir := range filepath.SplitList(path) {
		present[dir] = true
	}
	for _, dir := range extraDirs {
		dir = expandHome(dir)
		if dir == "" || present[dir] {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		path += string(os.PathListSeparator) + dir
		present[dir] = true
	}
	return path
}

// Environ builds the child environment: the current process environment
// with the enriched PATH and the terminal identity variables interactive
// CLIs check before drawing.
func Environ() []string {
	overrides := map[string]string{
		"PATH":      EnrichedPath(),
		"TERM":      "xterm-256color",
		"COLORTERM": "truecolor",
	}
	if os.Getenv("LANG") == "" {
		overrides["LANG"] = "en_US.UTF-8"
	}

	env := os.Environ()
	out := make([]string, 0, len(env)+len(overrides))
	for _, kv := range env {
		key, _, ok := strings.Cut(kv, "=")
		if ok {
			if _, replaced := overrides[key]; replaced {
				continue
			}
		}
		out = append(out, kv)
	}
	for key, value := range overrides {
		out = append(out, key+"="+value)
	}
	return out
}

// OverrideVar names the environment variable that pins the binary for a
// given program, e.g. CODEXBAR_CLAUDE_BINARY. Bundled or self-built
// helper binaries are wired in through it.
func OverrideVar(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range strings.ToUpper(base) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return "CODEXBAR_" + b.String() + "_BINARY"
}

func expandHome(dir string) string {
	if !strings.HasPrefix(dir, "~") {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, strings.TrimPrefix(dir, "~"))
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
