// Package diff renders line-oriented differences between two texts.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxLines        = 200
	truncateMessage = "... (diff truncated) ..."
)

// Lines compares before and after line by line and returns the changed lines
// prefixed with "-" or "+", and unchanged lines prefixed with a space. It
// returns "" when the texts are equal.
func Lines(before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(ensureNewline(before), ensureNewline(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var out []string
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			out = append(out, prefix+line)
		}
	}

	if len(out) > maxLines {
		out = append(out[:maxLines], truncateMessage)
	}
	return strings.Join(out, "\n")
}

// Changes is like Lines but drops unchanged lines.
func Changes(before, after string) string {
	full := Lines(before, after)
	if full == "" {
		return ""
	}
	var out []string
	for _, line := range strings.Split(full, "\n") {
		if !strings.HasPrefix(line, " ") {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
