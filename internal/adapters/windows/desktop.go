package windows

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/hostprep/internal/adapters/command"
	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

const displayScript = `Add-Type -AssemblyName System.Windows.Forms
[System.Windows.Forms.Screen]::AllScreens | ForEach-Object {
  "{0}|{1}|{2}|{3}" -f $_.DeviceName, $_.Bounds.Width, $_.Bounds.Height, $_.Primary
}`

// Desktop inspects terminal services sessions and attached displays by
// running system tools through a CommandRunner.
type Desktop struct {
	runner ports.CommandRunner
}

var _ ports.SessionInspector = (*Desktop)(nil)

// NewDesktop returns a session inspector using runner.
func NewDesktop(runner ports.CommandRunner) *Desktop {
	return &Desktop{runner: runner}
}

// Sessions runs `query session`. The tool exits 1 when it prints a session
// table in some locales, so output is parsed regardless of exit code.
func (d *Desktop) Sessions(ctx context.Context) ([]ports.Session, error) {
	res, err := d.runner.Run(ctx, "query", "session")
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	if strings.TrimSpace(res.Stdout) == "" {
		if !res.Success() {
			return nil, &command.ExitError{Command: "query session", Result: res}
		}
		return nil, nil
	}
	return ParseSessions(res.Stdout)
}

// Displays enumerates screens visible to the calling process.
func (d *Desktop) Displays(ctx context.Context) ([]ports.Display, error) {
	res, err := command.PowerShell(ctx, d.runner, displayScript)
	if err != nil {
		return nil, fmt.Errorf("enumerate displays: %w", err)
	}
	if !res.Success() {
		return nil, &command.ExitError{Command: "enumerate displays", Result: res}
	}
	return ParseDisplays(res.Stdout)
}

// ParseSessions parses the fixed-width table printed by `query session`.
// The session name and username columns may each be blank, so tokens are
// assigned to columns by their offset relative to the header.
func ParseSessions(out string) ([]ports.Session, error) {
	scanner := bufio.NewScanner(strings.NewReader(out))

	userCol := -1
	var sessions []ports.Session
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if userCol < 0 {
			userCol = strings.Index(line, "USERNAME")
			if userCol < 0 {
				return nil, fmt.Errorf("unrecognised query session header %q", line)
			}
			continue
		}

		session, err := parseSessionLine(line, userCol)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func parseSessionLine(line string, userCol int) (ports.Session, error) {
	// The first column carries a '>' marker for the caller's own session.
	if len(line) > 0 && line[0] == '>' {
		line = " " + line[1:]
	}

	var session ports.Session
	idIndex := -1
	offset := 0
	fields := strings.Fields(line)
	for i, field := range fields {
		pos := strings.Index(line[offset:], field) + offset
		offset = pos + len(field)

		if id, err := strconv.Atoi(field); err == nil {
			session.ID = id
			idIndex = i
			break
		}
		if pos >= userCol-1 {
			session.Username = field
		} else {
			session.Name = field
		}
	}
	if idIndex < 0 {
		return ports.Session{}, fmt.Errorf("no session id in line %q", strings.TrimSpace(line))
	}
	if idIndex+1 < len(fields) {
		session.State = fields[idIndex+1]
	}
	return session, nil
}

// ParseDisplays parses name|width|height|primary lines.
func ParseDisplays(out string) ([]ports.Display, error) {
	var displays []ports.Display
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) != 4 {
			return nil, fmt.Errorf("unexpected display line %q", line)
		}
		width, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("display %s width: %w", parts[0], err)
		}
		height, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("display %s height: %w", parts[0], err)
		}
		displays = append(displays, ports.Display{
			Name:    parts[0],
			Width:   width,
			Height:  height,
			Primary: strings.EqualFold(parts[3], "true"),
		})
	}
	return displays, nil
}
