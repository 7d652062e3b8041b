package ports

import "context"

// Session is an entry of the terminal services session table.
type Session struct {
	ID       int
	Name     string
	Username string
	State    string
}

// Active reports whether a user is interactively logged on to the session.
func (s Session) Active() bool {
	return s.State == "Active" && s.Username != ""
}

// Display is a monitor attached to the interactive desktop.
type Display struct {
	Name    string
	Width   int
	Height  int
	Primary bool
}

// SessionInspector enumerates logon sessions and displays.
type SessionInspector interface {
	Sessions(ctx context.Context) ([]Session, error)
	Displays(ctx context.Context) ([]Display, error)
}

// CaptureResult describes a screenshot written to disk.
type CaptureResult struct {
	Path  string
	Bytes int64
}

// ScreenCapturer takes a screenshot of the interactive desktop.
type ScreenCapturer interface {
	Capture(ctx context.Context, path string) (CaptureResult, error)
}
