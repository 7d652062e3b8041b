package testutil

import (
	"context"
	"errors"

	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

// Desktop is a fixed ports.SessionInspector.
type Desktop struct {
	SessionList []ports.Session
	DisplayList []ports.Display
	Err         error
}

func (d *Desktop) Sessions(context.Context) ([]ports.Session, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.SessionList, nil
}

func (d *Desktop) Displays(context.Context) ([]ports.Display, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.DisplayList, nil
}

// Capturer is a ports.ScreenCapturer returning a fixed size, or Err.
type Capturer struct {
	Bytes int64
	Err   error
	Paths []string
}

func (c *Capturer) Capture(_ context.Context, path string) (ports.CaptureResult, error) {
	c.Paths = append(c.Paths, path)
	if c.Err != nil {
		return ports.CaptureResult{}, c.Err
	}
	if c.Bytes == 0 {
		return ports.CaptureResult{Path: path}, errors.New("capture produced an empty image")
	}
	return ports.CaptureResult{Path: path, Bytes: c.Bytes}, nil
}
