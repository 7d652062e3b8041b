package windows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexisbeaulieu97/hostprep/internal/adapters/command"
	"github.com/alexisbeaulieu97/hostprep/internal/ports"
)

const captureScript = `Add-Type -AssemblyName System.Windows.Forms, System.Drawing
$bounds = [System.Windows.Forms.SystemInformation]::VirtualScreen
$bitmap = New-Object System.Drawing.Bitmap $bounds.Width, $bounds.Height
$graphics = [System.Drawing.Graphics]::FromImage($bitmap)
try {
  $graphics.CopyFromScreen($bounds.Left, $bounds.Top, 0, 0, $bitmap.Size)
  $bitmap.Save('%s', [System.Drawing.Imaging.ImageFormat]::Png)
} finally {
  $graphics.Dispose()
  $bitmap.Dispose()
}`

// Capturer takes a PNG screenshot of the virtual screen with GDI+.
type Capturer struct {
	runner ports.CommandRunner
	stat   func(string) (os.FileInfo, error)
}

var _ ports.ScreenCapturer = (*Capturer)(nil)

// NewCapturer returns a capturer running PowerShell through runner.
func NewCapturer(runner ports.CommandRunner) *Capturer {
	return &Capturer{runner: runner, stat: os.Stat}
}

// Capture writes a screenshot to path. A capture that leaves no file or an
// empty file is an error even if PowerShell exited cleanly.
func (c *Capturer) Capture(ctx context.Context, path string) (ports.CaptureResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ports.CaptureResult{}, fmt.Errorf("resolve capture path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return ports.CaptureResult{}, fmt.Errorf("create capture directory: %w", err)
	}

	res, err := command.PowerShell(ctx, c.runner, captureScriptFor(abs))
	if err != nil {
		return ports.CaptureResult{}, fmt.Errorf("capture screen: %w", err)
	}
	if !res.Success() {
		return ports.CaptureResult{}, &command.ExitError{Command: "capture screen", Result: res}
	}

	info, err := c.stat(abs)
	if err != nil {
		return ports.CaptureResult{}, fmt.Errorf("capture produced no file: %w", err)
	}
	if info.Size() == 0 {
		return ports.CaptureResult{Path: abs}, fmt.Errorf("capture produced an empty file at %s", abs)
	}
	return ports.CaptureResult{Path: abs, Bytes: info.Size()}, nil
}

func captureScriptFor(path string) string {
	return fmt.Sprintf(captureScript, strings.ReplaceAll(path, "'", "''"))
}
