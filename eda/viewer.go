package eda

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
)

// ViewerEnv overrides the command DefaultViewer opens plots with.
const ViewerEnv = "CHURNKIT_VIEWER"

// PlotPathKey is the log attribute carrying a rendered plot file.
const PlotPathKey = "plot.path"

const (
	defaultWidth  = 6 * vg.Inch
	defaultHeight = 4 * vg.Inch
)

// Viewer displays a plot. View blocks until the plot has been shown.
type Viewer interface {
	View(ctx context.Context, p *plot.Plot) error
}

// ViewerFunc adapts a function to Viewer.
type ViewerFunc func(ctx context.Context, p *plot.Plot) error

func (f ViewerFunc) View(ctx context.Context, p *plot.Plot) error {
	return f(ctx, p)
}

// unixViewers are tried in order on Linux and the BSDs. The first three stay
// in the foreground until their window is closed; xdg-open hands the file to
// the desktop and returns at once.
var unixViewers = []viewerCommand{
	{args: []string{"display"}},
	{args: []string{"feh"}},
	{args: []string{"eog"}},
	{args: []string{"xdg-open"}, detached: true},
}

type viewerCommand struct {
	args     []string
	detached bool
}

// FileViewer renders the plot to an image file and optionally opens it with
// an external command, waiting for the command to exit.
//
// A temporary file is removed once the command exits, unless Detached is set.
type FileViewer struct {
	// Path of the rendered file. Empty means a new temporary file.
	Path string
	// Format is png, svg or pdf. Empty means the Path extension, then png.
	Format string
	Width  vg.Length
	Height vg.Length
	// Command is run with the file path appended. Empty means render only.
	Command []string
	// Detached marks a Command that returns before the plot is dismissed.
	Detached bool
	Logger   log.Logger
}

// DefaultViewer returns a FileViewer that opens plots with the command in
// $CHURNKIT_VIEWER, or else with the platform viewer. When no viewer binary
// is installed the plot is only written and its path logged.
//
// On macOS and Windows the viewer is started in wait mode. Elsewhere a
// foreground viewer (ImageMagick display, feh, eog) is preferred; when only
// xdg-open is found, View returns as soon as the desktop has taken the file
// and the temporary PNG is left in place for it.
func DefaultViewer() *FileViewer {
	if env := strings.Fields(os.Getenv(ViewerEnv)); len(env) > 0 {
		return &FileViewer{Command: lookupViewer(viewerCommand{args: env}).args}
	}
	var candidates []viewerCommand
	switch runtime.GOOS {
	case "darwin":
		candidates = []viewerCommand{{args: []string{"open", "-W"}}}
	case "windows":
		candidates = []viewerCommand{{args: []string{"cmd", "/c", "start", "/wait", ""}}}
	default:
		candidates = unixViewers
	}
	found := lookupViewer(candidates...)
	return &FileViewer{Command: found.args, Detached: found.detached}
}

// lookupViewer returns the first candidate whose binary is on PATH.
func lookupViewer(candidates ...viewerCommand) viewerCommand {
	for _, c := range candidates {
		if _, err := exec.LookPath(c.args[0]); err == nil {
			return c
		}
	}
	return viewerCommand{}
}

// View renders p and runs Command on the result.
func (v *FileViewer) View(ctx context.Context, p *plot.Plot) error {
	if p == nil {
		return errors.NewValueError("FileViewer.View", "nil plot")
	}
	logger := v.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("eda")
	}

	path, err := v.render(p)
	if err != nil {
		return err
	}
	if len(v.Command) == 0 {
		logger.Info("Plot written", PlotPathKey, path)
		return nil
	}

	if v.Path == "" && !v.Detached {
		defer os.Remove(path)
	}

	args := append(append([]string(nil), v.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, v.Command[0], args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	logger.Debug("Opening plot", PlotPathKey, path, "viewer", v.Command[0], "detached", v.Detached)
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "run plot viewer %s", v.Command[0])
	}
	return nil
}

func (v *FileViewer) format() string {
	if v.Format != "" {
		return strings.ToLower(v.Format)
	}
	if ext := strings.TrimPrefix(filepath.Ext(v.Path), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return "png"
}

func (v *FileViewer) render(p *plot.Plot) (path string, err error) {
	format := v.format()
	switch format {
	case "png", "svg", "pdf":
	default:
		return "", errors.NewValidationError("format", "unsupported plot format, want png, svg or pdf", format)
	}
	w, h := v.Width, v.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}

	var f *os.File
	if v.Path == "" {
		f, err = os.CreateTemp("", "churnkit-*."+format)
	} else {
		f, err = os.Create(v.Path)
	}
	if err != nil {
		return "", errors.Wrap(err, "create plot file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close plot file")
		}
	}()

	err = errors.SafeExecute("WritePlot", func() error {
		return WritePlot(f, p, format, w, h)
	})
	if err != nil {
		return "", err
	}
	return f.Name(), nil
}

// WritePlot draws p onto a canvas of the given size and writes it to w in
// format (png, svg or pdf).
func WritePlot(w io.Writer, p *plot.Plot, format string, width, height vg.Length) error {
	var c interface {
		vg.CanvasSizer
		io.WriterTo
	}
	switch format {
	case "png":
		c = vgimg.PngCanvas{Canvas: vgimg.New(width, height)}
	case "svg":
		c = vgsvg.New(width, height)
	case "pdf":
		c = vgpdf.New(width, height)
	default:
		return errors.NewValidationError("format", "unsupported plot format, want png, svg or pdf", format)
	}
	p.Draw(draw.New(c))
	if _, err := c.WriteTo(w); err != nil {
		return errors.Wrapf(err, "write %s plot", format)
	}
	return nil
}
