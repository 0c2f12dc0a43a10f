package eda

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gonum.org/v1/plot"

	"github.com/YuminosukeSato/churnkit/etl"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
)

func frame(t *testing.T, s string) *etl.Frame {
	t.Helper()
	f, err := etl.ReadRecords(strings.NewReader(s))
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	return f
}

// recorder is a Viewer that keeps every plot it is asked to show.
type recorder struct {
	plots []*plot.Plot
}

func (r *recorder) View(_ context.Context, p *plot.Plot) error {
	r.plots = append(r.plots, p)
	return nil
}

func TestCounts_Order(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Category
	}{
		{
			name:  "Strings keep first appearance",
			input: `[{"Churn": "No"}, {"Churn": "Yes"}, {"Churn": "No"}, {"Churn": null}]`,
			want:  []Category{{"No", 2}, {"Yes", 1}},
		},
		{
			name:  "Strings not sorted",
			input: `[{"Churn": "Yes"}, {"Churn": "No"}]`,
			want:  []Category{{"Yes", 1}, {"No", 1}},
		},
		{
			name:  "Numbers ascending",
			input: `[{"Churn": 1}, {"Churn": 0}, {"Churn": 1}, {"Churn": 0.5}]`,
			want:  []Category{{"0", 1}, {"0.5", 1}, {"1", 2}},
		},
		{
			name:  "Booleans false first",
			input: `[{"Churn": true}, {"Churn": false}, {"Churn": true}]`,
			want:  []Category{{"false", 1}, {"true", 2}},
		},
		{
			name:  "Mixed keeps first appearance",
			input: `[{"Churn": 1}, {"Churn": "No"}, {"Churn": 0}]`,
			want:  []Category{{"1", 1}, {"No", 1}, {"0", 1}},
		},
		{
			name:  "Mixed keeps number and string apart",
			input: `[{"Churn": 1}, {"Churn": "1"}, {"Churn": 1}]`,
			want:  []Category{{"1", 2}, {"1", 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Counts(frame(t, tt.input), "Churn")
			if err != nil {
				t.Fatalf("Counts() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Counts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountPlot_Labels(t *testing.T) {
	p, err := CountPlot(frame(t, `[{"Churn": "No"}, {"Churn": "Yes"}]`), "Churn")
	if err != nil {
		t.Fatalf("CountPlot() error = %v", err)
	}
	if p.X.Label.Text != "Churn" {
		t.Errorf("x label = %q, want Churn", p.X.Label.Text)
	}
	if p.Y.Label.Text != "count" {
		t.Errorf("y label = %q, want count", p.Y.Label.Text)
	}
}

func TestPlotChurnDistribution_ShowsOnce(t *testing.T) {
	rec := &recorder{}
	f := frame(t, `[{"Churn": "No", "tenure": 1}, {"Churn": "Yes", "tenure": 3}]`)

	if err := PlotChurnDistributionContext(context.Background(), f, rec); err != nil {
		t.Fatalf("PlotChurnDistributionContext() error = %v", err)
	}
	if len(rec.plots) != 1 {
		t.Fatalf("viewer called %d times, want 1", len(rec.plots))
	}
	if rec.plots[0].X.Label.Text != ChurnColumn {
		t.Errorf("plotted column %q, want %q", rec.plots[0].X.Label.Text, ChurnColumn)
	}
}

func TestPlotChurnDistribution_Errors(t *testing.T) {
	tests := []struct {
		name    string
		frame   *etl.Frame
		viewer  Viewer
		checkAs func(error) bool
	}{
		{
			name:   "Missing Churn column",
			frame:  frame(t, `[{"churn": "No"}]`),
			viewer: &recorder{},
			checkAs: func(err error) bool {
				var cnf *errors.ColumnNotFoundError
				return errors.As(err, &cnf) && cnf.Column == ChurnColumn
			},
		},
		{
			name:   "Nil frame",
			viewer: &recorder{},
			checkAs: func(err error) bool {
				var ve *errors.ValueError
				return errors.As(err, &ve)
			},
		},
		{
			name:   "All null column",
			frame:  frame(t, `[{"Churn": null}, {"Churn": null}]`),
			viewer: &recorder{},
			checkAs: func(err error) bool {
				var ve *errors.ValueError
				return errors.As(err, &ve)
			},
		},
		{
			name:  "Nil viewer",
			frame: frame(t, `[{"Churn": "No"}]`),
			checkAs: func(err error) bool {
				var ve *errors.ValueError
				return errors.As(err, &ve)
			},
		},
		{
			name:  "Viewer panics",
			frame: frame(t, `[{"Churn": "No"}]`),
			viewer: ViewerFunc(func(context.Context, *plot.Plot) error {
				panic("display gone")
			}),
			checkAs: func(err error) bool {
				var pe *errors.PanicError
				return errors.As(err, &pe) && pe.Operation == "PlotChurnDistribution"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PlotChurnDistributionContext(context.Background(), tt.frame, tt.viewer)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.checkAs(err) {
				t.Errorf("unexpected error type: %v", err)
			}
			if rec, ok := tt.viewer.(*recorder); ok && len(rec.plots) != 0 {
				t.Error("viewer must not be called on error")
			}
		})
	}
}

func TestWritePlot_Formats(t *testing.T) {
	p, err := CountPlot(frame(t, `[{"Churn": "No"}, {"Churn": "Yes"}, {"Churn": "No"}]`), "Churn")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		format string
		magic  string
	}{
		{"png", "\x89PNG"},
		{"svg", "<svg"},
		{"pdf", "%PDF"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WritePlot(&buf, p, tt.format, defaultWidth, defaultHeight); err != nil {
				t.Fatalf("WritePlot() error = %v", err)
			}
			if !bytes.Contains(buf.Bytes()[:min(buf.Len(), 512)], []byte(tt.magic)) {
				t.Errorf("%s output does not start with %q", tt.format, tt.magic)
			}
		})
	}

	if err := WritePlot(&bytes.Buffer{}, p, "bmp", defaultWidth, defaultHeight); err == nil {
		t.Error("WritePlot() with unsupported format should fail")
	}
}

func TestFileViewer_RenderOnly(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	path := filepath.Join(t.TempDir(), "churn.svg")
	v := &FileViewer{Path: path, Logger: logger}

	f := frame(t, `[{"Churn": "No"}, {"Churn": "Yes"}]`)
	if err := PlotChurnDistributionContext(context.Background(), f, v); err != nil {
		t.Fatalf("View() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot file not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
	if !logger.ContainsField(PlotPathKey, path) {
		t.Error("expected plot path in log output")
	}
}

func TestFileViewer_Command(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true(1) not available")
	}
	p, err := CountPlot(frame(t, `[{"Churn": "No"}]`), "Churn")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	ok := &FileViewer{Path: filepath.Join(dir, "ok.png"), Command: []string{"true"}}
	if err := ok.View(context.Background(), p); err != nil {
		t.Errorf("View() with succeeding command error = %v", err)
	}

	failing := &FileViewer{Path: filepath.Join(dir, "fail.png"), Command: []string{"false"}}
	if err := failing.View(context.Background(), p); err == nil {
		t.Error("View() with failing command should return an error")
	}
}

func TestDefaultViewer_Env(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true(1) not available")
	}
	t.Setenv(ViewerEnv, "true --flag")
	if got := DefaultViewer().Command; !reflect.DeepEqual(got, []string{"true", "--flag"}) {
		t.Errorf("Command = %v, want [true --flag]", got)
	}

	t.Setenv(ViewerEnv, "churnkit-no-such-viewer")
	if got := DefaultViewer().Command; got != nil {
		t.Errorf("Command = %v, want nil for a missing binary", got)
	}
}

func TestFileViewer_TempFileLifetime(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	p, err := CountPlot(frame(t, `[{"Churn": "No"}]`), "Churn")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		detached bool
		wantLeft int
	}{
		{"Foreground viewer removes file", false, 0},
		{"Detached viewer keeps file", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			t.Setenv("TMPDIR", tmp)
			seen := filepath.Join(t.TempDir(), "seen.png")

			// The viewer copies the file so the test can check it existed.
			v := &FileViewer{
				Command:  []string{"sh", "-c", `cp "$0" "` + seen + `"`},
				Detached: tt.detached,
			}
			if err := v.View(context.Background(), p); err != nil {
				t.Fatalf("View() error = %v", err)
			}
			if _, err := os.Stat(seen); err != nil {
				t.Fatalf("viewer did not receive the plot: %v", err)
			}
			left, err := filepath.Glob(filepath.Join(tmp, "churnkit-*.png"))
			if err != nil {
				t.Fatal(err)
			}
			if len(left) != tt.wantLeft {
				t.Errorf("temporary plots left = %v, want %d", left, tt.wantLeft)
			}
		})
	}
}

func TestLookupViewer_PrefersForeground(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"feh", "xdg-open"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", dir)

	got := lookupViewer(unixViewers...)
	if !reflect.DeepEqual(got.args, []string{"feh"}) || got.detached {
		t.Errorf("lookupViewer() = %+v, want foreground feh", got)
	}

	if err := os.Remove(filepath.Join(dir, "feh")); err != nil {
		t.Fatal(err)
	}
	got = lookupViewer(unixViewers...)
	if !reflect.DeepEqual(got.args, []string{"xdg-open"}) || !got.detached {
		t.Errorf("lookupViewer() = %+v, want detached xdg-open", got)
	}

	t.Setenv("PATH", t.TempDir())
	if got := lookupViewer(unixViewers...); got.args != nil {
		t.Errorf("lookupViewer() = %+v, want none", got)
	}
}

func TestFileViewer_UnsupportedFormat(t *testing.T) {
	p, err := CountPlot(frame(t, `[{"Churn": "No"}]`), "Churn")
	if err != nil {
		t.Fatal(err)
	}
	v := &FileViewer{Path: filepath.Join(t.TempDir(), "churn.gif")}
	if err := v.View(context.Background(), p); err == nil {
		t.Error("View() with gif output should fail")
	}
}
