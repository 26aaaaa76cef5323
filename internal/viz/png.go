package viz

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/vdesim/internal/sim"
)

const (
	figureInches = 8
	figureDPI    = 150
)

var ErrNoSamples = errors.New("viz: result has no finite samples")

var (
	zColor    = color.NRGBA{B: 255, A: 255}
	peakColor = color.NRGBA{R: 255, A: 77}
	uColor    = color.NRGBA{A: 153}
)

// WritePNG renders the two-panel figure: z in mm with a dashed line at the
// peak, and the normalized command below it on a shared time axis.
func WritePNG(w io.Writer, res *sim.Result) error {
	h := res.History
	zPts := xys(h.Time, h.Z, 1000)
	uPts := xys(h.Time, h.U, 1)
	if len(zPts) == 0 || len(uPts) == 0 {
		return ErrNoSamples
	}

	top := plot.New()
	top.Title.Text = fmt.Sprintf("%s  %s", res.Metrics.Controller, res.Metrics.Status)
	top.Y.Label.Text = "Z (mm)"
	top.Add(plotter.NewGrid())

	zLine, err := plotter.NewLine(zPts)
	if err != nil {
		return err
	}
	zLine.Color = zColor
	zLine.Width = vg.Points(1.5)
	top.Add(zLine)
	top.Legend.Add("plasma z", zLine)

	peakMM := res.Metrics.MaxZ * 1000
	peak, err := plotter.NewLine(plotter.XYs{
		{X: zPts[0].X, Y: peakMM},
		{X: zPts[len(zPts)-1].X, Y: peakMM},
	})
	if err != nil {
		return err
	}
	peak.Color = peakColor
	peak.Dashes = []vg.Length{vg.Points(5), vg.Points(4)}
	top.Add(peak)

	bottom := plot.New()
	bottom.X.Label.Text = "Time (s)"
	bottom.Y.Label.Text = "U"
	bottom.Y.Min, bottom.Y.Max = -1.05, 1.05
	bottom.Add(plotter.NewGrid())

	uLine, err := plotter.NewLine(uPts)
	if err != nil {
		return err
	}
	uLine.Color = uColor
	bottom.Add(uLine)
	bottom.Legend.Add("control (norm)", uLine)

	bottom.X.Min, bottom.X.Max = top.X.Min, top.X.Max

	size := vg.Length(figureInches) * vg.Inch
	c := vgimg.NewWith(vgimg.UseWH(size, size), vgimg.UseDPI(figureDPI))
	dc := draw.New(c)

	tiles := draw.Tiles{
		Rows: 2, Cols: 1,
		PadX: vg.Millimeter, PadY: 4 * vg.Millimeter,
		PadTop: 2 * vg.Millimeter, PadBottom: 2 * vg.Millimeter,
		PadLeft: 2 * vg.Millimeter, PadRight: 4 * vg.Millimeter,
	}
	canvases := plot.Align([][]*plot.Plot{{top}, {bottom}}, tiles, dc)
	top.Draw(canvases[0][0])
	bottom.Draw(canvases[1][0])

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("viz: write png: %w", err)
	}
	return bw.Flush()
}

// SavePNG writes the figure to path, creating parent directories.
func SavePNG(path string, res *sim.Result, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("viz: create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("viz: create png: %w", err)
	}
	defer f.Close()

	if err := WritePNG(f, res); err != nil {
		return err
	}
	logger.Info("plot saved", zap.String("path", path), zap.String("run_id", res.Metrics.RunID()))
	return nil
}

func xys(t, v []float64, scale float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(t))
	for i := range t {
		y := v[i] * scale
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: t[i], Y: y})
	}
	return pts
}
