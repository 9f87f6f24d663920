// Package chart draws the missing-values diagnostic chart as PNG.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
)

const (
	DefaultWidthIn  = 10.0
	DefaultHeightIn = 6.0

	Title       = "Missing Values per Column"
	Placeholder = "No Missing Values Found!"
)

var barColor = color.RGBA{R: 0x4c, G: 0x72, B: 0xb0, A: 0xff}

// Renderer implements analysis.ChartRenderer with gonum/plot.
type Renderer struct {
	WidthIn  float64
	HeightIn float64
}

// New returns a Renderer, falling back to 10x6 inches for non-positive sizes.
func New(widthIn, heightIn float64) Renderer {
	if widthIn <= 0 {
		widthIn = DefaultWidthIn
	}
	if heightIn <= 0 {
		heightIn = DefaultHeightIn
	}
	return Renderer{WidthIn: widthIn, HeightIn: heightIn}
}

// RenderMissing draws one horizontal bar per column, first column at the top.
// An empty bars slice yields the placeholder image.
func (r Renderer) RenderMissing(bars []analysis.ColumnMissing) ([]byte, error) {
	if r.WidthIn <= 0 || r.HeightIn <= 0 {
		return nil, fmt.Errorf("invalid chart size %.2fx%.2f in", r.WidthIn, r.HeightIn)
	}
	p := plot.New()
	var err error
	if len(bars) == 0 {
		err = placeholder(p)
	} else {
		err = r.barChart(p, bars)
	}
	if err != nil {
		return nil, err
	}

	wt, err := p.WriterTo(vg.Length(r.WidthIn)*vg.Inch, vg.Length(r.HeightIn)*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("png canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r Renderer) barChart(p *plot.Plot, bars []analysis.ColumnMissing) error {
	n := len(bars)
	values := make(plotter.Values, n)
	names := make([]string, n)
	xys := make(plotter.XYs, n)
	labels := make([]string, n)
	for i, b := range bars {
		j := n - 1 - i
		values[j] = float64(b.Count)
		names[j] = b.Column
		xys[j] = plotter.XY{X: float64(b.Count), Y: float64(j)}
		labels[j] = " " + strconv.Itoa(b.Count)
	}

	width := vg.Points(20)
	if fit := vg.Length(r.HeightIn) * vg.Inch * 0.6 / vg.Length(n); fit < width {
		width = fit
	}
	bc, err := plotter.NewBarChart(values, width)
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bc.Horizontal = true
	bc.Color = barColor
	bc.LineStyle.Width = 0

	lb, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return fmt.Errorf("bar labels: %w", err)
	}
	for i := range lb.TextStyle {
		lb.TextStyle[i].XAlign = text.XLeft
		lb.TextStyle[i].YAlign = text.YCenter
	}

	p.Title.Text = Title
	p.X.Label.Text = "Count"
	p.Y.Label.Text = "Column"
	p.Add(bc, lb)
	p.NominalY(names...)
	p.X.Min = 0
	return nil
}

func placeholder(p *plot.Plot) error {
	lb, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: 0.5, Y: 0.5}},
		Labels: []string{Placeholder},
	})
	if err != nil {
		return fmt.Errorf("placeholder: %w", err)
	}
	lb.TextStyle[0].XAlign = text.XCenter
	lb.TextStyle[0].YAlign = text.YCenter
	lb.TextStyle[0].Font.Size = vg.Points(24)
	p.Add(lb)
	p.HideAxes()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	return nil
}
