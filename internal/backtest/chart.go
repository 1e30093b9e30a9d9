package backtest

import (
	"fmt"
	"image/color"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"BandTrader/internal/model"
)

// ChartPoint is one bar of a replayed series with its indicators. Bands is
// false until the moving-average window has filled.
type ChartPoint struct {
	Time    time.Time
	Close   float64
	Average float64
	Upper   float64
	Lower   float64
	Bands   bool
}

var (
	closeColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	avgColor   = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	bandColor  = color.RGBA{R: 128, G: 128, B: 128, A: 60}
	buyColor   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	sellColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

func chartPoints(bars []model.Bar, snaps []model.IndicatorSnapshot) []ChartPoint {
	out := make([]ChartPoint, len(bars))
	for i, b := range bars {
		s := snaps[i]
		out[i] = ChartPoint{
			Time:    b.Time,
			Close:   b.Close,
			Average: s.MovingAverage,
			Upper:   s.UpperBand,
			Lower:   s.LowerBand,
			Bands:   s.MovingAverage != 0,
		}
	}
	return out
}

// WriteChart renders the close, the moving average, the band envelope and
// the fills of res to an image. The format follows the file extension.
func WriteChart(path string, res *Result) error {
	if len(res.Chart) == 0 {
		return fmt.Errorf("%s: %w", res.Symbol, ErrNoBars)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %s (%.0f%%): profit %.2f, return %.2f%%",
		res.Symbol, res.RiskLabel, res.RiskMultiplier*100, res.TotalProfit, res.TotalReturnPercent)
	p.X.Tick.Marker = plot.TimeTicks{Format: time.DateOnly}
	p.Y.Label.Text = "Price"
	p.Legend.Top = true
	p.Legend.Left = true

	closes := make(plotter.XYs, 0, len(res.Chart))
	var avg, upper, lower plotter.XYs
	for _, pt := range res.Chart {
		x := float64(pt.Time.Unix())
		closes = append(closes, plotter.XY{X: x, Y: pt.Close})
		if pt.Bands {
			avg = append(avg, plotter.XY{X: x, Y: pt.Average})
			upper = append(upper, plotter.XY{X: x, Y: pt.Upper})
			lower = append(lower, plotter.XY{X: x, Y: pt.Lower})
		}
	}

	if len(upper) > 1 {
		ring := make(plotter.XYs, 0, 2*len(upper))
		ring = append(ring, upper...)
		for i := len(lower) - 1; i >= 0; i-- {
			ring = append(ring, lower[i])
		}
		band, err := plotter.NewPolygon(ring)
		if err != nil {
			return fmt.Errorf("band: %w", err)
		}
		band.Color = bandColor
		band.LineStyle.Width = 0
		p.Add(band)
		p.Legend.Add("Bollinger Bands", band)
	}

	line, err := plotter.NewLine(closes)
	if err != nil {
		return fmt.Errorf("close line: %w", err)
	}
	line.LineStyle.Color = closeColor
	line.LineStyle.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("Close", line)

	if len(avg) > 0 {
		ma, err := plotter.NewLine(avg)
		if err != nil {
			return fmt.Errorf("average line: %w", err)
		}
		ma.LineStyle.Color = avgColor
		ma.LineStyle.Width = vg.Points(1)
		p.Add(ma)
		p.Legend.Add("MA", ma)
	}

	var buys, sells plotter.XYs
	for _, tr := range res.Trades {
		xy := plotter.XY{X: float64(tr.Time.Unix()), Y: tr.Price}
		if tr.Kind == model.TradeBuy {
			buys = append(buys, xy)
		} else {
			sells = append(sells, xy)
		}
	}
	if err := addMarkers(p, "Buy", buys, draw.TriangleGlyph{}, buyColor); err != nil {
		return err
	}
	if err := addMarkers(p, "Sell", sells, draw.BoxGlyph{}, sellColor); err != nil {
		return err
	}

	return p.Save(14*vg.Inch, 7*vg.Inch, path)
}

func addMarkers(p *plot.Plot, name string, xys plotter.XYs, shape draw.GlyphDrawer, c color.Color) error {
	if len(xys) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("%s markers: %w", name, err)
	}
	s.GlyphStyle.Shape = shape
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(4)
	p.Add(s)
	p.Legend.Add(name, s)
	return nil
}
