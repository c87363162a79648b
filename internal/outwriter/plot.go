package outwriter

import (
	"errors"
	"fmt"

	"github.com/huangsam/ratingfit/schema"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// WriteRatingPlot saves a scatter of true against approximate rating with the identity line.
// The image format follows the file extension (png, svg, pdf, ...).
func WriteRatingPlot(table schema.FinalTable, path string) error {
	if len(table.Rows) == 0 {
		return errors.New("cannot plot an empty table")
	}

	pts := make(plotter.XYs, len(table.Rows))
	lo, hi := table.Rows[0].Rating, table.Rows[0].Rating
	for i, r := range table.Rows {
		pts[i].X = float64(r.Rating)
		pts[i].Y = float64(r.ApproxRating)
		lo = min(lo, r.Rating, r.ApproxRating)
		hi = max(hi, r.Rating, r.ApproxRating)
	}

	p := plot.New()
	p.Title.Text = "Approximate vs true rating"
	p.X.Label.Text = "Rating"
	p.Y.Label.Text = "Approximate rating"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("failed to build scatter: %w", err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(2)

	identity, err := plotter.NewLine(plotter.XYs{
		{X: float64(lo), Y: float64(lo)},
		{X: float64(hi), Y: float64(hi)},
	})
	if err != nil {
		return fmt.Errorf("failed to build identity line: %w", err)
	}
	identity.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(scatter, identity)
	p.Legend.Add("players", scatter)
	p.Legend.Add("y = x", identity)
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
