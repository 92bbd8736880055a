// Package plotting は各ステージの診断図を PNG として書き出します。
//
// 図はすべて x = d18_O - d18_O_w, y = 温度 の平面に描かれ、
// <Root>/<stage>/[<species>/]<name>.png に保存されます。
package plotting

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

// File names of the rendered figures.
const (
	DataFile            = "data.png"
	FitFile             = "data_fit.png"
	CompareFile         = "compare_fit.png"
	PredictionsFile     = "predictions.png"
	PredictiveCheckFile = "predictive_check.png"
)

const (
	width  = 15 * vg.Inch
	height = 10 * vg.Inch

	xLabel = "d18O_c - d18O_w (permil)"
	yLabel = "temperature (C)"

	defaultMaxLines = 200
)

var (
	red    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	green  = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	blue   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	orange = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	black  = color.RGBA{A: 255}
)

// translucent は色の不透明度を下げる（ドローごとの直線用）
func translucent(c color.RGBA, alpha uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha}
}

// Renderer writes figures below Root.
type Renderer struct {
	Root string
	// MaxLines caps the number of posterior draws drawn as lines per cloud.
	MaxLines int
}

// NewRenderer returns a renderer writing below root.
func NewRenderer(root string) *Renderer {
	return &Renderer{Root: root, MaxLines: defaultMaxLines}
}

// Path returns where figure name of stage (and species, if set) is stored.
func (r *Renderer) Path(stage, species, name string) string {
	if species == "" {
		return filepath.Join(r.Root, stage, name)
	}
	return filepath.Join(r.Root, stage, species, name)
}

// Cloud is a posterior over lines y = A + B*x, one entry per draw.
type Cloud struct {
	Label string
	A, B  []float64
}

func (c Cloud) validate() error {
	if len(c.A) == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "line cloud %q", c.Label)
	}
	if len(c.A) != len(c.B) {
		return errors.NewDimensionError("plotting.Cloud", "b", len(c.A), len(c.B))
	}
	return nil
}

// legend は "a_mean = m (+/- s), b_mean = ..." 形式のラベル
func (c Cloud) legend() string {
	am, as := stat.MeanStdDev(c.A, nil)
	bm, bs := stat.MeanStdDev(c.B, nil)
	label := fmt.Sprintf("a_mean = %.2f (+/- %.2f), b_mean = %.2f (+/- %.2f)", am, as, bm, bs)
	if c.Label != "" {
		label = c.Label + ": " + label
	}
	return label
}

// Prediction is the posterior predictive mean and standard deviation of the
// temperature at each new input X.
type Prediction struct {
	Label string
	X     []float64
	Mean  []float64
	Std   []float64
}

func (r *Renderer) save(p *plot.Plot, stage, species, name string) (string, error) {
	path := r.Path(stage, species, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "create plot directory for %s", path)
	}
	if err := p.Save(width, height, path); err != nil {
		return "", errors.Wrapf(err, "save plot %s", path)
	}
	return path, nil
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

func points(x, y []float64) (plotter.XYs, error) {
	if len(x) != len(y) {
		return nil, errors.NewDimensionError("plotting.points", "y", len(x), len(y))
	}
	xys := make(plotter.XYs, len(x))
	for i := range x {
		xys[i].X, xys[i].Y = x[i], y[i]
	}
	return xys, nil
}

func scatter(p *plot.Plot, x, y []float64, c color.Color, label string) (*plotter.Scatter, error) {
	xys, err := points(x, y)
	if err != nil {
		return nil, err
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, errors.Wrap(err, "scatter")
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(3)
	p.Add(s)
	if label != "" {
		p.Legend.Add(label, s)
	}
	return s, nil
}

// straight draws y = a + b*x across [lo, hi].
func straight(a, b, lo, hi float64, c color.Color, w vg.Length) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: lo, Y: a + b*lo}, {X: hi, Y: a + b*hi}})
	if err != nil {
		return nil, errors.Wrap(err, "line")
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = w
	return l, nil
}

// cloud は事後ドローごとの直線を薄く描き、その上に事後平均の直線を重ねる
func (r *Renderer) cloud(p *plot.Plot, x []float64, c Cloud, mean, draws color.RGBA) error {
	if err := c.validate(); err != nil {
		return err
	}
	lo, hi := floats.Min(x), floats.Max(x)

	step := 1
	if limit := r.MaxLines; limit > 0 && len(c.A) > limit {
		step = (len(c.A) + limit - 1) / limit
	}
	for i := 0; i < len(c.A); i += step {
		l, err := straight(c.A[i], c.B[i], lo, hi, translucent(draws, 25), vg.Points(0.5))
		if err != nil {
			return err
		}
		p.Add(l)
	}

	l, err := straight(stat.Mean(c.A, nil), stat.Mean(c.B, nil), lo, hi, mean, vg.Points(2))
	if err != nil {
		return err
	}
	p.Add(l)
	p.Legend.Add(c.legend(), l)
	return nil
}

func title(stage, species, what string) string {
	if species == "" {
		return fmt.Sprintf("%s: %s", stage, what)
	}
	return fmt.Sprintf("%s (%s): %s", stage, species, what)
}

// Data renders the raw measurements.
func (r *Renderer) Data(stage, species string, x, y []float64) (string, error) {
	if len(x) == 0 {
		return "", errors.Wrap(errors.ErrEmptyData, "plotting.Data")
	}
	p := newPlot(title(stage, species, "data"))
	if _, err := scatter(p, x, y, black, "observations"); err != nil {
		return "", err
	}
	return r.save(p, stage, species, DataFile)
}

// Fit renders the measurements with the posterior-mean line and one faint
// line per draw.
func (r *Renderer) Fit(stage, species string, x, y []float64, fit Cloud) (string, error) {
	if len(x) == 0 {
		return "", errors.Wrap(errors.ErrEmptyData, "plotting.Fit")
	}
	p := newPlot(title(stage, species, "posterior fit"))
	if err := r.cloud(p, x, fit, red, green); err != nil {
		return "", err
	}
	if _, err := scatter(p, x, y, black, "observations"); err != nil {
		return "", err
	}
	return r.save(p, stage, species, FitFile)
}

// CompareFits overlays two posteriors: first in red over a green cloud,
// second in blue over an orange cloud.
func (r *Renderer) CompareFits(stage, species string, x, y []float64, first, second Cloud) (string, error) {
	if len(x) == 0 {
		return "", errors.Wrap(errors.ErrEmptyData, "plotting.CompareFits")
	}
	p := newPlot(title(stage, species, "fit comparison"))
	if err := r.cloud(p, x, first, red, green); err != nil {
		return "", err
	}
	if err := r.cloud(p, x, second, blue, orange); err != nil {
		return "", err
	}
	if _, err := scatter(p, x, y, black, "observations"); err != nil {
		return "", err
	}
	return r.save(p, stage, species, CompareFile)
}

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// Predictions renders the observations together with mean +/- std error bars
// of each prediction set; the first set is red, the second green.
func (r *Renderer) Predictions(stage, species string, x, y []float64, preds ...Prediction) (string, error) {
	if len(preds) == 0 {
		return "", errors.NewValueError("plotting.Predictions", "no predictions to draw")
	}
	p := newPlot(title(stage, species, "posterior predictions"))
	if _, err := scatter(p, x, y, black, "observations"); err != nil {
		return "", err
	}

	palette := []color.RGBA{red, green, blue, orange}
	for i, pr := range preds {
		if len(pr.Mean) != len(pr.X) {
			return "", errors.NewDimensionError("plotting.Predictions", "mean", len(pr.X), len(pr.Mean))
		}
		if len(pr.Std) != len(pr.X) {
			return "", errors.NewDimensionError("plotting.Predictions", "std", len(pr.X), len(pr.Std))
		}
		xys, err := points(pr.X, pr.Mean)
		if err != nil {
			return "", err
		}
		yerrs := make(plotter.YErrors, len(pr.Std))
		for k, s := range pr.Std {
			yerrs[k].Low, yerrs[k].High = s, s
		}
		bars, err := plotter.NewYErrorBars(errorPoints{XYs: xys, YErrors: yerrs})
		if err != nil {
			return "", errors.Wrap(err, "error bars")
		}
		c := palette[i%len(palette)]
		bars.LineStyle.Color = c
		bars.LineStyle.Width = vg.Points(1.5)
		p.Add(bars)
		means, err := scatter(p, pr.X, pr.Mean, c, "")
		if err != nil {
			return "", err
		}
		label := pr.Label
		if label == "" {
			label = fmt.Sprintf("prediction %d", i+1)
		}
		p.Legend.Add(label+" (mean +/- std)", means)
	}
	return r.save(p, stage, species, PredictionsFile)
}

// PredictiveCheck renders replicated temperatures against the observed inputs
// with horizontal reference lines at lower and upper. draws[i] holds the
// replicated draws at x[i].
func (r *Renderer) PredictiveCheck(stage string, x []float64, draws [][]float64, lower, upper float64) (string, error) {
	if len(draws) != len(x) {
		return "", errors.NewDimensionError("plotting.PredictiveCheck", "draws", len(x), len(draws))
	}
	if len(x) == 0 {
		return "", errors.Wrap(errors.ErrEmptyData, "plotting.PredictiveCheck")
	}
	p := newPlot(title(stage, "", "posterior predictive check"))

	limit := r.MaxLines
	var xs, ys []float64
	for i, d := range draws {
		step := 1
		if limit > 0 && len(d) > limit {
			step = (len(d) + limit - 1) / limit
		}
		for k := 0; k < len(d); k += step {
			xs = append(xs, x[i])
			ys = append(ys, d[k])
		}
	}
	if _, err := scatter(p, xs, ys, translucent(blue, 60), "y_new"); err != nil {
		return "", err
	}

	for _, ref := range []float64{lower, upper} {
		v := ref
		f := plotter.NewFunction(func(float64) float64 { return v })
		f.LineStyle.Color = red
		f.LineStyle.Width = vg.Points(1.5)
		f.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		p.Add(f)
		p.Legend.Add(fmt.Sprintf("T = %g", v), f)
	}
	return r.save(p, stage, "", PredictiveCheckFile)
}
