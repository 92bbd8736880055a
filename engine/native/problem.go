package native

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/isoflow/core/model"
	"github.com/YuminosukeSato/isoflow/payload"
	"github.com/YuminosukeSato/isoflow/pkg/errors"
	"github.com/YuminosukeSato/isoflow/posterior"
)

// Generated quantity and parameter names, matching the Stan programs.
const (
	ParamA           = "a"
	ParamB           = "b"
	ParamSigma       = "sigma"
	ParamResid       = "resid"
	ParamYNew        = "y_new"
	ParamCarbLatent  = "d18_O_c_s"
	ParamWaterLatent = "d18_O_w_s"
)

// problem is a payload decoded into what the sampler needs.
type problem struct {
	family model.Family

	x, y []float64
	// species is 1-based and only set when residuals or groups need it
	species []int
	groups  int

	// lines holds one likelihood for ungrouped programs and one per species
	// for grouped ones.
	lines []*line

	k                     int
	waterNew, carbNew     []float64
	waterNewSD, carbNewSD []float64
}

func newProblem(program model.Program, data payload.Payload) (*problem, error) {
	if err := data.Validate(program); err != nil {
		return nil, err
	}
	fam := program.Family
	p := &problem{family: fam}

	water, err := data.Floats(payload.FieldWater)
	if err != nil {
		return nil, err
	}
	carb, err := data.Floats(payload.FieldCarbonate)
	if err != nil {
		return nil, err
	}
	if p.y, err = data.Floats(payload.FieldY); err != nil {
		return nil, err
	}
	p.x = make([]float64, len(water))
	for i := range water {
		p.x[i] = carb[i] - water[i]
	}

	if err := checkBounds(payload.FieldY, p.y, fam.YBounds); err != nil {
		return nil, err
	}
	if err := checkBounds("diff", p.x, fam.DiffBounds); err != nil {
		return nil, err
	}

	if fam.Residuals || fam.Grouped {
		if p.groups, err = data.Int(payload.FieldJ); err != nil {
			return nil, err
		}
		if p.species, err = data.Ints(payload.FieldSpecies); err != nil {
			return nil, err
		}
		for i, s := range p.species {
			if s < 1 || s > p.groups {
				return nil, errors.NewValidationError(payload.FieldSpecies,
					fmt.Sprintf("row %d: index must lie in [1, %d]", i+1, p.groups), s)
			}
		}
	}

	switch fam.Prior {
	case model.PriorFlat:
		p.lines = []*line{{x: p.x, y: p.y}}
	case model.PriorShared:
		prior, err := sharedPrior(data)
		if err != nil {
			return nil, err
		}
		p.lines = []*line{{x: p.x, y: p.y, prior: prior}}
	case model.PriorPerGroup:
		if p.lines, err = groupLines(p, data); err != nil {
			return nil, err
		}
	}

	if fam.Predict {
		if err := p.readNew(data); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func checkBounds(field string, values []float64, b *model.Bounds) error {
	if b == nil {
		return nil
	}
	for i, v := range values {
		if !b.Contains(v) {
			return errors.NewValidationError(field,
				fmt.Sprintf("row %d outside [%g, %g]", i+1, b.Lower, b.Upper), v)
		}
	}
	return nil
}

func positive(field string, v float64) error {
	if v <= 0 {
		return errors.NewValidationError(field, "must be positive", v)
	}
	return nil
}

func sharedPrior(data payload.Payload) (*normalPrior, error) {
	var vals [4]float64
	for i, f := range []string{payload.FieldAM, payload.FieldBM, payload.FieldSigmaA, payload.FieldSigmaB} {
		v, err := data.Float(f)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	if err := positive(payload.FieldSigmaA, vals[2]); err != nil {
		return nil, err
	}
	if err := positive(payload.FieldSigmaB, vals[3]); err != nil {
		return nil, err
	}
	return &normalPrior{
		a: distuv.Normal{Mu: vals[0], Sigma: vals[2]},
		b: distuv.Normal{Mu: vals[1], Sigma: vals[3]},
	}, nil
}

// groupLines は種ごとの尤度を作る。a, b の事前分布の中心は共通で、
// スケールは種ごとに異なる。
func groupLines(p *problem, data payload.Payload) ([]*line, error) {
	aM, err := data.Float(payload.FieldAM)
	if err != nil {
		return nil, err
	}
	bM, err := data.Float(payload.FieldBM)
	if err != nil {
		return nil, err
	}
	sigmaA, err := data.Floats(payload.FieldSigmaA)
	if err != nil {
		return nil, err
	}
	sigmaB, err := data.Floats(payload.FieldSigmaB)
	if err != nil {
		return nil, err
	}

	lines := make([]*line, p.groups)
	for g := range lines {
		if err := positive(posterior.Element(payload.FieldSigmaA, g+1), sigmaA[g]); err != nil {
			return nil, err
		}
		if err := positive(posterior.Element(payload.FieldSigmaB, g+1), sigmaB[g]); err != nil {
			return nil, err
		}
		lines[g] = &line{prior: &normalPrior{
			a: distuv.Normal{Mu: aM, Sigma: sigmaA[g]},
			b: distuv.Normal{Mu: bM, Sigma: sigmaB[g]},
		}}
	}
	for i, s := range p.species {
		l := lines[s-1]
		l.x = append(l.x, p.x[i])
		l.y = append(l.y, p.y[i])
	}
	return lines, nil
}

func (p *problem) readNew(data payload.Payload) error {
	var err error
	if p.k, err = data.Int(payload.FieldK); err != nil {
		return err
	}
	if p.waterNew, err = data.Floats(payload.FieldWaterNew); err != nil {
		return err
	}
	if p.carbNew, err = data.Floats(payload.FieldCarbNew); err != nil {
		return err
	}
	if !p.family.Latent {
		return nil
	}
	if p.waterNewSD, err = data.Floats(payload.FieldWaterNewSD); err != nil {
		return err
	}
	if p.carbNewSD, err = data.Floats(payload.FieldCarbNewSD); err != nil {
		return err
	}
	for k := 0; k < p.k; k++ {
		if err := positive(posterior.Element(payload.FieldWaterNewSD, k+1), p.waterNewSD[k]); err != nil {
			return err
		}
		if err := positive(posterior.Element(payload.FieldCarbNewSD, k+1), p.carbNewSD[k]); err != nil {
			return err
		}
	}
	return nil
}

// columns returns the draw table layout in CmdStan output order.
func (p *problem) columns() []string {
	if p.family.Grouped {
		cols := make([]string, 0, 3*p.groups)
		for _, base := range []string{ParamA, ParamB, ParamSigma} {
			cols = appendVector(cols, base, p.groups)
		}
		return cols
	}

	cols := []string{ParamA, ParamB, ParamSigma}
	if p.family.Latent {
		cols = appendVector(cols, ParamCarbLatent, p.k)
		cols = appendVector(cols, ParamWaterLatent, p.k)
	}
	switch {
	case p.family.Replicate:
		cols = appendVector(cols, ParamYNew, len(p.y))
	case p.family.Predict:
		cols = appendVector(cols, ParamYNew, p.k)
	}
	if p.family.Residuals {
		cols = appendVector(cols, ParamResid, p.groups)
	}
	return cols
}

func appendVector(cols []string, base string, n int) []string {
	for i := 1; i <= n; i++ {
		cols = append(cols, posterior.Element(base, i))
	}
	return cols
}
