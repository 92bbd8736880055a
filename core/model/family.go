package model

// PriorMode はa, bの事前分布の与え方
type PriorMode int

const (
	// PriorFlat は平坦な事前分布
	PriorFlat PriorMode = iota
	// PriorShared はスカラーの a_m, b_m, sigma_a, sigma_b を使う
	PriorShared
	// PriorPerGroup は a_m, b_m と種ごとの sigma_a[J], sigma_b[J] を使う
	PriorPerGroup
)

// Bounds is a closed interval declared on a data quantity.
type Bounds struct {
	Lower, Upper float64
}

// Contains reports whether v lies inside the interval.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// Family describes the likelihood of a program in terms the native engine can
// evaluate without reading the Stan text. Every program shares
// y ~ Normal(a + b * (d18_O_c - d18_O_w), sigma).
type Family struct {
	// Grouped programs index a, b and sigma by the species array.
	Grouped bool
	Prior   PriorMode
	// Residuals emits resid[J], the mean residual per species.
	Residuals bool
	// Replicate emits y_new[N] at the observed inputs.
	Replicate bool
	// Predict emits y_new[K] at d18_O_w_new, d18_O_c_new.
	Predict bool
	// Latent adds measured-with-error inputs d18_O_c_s[K], d18_O_w_s[K].
	Latent bool

	YBounds    *Bounds
	DiffBounds *Bounds
}

func (f Family) clone() Family {
	if f.YBounds != nil {
		b := *f.YBounds
		f.YBounds = &b
	}
	if f.DiffBounds != nil {
		b := *f.DiffBounds
		f.DiffBounds = &b
	}
	return f
}
