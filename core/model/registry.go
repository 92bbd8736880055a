// Package model は各ステージのStanプログラムと、そのプログラムが要求する
// データフィールド・プーリング種別・既定の描画数を管理するレジストリです。
package model

import (
	"embed"
	"fmt"
	"slices"
	"strings"

	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

//go:embed stan/*.stan
var programs embed.FS

// Stage はパイプラインのステージ識別子
type Stage string

// Stage identifiers in pipeline order.
const (
	Q1  Stage = "Q1"
	Q2  Stage = "Q2"
	Q3A Stage = "Q3_A"
	Q3B Stage = "Q3_B"
	Q4A Stage = "Q4_A"
	Q4B Stage = "Q4_B"
)

// Kind はプーリング戦略の種別
type Kind int

const (
	// Pooled は全種を1本の回帰で扱う
	Pooled Kind = iota
	// NoPooling は種ごとに独立に推定する
	NoPooling
	// PartialPooling は種ごとの係数を上流の推定値へ縮小する
	PartialPooling
	// Predictive は新しい入力に対する事後予測を行う
	Predictive
)

func (k Kind) String() string {
	switch k {
	case Pooled:
		return "pooled"
	case NoPooling:
		return "no-pooling"
	case PartialPooling:
		return "partial-pooling"
	case Predictive:
		return "predictive"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Program は1ステージ分の不変なモデル記述
type Program struct {
	Stage       Stage
	Kind        Kind
	Description string
	// Source はStanプログラムのテキスト。エンジンにそのまま渡される
	Source string
	// Columns は入力CSVから必要な列
	Columns      []string
	DefaultDraws int
	// Upstream はこのステージが結果ファイルを読むステージ
	Upstream []Stage
	Family   Family
}

var (
	baseColumns        = []string{"d18_O_w", "d18_O", "temperature", "species"}
	uncertaintyColumns = []string{"d18_O_w", "d18_O", "temperature", "species", "d18_O_w_sd", "d18_O_sd"}
	labBounds          = &Bounds{Lower: -2, Upper: 50}
)

var order = []Stage{Q1, Q2, Q3A, Q3B, Q4A, Q4B}

var registry = map[Stage]Program{
	Q1: {
		Stage:        Q1,
		Kind:         Pooled,
		Description:  "complete pooling across species",
		Columns:      baseColumns,
		DefaultDraws: 1000,
		Family:       Family{Residuals: true},
	},
	Q2: {
		Stage:        Q2,
		Kind:         Pooled,
		Description:  "complete pooling with bounds and posterior predictive check",
		Columns:      baseColumns,
		DefaultDraws: 1000,
		Family: Family{
			Residuals:  true,
			Replicate:  true,
			YBounds:    labBounds,
			DiffBounds: &Bounds{Lower: -4, Upper: 5},
		},
	},
	Q3A: {
		Stage:        Q3A,
		Kind:         NoPooling,
		Description:  "no pooling, one fit per species",
		Columns:      baseColumns,
		DefaultDraws: 100,
		Family:       Family{YBounds: labBounds},
	},
	Q3B: {
		Stage:        Q3B,
		Kind:         PartialPooling,
		Description:  "partial pooling toward the pooled fit",
		Columns:      baseColumns,
		DefaultDraws: 100,
		Upstream:     []Stage{Q2, Q3A},
		Family:       Family{Grouped: true, Prior: PriorPerGroup, YBounds: labBounds},
	},
	Q4A: {
		Stage:        Q4A,
		Kind:         Predictive,
		Description:  "posterior predictive temperatures for new isotope pairs",
		Columns:      baseColumns,
		DefaultDraws: 1000,
		Upstream:     []Stage{Q2, Q3A},
		Family:       Family{Prior: PriorShared, Predict: true, YBounds: labBounds},
	},
	Q4B: {
		Stage:        Q4B,
		Kind:         Predictive,
		Description:  "posterior predictive temperatures with measurement uncertainty",
		Columns:      uncertaintyColumns,
		DefaultDraws: 1000,
		Upstream:     []Stage{Q2, Q3A},
		Family:       Family{Prior: PriorShared, Predict: true, Latent: true, YBounds: labBounds},
	},
}

func init() {
	for id, p := range registry {
		src, err := programs.ReadFile(fmt.Sprintf("stan/%s.stan", strings.ToLower(string(id))))
		if err != nil {
			panic(fmt.Sprintf("model: missing program for %s: %v", id, err))
		}
		p.Source = string(src)
		registry[id] = p
	}
}

// Lookup returns the program registered for id. Unknown ids fail with
// UnknownStageError.
func Lookup(id string) (Program, error) {
	p, ok := registry[Stage(id)]
	if !ok {
		return Program{}, errors.NewUnknownStageError(id)
	}
	return p.clone(), nil
}

// Stages returns every registered stage in pipeline order.
func Stages() []Stage {
	return slices.Clone(order)
}

func (p Program) clone() Program {
	p.Columns = slices.Clone(p.Columns)
	p.Upstream = slices.Clone(p.Upstream)
	p.Family = p.Family.clone()
	return p
}

// Uncertain reports whether the program needs per-record measurement uncertainty.
func (p Program) Uncertain() bool {
	return p.Family.Latent
}

// PerSpecies reports whether the stage runs once per species.
func (p Program) PerSpecies() bool {
	return p.Kind == NoPooling || p.Kind == Predictive
}
