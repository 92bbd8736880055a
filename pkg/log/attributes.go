// Standard attribute keys for pipeline logging.
//
// Using the same keys in the pipeline, the engines and the CLI keeps logs from
// different runs filterable by stage and species.

package log

// Pipeline context.
const (
	// RunIDKey identifies one CLI invocation.
	RunIDKey = "run.id"

	// StageKey is the stage id (Q1 ... Q4_B).
	StageKey = "stage"

	// SpeciesKey is the species label of the unit being fitted. Empty for
	// pooled units.
	SpeciesKey = "species"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "component"

	// PathKey is a file written or read.
	PathKey = "path"
)

// Data shape.
const (
	// SamplesKey is the number of measurement rows in the unit.
	SamplesKey = "data.samples"

	// GroupsKey is the number of species in the unit.
	GroupsKey = "data.groups"

	// ColumnsKey lists the columns read from the input file.
	ColumnsKey = "data.columns"
)

// Sampler configuration and diagnostics.
const (
	EngineKey  = "engine.name"
	ChainsKey  = "sampler.chains"
	ChainKey   = "sampler.chain"
	DrawsKey   = "sampler.draws"
	WarmupKey  = "sampler.warmup"
	SeedKey    = "sampler.seed"
	ParamKey   = "diag.parameter"
	RHatKey    = "diag.r_hat"
	AcceptKey  = "diag.accept_rate"
	DivergKey  = "diag.divergent"
	DurationMs = "perf.duration_ms"
)

// Fit quality of the posterior-mean line.
const (
	RMSEKey = "fit.rmse"
	R2Key   = "fit.r2"
)
