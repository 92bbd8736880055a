// Package errors はisoflow全体のエラーハンドリングと警告システムを提供します。
// パイプラインの各段階（データ読み込み、ステージ解決、事前分布の引き継ぎ、サンプリング）で
// 発生する失敗を構造化されたエラー型として表現します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("isoflow-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	サンプラーの警告型
//
// ===========================================================================

// ConvergenceWarning is raised when a parameter's split R-hat exceeds the threshold.
type ConvergenceWarning struct {
	Stage     string
	Parameter string
	RHat      float64
	Threshold float64
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("%s: chains have not mixed for %s (r_hat=%.3f > %.2f). Consider more draws or warmup.",
		w.Stage, w.Parameter, w.RHat, w.Threshold)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("stage", w.Stage).
		Str("parameter", w.Parameter).
		Float64("r_hat", w.RHat).
		Float64("threshold", w.Threshold).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(stage, parameter string, rhat, threshold float64) *ConvergenceWarning {
	return &ConvergenceWarning{Stage: stage, Parameter: parameter, RHat: rhat, Threshold: threshold}
}

// DivergenceWarning reports post-warmup divergent transitions found in sampler output.
type DivergenceWarning struct {
	Stage     string
	Divergent int
	Total     int
}

func (w *DivergenceWarning) Error() string {
	return fmt.Sprintf("%s: %d of %d transitions after warmup were divergent", w.Stage, w.Divergent, w.Total)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DivergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("stage", w.Stage).
		Int("divergent", w.Divergent).
		Int("total", w.Total).
		Str("type", "DivergenceWarning")
}

// NewDivergenceWarning は新しいDivergenceWarningを作成します。
func NewDivergenceWarning(stage string, divergent, total int) *DivergenceWarning {
	return &DivergenceWarning{Stage: stage, Divergent: divergent, Total: total}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// ColumnError は入力テーブルやサマリーに必要な列が存在しない場合のエラーです。
type ColumnError struct {
	Source string
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("isoflow: %s: missing column %q", e.Source, e.Column)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ColumnError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("source", e.Source).
		Str("column", e.Column).
		Str("type", "ColumnError")
}

// NewColumnError は新しいColumnErrorを作成し、スタックトレースを付与します。
func NewColumnError(source, column string) error {
	return errors.WithStack(&ColumnError{Source: source, Column: column})
}

// UnknownStageError は登録されていないステージIDが指定された場合のエラーです。
type UnknownStageError struct {
	Stage string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("isoflow: unknown stage %q", e.Stage)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *UnknownStageError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", e.Stage).Str("type", "UnknownStageError")
}

// NewUnknownStageError は新しいUnknownStageErrorを作成し、スタックトレースを付与します。
func NewUnknownStageError(stage string) error {
	return errors.WithStack(&UnknownStageError{Stage: stage})
}

// MissingResultError は後続ステージが必要とする上流の結果ファイルが存在しない場合のエラーです。
type MissingResultError struct {
	Stage   string
	Species string
	Path    string
	Err     error
}

func (e *MissingResultError) Error() string {
	if e.Species == "" {
		return fmt.Sprintf("isoflow: no results for stage %s at %s (run %s first)", e.Stage, e.Path, e.Stage)
	}
	return fmt.Sprintf("isoflow: no results for stage %s, species %s at %s (run %s first)", e.Stage, e.Species, e.Path, e.Stage)
}

func (e *MissingResultError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MissingResultError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", e.Stage).
		Str("species", e.Species).
		Str("path", e.Path).
		Str("type", "MissingResultError")
}

// NewMissingResultError は新しいMissingResultErrorを作成し、スタックトレースを付与します。
func NewMissingResultError(stage, species, path string, err error) error {
	return errors.WithStack(&MissingResultError{Stage: stage, Species: species, Path: path, Err: err})
}

// MissingParameterError はサマリーに要求されたパラメータ行が存在しない場合のエラーです。
type MissingParameterError struct {
	Source    string
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("isoflow: %s: parameter %q not found", e.Source, e.Parameter)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MissingParameterError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("source", e.Source).
		Str("parameter", e.Parameter).
		Str("type", "MissingParameterError")
}

// NewMissingParameterError は新しいMissingParameterErrorを作成し、スタックトレースを付与します。
func NewMissingParameterError(source, parameter string) error {
	return errors.WithStack(&MissingParameterError{Source: source, Parameter: parameter})
}

// DimensionError は配列の長さが期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Field    string
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("isoflow: %s: length mismatch for %s. Expected %d, got %d", e.Op, e.Field, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("field", e.Field).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op, field string, expected, got int) error {
	return errors.WithStack(&DimensionError{Op: op, Field: field, Expected: expected, Got: got})
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("isoflow: validation failed for '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は値が不正または解析できない場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("isoflow: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// EngineError はサンプリングエンジン内部の失敗（コンパイル、サンプリング）を表します。
type EngineError struct {
	Engine string
	Op     string
	Output string
	Err    error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("isoflow: %s engine: %s: %v", e.Engine, e.Op, e.Err)
	}
	return fmt.Sprintf("isoflow: %s engine: %s", e.Engine, e.Op)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *EngineError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("engine", e.Engine).
		Str("operation", e.Op).
		Str("output", e.Output).
		Str("type", "EngineError")
}

// NewEngineError は新しいEngineErrorを作成し、スタックトレースを付与します。
func NewEngineError(engine, op, output string, err error) error {
	return errors.WithStack(&EngineError{Engine: engine, Op: op, Output: output, Err: err})
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("isoflow: numerical instability detected in %s at row %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")
)
