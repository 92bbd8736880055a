// Package metrics は事後平均の回帰直線の当てはまりを評価する指標を提供します。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

func check(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty input")
	}
	if len(yPred) != len(yTrue) {
		return errors.NewDimensionError(op, "yPred", len(yTrue), len(yPred))
	}
	return nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := check("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	// MSE = (1/n) * Σ(yTrue - yPred)²
	d := floats.Distance(yTrue, yPred, 2)
	return d * d / float64(len(yTrue)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := check("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	return floats.Distance(yTrue, yPred, 1) / float64(len(yTrue)), nil
}

// R2 は決定係数を計算する。yTrueが定数の場合はNaNを返す
func R2(yTrue, yPred []float64) (float64, error) {
	if err := check("R2", yTrue, yPred); err != nil {
		return 0, err
	}
	if stat.Variance(yTrue, nil) == 0 {
		return math.NaN(), nil
	}
	return stat.RSquaredFrom(yPred, yTrue, nil), nil
}

// Fit はRMSE, MAE, R2をまとめたもの
type Fit struct {
	RMSE float64
	MAE  float64
	R2   float64
}

// LineFit は直線 a + b*x の観測値 y に対する当てはまりを評価する
func LineFit(a, b float64, x, y []float64) (Fit, error) {
	if len(x) != len(y) {
		return Fit{}, errors.NewDimensionError("LineFit", "x", len(y), len(x))
	}
	pred := make([]float64, len(x))
	for i, xi := range x {
		pred[i] = a + b*xi
	}

	var f Fit
	var err error
	if f.RMSE, err = RMSE(y, pred); err != nil {
		return Fit{}, err
	}
	if f.MAE, err = MAE(y, pred); err != nil {
		return Fit{}, err
	}
	if f.R2, err = R2(y, pred); err != nil {
		return Fit{}, err
	}
	return f, nil
}
