package calculator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Stats 一组观测值的总体统计量（除以 N）
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	CV     float64 `json:"cv"`
}

// Describe 计算均值、总体标准差与变异系数（CV 以百分比表示，均值不为正时为 0）
func Describe(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	sd := math.Sqrt(variance)
	cv := 0.0
	if mean > 0 {
		cv = sd / mean * 100
	}
	return Stats{Count: len(values), Mean: mean, StdDev: sd, CV: cv}
}

// Mean 算术平均，空集为 0
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Pearson 皮尔逊相关系数，样本不足或任一序列方差为 0 时返回 0
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
