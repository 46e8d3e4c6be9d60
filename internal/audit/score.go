package audit

import (
	"math"

	"github.com/pagelift/pagelift/internal/model"
)

// metricBand maps one raw metric onto a 0-100 subscore: full marks at
// or below good, zero at or above poor, linear in between.
type metricBand struct {
	good   float64
	poor   float64
	weight float64
}

// scoreBands are the web-vitals thresholds and blend weights.
var scoreBands = []struct {
	band  metricBand
	value func(m *model.MetricsDocument) float64
}{
	{metricBand{good: 1800, poor: 3000, weight: 0.10}, func(m *model.MetricsDocument) float64 { return m.FirstContentfulPaintMs }},
	{metricBand{good: 2500, poor: 4000, weight: 0.25}, func(m *model.MetricsDocument) float64 { return m.LargestContentfulPaintMs }},
	{metricBand{good: 0.1, poor: 0.25, weight: 0.25}, func(m *model.MetricsDocument) float64 { return m.CumulativeLayoutShift }},
	{metricBand{good: 200, poor: 600, weight: 0.30}, func(m *model.MetricsDocument) float64 { return m.TotalBlockingTimeMs }},
	{metricBand{good: 3800, poor: 7300, weight: 0.10}, func(m *model.MetricsDocument) float64 { return m.TimeToInteractiveMs }},
}

// Score blends the five collected metrics into a 0-100 performance
// score, rounded to one decimal place.
func Score(m *model.MetricsDocument) float64 {
	total := 0.0
	for _, s := range scoreBands {
		total += s.band.weight * s.band.score(s.value(m))
	}
	return math.Round(total*10) / 10
}

func (b metricBand) score(value float64) float64 {
	switch {
	case value <= b.good:
		return 100
	case value >= b.poor:
		return 0
	default:
		return 100 * (b.poor - value) / (b.poor - b.good)
	}
}
