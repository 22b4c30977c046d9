package marketdata

import (
	"github.com/cinar/indicator"
	"go.uber.org/zap"

	"github.com/selivandex/coinpulse/pkg/logger"
	"github.com/selivandex/coinpulse/pkg/models"
)

// TrendSummary is a diagnostic view of a normalized price series
type TrendSummary struct {
	Samples   int
	First     float64
	Last      float64
	SMA       float64
	Direction string
}

// Summarize computes a simple moving average trend readout for run logs.
// Diagnostic only, never exported.
func Summarize(points []models.PricePoint) TrendSummary {
	if len(points) == 0 {
		return TrendSummary{Direction: "flat"}
	}

	closing := make([]float64, len(points))
	for i, p := range points {
		closing[i] = models.ToFloat64(p.Price)
	}

	period := 24
	if len(closing) < period {
		period = len(closing)
	}
	sma := indicator.Sma(period, closing)

	summary := TrendSummary{
		Samples: len(points),
		First:   closing[0],
		Last:    closing[len(closing)-1],
		SMA:     sma[len(sma)-1],
	}

	switch {
	case summary.Last > summary.SMA:
		summary.Direction = "above-average"
	case summary.Last < summary.SMA:
		summary.Direction = "below-average"
	default:
		summary.Direction = "flat"
	}

	return summary
}

// LogSummary writes the trend readout to the run log
func LogSummary(ticker string, points []models.PricePoint) {
	s := Summarize(points)
	logger.Info("price trend summary",
		zap.String("ticker", ticker),
		zap.Int("samples", s.Samples),
		zap.Float64("first", s.First),
		zap.Float64("last", s.Last),
		zap.Float64("sma", s.SMA),
		zap.String("direction", s.Direction),
	)
}
