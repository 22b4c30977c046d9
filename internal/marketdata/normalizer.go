package marketdata

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/coinpulse/pkg/logger"
	"github.com/selivandex/coinpulse/pkg/models"
	"github.com/selivandex/coinpulse/pkg/pipeerrors"
)

// Normalizer converts a raw market chart payload into a tabular price series
// localized for display
type Normalizer struct {
	location *time.Location
}

// NewNormalizer creates a normalizer using the host system timezone
func NewNormalizer() *Normalizer {
	return &Normalizer{location: time.Local}
}

// NewNormalizerIn creates a normalizer pinned to a specific timezone
func NewNormalizerIn(loc *time.Location) *Normalizer {
	return &Normalizer{location: loc}
}

// rawChart mirrors the provider payload: prices as [epoch_ms, price] pairs
type rawChart struct {
	Prices [][2]float64 `json:"prices"`
}

// Normalize parses the raw response body into price points tagged with the
// asset ticker. A malformed or empty series means the asset is likely no
// longer active on the provider side.
func (n *Normalizer) Normalize(ticker string, body []byte) ([]models.PricePoint, error) {
	var chart rawChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, pipeerrors.Wrap(pipeerrors.ErrInactiveAsset, err.Error())
	}

	if len(chart.Prices) == 0 {
		return nil, pipeerrors.Wrapf(pipeerrors.ErrInactiveAsset, "empty price series for %q", ticker)
	}

	points := make([]models.PricePoint, 0, len(chart.Prices))
	for _, pair := range chart.Prices {
		// Component 0 is epoch milliseconds UTC, component 1 the price
		ts := time.UnixMilli(int64(pair[0])).In(n.location)
		points = append(points, models.NewPricePoint(ticker, ts, models.PriceFromFloat(pair[1])))
	}

	logger.Info("normalized price series",
		zap.String("ticker", ticker),
		zap.Int("samples", len(points)),
		zap.String("timezone", n.location.String()),
	)

	return points, nil
}
