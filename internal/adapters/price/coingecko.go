package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/selivandex/coinpulse/internal/adapters/config"
	"github.com/selivandex/coinpulse/pkg/logger"
	"github.com/selivandex/coinpulse/pkg/models"
	"github.com/selivandex/coinpulse/pkg/pipeerrors"
)

// CoinGeckoProvider implements Provider using the CoinGecko demo API
type CoinGeckoProvider struct {
	cfg     *config.CoinGeckoConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewCoinGeckoProvider creates new CoinGecko price provider
func NewCoinGeckoProvider(cfg *config.CoinGeckoConfig) *CoinGeckoProvider {
	// Demo keys are throttled per minute, spread requests out client-side
	interval := time.Minute / time.Duration(cfg.RequestsPerMinute)

	return &CoinGeckoProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (cg *CoinGeckoProvider) GetName() string {
	return "CoinGecko"
}

// MarketChartRange fetches the raw price series body for an asset.
// Datetimes convert to Unix epoch seconds at this boundary only.
func (cg *CoinGeckoProvider) MarketChartRange(ctx context.Context, assetID string, window models.TimeWindow) ([]byte, error) {
	url := fmt.Sprintf("%s/coins/%s/market_chart/range?vs_currency=%s&from=%d&to=%d&precision=2",
		cg.cfg.BaseURL, assetID, cg.cfg.Currency, window.StartUnix(), window.EndUnix())

	body, err := cg.get(ctx, url)
	if err != nil {
		return nil, err
	}

	logger.Debug("fetched market chart",
		zap.String("asset", assetID),
		zap.Int("bytes", len(body)),
	)

	return body, nil
}

// CoinsList fetches the selectable asset catalog
func (cg *CoinGeckoProvider) CoinsList(ctx context.Context) ([]Coin, error) {
	body, err := cg.get(ctx, cg.cfg.BaseURL+"/coins/list")
	if err != nil {
		return nil, err
	}

	var coins []Coin
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, fmt.Errorf("failed to decode coin list: %w", err)
	}

	return coins, nil
}

// get issues one authenticated request and translates transport and status
// failures into the pipeline error taxonomy
func (cg *CoinGeckoProvider) get(ctx context.Context, url string) ([]byte, error) {
	if err := cg.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("accept", "application/json")
	req.Header.Set("x-cg-demo-api-key", cg.cfg.APIKey)

	resp, err := cg.client.Do(req)
	if err != nil {
		// Never leak raw transport errors past the adapter boundary
		return nil, pipeerrors.Wrap(pipeerrors.ErrConnectivity, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, pipeerrors.NewUpstreamError(cg.GetName(), resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}
