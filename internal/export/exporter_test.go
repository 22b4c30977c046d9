package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/coinpulse/pkg/logger"
	"github.com/selivandex/coinpulse/pkg/models"
	"github.com/selivandex/coinpulse/pkg/pipeerrors"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", ""); err != nil {
		panic(err)
	}
	m.Run()
}

func record(id string, created time.Time, label models.SentimentLabel, pNeg, pNeut, pPos float64) models.SentimentRecord {
	return models.SentimentRecord{
		ID:        id,
		Title:     "title " + id,
		Created:   created,
		Date:      created.Format(models.DateLayout),
		Time:      created.Format(models.TimeLayout),
		Comments:  "some comment",
		Topic:     0,
		Sentiment: label,
		PNeg:      pNeg,
		PNeut:     pNeut,
		PPos:      pPos,
	}
}

func TestMerge_HourAndAggregates(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	records := []models.SentimentRecord{
		record("a", day.Add(9*time.Hour+5*time.Minute), models.SentimentPositive, 0.1, 0.2, 0.7),
		record("b", day.Add(9*time.Hour+40*time.Minute), models.SentimentNegative, 0.8, 0.1, 0.1),
		record("c", day.Add(14*time.Hour), models.SentimentNeutral, 0.2, 0.6, 0.2),
	}

	rows, err := merge(records, nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 9, rows[0].Hour)
	assert.Equal(t, 9, rows[1].Hour)
	assert.Equal(t, 14, rows[2].Hour)

	assert.Equal(t, 1, rows[0].SentimentNum)
	assert.Equal(t, -1, rows[1].SentimentNum)
	assert.Equal(t, 0, rows[2].SentimentNum)

	assert.InDelta(t, 0.7, rows[0].SentimentScore, 1e-9)
	assert.InDelta(t, 0.8, rows[1].SentimentScore, 1e-9)

	// avg_sentiment is constant across rows sharing the same hour
	assert.Equal(t, rows[0].AvgSentiment, rows[1].AvgSentiment)
	assert.InDelta(t, 0.0, rows[0].AvgSentiment, 1e-9) // (1 + -1) / 2
	assert.InDelta(t, 0.0, rows[2].AvgSentiment, 1e-9)
}

func TestMerge_LeftJoinSemantics(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	records := []models.SentimentRecord{
		record("matched", day.Add(9*time.Hour), models.SentimentPositive, 0.1, 0.2, 0.7),
		record("unmatched", day.AddDate(0, 0, 5).Add(9*time.Hour), models.SentimentPositive, 0.1, 0.2, 0.7),
	}

	prices := []models.PricePoint{
		models.NewPricePoint("bitcoin", day.Add(9*time.Hour+30*time.Minute), models.PriceFromFloat(65000.10)),
		// Price sample on a date with no sentiment rows must not appear
		models.NewPricePoint("bitcoin", day.AddDate(0, 0, 1).Add(9*time.Hour), models.PriceFromFloat(66000)),
	}

	rows, err := merge(records, prices)
	require.NoError(t, err)
	require.Len(t, rows, 2, "all sentiment rows are preserved")

	require.NotNil(t, rows[0].CoinTicker)
	assert.Equal(t, "bitcoin", *rows[0].CoinTicker)
	require.NotNil(t, rows[0].Price)
	assert.Equal(t, "65000.1", rows[0].Price.String())

	assert.Nil(t, rows[1].CoinTicker)
	assert.Nil(t, rows[1].Price)
	assert.Nil(t, rows[1].PriceTimestamp)
	assert.Nil(t, rows[1].PriceDate)
	assert.Nil(t, rows[1].PriceTime)
}

func TestMerge_UnparsableTime(t *testing.T) {
	bad := models.SentimentRecord{ID: "x", Time: "not-a-time", Sentiment: models.SentimentNeutral}

	_, err := merge([]models.SentimentRecord{bad}, nil)
	require.Error(t, err)

	var exportErr *pipeerrors.ExportError
	require.True(t, pipeerrors.As(err, &exportErr))
	assert.Equal(t, "hour derivation", exportErr.Step)
}

func TestExporter_RoundTrip(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	records := []models.SentimentRecord{
		record("a", day.Add(9*time.Hour), models.SentimentPositive, 0.1, 0.2, 0.7),
		record("b", day.Add(16*time.Hour), models.SentimentNegative, 0.6, 0.3, 0.1),
	}
	prices := []models.PricePoint{
		models.NewPricePoint("bitcoin", day.Add(9*time.Hour), models.PriceFromFloat(65000)),
	}

	out := filepath.Join(t.TempDir(), "exported_data.csv")
	exporter := NewExporter(out)

	require.NoError(t, exporter.Export(Merged(records, prices)))

	file, err := os.Open(out)
	require.NoError(t, err)
	defer file.Close()

	var got []MergedRow
	require.NoError(t, gocsv.UnmarshalFile(file, &got))
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, records[0].Date, got[0].Date)
	assert.Equal(t, records[0].Time, got[0].Time)
	assert.InDelta(t, 0.7, got[0].PPos, 1e-9)
	assert.Equal(t, 9, got[0].Hour)
	require.NotNil(t, got[0].CoinTicker)
	assert.Equal(t, "bitcoin", *got[0].CoinTicker)

	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, models.SentimentNegative, got[1].Sentiment)
}

func TestExporter_OverwritesOnRerun(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	out := filepath.Join(t.TempDir(), "exported_data.csv")
	exporter := NewExporter(out)

	first := []models.SentimentRecord{
		record("a", day.Add(9*time.Hour), models.SentimentPositive, 0.1, 0.2, 0.7),
		record("b", day.Add(10*time.Hour), models.SentimentPositive, 0.1, 0.2, 0.7),
	}
	require.NoError(t, exporter.Export(Merged(first, nil)))

	second := []models.SentimentRecord{
		record("c", day.Add(11*time.Hour), models.SentimentNeutral, 0.2, 0.6, 0.2),
	}
	require.NoError(t, exporter.Export(Merged(second, nil)))

	file, err := os.Open(out)
	require.NoError(t, err)
	defer file.Close()

	var got []MergedRow
	require.NoError(t, gocsv.UnmarshalFile(file, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)
}

func TestExporter_NoPartialOutputOnFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "exported_data.csv")
	exporter := NewExporter(out)

	bad := []models.SentimentRecord{
		{ID: "x", Time: "broken", Sentiment: models.SentimentNeutral},
	}

	require.Error(t, exporter.Export(Merged(bad, nil)))

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "failed export must not leave partial output")
}

func TestExporter_NumericOnlyVariant(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	out := filepath.Join(t.TempDir(), "exported_data.csv")
	exporter := NewExporter(out)

	prices := []models.PricePoint{
		models.NewPricePoint("bitcoin", day, models.PriceFromFloat(65000.55)),
	}
	require.NoError(t, exporter.Export(NumericOnly(prices)))

	file, err := os.Open(out)
	require.NoError(t, err)
	defer file.Close()

	var got []priceRow
	require.NoError(t, gocsv.UnmarshalFile(file, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "bitcoin", got[0].CoinTicker)
	assert.Equal(t, "65000.55", got[0].Price.String())
}
