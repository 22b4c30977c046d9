package export

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/selivandex/coinpulse/pkg/models"
	"github.com/selivandex/coinpulse/pkg/pipeerrors"
)

// MergedRow is one line of the final hour-aligned dataset. Price columns are
// pointers so sentiment rows without a matching price sample keep null
// numeric fields under left-join semantics.
type MergedRow struct {
	ID             string                `csv:"id"`
	Title          string                `csv:"title"`
	Created        string                `csv:"created"`
	Date           string                `csv:"date"`
	Time           string                `csv:"time"`
	UpvoteRatio    float64               `csv:"upvote_ratio"`
	Ups            int                   `csv:"ups"`
	Downs          int                   `csv:"downs"`
	Score          int                   `csv:"score"`
	Comments       string                `csv:"comments"`
	Topic          int                   `csv:"topic"`
	Sentiment      models.SentimentLabel `csv:"sentiment"`
	PNeg           float64               `csv:"p_neg"`
	PNeut          float64               `csv:"p_neut"`
	PPos           float64               `csv:"p_pos"`
	Hour           int                   `csv:"Hour"`
	SentimentNum   int                   `csv:"sentiment_num"`
	SentimentScore float64               `csv:"sentiment_score"`
	AvgSentiment   float64               `csv:"avg_sentiment"`
	CoinTicker     *string               `csv:"Coin Ticker"`
	PriceTimestamp *string               `csv:"Timestamp"`
	Price          *decimal.Decimal      `csv:"Price,omitempty"`
	PriceDate      *string               `csv:"Date"`
	PriceTime      *string               `csv:"Time"`
}

// timestampLayout renders the localized price timestamp without an offset
// suffix so the Date and Time columns always agree with it
const timestampLayout = "2006-01-02 15:04:05"

// merge derives the hour bucket and sentiment aggregates, then left-joins
// sentiment rows to price samples on calendar date and hour bucket. All
// sentiment rows survive; price samples without a sentiment row do not
// appear.
func merge(records []models.SentimentRecord, prices []models.PricePoint) ([]MergedRow, error) {
	hours := make([]int, len(records))
	for i, r := range records {
		h, err := hourOf(r.Time)
		if err != nil {
			return nil, pipeerrors.NewExportError("hour derivation", err)
		}
		hours[i] = h
	}

	averages := hourlyAverages(records, hours)
	priceIndex := indexPrices(prices)

	rows := make([]MergedRow, len(records))
	for i, r := range records {
		row := MergedRow{
			ID:             r.ID,
			Title:          r.Title,
			Created:        r.Created.Format(timestampLayout),
			Date:           r.Date,
			Time:           r.Time,
			UpvoteRatio:    r.UpvoteRatio,
			Ups:            r.Ups,
			Downs:          r.Downs,
			Score:          r.Score,
			Comments:       r.Comments,
			Topic:          r.Topic,
			Sentiment:      r.Sentiment,
			PNeg:           r.PNeg,
			PNeut:          r.PNeut,
			PPos:           r.PPos,
			Hour:           hours[i],
			SentimentNum:   r.Sentiment.Signed(),
			SentimentScore: max3(r.PNeg, r.PNeut, r.PPos),
			AvgSentiment:   averages[hours[i]],
		}

		if point, ok := priceIndex[dateHour{r.Date, hours[i]}]; ok {
			ticker := point.Ticker
			ts := point.Timestamp.Format(timestampLayout)
			price := point.Price
			date := point.Date
			tm := point.Time

			row.CoinTicker = &ticker
			row.PriceTimestamp = &ts
			row.Price = &price
			row.PriceDate = &date
			row.PriceTime = &tm
		}

		rows[i] = row
	}

	return rows, nil
}

// hourOf extracts the hour bucket from an HH:MM:SS string
func hourOf(s string) (int, error) {
	t, err := time.Parse(models.TimeLayout, s)
	if err != nil {
		return 0, err
	}
	return t.Hour(), nil
}

// hourlyAverages computes the mean signed sentiment per hour bucket,
// broadcast back to every row of that hour by the caller
func hourlyAverages(records []models.SentimentRecord, hours []int) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)

	for i, r := range records {
		sums[hours[i]] += float64(r.Sentiment.Signed())
		counts[hours[i]]++
	}

	averages := make(map[int]float64, len(sums))
	for h, sum := range sums {
		averages[h] = sum / float64(counts[h])
	}

	return averages
}

type dateHour struct {
	date string
	hour int
}

// indexPrices keeps the first price sample per calendar date and hour bucket
func indexPrices(prices []models.PricePoint) map[dateHour]models.PricePoint {
	index := make(map[dateHour]models.PricePoint, len(prices))
	for _, p := range prices {
		key := dateHour{p.Date, p.Timestamp.Hour()}
		if _, ok := index[key]; !ok {
			index[key] = p
		}
	}
	return index
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
