package indicators

import (
	"fmt"
	"time"

	"github.com/cinar/indicator"

	"github.com/akravets/coinboard/pkg/models"
)

const (
	// RSIPeriod is the classic 14-sample lookback.
	RSIPeriod = 14
	// SMAPeriod is the 20-sample moving average window.
	SMAPeriod = 20
)

// Sample is one dated closing price fed into the calculator.
type Sample struct {
	Date  time.Time
	Close float64
}

// Calculator computes indicator series from daily closes.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// RSISeries computes the 14-period relative strength index. Needs at least
// RSIPeriod+1 samples; the warmup window is skipped from the output.
func (c *Calculator) RSISeries(samples []Sample) ([]models.IndicatorPoint, error) {
	if len(samples) <= RSIPeriod {
		return nil, fmt.Errorf("insufficient samples for RSI (need at least %d, got %d)", RSIPeriod+1, len(samples))
	}

	closes := closesOf(samples)
	_, rsi := indicator.Rsi(closes)

	points := make([]models.IndicatorPoint, 0, len(samples)-RSIPeriod)
	for i := RSIPeriod; i < len(samples); i++ {
		points = append(points, models.IndicatorPoint{
			Date:  samples[i].Date,
			Value: rsi[i],
		})
	}
	return points, nil
}

// SMASeries computes the 20-period simple moving average, warmup skipped.
func (c *Calculator) SMASeries(samples []Sample) ([]models.IndicatorPoint, error) {
	if len(samples) < SMAPeriod {
		return nil, fmt.Errorf("insufficient samples for SMA (need at least %d, got %d)", SMAPeriod, len(samples))
	}

	closes := closesOf(samples)
	sma := indicator.Sma(SMAPeriod, closes)

	points := make([]models.IndicatorPoint, 0, len(samples)-SMAPeriod+1)
	for i := SMAPeriod - 1; i < len(samples); i++ {
		points = append(points, models.IndicatorPoint{
			Date:  samples[i].Date,
			Value: sma[i],
		})
	}
	return points, nil
}

func closesOf(samples []Sample) []float64 {
	closes := make([]float64, len(samples))
	for i, s := range samples {
		closes[i] = s.Close
	}
	return closes
}
