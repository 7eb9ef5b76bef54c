package collector

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"StockForecaster/internal/calendar"
	"StockForecaster/internal/model"
)

const (
	simulatedBasePrice = 1000.0
	// DefaultTimeframe and DefaultVolatility match the simulation page presets.
	DefaultTimeframe  = 180
	DefaultVolatility = 50
)

// SimulatedFetcher generates synthetic market regimes for demos and tests.
// Output is fully determined by Scenario, Volatility, Seed and End.
type SimulatedFetcher struct {
	Scenario   model.Scenario
	Volatility int // 0-100
	Seed       uint64
	BasePrice  float64
	End        calendar.Date // last bar date; zero means today
}

// NewSimulatedFetcher validates the scenario and volatility.
func NewSimulatedFetcher(scenario model.Scenario, volatility int, seed uint64) (*SimulatedFetcher, error) {
	if !scenario.Valid() {
		return nil, fmt.Errorf("unknown scenario %q", scenario)
	}
	if volatility < 0 || volatility > 100 {
		return nil, fmt.Errorf("volatility %d out of range 0-100", volatility)
	}
	return &SimulatedFetcher{Scenario: scenario, Volatility: volatility, Seed: seed}, nil
}

func (s *SimulatedFetcher) Name() string { return "simulated" }

// FetchDailyBars returns days weekday bars ending on End. The symbol is ignored.
func (s *SimulatedFetcher) FetchDailyBars(_ context.Context, _ string, days int) ([]model.Bar, error) {
	if days <= 0 {
		return nil, errors.New("days must be positive")
	}
	return s.generate(days), nil
}

// FetchQuote reports the last two simulated bars as a quote.
func (s *SimulatedFetcher) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	bars, err := s.FetchDailyBars(ctx, symbol, DefaultTimeframe)
	if err != nil {
		return nil, err
	}
	return quoteFromBars(symbol, bars)
}

func (s *SimulatedFetcher) generate(days int) []model.Bar {
	end, base := s.End, s.BasePrice
	if end.IsZero() {
		end = calendar.Today()
	}
	if base <= 0 {
		base = simulatedBasePrice
	}

	rng := rand.New(rand.NewPCG(s.Seed, uint64(days)))
	vf := float64(s.Volatility) / 100
	price := base
	dates := calendar.PreviousWeekdays(end, days)
	bars := make([]model.Bar, days)
	for i, d := range dates {
		var trend float64
		switch s.Scenario {
		case model.ScenarioBull:
			trend = 0.001 * (1 + rng.Float64()*vf)
		case model.ScenarioBear:
			trend = -0.001 * (1 + rng.Float64()*vf)
		case model.ScenarioSideways:
			trend = (rng.Float64() - 0.5) * 0.002 * vf
		case model.ScenarioVolatile:
			trend = (rng.Float64() - 0.5) * 0.004 * vf
		}
		price *= 1 + trend
		dailyVol := price * 0.02 * vf
		bars[i] = model.Bar{
			Date:   d,
			Open:   price - dailyVol/2,
			High:   price + dailyVol,
			Low:    price - dailyVol,
			Close:  price,
			Volume: 1_000_000 + rng.Int64N(1_000_000),
		}
	}
	return bars
}
