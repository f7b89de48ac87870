package strategy

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/models"
	"github.com/example/wallet-ledger/internal/storage"
)

// DefaultStrategies is the stock catalog. Daily rates are fractions per
// day (0.0085 = 0.85% daily).
var DefaultStrategies = []models.Strategy{
	{
		Name:          "BTC Momentum",
		Description:   "Rides Bitcoin trends using technical indicators and market sentiment analysis",
		Category:      "crypto",
		RiskLevel:     "high",
		DailyRate:     decimal.RequireFromString("0.0085"),
		MinInvestment: decimal.RequireFromString("1000.00"),
		MaxInvestment: decimal.RequireFromString("100000.00"),
		IsActive:      true,
	},
	{
		Name:          "ETH Long-term Hold",
		Description:   "Strategic accumulation of Ethereum during market dips for long-term growth",
		Category:      "crypto",
		RiskLevel:     "medium",
		DailyRate:     decimal.RequireFromString("0.0065"),
		MinInvestment: decimal.RequireFromString("500.00"),
		MaxInvestment: decimal.RequireFromString("50000.00"),
		IsActive:      true,
	},
	{
		Name:          "Stablecoin Yield",
		Description:   "Earn consistent returns through stablecoin lending and liquidity provision",
		Category:      "crypto",
		RiskLevel:     "low",
		DailyRate:     decimal.RequireFromString("0.0025"),
		MinInvestment: decimal.RequireFromString("100.00"),
		MaxInvestment: decimal.RequireFromString("10000.00"),
		IsActive:      true,
	},
	{
		Name:          "Altcoin Gems",
		Description:   "High-risk, high-reward strategy focusing on emerging cryptocurrencies",
		Category:      "crypto",
		RiskLevel:     "high",
		DailyRate:     decimal.RequireFromString("0.0325"),
		MinInvestment: decimal.RequireFromString("2000.00"),
		MaxInvestment: decimal.RequireFromString("50000.00"),
		IsActive:      true,
	},
	{
		Name:          "Mean Reversion",
		Description:   "Exploits price deviations from historical averages across multiple assets",
		Category:      "quant",
		RiskLevel:     "medium",
		DailyRate:     decimal.RequireFromString("0.0075"),
		MinInvestment: decimal.RequireFromString("1500.00"),
		MaxInvestment: decimal.RequireFromString("75000.00"),
		IsActive:      true,
	},
	{
		Name:          "Momentum Trading",
		Description:   "Follows strong price trends using algorithmic signals and volume analysis",
		Category:      "quant",
		RiskLevel:     "medium",
		DailyRate:     decimal.RequireFromString("0.0105"),
		MinInvestment: decimal.RequireFromString("1000.00"),
		MaxInvestment: decimal.RequireFromString("100000.00"),
		IsActive:      true,
	},
	{
		Name:          "Arbitrage Simulation",
		Description:   "Simulates cross-exchange arbitrage opportunities in real-time",
		Category:      "quant",
		RiskLevel:     "low",
		DailyRate:     decimal.RequireFromString("0.0035"),
		MinInvestment: decimal.RequireFromString("5000.00"),
		MaxInvestment: decimal.RequireFromString("250000.00"),
		IsActive:      true,
	},
	{
		Name:          "AI Predictor",
		Description:   "Machine learning model predicting short-term price movements",
		Category:      "quant",
		RiskLevel:     "high",
		DailyRate:     decimal.RequireFromString("0.0225"),
		MinInvestment: decimal.RequireFromString("3000.00"),
		MaxInvestment: decimal.RequireFromString("150000.00"),
		IsActive:      true,
	},
}

// Seed inserts the default catalog if no strategies exist yet.
func Seed(ctx context.Context, store storage.Store) error {
	existing, err := store.Strategies(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for i := range DefaultStrategies {
		strat := DefaultStrategies[i]
		if err := store.InsertStrategy(ctx, &strat); err != nil {
			return err
		}
	}
	return nil
}
