// Package accrual computes elapsed-time investment earnings for strategy
// subscriptions. The engine is pure: given a principal, a nominal daily
// rate and the elapsed duration it always produces the same earnings,
// unless a variance model is explicitly attached.
package accrual

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/wallet-ledger/internal/models"
)

const secondsPerDay = 24 * 60 * 60

// Per-day variance factors are bounded to this closed interval regardless
// of what the attached model produces.
const (
	MinDayFactor = 0.7
	MaxDayFactor = 1.3
)

// floorRate guarantees a minimum accrual proportional to elapsed time even
// under adverse variance: earnings >= invested * 0.0001 * days.
var floorRate = decimal.RequireFromString("0.0001")

// Variance perturbs the nominal accrual with one multiplicative factor per
// discrete elapsed day. Implementations must be deterministic for a fixed
// seed; they are not required to be goroutine-safe.
type Variance interface {
	DayFactor(day int) float64
}

// Engine computes accrued earnings. A nil variance model selects the pure
// deterministic mode, which is the production default: unseeded randomness
// in the accrual path makes results non-reproducible.
type Engine struct {
	variance Variance
}

func NewEngine(variance Variance) *Engine {
	return &Engine{variance: variance}
}

// Days converts the elapsed duration between since and now to real-valued
// days. Negative spans (clock skew, subscriptions stamped in the future)
// collapse to zero.
func Days(since, now time.Time) float64 {
	days := now.Sub(since).Seconds() / secondsPerDay
	if days < 0 {
		return 0
	}
	return days
}

// Earnings accrues continuously: invested * dailyRate * daysElapsed,
// perturbed by the averaged per-day variance factors when a model is
// attached, then floored at invested * 0.0001 * daysElapsed.
func (e *Engine) Earnings(invested, dailyRate decimal.Decimal, daysElapsed float64) decimal.Decimal {
	if daysElapsed <= 0 || invested.Sign() <= 0 {
		return decimal.Zero
	}

	days := decimal.NewFromFloat(daysElapsed)
	earnings := invested.Mul(dailyRate).Mul(days)

	if e.variance != nil {
		n := int(daysElapsed)
		if n < 1 {
			n = 1
		}
		sum := 0.0
		for day := 0; day < n; day++ {
			f := e.variance.DayFactor(day)
			if f < MinDayFactor {
				f = MinDayFactor
			}
			if f > MaxDayFactor {
				f = MaxDayFactor
			}
			sum += f
		}
		earnings = earnings.Mul(decimal.NewFromFloat(sum / float64(n)))
	}

	floor := invested.Mul(floorRate).Mul(days)
	if earnings.LessThan(floor) {
		return floor
	}
	return earnings
}

// SubscriptionValue projects the subscription's current value at now:
// principal plus accrued earnings. Read-only, mutates nothing.
func (e *Engine) SubscriptionValue(sub *models.StrategySubscription, strategy *models.Strategy, now time.Time) decimal.Decimal {
	earnings := e.Earnings(sub.InvestedAmount, strategy.DailyRate, Days(sub.SubscribedAt, now))
	return sub.InvestedAmount.Add(earnings)
}

// Close computes the redemption amounts at now. The principal always comes
// back in full and earnings are never negative; principal + earnings is
// what the ledger must credit as one strategy_unsubscription entry.
func (e *Engine) Close(sub *models.StrategySubscription, strategy *models.Strategy, now time.Time) (principal, earnings decimal.Decimal) {
	principal = sub.InvestedAmount
	earnings = e.Earnings(sub.InvestedAmount, strategy.DailyRate, Days(sub.SubscribedAt, now))
	return principal, earnings
}
