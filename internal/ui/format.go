package ui

import (
	"fmt"
	"math/big"

	"github.com/dustin/go-humanize"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/curve-launchpad/internal/events"
	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
)

// BaseDecimals is the display precision of the base asset.
const BaseDecimals = 9

func units(v uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -decimals)
}

// FormatBase renders base units as a rounded amount with thousands separators.
func FormatBase(v uint64) string {
	f, _ := units(v, BaseDecimals).Round(4).Float64()
	return humanize.CommafWithDigits(f, 4)
}

// FormatTokens renders token base units.
func FormatTokens(v uint64) string {
	f, _ := units(v, pool.TokenDecimals).Round(2).Float64()
	return humanize.CommafWithDigits(f, 2)
}

// FormatPrice renders a per-unit price in the base asset.
func FormatPrice(v uint64) string {
	return units(v, BaseDecimals).String()
}

// Progress is how far a pool is towards the graduation threshold, in [0, 1].
func Progress(s pool.State, threshold uint64) float64 {
	if s.Status != pool.StatusActive || threshold == 0 {
		return 1
	}
	p, _ := decimal.NewFromBigInt(new(big.Int).SetUint64(s.BaseBalance), 0).
		Div(decimal.NewFromBigInt(new(big.Int).SetUint64(threshold), 0)).
		Float64()
	if p > 1 {
		return 1
	}
	return p
}

// StatusLabel names a pool's state for display.
func StatusLabel(s pool.State) string {
	if s.Paused && s.Status == pool.StatusActive {
		return "paused"
	}
	return s.Status.String()
}

func short(k solana.PublicKey) string {
	s := k.String()
	if len(s) <= 8 {
		return s
	}
	return s[:4] + "…" + s[len(s)-4:]
}

// DescribeEvent renders a one-line summary of a launchpad event.
func DescribeEvent(e events.Event) string {
	at := e.Timestamp().Format("15:04:05")
	var text string
	switch ev := e.(type) {
	case events.TokenCreatedEvent:
		text = fmt.Sprintf("%s launched by %s, supply %s", ev.Symbol, short(ev.Creator), FormatTokens(ev.TotalSupply))
	case events.TradeExecutedEvent:
		if ev.Side == string(pool.SideBuy) {
			text = fmt.Sprintf("%s bought %s tokens for %s", short(ev.Trader), FormatTokens(ev.AmountOut), FormatBase(ev.AmountIn))
		} else {
			text = fmt.Sprintf("%s sold %s tokens for %s", short(ev.Trader), FormatTokens(ev.AmountIn), FormatBase(ev.AmountOut))
		}
	case events.PoolGraduatedEvent:
		text = fmt.Sprintf("%s graduated to %s with %s liquidity", short(ev.Pool), ev.Exchange, FormatBase(ev.BaseToLiquidity))
	case events.GraduationFailedEvent:
		text = fmt.Sprintf("%s graduation failed at %s: %v", short(ev.Pool), ev.Step, ev.Err)
	case events.PoolPausedEvent:
		state := "resumed"
		if ev.Paused {
			state = "paused"
		}
		text = fmt.Sprintf("%s %s by %s", short(ev.Pool), state, short(ev.By))
	case events.VestingCreatedEvent:
		text = fmt.Sprintf("vesting %s for %s", ev.Schedule[:min(8, len(ev.Schedule))], short(ev.Beneficiary))
	case events.VestingClaimedEvent:
		text = fmt.Sprintf("%s claimed %d from vesting", short(ev.Beneficiary), ev.Amount)
	case events.FeesWithdrawnEvent:
		text = fmt.Sprintf("%s withdrew %s in fees", short(ev.Account), FormatBase(ev.Amount))
	case events.ConfigUpdatedEvent:
		text = fmt.Sprintf("config %s updated to v%d", ev.Group, ev.Version)
	default:
		text = string(e.Type())
	}
	return at + " " + text
}
