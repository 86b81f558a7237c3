// Package riskassess derives a stop-loss/take-profit/position-size
// recommendation from a signal, the current price, and the primary
// timeframe's support/resistance levels (C10). Grounded on the teacher
// pack's ATR-agnostic stop/reward sizing idiom (gatiella-binance-trading-
// bot's risk manager), generalized from a live-position sizer into a
// pure function of signal + levels.
package riskassess

import (
	"math"

	"github.com/marketflow/vpa-engine/internal/bars"
	"github.com/marketflow/vpa-engine/internal/levels"
)

// Assessment is the C10 result. All fields are meaningless when the
// originating signal is NO_ACTION; the facade omits the assessment
// entirely in that case rather than emitting zero values.
type Assessment struct {
	StopLoss        float64
	TakeProfit      float64
	RiskRewardRatio float64
	PositionSize    float64
	RiskPerShare    float64
}

// Assess computes the risk assessment for a BUY or SELL signal. Callers
// must not invoke this for NO_ACTION signals; the facade enforces that.
func Assess(signalType bars.SignalType, currentPrice float64, support, resistance []levels.Level, params *bars.Parameters) Assessment {
	var stopLoss, takeProfit float64

	switch signalType {
	case bars.SignalBuy:
		stopLoss = buyStopLoss(currentPrice, support, params)
		takeProfit = buyTakeProfit(currentPrice, resistance, params)
	case bars.SignalSell:
		stopLoss = sellStopLoss(currentPrice, resistance, params)
		takeProfit = sellTakeProfit(currentPrice, support, params)
	}

	riskPerShare := math.Abs(currentPrice - stopLoss)
	positionSize := 0.0
	if riskPerShare > 0 {
		positionSize = math.Floor(params.AccountEquity * params.DefaultRiskPercent / riskPerShare)
		if positionSize < 0 {
			positionSize = 0
		}
	}

	var riskReward float64
	if riskPerShare > 0 {
		riskReward = math.Abs(takeProfit-currentPrice) / riskPerShare
	}

	return Assessment{
		StopLoss:        stopLoss,
		TakeProfit:      takeProfit,
		RiskRewardRatio: riskReward,
		PositionSize:    positionSize,
		RiskPerShare:    riskPerShare,
	}
}

func buyStopLoss(currentPrice float64, support []levels.Level, params *bars.Parameters) float64 {
	if lvl, ok := levels.NearestBelow(support, currentPrice); ok {
		return lvl.Price * (1 - params.StopBufferPct)
	}
	return currentPrice * (1 - params.DefaultStopPct)
}

func buyTakeProfit(currentPrice float64, resistance []levels.Level, params *bars.Parameters) float64 {
	if lvl, ok := levels.NearestAbove(resistance, currentPrice); ok {
		return lvl.Price * (1 - params.StopBufferPct)
	}
	return currentPrice * (1 + params.DefaultStopPct*params.DefaultRiskReward)
}

func sellStopLoss(currentPrice float64, resistance []levels.Level, params *bars.Parameters) float64 {
	if lvl, ok := levels.NearestAbove(resistance, currentPrice); ok {
		return lvl.Price * (1 + params.StopBufferPct)
	}
	return currentPrice * (1 + params.DefaultStopPct)
}

func sellTakeProfit(currentPrice float64, support []levels.Level, params *bars.Parameters) float64 {
	if lvl, ok := levels.NearestBelow(support, currentPrice); ok {
		return lvl.Price * (1 + params.StopBufferPct)
	}
	return currentPrice * (1 - params.DefaultStopPct*params.DefaultRiskReward)
}
