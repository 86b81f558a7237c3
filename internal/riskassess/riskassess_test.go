package riskassess

import (
	"math"
	"testing"

	"github.com/marketflow/vpa-engine/internal/bars"
	"github.com/marketflow/vpa-engine/internal/levels"
)

func testParams(t *testing.T) *bars.Parameters {
	t.Helper()
	p, err := bars.NewParameters(func(pp *bars.Parameters) {
		pp.DefaultStopPct = 0.03
		pp.DefaultRiskReward = 2.0
		pp.StopBufferPct = 0.0
		pp.AccountEquity = 100000
		pp.DefaultRiskPercent = 0.01
	})
	if err != nil {
		t.Fatalf("NewParameters: %v", err)
	}
	return p
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestBuyFallbackWhenNoSupportExists(t *testing.T) {
	params := testParams(t)
	assessment := Assess(bars.SignalBuy, 100, nil, nil, params)

	if !almostEqual(assessment.StopLoss, 97) {
		t.Errorf("stop_loss = %v, want 97", assessment.StopLoss)
	}
	if !almostEqual(assessment.TakeProfit, 106) {
		t.Errorf("take_profit = %v, want 106", assessment.TakeProfit)
	}
	if !almostEqual(assessment.RiskRewardRatio, 2.0) {
		t.Errorf("risk_reward_ratio = %v, want 2.0", assessment.RiskRewardRatio)
	}
	if !almostEqual(assessment.RiskPerShare, 3) {
		t.Errorf("risk_per_share = %v, want 3", assessment.RiskPerShare)
	}
}

func TestBuyUsesNearestSupportAndResistance(t *testing.T) {
	params := testParams(t)
	support := []levels.Level{{Price: 95}, {Price: 90}}
	resistance := []levels.Level{{Price: 105}, {Price: 110}}

	assessment := Assess(bars.SignalBuy, 100, support, resistance, params)
	if !almostEqual(assessment.StopLoss, 95) {
		t.Errorf("stop_loss = %v, want 95", assessment.StopLoss)
	}
	if !almostEqual(assessment.TakeProfit, 105) {
		t.Errorf("take_profit = %v, want 105", assessment.TakeProfit)
	}
}

func TestSellMirrorsBuy(t *testing.T) {
	params := testParams(t)
	assessment := Assess(bars.SignalSell, 100, nil, nil, params)
	if !almostEqual(assessment.StopLoss, 103) {
		t.Errorf("stop_loss = %v, want 103", assessment.StopLoss)
	}
	if !almostEqual(assessment.TakeProfit, 94) {
		t.Errorf("take_profit = %v, want 94", assessment.TakeProfit)
	}
}

func TestPositionSizeIsNonNegativeAndFloored(t *testing.T) {
	params := testParams(t)
	assessment := Assess(bars.SignalBuy, 100, nil, nil, params)
	if assessment.PositionSize < 0 {
		t.Fatalf("position_size = %v, want >= 0", assessment.PositionSize)
	}
	expected := math.Floor(params.AccountEquity * params.DefaultRiskPercent / assessment.RiskPerShare)
	if assessment.PositionSize != expected {
		t.Fatalf("position_size = %v, want %v", assessment.PositionSize, expected)
	}
}
