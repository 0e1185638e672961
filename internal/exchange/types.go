package exchange

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// PortfolioMetrics are the headline numbers for one time period.
type PortfolioMetrics struct {
	AccountValue float64 `json:"account_value"`
	PnL          float64 `json:"pnl"`
	Volume       float64 `json:"volume"`
}

// PortfolioBreakdown splits a portfolio into perp and spot components.
// Spot is derived as total minus perp, floored at zero.
type PortfolioBreakdown struct {
	Total PortfolioMetrics `json:"total"`
	Perp  PortfolioMetrics `json:"perp"`
	Spot  PortfolioMetrics `json:"spot"`
}

// TradeFill is one executed trade.
type TradeFill struct {
	Coin      string  `json:"coin"`
	Side      string  `json:"side"` // "B" buy, "A" sell
	Direction string  `json:"dir"`  // "Open Long", "Close Short", ...
	Size      float64 `json:"sz"`
	Price     float64 `json:"px"`
	ClosedPnL float64 `json:"closedPnl"`
	Time      int64   `json:"time"` // Unix timestamp in milliseconds
	Fee       float64 `json:"fee"`
}

// rawFill carries the wire shape where numerics arrive as strings.
type rawFill struct {
	Coin      string `json:"coin"`
	Side      string `json:"side"`
	Dir       string `json:"dir"`
	Sz        string `json:"sz"`
	Px        string `json:"px"`
	ClosedPnl string `json:"closedPnl"`
	Time      int64  `json:"time"`
	Fee       string `json:"fee"`
}

func (r *rawFill) toFill() (TradeFill, error) {
	sz, err := parseFloat(r.Sz)
	if err != nil {
		return TradeFill{}, fmt.Errorf("parse sz: %w", err)
	}
	px, err := parseFloat(r.Px)
	if err != nil {
		return TradeFill{}, fmt.Errorf("parse px: %w", err)
	}
	pnl, err := parseFloat(r.ClosedPnl)
	if err != nil {
		return TradeFill{}, fmt.Errorf("parse closedPnl: %w", err)
	}
	fee, err := parseFloat(r.Fee)
	if err != nil {
		return TradeFill{}, fmt.Errorf("parse fee: %w", err)
	}
	return TradeFill{
		Coin:      r.Coin,
		Side:      r.Side,
		Direction: r.Dir,
		Size:      sz,
		Price:     px,
		ClosedPnL: pnl,
		Time:      r.Time,
		Fee:       fee,
	}, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// periodData is one portfolio period as returned by the exchange: histories
// are [timestamp_ms, "value"] pairs, volume is a decimal string.
type periodData struct {
	AccountValueHistory []historyPoint `json:"accountValueHistory"`
	PnLHistory          []historyPoint `json:"pnlHistory"`
	Volume              string         `json:"vlm"`
}

type historyPoint struct {
	Time  int64
	Value float64
}

// UnmarshalJSON decodes the [timestamp, "value"] pair shape.
func (p *historyPoint) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("history point has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &p.Time); err != nil {
		return fmt.Errorf("parse history timestamp: %w", err)
	}
	var s string
	if err := json.Unmarshal(pair[1], &s); err != nil {
		return fmt.Errorf("parse history value: %w", err)
	}
	v, err := parseFloat(s)
	if err != nil {
		return fmt.Errorf("parse history value: %w", err)
	}
	p.Value = v
	return nil
}

func (p *periodData) metrics() PortfolioMetrics {
	var m PortfolioMetrics
	if n := len(p.AccountValueHistory); n > 0 {
		m.AccountValue = p.AccountValueHistory[n-1].Value
	}
	if n := len(p.PnLHistory); n > 0 {
		m.PnL = p.PnLHistory[n-1].Value
	}
	if v, err := parseFloat(p.Volume); err == nil {
		m.Volume = v
	}
	return m
}
