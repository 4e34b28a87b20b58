package domain

import (
	"math"
	"strings"
	"testing"
	"time"
)

func validBar(ts time.Time) Bar {
	return Bar{
		Symbol:    "BTC/USD",
		Timestamp: ts,
		Open:      100,
		High:      105,
		Low:       99,
		Close:     102,
		Volume:    1_500_000,
	}
}

func TestBarValidate(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := validBar(now).Validate(); err != nil {
		t.Fatalf("Validate returned error for valid bar: %v", err)
	}

	b := validBar(now)
	b.Close = 0
	if err := b.Validate(); err == nil {
		t.Error("Validate accepted zero close")
	}

	b = validBar(now)
	b.High = math.NaN()
	if err := b.Validate(); err == nil {
		t.Error("Validate accepted NaN high")
	}

	b = validBar(now)
	b.Low = math.Inf(1)
	if err := b.Validate(); err == nil {
		t.Error("Validate accepted infinite low")
	}

	b = validBar(now)
	b.Volume = -1
	if err := b.Validate(); err == nil {
		t.Error("Validate accepted negative volume")
	}
}

func TestValidateSeries(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	bars := []Bar{
		validBar(now),
		validBar(now.Add(time.Hour)),
		validBar(now.Add(3 * time.Hour)), // gaps are valid input
	}
	if err := ValidateSeries(bars); err != nil {
		t.Fatalf("ValidateSeries returned error for valid series: %v", err)
	}

	// Duplicate timestamp is rejected.
	dup := []Bar{validBar(now), validBar(now)}
	err := ValidateSeries(dup)
	if err == nil {
		t.Fatal("ValidateSeries accepted duplicate timestamps")
	}
	if !strings.Contains(err.Error(), "not after previous") {
		t.Errorf("unexpected error: %v", err)
	}

	// Out-of-order timestamps are rejected.
	ooo := []Bar{validBar(now.Add(time.Hour)), validBar(now)}
	if err := ValidateSeries(ooo); err == nil {
		t.Fatal("ValidateSeries accepted out-of-order timestamps")
	}

	// Empty series is structurally fine here; emptiness is the feed's concern.
	if err := ValidateSeries(nil); err != nil {
		t.Errorf("ValidateSeries returned error for empty series: %v", err)
	}
}

func TestPositionMarketValue(t *testing.T) {
	var p *Position
	if got := p.MarketValue(100); got != 0 {
		t.Errorf("nil position MarketValue = %v, want 0", got)
	}

	p = &Position{Symbol: "BTC/USD", Side: PositionSideLong, Qty: 2.5, EntryPrice: 100}
	if got := p.MarketValue(110); got != 275 {
		t.Errorf("MarketValue = %v, want 275", got)
	}
}
