package strategy

import (
	"context"
	"testing"

	"vela/internal/domain"
)

// stubStrategy is a minimal Strategy implementation used in registry tests.
type stubStrategy struct {
	name string
}

func (s *stubStrategy) Name() string { return s.name }
func (s *stubStrategy) Evaluate(_ context.Context, _ []domain.Bar, _ Config) (*domain.Signal, error) {
	return nil, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	s := &stubStrategy{name: "test-strategy"}

	r.Register(s)

	got, ok := r.Get("test-strategy")
	if !ok {
		t.Fatal("Get returned false for registered strategy")
	}
	if got.Name() != "test-strategy" {
		t.Errorf("Get returned strategy with Name() = %q, want %q", got.Name(), "test-strategy")
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	if ok {
		t.Error("Get returned true for unregistered strategy")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubStrategy{name: "alpha"})
	r.Register(&stubStrategy{name: "beta"})

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}
	// List returns sorted names.
	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{Symbol: "BTC/USD"}.Normalize()

	if cfg.RiskPct != DefaultRiskPct {
		t.Errorf("RiskPct = %v, want %v", cfg.RiskPct, DefaultRiskPct)
	}
	if cfg.StopLossPct != DefaultStopLossPct {
		t.Errorf("StopLossPct = %v, want %v", cfg.StopLossPct, DefaultStopLossPct)
	}
	if cfg.TakeProfitPct != DefaultTakeProfitPct {
		t.Errorf("TakeProfitPct = %v, want %v", cfg.TakeProfitPct, DefaultTakeProfitPct)
	}
	if cfg.Interval != DefaultInterval {
		t.Errorf("Interval = %q, want %q", cfg.Interval, DefaultInterval)
	}

	// Explicit values survive Normalize.
	cfg = Config{Symbol: "BTC/USD", RiskPct: 2.5, Interval: "1d"}.Normalize()
	if cfg.RiskPct != 2.5 {
		t.Errorf("RiskPct = %v, want 2.5", cfg.RiskPct)
	}
	if cfg.Interval != "1d" {
		t.Errorf("Interval = %q, want %q", cfg.Interval, "1d")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Symbol: "BTC/USD"}.Normalize()
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate returned error for valid config: %v", err)
	}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing symbol", Config{}.Normalize()},
		{"negative risk", Config{Symbol: "X", RiskPct: -1, StopLossPct: 2, TakeProfitPct: 4}},
		{"negative commission", Config{Symbol: "X", RiskPct: 1, CommissionRate: -0.1, StopLossPct: 2, TakeProfitPct: 4}},
		{"stop loss over 100", Config{Symbol: "X", RiskPct: 1, StopLossPct: 150, TakeProfitPct: 4}},
		{"zero take profit", Config{Symbol: "X", RiskPct: 1, StopLossPct: 2, TakeProfitPct: -4}},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); err == nil {
			t.Errorf("%s: Validate accepted invalid config", tc.name)
		}
	}
}
