package types

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"USD", USD(25000), 25000, "usd", "$250.00"},
		{"EUR", EUR(19900), 19900, "eur", "€199.00"},
		{"GBP", GBP(9900), 9900, "gbp", "£99.00"},
		{"JPY", JPY(100), 100, "jpy", "¥100"},
		{"CAD", CAD(2505), 2505, "cad", "C$25.05"},
		{"New upper", New(700, "USD"), 700, "usd", "$7.00"},
		{"Zero", Zero("GBP"), 0, "gbp", "£0.00"},
		{"Unknown currency", New(1234, "sek"), 1234, "sek", "SEK 12.34"},
		{"Negative", USD(-5), -5, "usd", "$-0.05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMulDivHalfUp(t *testing.T) {
	tests := []struct {
		name     string
		rate     Money
		num, den int64
		want     int64
	}{
		{"two hours", USD(25000), 120, 60, 50000},
		{"one hour", USD(25000), 60, 60, 25000},
		{"seven minutes", USD(25000), 7, 60, 2917}, // 2916.67
		{"exact half rounds up", USD(1), 30, 60, 1},
		{"just under half rounds down", USD(1), 29, 60, 0},
		{"zero minutes", USD(25000), 0, 60, 0},
		{"wide intermediate", USD(math.MaxInt64 / 2), 60, 60, math.MaxInt64 / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rate.MulDivHalfUp(tt.num, tt.den)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Amount != tt.want {
				t.Errorf("got %d, want %d", got.Amount, tt.want)
			}
			if got.Currency != tt.rate.Currency {
				t.Errorf("currency: got %s, want %s", got.Currency, tt.rate.Currency)
			}
		})
	}
}

func TestMulDivHalfUpErrors(t *testing.T) {
	if _, err := USD(-1).MulDivHalfUp(60, 60); !errors.Is(err, ErrNegativeOperand) {
		t.Errorf("negative amount: got %v", err)
	}
	if _, err := USD(1).MulDivHalfUp(-1, 60); !errors.Is(err, ErrNegativeOperand) {
		t.Errorf("negative numerator: got %v", err)
	}
	if _, err := USD(1).MulDivHalfUp(1, 0); err == nil {
		t.Error("expected error for zero divisor")
	}
	if _, err := USD(math.MaxInt64).MulDivHalfUp(120, 60); !errors.Is(err, ErrOverflow) {
		t.Errorf("overflow: got %v", err)
	}
}

func TestCheckedAdd(t *testing.T) {
	got, err := USD(100).CheckedAdd(USD(250))
	if err != nil || !got.Equal(USD(350)) {
		t.Fatalf("got %v, %v", got, err)
	}
	if _, err := USD(100).CheckedAdd(EUR(1)); err == nil {
		t.Error("expected currency mismatch error")
	}
	if _, err := USD(math.MaxInt64).CheckedAdd(USD(1)); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
}

func TestSum(t *testing.T) {
	total, err := Sum("usd", USD(50000), USD(25000))
	if err != nil {
		t.Fatal(err)
	}
	if !total.Equal(USD(75000)) {
		t.Errorf("got %v, want $750.00", total)
	}

	empty, err := Sum("gbp")
	if err != nil {
		t.Fatal(err)
	}
	if !empty.Equal(Zero("gbp")) {
		t.Errorf("empty sum: got %v", empty)
	}

	if _, err := Sum("usd", USD(1), GBP(1)); err == nil {
		t.Error("expected currency mismatch")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return USD(100).Add(USD(200)) }, USD(300)},
		{"Subtract", func() Money { return USD(500).Subtract(USD(200)) }, USD(300)},
		{"Multiply", func() Money { return USD(100).Multiply(3) }, USD(300)},
		{"Negate", func() Money { return USD(100).Negate() }, USD(-100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.op(); !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyCurrencyMismatchPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	_ = USD(100).Add(EUR(100))
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(USD(50000))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"amount":50000,"currency":"usd","display":"$500.00"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(USD(50000)) {
		t.Errorf("round trip: got %v", back)
	}
}
