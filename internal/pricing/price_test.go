package pricing

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= tol*math.Max(math.Abs(a), math.Abs(b))
}

func TestToDisplayPrice(t *testing.T) {
	cases := []struct {
		price    float64
		base     int
		quote    int
		inverted bool
		want     float64
	}{
		{price: 1500, base: 18, quote: 18, inverted: false, want: 1500},
		{price: 2000, base: 18, quote: 18, inverted: true, want: 0.0005},
		{price: 20, base: 6, quote: 10, inverted: false, want: 200000},
		{price: 20, base: 6, quote: 10, inverted: true, want: 0.000005},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.price, tc.base, tc.quote, tc.inverted), func(t *testing.T) {
			got := ToDisplayPrice(tc.price, tc.base, tc.quote, tc.inverted)
			if !approxEqual(got, tc.want, 1e-12) {
				t.Fatalf("want=%v result=%v", tc.want, got)
			}
		})
	}
}

func TestDisplayPriceRoundTrip(t *testing.T) {
	prices := []float64{2000, 0.0005, 1, 1e-9, 1e12}
	decimals := []int{6, 10, 18}

	for _, price := range prices {
		for _, base := range decimals {
			for _, quote := range decimals {
				for _, inverted := range []bool{false, true} {
					display := ToDisplayPrice(price, base, quote, inverted)
					back := FromDisplayPrice(display, base, quote, inverted)
					if !approxEqual(back, price, 1e-12) {
						t.Fatalf("round trip %v (%d,%d,%v): got %v", price, base, quote, inverted, back)
					}

					raw := FromDisplayPrice(price, base, quote, inverted)
					if again := ToDisplayPrice(raw, base, quote, inverted); !approxEqual(again, price, 1e-12) {
						t.Fatalf("display round trip %v (%d,%d,%v): got %v", price, base, quote, inverted, again)
					}
				}
			}
		}
	}
}

func TestDisplayPoolScenario(t *testing.T) {
	view := Display{BaseDecimals: 18, QuoteDecimals: 18, Inverted: true}
	display := view.ToDisplay(2000)
	if !approxEqual(display, 0.0005, 1e-12) {
		t.Fatalf("display price: %v", display)
	}
	if raw := view.FromDisplay(display); !approxEqual(raw, 2000, 1e-12) {
		t.Fatalf("raw price: %v", raw)
	}
}

func TestDisplayPairSorted(t *testing.T) {
	view := Display{BaseDecimals: 18, QuoteDecimals: 6, Inverted: true}
	lo, hi := view.FromDisplayPair(1000, 4000)
	if lo >= hi {
		t.Fatalf("pair not sorted: %v %v", lo, hi)
	}
	dlo, dhi := view.ToDisplayPair(lo, hi)
	if !approxEqual(dlo, 1000, 1e-12) || !approxEqual(dhi, 4000, 1e-12) {
		t.Fatalf("pair round trip: %v %v", dlo, dhi)
	}
}

func TestEncodeDecodeCrocPrice(t *testing.T) {
	one, err := EncodeCrocPrice(1)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if one.Cmp(Q64) != 0 {
		t.Fatalf("price 1 should encode to 2^64, got %s", one)
	}

	for _, price := range []float64{1e-12, 0.0005, 1, 2000, 1e18, 1e30} {
		enc, err := EncodeCrocPrice(price)
		if err != nil {
			t.Fatalf("encode %v: %v", price, err)
		}
		if got := DecodeCrocPrice(enc); !approxEqual(got, price, 1e-9) {
			t.Fatalf("decode %v: got %v", price, got)
		}
	}
}

func TestEncodeCrocPriceMonotonic(t *testing.T) {
	prev := big.NewInt(-1)
	for _, price := range []float64{0, 1e-6, 0.5, 1, 1.0001, 3, 5000, 1e20} {
		enc, err := EncodeCrocPrice(price)
		if err != nil {
			t.Fatalf("encode %v: %v", price, err)
		}
		if enc.Cmp(prev) <= 0 {
			t.Fatalf("encoding not increasing at %v: %s <= %s", price, enc, prev)
		}
		prev = enc
	}
}

func TestEncodeCrocPriceInvalid(t *testing.T) {
	for _, price := range []float64{-1, math.NaN(), math.Inf(1)} {
		if _, err := EncodeCrocPrice(price); !errors.Is(err, ErrInvalidPrice) {
			t.Fatalf("expected ErrInvalidPrice for %v, got %v", price, err)
		}
	}
}

func TestSqrtPriceBounds(t *testing.T) {
	if MinSqrtPrice.Cmp(big.NewInt(65537)) != 0 {
		t.Fatalf("min sqrt price: %s", MinSqrtPrice)
	}
	if MaxSqrtPrice.Cmp(MinSqrtPrice) <= 0 || MaxSqrtPrice.BitLen() > 128 {
		t.Fatalf("max sqrt price out of range: %s", MaxSqrtPrice)
	}
}
