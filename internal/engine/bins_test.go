package engine

import (
	"errors"
	"math"
	"testing"
)

func TestBinForAmountBoundaries(t *testing.T) {
	cases := []struct {
		amount float64
		want   AmountBin
	}{
		{0, Bin0To50K},
		{25_000, Bin0To50K},
		{49_999.99, Bin0To50K},
		{50_000, Bin50KTo100K},
		{99_999.99, Bin50KTo100K},
		{100_000, Bin100KTo300K},
		{300_000, Bin300KTo400K},
		{400_000, Bin400KTo500K},
		{500_000, Bin500KTo700K},
		{700_000, Bin700KTo1M},
		{999_999.99, Bin700KTo1M},
		{1_000_000, Bin700KTo1M},
		{1_000_000.01, BinOver1M},
		{5_000_000, BinOver1M},
	}

	for _, tc := range cases {
		got, err := BinForAmount(tc.amount)
		if err != nil {
			t.Fatalf("BinForAmount(%v): unexpected error %v", tc.amount, err)
		}
		if got != tc.want {
			t.Errorf("BinForAmount(%v) = %s, want %s", tc.amount, got, tc.want)
		}
	}
}

func TestBinForAmountPartition(t *testing.T) {
	// Every non-negative finite amount maps to exactly one bin; sweep a dense
	// grid across all thresholds.
	for amount := 0.0; amount <= 1_200_000; amount += 12_500 {
		bin, err := BinForAmount(amount)
		if err != nil {
			t.Fatalf("BinForAmount(%v): %v", amount, err)
		}
		if !bin.Valid() {
			t.Fatalf("BinForAmount(%v) returned invalid bin %d", amount, int(bin))
		}
	}
}

func TestBinForAmountInvalid(t *testing.T) {
	for _, amount := range []float64{-1, -0.01, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := BinForAmount(amount); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("BinForAmount(%v): want ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestBinLabelRoundTrip(t *testing.T) {
	for i, label := range BinLabels() {
		bin, ok := BinFromLabel(label)
		if !ok {
			t.Fatalf("BinFromLabel(%q) not found", label)
		}
		if int(bin) != i {
			t.Fatalf("BinFromLabel(%q) = %d, want %d", label, int(bin), i)
		}
		if bin.String() != label {
			t.Fatalf("String() = %q, want %q", bin.String(), label)
		}
	}
	if _, ok := BinFromLabel("0-100000"); ok {
		t.Fatal("unexpected match for non-canonical label")
	}
}
