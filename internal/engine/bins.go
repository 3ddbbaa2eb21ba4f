package engine

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidAmount rejects negative, non-finite, or otherwise unusable
// transfer amounts before any lookup happens.
var ErrInvalidAmount = errors.New("engine: invalid amount")

// AmountBin identifies one of the eight canonical USD amount ranges the
// dataset is partitioned by.
type AmountBin int

const (
	Bin0To50K AmountBin = iota
	Bin50KTo100K
	Bin100KTo300K
	Bin300KTo400K
	Bin400KTo500K
	Bin500KTo700K
	Bin700KTo1M
	BinOver1M
)

// NumBins is the size of the bin domain.
const NumBins = 8

var binLabels = [NumBins]string{
	"0-50000",
	"50000-100000",
	"100000-300000",
	"300000-400000",
	"400000-500000",
	"500000-700000",
	"700000-1000000",
	"1000000+",
}

var binLowerBounds = [NumBins]float64{0, 50_000, 100_000, 300_000, 400_000, 500_000, 700_000, 1_000_000}

// String returns the dataset key for the bin.
func (b AmountBin) String() string {
	if !b.Valid() {
		return fmt.Sprintf("AmountBin(%d)", int(b))
	}
	return binLabels[b]
}

// Valid reports whether b is one of the eight canonical bins.
func (b AmountBin) Valid() bool {
	return b >= 0 && int(b) < NumBins
}

// BinForAmount maps a non-negative finite USD amount onto its bin. Lower
// bounds are inclusive: an amount equal to an interior threshold falls into
// the higher bin. The open-ended bin starts strictly above one million, so an
// even 1000000 stays in 700000-1000000.
func BinForAmount(amountUSD float64) (AmountBin, error) {
	if math.IsNaN(amountUSD) || math.IsInf(amountUSD, 0) {
		return 0, fmt.Errorf("%w: amount must be finite", ErrInvalidAmount)
	}
	if amountUSD < 0 {
		return 0, fmt.Errorf("%w: amount must not be negative, got %v", ErrInvalidAmount, amountUSD)
	}
	if amountUSD > binLowerBounds[BinOver1M] {
		return BinOver1M, nil
	}
	for b := Bin700KTo1M; b > Bin0To50K; b-- {
		if amountUSD >= binLowerBounds[b] {
			return b, nil
		}
	}
	return Bin0To50K, nil
}

// BinFromLabel resolves a dataset bin key to its bin.
func BinFromLabel(label string) (AmountBin, bool) {
	for i := range binLabels {
		if binLabels[i] == label {
			return AmountBin(i), true
		}
	}
	return 0, false
}

// BinLabels returns the canonical bin keys in ascending order.
func BinLabels() []string {
	out := make([]string, NumBins)
	copy(out, binLabels[:])
	return out
}
