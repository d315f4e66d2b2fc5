package domain

import (
	"math"

	"github.com/picklepickle/picklepay/internal/config"
)

const bpsDenominator = 10_000

// Allocation is the integer division of one captured amount.
type Allocation struct {
	PlatformFee int64
	VenueAmount int64
	VenueFee    int64
}

// Allocate applies rule to amount in minor units. Percentage remainders are
// rounded up into the platform fee so VenueAmount is always amount - PlatformFee.
func Allocate(amount int64, rule config.FeeRule) (Allocation, error) {
	if amount <= 0 {
		return Allocation{}, ErrInvalidAmount
	}
	if rule.PercentBps < 0 || rule.PercentBps > bpsDenominator ||
		rule.ProviderFeeBps < 0 || rule.ProviderFeeBps > bpsDenominator ||
		rule.FixedAmount < 0 {
		return Allocation{}, ErrInvalidFeePolicy
	}

	percentFee, err := ceilBps(amount, rule.PercentBps)
	if err != nil {
		return Allocation{}, err
	}

	platformFee := percentFee
	if rule.FixedAmount > amount-platformFee {
		platformFee = amount
	} else {
		platformFee += rule.FixedAmount
	}

	venue := amount - platformFee
	venueFee, err := ceilBps(venue, rule.ProviderFeeBps)
	if err != nil {
		return Allocation{}, err
	}

	return Allocation{
		PlatformFee: platformFee,
		VenueAmount: venue,
		VenueFee:    venueFee,
	}, nil
}

func ceilBps(amount, bps int64) (int64, error) {
	if amount == 0 || bps == 0 {
		return 0, nil
	}
	if amount > math.MaxInt64/bps {
		return 0, ErrAmountOverflow
	}
	product := amount * bps
	fee := product / bpsDenominator
	if product%bpsDenominator != 0 {
		fee++
	}
	return fee, nil
}
