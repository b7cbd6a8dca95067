// Package economics implements the token policy of the ledger: the genesis
// allocation split, the three stage burn, ancestral dividends and the
// feedback smoother that steers mining scarcity.
package economics

import (
	"github.com/pkg/errors"

	"fractal-ledger/fault"
	"fractal-ledger/models"
)

// outer partitions sharing the community mineable supply
const outerPartitions = 2

// tolerance for the supply check, the fractions are decimal literals
const supplyEpsilon = 1e-9

// Allocate splits totalSupply into two outer partitions of outerFraction
// each and a burned inner partition of innerFraction
func Allocate(totalSupply, outerFraction, innerFraction float64) (models.Allocation, error) {
	if totalSupply <= 0 {
		return models.Allocation{}, errors.Wrapf(fault.ErrNonPositiveAmount, "total supply: %v", totalSupply)
	}
	if outerFraction < 0 || innerFraction < 0 {
		return models.Allocation{}, errors.Wrapf(fault.ErrInvalidFractions, "outer: %v inner: %v", outerFraction, innerFraction)
	}

	outer := totalSupply * outerFraction
	inner := totalSupply * innerFraction
	community := outer * outerPartitions
	if community+inner > totalSupply*(1+supplyEpsilon) {
		return models.Allocation{}, errors.Wrapf(fault.ErrInvalidFractions,
			"outer: %v inner: %v exceed total supply: %v", outerFraction, innerFraction, totalSupply)
	}

	return models.Allocation{
		TotalSupply:       totalSupply,
		Outer:             outer,
		Inner:             inner,
		Burned:            inner,
		CommunityMineable: community,
	}, nil
}
