package waterfall

import (
	"math/big"
	"sort"
)

// allocateProRata splits total cents across weights proportionally.
// Every share is floored, then the residual cents go one each to the largest
// fractional remainders (ties: larger weight, then lower index). The result sums
// to exactly total and each entry is within one cent of its exact share.
// Zero total weight allocates nothing.
func allocateProRata(total int64, weights []int64) []int64 {
	out := make([]int64, len(weights))
	if total <= 0 || len(weights) == 0 {
		return out
	}

	sumW := new(big.Int)
	for _, w := range weights {
		sumW.Add(sumW, big.NewInt(w))
	}
	if sumW.Sign() == 0 {
		return out
	}

	bigTotal := big.NewInt(total)
	rems := make([]*big.Int, len(weights))
	var allocated int64
	for i, w := range weights {
		num := new(big.Int).Mul(bigTotal, big.NewInt(w))
		q, r := new(big.Int).QuoRem(num, sumW, new(big.Int))
		out[i] = q.Int64()
		rems[i] = r
		allocated += out[i]
	}

	residual := total - allocated
	if residual == 0 {
		return out
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if c := rems[ia].Cmp(rems[ib]); c != 0 {
			return c > 0
		}
		if weights[ia] != weights[ib] {
			return weights[ia] > weights[ib]
		}
		return ia < ib
	})

	for i := int64(0); i < residual; i++ {
		out[order[i]]++
	}
	return out
}

// exceedsShare reports whether pool*weight/totalWeight >= limit, compared exactly.
func exceedsShare(pool, weight int64, totalWeight *big.Int, limit int64) bool {
	lhs := new(big.Int).Mul(big.NewInt(pool), big.NewInt(weight))
	rhs := new(big.Int).Mul(big.NewInt(limit), totalWeight)
	return lhs.Cmp(rhs) >= 0
}
