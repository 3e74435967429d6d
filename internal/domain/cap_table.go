package domain

// CapTable is a read-only snapshot of a company's capital structure.
// The liquidation engine consumes it and never mutates it.
type CapTable struct {
	Company                Company
	Investors              []*CompanyInvestor
	ShareClasses           []*ShareClass
	ShareHoldings          []*ShareHolding
	ConvertibleInvestments []*ConvertibleInvestment
	ConvertibleSecurities  []*ConvertibleSecurity
	OptionPools            []*OptionPool
}

// ShareClassByID returns the share class with the given ID, or nil.
func (c *CapTable) ShareClassByID(id int64) *ShareClass {
	for _, sc := range c.ShareClasses {
		if sc.ID == id {
			return sc
		}
	}
	return nil
}

// OutstandingShares returns the total number of issued shares across all holdings.
func (c *CapTable) OutstandingShares() int64 {
	var total int64
	for _, h := range c.ShareHoldings {
		total += h.NumberOfShares
	}
	return total
}

// FullyDilutedShares returns outstanding shares plus option pool reservations.
// Convertible securities are excluded (pre-conversion basis).
func (c *CapTable) FullyDilutedShares() int64 {
	total := c.OutstandingShares()
	for _, p := range c.OptionPools {
		total += p.FullyDilutedShares()
	}
	return total
}

// InvestorByID returns the investor with the given ID, or nil.
func (c *CapTable) InvestorByID(id int64) *CompanyInvestor {
	for _, inv := range c.Investors {
		if inv.ID == id {
			return inv
		}
	}
	return nil
}

// Clone returns a deep copy of the snapshot.
func (c *CapTable) Clone() *CapTable {
	out := &CapTable{Company: c.Company}
	if c.Company.FullyDilutedShares != nil {
		fd := *c.Company.FullyDilutedShares
		out.Company.FullyDilutedShares = &fd
	}
	out.Investors = cloneAll(c.Investors)
	out.ShareClasses = cloneAll(c.ShareClasses)
	out.ShareHoldings = cloneAll(c.ShareHoldings)
	out.ConvertibleInvestments = cloneAll(c.ConvertibleInvestments)
	out.ConvertibleSecurities = cloneAll(c.ConvertibleSecurities)
	out.OptionPools = cloneAll(c.OptionPools)
	return out
}

// cloneAll copies each element. Pointer fields inside the records are shared;
// the engine treats them as immutable.
func cloneAll[T any](in []*T) []*T {
	if in == nil {
		return nil
	}
	out := make([]*T, len(in))
	for i, v := range in {
		cp := *v
		out[i] = &cp
	}
	return out
}
