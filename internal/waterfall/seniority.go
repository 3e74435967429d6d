package waterfall

import (
	"fmt"
	"sort"
)

// Tier is a group of claims paid pari passu in the preference round.
type Tier struct {
	Label  string
	Claims []*Claim
}

// PreferenceCents returns the tier's total preference demand.
func (t *Tier) PreferenceCents() int64 {
	var total int64
	for _, c := range t.Claims {
		total += c.PreferenceCents
	}
	return total
}

// Stack is the seniority ordering of a set of claims.
type Stack struct {
	Tiers        []*Tier  // preference tiers, most senior first
	Participants []*Claim // the junior participation tier
}

// Tier groups, most senior first.
const (
	groupRedemptions = iota
	groupRanked
	groupDefault
)

type tierKey struct {
	group int
	rank  int64
}

func (k tierKey) less(o tierKey) bool {
	if k.group != o.group {
		return k.group < o.group
	}
	return k.rank < o.rank
}

// BuildStack orders claims into seniority tiers.
//
// Redeemed convertibles form the most senior tier. Share classes with an explicit
// seniority rank follow, grouped by rank (lower first, equal ranks pari passu).
// Classes without a rank come last, one tier each, most recently issued first.
// Common, participating preferred and as-converted claims form the participation tier.
// Claims inside a tier are ordered by investor id.
func BuildStack(claims []*Claim) *Stack {
	defaultPositions := defaultStackPositions(claims)

	tiers := make(map[tierKey]*Tier)
	var keys []tierKey
	var participants []*Claim

	for _, c := range claims {
		if c.Participates() {
			participants = append(participants, c)
		}
		if c.PreferenceCents <= 0 {
			continue
		}

		var k tierKey
		var label string
		switch {
		case c.Kind == ClaimKindRedeemed:
			k = tierKey{group: groupRedemptions}
			label = "convertible redemptions"
		case c.ShareClass != nil && c.ShareClass.SeniorityRank != nil:
			k = tierKey{group: groupRanked, rank: int64(*c.ShareClass.SeniorityRank)}
			label = fmt.Sprintf("seniority rank %d", *c.ShareClass.SeniorityRank)
		default:
			k = tierKey{group: groupDefault, rank: defaultPositions[c.SecurityID]}
			label = c.ShareClass.Name
		}

		t, ok := tiers[k]
		if !ok {
			t = &Tier{Label: label}
			tiers[k] = t
			keys = append(keys, k)
		}
		t.Claims = append(t.Claims, c)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	stack := &Stack{Participants: participants}
	for _, k := range keys {
		t := tiers[k]
		sortTierClaims(t.Claims)
		stack.Tiers = append(stack.Tiers, t)
	}
	sortTierClaims(stack.Participants)
	return stack
}

// defaultStackPositions assigns reverse-issuance positions to unranked preferred classes.
func defaultStackPositions(claims []*Claim) map[int64]int64 {
	seen := make(map[int64]bool)
	var classes []*Claim
	for _, c := range claims {
		sc := c.ShareClass
		if sc == nil || sc.SeniorityRank != nil || seen[sc.ID] {
			continue
		}
		seen[sc.ID] = true
		classes = append(classes, c)
	}

	sort.Slice(classes, func(i, j int) bool {
		a, b := classes[i].ShareClass, classes[j].ShareClass
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	positions := make(map[int64]int64, len(classes))
	for i, c := range classes {
		positions[c.ShareClass.ID] = int64(i)
	}
	return positions
}

// sortTierClaims orders claims by investor id, then class creation order,
// then security type and id.
func sortTierClaims(claims []*Claim) {
	sort.SliceStable(claims, func(i, j int) bool {
		a, b := claims[i], claims[j]
		if a.InvestorID != b.InvestorID {
			return a.InvestorID < b.InvestorID
		}
		if a.ShareClass != nil && b.ShareClass != nil && !a.ShareClass.CreatedAt.Equal(b.ShareClass.CreatedAt) {
			return a.ShareClass.CreatedAt.Before(b.ShareClass.CreatedAt)
		}
		if a.SecurityType != b.SecurityType {
			return a.SecurityType < b.SecurityType
		}
		return a.SecurityID < b.SecurityID
	})
}
