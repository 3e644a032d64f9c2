package domain

import "fmt"

// Tier is a provider capability level. Higher tiers cost more and are
// expected to cope with harder units.
type Tier int

// Capability tiers, cheapest first
const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// AllTiers is the escalation order.
var AllTiers = []Tier{Tier1, Tier2, Tier3}

// String returns the tier label used in logs and metrics, e.g. "tier-1".
func (t Tier) String() string {
	return fmt.Sprintf("tier-%d", int(t))
}

// IsValid reports whether t is a known tier.
func (t Tier) IsValid() bool {
	return t >= Tier1 && t <= Tier3
}

// TiersFrom returns the escalation ladder starting at start.
func TiersFrom(start Tier) []Tier {
	for i, t := range AllTiers {
		if t == start {
			return append([]Tier(nil), AllTiers[i:]...)
		}
	}
	return append([]Tier(nil), AllTiers...)
}
