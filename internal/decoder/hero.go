package decoder

import "sort"

// HeroSet is an immutable set of event names that are highlighted to users.
type HeroSet struct {
	names map[string]struct{}
}

// DefaultHeroEvents are the protocol state transitions users care about.
var DefaultHeroEvents = []string{
	"FundingRoundCreated",
	"TrancheReleased",
	"RescueFundingTriggered",
	"ReservesVerified",
	"RiskAlertTriggered",
	"MilestoneApproved",
}

var defaultHeroSet = NewHeroSet(DefaultHeroEvents...)

// NewHeroSet builds a set from exact event names.
func NewHeroSet(names ...string) HeroSet {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return HeroSet{names: set}
}

// DefaultHeroSet returns the built-in hero set.
func DefaultHeroSet() HeroSet {
	return defaultHeroSet
}

// With returns a new set holding the current names plus extra.
func (h HeroSet) With(extra ...string) HeroSet {
	return NewHeroSet(append(h.Names(), extra...)...)
}

// IsHero reports exact, case-sensitive membership.
func (h HeroSet) IsHero(eventName string) bool {
	_, ok := h.names[eventName]
	return ok
}

// Names returns the members in sorted order.
func (h HeroSet) Names() []string {
	out := make([]string, 0, len(h.names))
	for name := range h.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsHero classifies an event name against the default hero set.
func IsHero(eventName string) bool {
	return defaultHeroSet.IsHero(eventName)
}
