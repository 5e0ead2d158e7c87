package classify

// Tier identifies one stage of the waterfall.
type Tier string

const (
	TierPattern    Tier = "pattern"
	TierConfidence Tier = "confidence"
	TierGenerative Tier = "generative"
)

// GenerativeOnlySource is pinned to the generative tier: its messages carry
// free-form legacy text that neither the rule table nor the embedding
// classifier was trained on.
const GenerativeOnlySource = "LegacyCRM"

// RoutingTable maps a source identifier to the ordered tier chain to attempt.
// It is read-only after construction and safe for concurrent use.
type RoutingTable struct {
	routes       map[string][]Tier
	defaultChain []Tier
}

// NewRoutingTable builds a routing table from per-source overrides and a
// default chain used for every source without an override. Chains are copied
// so later mutation of the inputs cannot affect the table.
func NewRoutingTable(overrides map[string][]Tier, defaultChain []Tier) *RoutingTable {
	routes := make(map[string][]Tier, len(overrides))
	for source, chain := range overrides {
		routes[source] = append([]Tier(nil), chain...)
	}
	return &RoutingTable{
		routes:       routes,
		defaultChain: append([]Tier(nil), defaultChain...),
	}
}

// DefaultRouting returns the stock table: GenerativeOnlySource goes straight
// to the generative tier, everything else tries pattern then confidence.
func DefaultRouting() *RoutingTable {
	return NewRoutingTable(
		map[string][]Tier{
			GenerativeOnlySource: {TierGenerative},
		},
		[]Tier{TierPattern, TierConfidence},
	)
}

// Chain returns the tier chain for the given source. The returned slice must
// not be mutated.
func (t *RoutingTable) Chain(source string) []Tier {
	if chain, ok := t.routes[source]; ok {
		return chain
	}
	return t.defaultChain
}
