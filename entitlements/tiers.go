package entitlements

import "strings"

// Tier is a named subscription level. Tiers are ordered by capability.
type Tier string

const (
	TierFree  Tier = "free"
	TierStart Tier = "start"
	TierBuild Tier = "build"
	TierScale Tier = "scale"
)

// Order is the fixed capability ordering used for entitlement comparison.
var Order = []Tier{TierFree, TierStart, TierBuild, TierScale}

// Plan describes a tier as sold through the payment provider.
type Plan struct {
	Tier         Tier   `json:"tier"`
	Name         string `json:"name"`
	MonthlyPrice int    `json:"price"`
	ProductID    string `json:"product_id,omitempty"`
	PriceID      string `json:"price_id,omitempty"`
}

// Plans is the deploy-time plan table.
var Plans = []Plan{
	{Tier: TierFree, Name: "Free", MonthlyPrice: 0},
	{Tier: TierStart, Name: "Start", MonthlyPrice: 19, ProductID: "prod_TjrJr11KgRexld", PriceID: "price_1SmNazLlRyOCUFRXg2YtsQvM"},
	{Tier: TierBuild, Name: "Build", MonthlyPrice: 49, ProductID: "prod_TjrJLggG2PAity", PriceID: "price_1SmNbDLlRyOCUFRXfSntGFev"},
	{Tier: TierScale, Name: "Scale", MonthlyPrice: 99, ProductID: "prod_TjrKR20UBv3ksL", PriceID: "price_1SmNbSLlRyOCUFRX2TKdwjJY"},
}

// Registry maps payment-provider product ids to tiers and back.
type Registry struct {
	plans []Plan
}

// NewRegistry builds a registry over plans. Lookup order follows the slice order.
func NewRegistry(plans []Plan) *Registry {
	cp := make([]Plan, len(plans))
	copy(cp, plans)
	return &Registry{plans: cp}
}

var defaultRegistry = NewRegistry(Plans)

// Default returns the registry over Plans.
func Default() *Registry { return defaultRegistry }

// ResolveTierFromProductID returns the tier sold as productID.
// Empty or unrecognized ids resolve to free. When several plans share a product id
// the first one in plan order wins.
func (r *Registry) ResolveTierFromProductID(productID string) Tier {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return TierFree
	}
	for _, p := range r.plans {
		if p.ProductID != "" && p.ProductID == productID {
			return p.Tier
		}
	}
	return TierFree
}

// PlanFor returns the plan for tier t.
func (r *Registry) PlanFor(t Tier) (Plan, bool) {
	for _, p := range r.plans {
		if p.Tier == t {
			return p, true
		}
	}
	return Plan{}, false
}

// Duplicates lists product ids claimed by more than one plan.
func (r *Registry) Duplicates() []string {
	seen := make(map[string]int, len(r.plans))
	var out []string
	for _, p := range r.plans {
		if p.ProductID == "" {
			continue
		}
		seen[p.ProductID]++
		if seen[p.ProductID] == 2 {
			out = append(out, p.ProductID)
		}
	}
	return out
}

// ResolveTierFromProductID resolves against the default registry.
func ResolveTierFromProductID(productID string) Tier {
	return defaultRegistry.ResolveTierFromProductID(productID)
}

// PlanFor looks up a plan in the default registry.
func PlanFor(t Tier) (Plan, bool) { return defaultRegistry.PlanFor(t) }

// rank is the position of t in Order, or -1 when t is not a known tier.
func rank(t Tier) int {
	for i, o := range Order {
		if o == t {
			return i
		}
	}
	return -1
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool { return rank(t) >= 0 }

func (t Tier) String() string { return string(t) }

// Normalize parses a stored or remote tier name. Unknown values become free.
func Normalize(s string) Tier {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return TierFree
	}
	return t
}
