package models

// Plan is a subscription tier. Only the tier is known here; billing lives elsewhere.
type Plan string

const (
	PlanFree         Plan = "free"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// ParsePlan maps a stored plan name to a Plan. Unknown or empty names are free.
func ParsePlan(s string) Plan {
	switch Plan(s) {
	case PlanProfessional, PlanEnterprise:
		return Plan(s)
	}
	return PlanFree
}

// IsUnlimited reports whether the tier has no usage caps.
func (p Plan) IsUnlimited() bool {
	return p != PlanFree
}

// UsageMetric is one counter against its cap. Limit and PercentUsed are nil
// for unlimited tiers.
type UsageMetric struct {
	CurrentUsage int      `json:"current_usage"`
	Limit        *int     `json:"limit"`
	IsUnlimited  bool     `json:"is_unlimited"`
	PercentUsed  *float64 `json:"percent_used"`
}

// NewUsageMetric builds a metric. A nil limit means unlimited.
func NewUsageMetric(current int, limit *int) UsageMetric {
	m := UsageMetric{CurrentUsage: current, Limit: limit, IsUnlimited: limit == nil}
	if limit != nil && *limit > 0 {
		pct := float64(current) / float64(*limit) * 100
		if pct > 100 {
			pct = 100
		}
		m.PercentUsed = &pct
	}
	return m
}

// Usage is the caller's plan and counters.
type Usage struct {
	Plan    Plan        `json:"plan"`
	Reports UsageMetric `json:"reports"`
	Scripts UsageMetric `json:"scripts"`
}
