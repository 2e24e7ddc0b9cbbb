package observability

const (
	TierRecord = "record"
	TierList   = "list"
	TierFilter = "filter"
)

// ObserveCacheLookup records one lookup against a cache tier. Outcome is
// hit|miss|unavailable; the filter tier reports hit for "might exist" and
// miss for "definitely absent".
func (p *Prom) ObserveCacheLookup(tier, outcome string) {
	if p == nil {
		return
	}
	p.CacheLookups.WithLabelValues(tier, outcome).Inc()
}

func (p *Prom) ObserveInvalidation() {
	if p == nil {
		return
	}
	p.InvalidationsTotal.Inc()
}

func (p *Prom) SetFilterSeedSize(n int) {
	if p == nil {
		return
	}
	p.FilterSeedSize.Set(float64(n))
}
