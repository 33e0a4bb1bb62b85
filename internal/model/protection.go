package model

// ProtectionSource names where a facet's satisfaction was established.
type ProtectionSource string

const (
	SourceDirect     ProtectionSource = "direct"
	SourceHint       ProtectionSource = "hint"
	SourceWrapper    ProtectionSource = "wrapper"
	SourceMiddleware ProtectionSource = "middleware"
)

// UnverifiedWrapper is a wrapper in the chain that could not establish the
// facet: unresolved, resolved-but-not-enforced, or resolved-with-no-evidence.
type UnverifiedWrapper struct {
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// ProtectionStatus is the per-facet (auth or rate-limit) verdict for one
// endpoint. Invariant: Satisfied ⇒ len(Sources) > 0. Invariant: if any
// wrapper in the chain is unverified and no source satisfied the facet,
// Satisfied is false and that wrapper appears in UnverifiedWrappers.
type ProtectionStatus struct {
	Satisfied          bool                `json:"satisfied"`
	Enforced           bool                `json:"enforced"`
	Sources            []ProtectionSource  `json:"sources,omitempty"`
	Details            []string            `json:"details,omitempty"`
	UnverifiedWrappers []UnverifiedWrapper `json:"unverifiedWrappers,omitempty"`
}

// Satisfy marks the facet satisfied via source, recording detail and
// enforcement. A status is never satisfied without a source: callers must
// always pass one.
func (p *ProtectionStatus) Satisfy(source ProtectionSource, enforced bool, detail string) {
	p.Satisfied = true
	p.Enforced = enforced
	p.addSource(source)
	p.addDetail(detail)
}

// AddUnverifiedWrapper appends a wrapper that could not establish the facet.
func (p *ProtectionStatus) AddUnverifiedWrapper(name, detail string) {
	p.UnverifiedWrappers = append(p.UnverifiedWrappers, UnverifiedWrapper{Name: name, Detail: detail})
}

func (p *ProtectionStatus) addSource(s ProtectionSource) {
	for _, existing := range p.Sources {
		if existing == s {
			return
		}
	}
	p.Sources = append(p.Sources, s)
}

func (p *ProtectionStatus) addDetail(d string) {
	if d == "" {
		return
	}
	p.Details = append(p.Details, d)
}

// ProtectionSummary combines the auth and rate-limit facets for one
// endpoint, written exactly once before rules run (spec §4.7).
type ProtectionSummary struct {
	Auth      ProtectionStatus `json:"auth"`
	RateLimit ProtectionStatus `json:"rateLimit"`
}
