package models

// SectionSpec describes one canonical proposal section.
type SectionSpec struct {
	Key         string
	Title       string
	Description string
	Order       int
	Required    bool
}

// CanonicalSections is the fixed proposal skeleton. Outline generation
// customizes the descriptions; the builder must produce content for every
// key; the Proposal record derives its ordered sections from it.
var CanonicalSections = []SectionSpec{
	{Key: "executive_summary", Title: "Executive Summary", Description: "High-level overview of the client's needs and our proposed response.", Order: 1, Required: true},
	{Key: "understanding_of_requirements", Title: "Understanding of Requirements", Description: "Restatement of the RFP scope, objectives and constraints as we read them.", Order: 2, Required: true},
	{Key: "proposed_solution", Title: "Proposed Solution", Description: "The solution concept mapped to the client's stated challenges.", Order: 3, Required: true},
	{Key: "technical_approach", Title: "Technical Approach", Description: "Architecture, technology choices and integration approach.", Order: 4, Required: true},
	{Key: "implementation_plan", Title: "Implementation Plan", Description: "Phases, workstreams and delivery methodology.", Order: 5, Required: true},
	{Key: "timeline_and_milestones", Title: "Timeline and Milestones", Description: "Schedule with key milestones and dependencies.", Order: 6, Required: true},
	{Key: "team_and_expertise", Title: "Team and Expertise", Description: "Proposed team structure, roles and relevant experience.", Order: 7, Required: false},
	{Key: "case_studies", Title: "Relevant Case Studies", Description: "Comparable engagements with measured outcomes.", Order: 8, Required: false},
	{Key: "value_proposition", Title: "Value Proposition", Description: "Quantified business value and differentiators.", Order: 9, Required: true},
	{Key: "pricing_approach", Title: "Pricing Approach", Description: "Commercial model and pricing assumptions.", Order: 10, Required: true},
	{Key: "risk_management", Title: "Risk Management", Description: "Key risks with likelihood, impact and mitigations.", Order: 11, Required: false},
	{Key: "quality_assurance", Title: "Quality Assurance", Description: "Quality gates, testing strategy and acceptance criteria.", Order: 12, Required: false},
	{Key: "terms_and_assumptions", Title: "Terms and Assumptions", Description: "Engagement assumptions, exclusions and commercial terms.", Order: 13, Required: false},
}

// SectionByKey looks up a canonical section.
func SectionByKey(key string) (SectionSpec, bool) {
	for _, s := range CanonicalSections {
		if s.Key == key {
			return s, true
		}
	}
	return SectionSpec{}, false
}

// DefaultOutline renders the catalog as an outline with the stock
// descriptions.
func DefaultOutline() []OutlineSection {
	out := make([]OutlineSection, 0, len(CanonicalSections))
	for _, s := range CanonicalSections {
		out = append(out, OutlineSection{
			Key:         s.Key,
			Title:       s.Title,
			Description: s.Description,
			Order:       s.Order,
		})
	}
	return out
}

// ProposalFromDraft maps the keyed draft onto the canonical section order.
// Keys outside the catalog are ignored; missing keys produce empty content.
func ProposalFromDraft(projectID, rfpDocumentID string, draft map[string]string, criticScore float64) *Proposal {
	sections := make([]ProposalSection, 0, len(CanonicalSections))
	for _, s := range CanonicalSections {
		sections = append(sections, ProposalSection{
			ID:       s.Key,
			Title:    s.Title,
			Content:  draft[s.Key],
			Order:    s.Order,
			Required: s.Required,
		})
	}
	return &Proposal{
		ProjectID:     projectID,
		RFPDocumentID: rfpDocumentID,
		Sections:      sections,
		CriticScore:   criticScore,
	}
}
