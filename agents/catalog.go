package agents

import (
	"fmt"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
)

// SectionCatalog is the canonical 13-section proposal skeleton. The outline
// generator customizes its descriptions, the builder must produce content
// for every key, and persistence derives the Proposal record from it.
var SectionCatalog = models.CanonicalSections

// catalogPromptBlock renders the catalog as "key: description" lines for
// prompts that must cover every section.
func catalogPromptBlock() string {
	var b strings.Builder
	for _, s := range SectionCatalog {
		fmt.Fprintf(&b, "- %s: %s\n", s.Key, s.Description)
	}
	return b.String()
}

// placeholderContent is the deterministic stand-in for a section the LLM
// did not produce. The draft must never carry an empty section.
func placeholderContent(spec models.SectionSpec) string {
	return fmt.Sprintf("To be completed. %s", spec.Description)
}
