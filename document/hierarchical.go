package document

import (
	"context"
	"strings"
)

// HierarchicalChunker splits a markdown document into sections, emitting
// each section as a parent chunk followed by its fixed-split children.
// Retrieval searches the fine-grained children while parents preserve the
// surrounding section for context assembly.
type HierarchicalChunker struct {
	child          *FixedChunker
	maxParentChars int
}

// NewHierarchicalChunker builds the chunker; children use the fixed
// splitter at the given size and overlap, parents are capped at four times
// the child size.
func NewHierarchicalChunker(size, overlap int) *HierarchicalChunker {
	if size <= 0 {
		size = 1000
	}
	return &HierarchicalChunker{
		child:          NewFixedChunker(size, overlap),
		maxParentChars: size * 4,
	}
}

func (c *HierarchicalChunker) Chunk(ctx context.Context, text string) ([]Chunk, error) {
	sections := parseSections(text)
	if len(sections) == 0 {
		return nil, nil
	}

	var chunks []Chunk
	for _, sec := range sections {
		parentText := sec.content
		if runes := []rune(parentText); len(runes) > c.maxParentChars {
			parentText = string(runes[:c.maxParentChars])
		}
		chunks = append(chunks, Chunk{
			Text:    parentText,
			Index:   len(chunks),
			Level:   LevelParent,
			Section: sec.heading,
		})

		children, err := c.child.Chunk(ctx, sec.content)
		if err != nil {
			return nil, err
		}
		// A section that fits in a single child would just duplicate the
		// parent.
		if len(children) == 1 && children[0].Text == parentText {
			continue
		}
		for _, ch := range children {
			chunks = append(chunks, Chunk{
				Text:    ch.Text,
				Index:   len(chunks),
				Level:   LevelChild,
				Section: sec.heading,
			})
		}
	}
	return chunks, nil
}

type docSection struct {
	heading string
	content string
}

// parseSections splits markdown at headings, skipping fences. Text before
// the first heading becomes a section with an empty heading.
func parseSections(text string) []docSection {
	var sections []docSection
	var current docSection
	var body strings.Builder
	inFence := false

	flush := func() {
		current.content = strings.TrimSpace(body.String())
		if current.content != "" {
			sections = append(sections, current)
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}

		if !inFence && strings.HasPrefix(trimmed, "#") {
			flush()
			current = docSection{heading: strings.TrimSpace(strings.TrimLeft(trimmed, "#"))}
		}
		if body.Len() > 0 {
			body.WriteString("\n")
		}
		body.WriteString(line)
	}
	flush()

	return sections
}
