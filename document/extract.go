package document

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
)

const visionPrompt = `Extract all text from this document page. Preserve headings, lists and tables as markdown. Return only the extracted text, nothing else.`

// ExtractText normalizes a raw upload into clean UTF-8. Invalid byte
// sequences are dropped, control characters other than newline and tab are
// scrubbed, and runs of blank lines collapse to one.
func ExtractText(raw []byte) string {
	text := strings.ToValidUTF8(string(raw), "")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r == '\r':
			// \r\n collapses to \n
		case unicode.IsControl(r):
			// scrubbed
		default:
			b.WriteRune(r)
		}
	}

	return collapseBlankLines(strings.TrimSpace(b.String()))
}

// VisionCompleter is the slice of the LLM gateway that vision extraction
// needs.
type VisionCompleter interface {
	CompleteWithImages(ctx context.Context, req llm.Request, images []llm.Image) (*llm.Response, error)
}

// ExtractTextVision runs page images through the multimodal gateway and
// joins the per-page text in page order.
func ExtractTextVision(ctx context.Context, gateway VisionCompleter, pages []llm.Image) (string, error) {
	if len(pages) == 0 {
		return "", fmt.Errorf("no pages to extract")
	}

	parts := make([]string, 0, len(pages))
	for i, page := range pages {
		resp, err := gateway.CompleteWithImages(ctx, llm.Request{
			TaskType: llm.TaskAnalysis,
			Messages: []llm.Message{{Role: llm.RoleUser, Content: visionPrompt}},
		}, []llm.Image{page})
		if err != nil {
			return "", fmt.Errorf("vision extraction failed on page %d: %w", i+1, err)
		}
		parts = append(parts, resp.Content)
	}

	return ExtractText([]byte(strings.Join(parts, "\n\n"))), nil
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blanks++
			if blanks > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blanks = 0
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Join(out, "\n")
}
