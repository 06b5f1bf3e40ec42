package document

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
)

func TestExtractTextNormalizes(t *testing.T) {
	raw := []byte("Title\r\n\r\n\r\n\r\nBody\x00 line  \nnext\tkeeps tab\n\n\n\nEnd\n\xff")

	got := ExtractText(raw)
	require.Equal(t, "Title\n\nBody line\nnext\tkeeps tab\n\nEnd", got)
}

func TestExtractTextEmptyInput(t *testing.T) {
	require.Equal(t, "", ExtractText(nil))
	require.Equal(t, "", ExtractText([]byte("  \r\n \x07 \n")))
}

// stubVision answers one page per call, optionally failing a given call.
type stubVision struct {
	pages []string
	errOn int // 1-based call to fail, 0 for never
	calls int
}

func (s *stubVision) CompleteWithImages(_ context.Context, req llm.Request, _ []llm.Image) (*llm.Response, error) {
	s.calls++
	if s.errOn == s.calls {
		return nil, errors.New("vision backend down")
	}
	return &llm.Response{Content: s.pages[s.calls-1]}, nil
}

func TestExtractTextVisionJoinsPagesInOrder(t *testing.T) {
	vision := &stubVision{pages: []string{"# Page One\r\nscope", "Page Two\n\n\n\nbudget"}}
	pages := []llm.Image{
		{MIMEType: "image/png", Data: []byte{1}},
		{MIMEType: "image/png", Data: []byte{2}},
	}

	text, err := ExtractTextVision(context.Background(), vision, pages)
	require.NoError(t, err)
	require.Equal(t, 2, vision.calls)
	require.Equal(t, "# Page One\nscope\n\nPage Two\n\nbudget", text)
}

func TestExtractTextVisionFailureNamesPage(t *testing.T) {
	vision := &stubVision{pages: []string{"ok", "unused"}, errOn: 2}
	pages := []llm.Image{
		{MIMEType: "image/png", Data: []byte{1}},
		{MIMEType: "image/png", Data: []byte{2}},
	}

	_, err := ExtractTextVision(context.Background(), vision, pages)
	require.Error(t, err)
	require.Contains(t, err.Error(), "page 2")
}

func TestExtractTextVisionRequiresPages(t *testing.T) {
	_, err := ExtractTextVision(context.Background(), &stubVision{}, nil)
	require.Error(t, err)
}
