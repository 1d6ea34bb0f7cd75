// Package analyzer is the boundary to the external fraud-assessment oracle:
// invoking it (atomically or streamed), repairing its raw text into the
// canonical assessment shape, and mirroring its decision policy.
package analyzer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/shieldnetlabs/shieldnet_backend/utils"
	"google.golang.org/genai"
)

// Document is an encoded invoice ready to be assessed.
type Document struct {
	Data      []byte
	MediaType string
}

// Oracle converts a document into raw assessment text. Its scoring is
// opaque; callers only rely on the JSON shape the prompt requests.
type Oracle interface {
	// Assess returns the complete response text in one call.
	Assess(ctx context.Context, doc Document) (string, error)
	// AssessStream forwards each response fragment to onFragment as it
	// arrives and returns the accumulated text. The callback must not
	// block indefinitely; cancellation of ctx abandons the stream.
	AssessStream(ctx context.Context, doc Document, onFragment func(text string)) (string, error)
}

// MediaTypeFor maps a file extension to the content type sent to the
// oracle. Unknown extensions default to PDF, mirroring upload validation
// which has already rejected anything outside the allow-list.
func MediaTypeFor(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/pdf"
	}
}

// GeminiOracle assesses invoices with the Gemini vision API.
type GeminiOracle struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiOracle initializes the client from the environment
// (GEMINI_API_KEY / Application Default Credentials).
func NewGeminiOracle(ctx context.Context, model string, timeout time.Duration) (*GeminiOracle, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, utils.NewAppErrorf(utils.ErrKindOracleFailure, "init oracle client: %w", err)
	}
	return &GeminiOracle{client: client, model: model, timeout: timeout}, nil
}

func (o *GeminiOracle) contents(doc Document) []*genai.Content {
	return []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			{InlineData: &genai.Blob{MIMEType: doc.MediaType, Data: doc.Data}},
			{Text: analysisPrompt},
		}, genai.RoleUser),
	}
}

func (o *GeminiOracle) Assess(ctx context.Context, doc Document) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Models.GenerateContent(ctx, o.model, o.contents(doc), nil)
	if err != nil {
		return "", classifyOracleErr(err)
	}
	text := resp.Text()
	if text == "" {
		return "", utils.NewAppErrorf(utils.ErrKindOracleFailure, "oracle returned an empty response")
	}
	return text, nil
}

func (o *GeminiOracle) AssessStream(ctx context.Context, doc Document, onFragment func(text string)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var full strings.Builder
	for resp, err := range o.client.Models.GenerateContentStream(ctx, o.model, o.contents(doc), nil) {
		if err != nil {
			return "", classifyOracleErr(err)
		}
		if text := resp.Text(); text != "" {
			full.WriteString(text)
			onFragment(text)
		}
		if ctx.Err() != nil {
			return "", classifyOracleErr(ctx.Err())
		}
	}
	if full.Len() == 0 {
		return "", utils.NewAppErrorf(utils.ErrKindOracleFailure, "oracle returned an empty response")
	}
	return full.String(), nil
}

func classifyOracleErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return utils.NewAppErrorf(utils.ErrKindOracleTimeout, "oracle call timed out: %w", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return utils.NewAppErrorf(utils.ErrKindOracleFailure, "oracle call failed: %w", err)
}
