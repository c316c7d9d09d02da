// Package advisor turns a ledger snapshot into budgeting advice by sending
// the tabulated records to a hosted completion service. One blocking round
// trip per request, no retries, no state: the ledger is never touched here.
package advisor

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"spendsight/internal/core"
)

// DefaultModel is the fixed model identifier used for every request.
const DefaultModel = "claude-sonnet-4-5-20250929"

// maxTokens bounds the completion length. The API rejects requests without
// it, so this is a hard requirement rather than a tuning knob.
const maxTokens = 1024

// ErrNoCredential reports a missing or empty API key. The check runs before
// any network I/O.
var ErrNoCredential = errors.New("advisor: no API credential configured")

// RequestError wraps any failure of the completion call: connectivity,
// non-2xx responses, or a malformed body.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return "advisor: request failed: " + e.Err.Error() }
func (e *RequestError) Unwrap() error { return e.Err }

type Client struct {
	key   string
	model string
	opts  []option.RequestOption
}

// New creates an advisor client. Extra request options are passed through to
// the SDK; tests use option.WithHTTPClient to substitute the transport.
func New(key, model string, opts ...option.RequestOption) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{key: key, model: model, opts: opts}
}

// Configured reports whether a credential is present. When false, Advise
// fails fast and the rest of the application stays usable.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.key) != ""
}

// Advise serializes the records into the instruction prompt and issues one
// synchronous completion request. On success it returns the completion's
// text verbatim.
func (c *Client) Advise(ctx context.Context, records []core.Record) (string, error) {
	if !c.Configured() {
		return "", ErrNoCredential
	}

	opts := append([]option.RequestOption{
		option.WithAPIKey(c.key),
		option.WithMaxRetries(0),
	}, c.opts...)
	cli := anthropic.NewClient(opts...)

	msg, err := cli.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(records))),
		},
	})
	if err != nil {
		return "", &RequestError{Err: err}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", &RequestError{Err: errors.New("completion contained no text")}
	}
	return text.String(), nil
}
