package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Webhook forwards outbound operations to the chat front-end's bridge
// endpoint as JSON:
//
//	POST  {base}/threads/{thread}/messages            {"content","reply_to"} -> {"id"}
//	PATCH {base}/threads/{thread}/messages/{message}  {"content"}            404 = gone
//	POST  {base}/threads/{thread}/lock
//	POST  {base}/threads/{thread}/unlock
type Webhook struct {
	BaseURL string
	Client  *http.Client
}

// NewWebhook returns a Webhook with a bounded client timeout. Calls run
// as client spans and carry the caller's trace context to the bridge.
func NewWebhook(baseURL string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "messenger " + r.Method
				}),
			),
		},
	}
}

type sendBody struct {
	Content string `json:"content"`
	ReplyTo *int64 `json:"reply_to,omitempty,string"`
}

type sendResp struct {
	ID string `json:"id"`
}

func (w *Webhook) SendMessage(ctx context.Context, threadID int64, text string, replyTo *int64) (int64, error) {
	var out sendResp
	path := fmt.Sprintf("/threads/%d/messages", threadID)
	if err := w.do(ctx, http.MethodPost, path, sendBody{Content: text, ReplyTo: replyTo}, &out); err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(out.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("messenger: bad message id %q: %w", out.ID, err)
	}
	return id, nil
}

func (w *Webhook) EditMessage(ctx context.Context, threadID, messageID int64, text string) error {
	path := fmt.Sprintf("/threads/%d/messages/%d", threadID, messageID)
	return w.do(ctx, http.MethodPatch, path, sendBody{Content: text}, nil)
}

func (w *Webhook) LockThread(ctx context.Context, threadID int64) error {
	return w.do(ctx, http.MethodPost, fmt.Sprintf("/threads/%d/lock", threadID), nil, nil)
}

func (w *Webhook) UnlockThread(ctx context.Context, threadID int64) error {
	return w.do(ctx, http.MethodPost, fmt.Sprintf("/threads/%d/unlock", threadID), nil, nil)
}

func (w *Webhook) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, w.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("messenger %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrMessageNotFound
	case resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("messenger %s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
