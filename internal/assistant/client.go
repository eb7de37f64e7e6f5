// Package assistant talks to the remote Dot session: one POST per turn, plus a
// fire-and-forget session clear.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dot-hub/internal/conversation"
	"dot-hub/internal/jobs"
	"dot-hub/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

type Client struct {
	hubURL   string
	clearURL string
	http     *http.Client
	store    *conversation.Store
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

type Options struct {
	HubURL   string
	ClearURL string
	Timeout  time.Duration
	HTTP     *http.Client
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
}

func NewClient(store *conversation.Store, opts Options) *Client {
	hc := opts.HTTP
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		hubURL:   opts.HubURL,
		clearURL: opts.ClearURL,
		http:     hc,
		store:    store,
		metrics:  opts.Metrics,
		log:      opts.Log,
	}
}

// Send records the question, posts it with the prior history and returns the
// reply. Any failure undoes the question and yields nil; the caller renders a
// fallback.
func (c *Client) Send(ctx context.Context, question string, tc Context) *Response {
	mark := c.store.Append(conversation.Turn{Role: conversation.RoleUser, Content: question})

	jobsPayload := tc.Jobs
	if jobsPayload == nil {
		jobsPayload = []jobs.Record{}
	}
	body := Request{
		Content:     question,
		SenderName:  tc.Identity.SenderName(),
		SessionID:   tc.Identity.SessionID(),
		Jobs:        jobsPayload,
		History:     c.store.HistoryExcludingLast(),
		AccessLevel: tc.Identity.Level(),
	}

	reqID := uuid.NewString()
	log := c.log.With().Str("request_id", reqID).Str("session_id", body.SessionID).Logger()

	start := time.Now()
	resp, reason, err := c.post(ctx, reqID, body)
	elapsed := time.Since(start)
	c.metrics.ObserveCall(elapsed, err == nil)

	if err != nil {
		c.store.Rollback(mark)
		c.metrics.TurnFailed(reason)
		log.Warn().Err(err).Str("reason", reason).Dur("elapsed", elapsed).Msg("assistant call failed")
		return nil
	}

	if resp.Message != "" {
		if !c.store.AppendIfCurrent(mark, conversation.Turn{Role: conversation.RoleAssistant, Content: resp.Message}) {
			log.Debug().Msg("conversation reset during call; reply not recorded")
		}
	}
	log.Debug().Str("type", resp.Type).Int("jobs", len(resp.Jobs)).Dur("elapsed", elapsed).Msg("assistant replied")
	return resp
}

func (c *Client) post(ctx context.Context, reqID string, body Request) (*Response, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, "encode", fmt.Errorf("encode turn: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.hubURL, bytes.NewReader(payload))
	if err != nil {
		return nil, "transport", fmt.Errorf("build turn request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, reqID)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, "transport", fmt.Errorf("post turn: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, "status", fmt.Errorf("assistant returned status %d: %s", httpResp.StatusCode, string(snippet))
	}

	var out Response
	if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
		return nil, "decode", fmt.Errorf("decode reply: %w", err)
	}
	return &out, "", nil
}

// ClearSession asks the assistant to forget sessionID. Failures are logged
// and otherwise ignored.
func (c *Client) ClearSession(ctx context.Context, sessionID string) {
	if c.clearURL == "" {
		return
	}
	payload, err := json.Marshal(clearRequest{SessionID: sessionID})
	if err != nil {
		c.log.Warn().Err(err).Msg("encode clear session")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.clearURL, bytes.NewReader(payload))
	if err != nil {
		c.log.Warn().Err(err).Msg("build clear session request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("session_id", sessionID).Msg("clear session failed")
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug().Int("status", resp.StatusCode).Str("session_id", sessionID).Msg("clear session rejected")
	}
}
