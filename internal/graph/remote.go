// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/kb-ingest/internal/httputil"
	"github.com/pdiddy/kb-ingest/pkg/types"
)

// Remote is a sink backed by a hosted knowledge-graph service exposing an
// episodes API: POST /episodes, PUT /episodes/{id}, DELETE /episodes/{id}.
// Transient failures (429, 5xx) are retried with backoff inside each call.
type Remote struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemote builds a client for the service at cfg.BaseURL.
func NewRemote(cfg types.GraphConfig) (*Remote, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("http graph backend requires base_url")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base_url %q: %w", cfg.BaseURL, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Remote{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// episodePayload is the wire form of an episode.
type episodePayload struct {
	Name              string    `json:"name"`
	Body              string    `json:"body"`
	SourceDescription string    `json:"source_description,omitempty"`
	ReferenceTime     time.Time `json:"reference_time"`
}

// episodeResponse is the service's reply to an ingest or update.
type episodeResponse struct {
	UUID string `json:"uuid"`
}

// Ingest posts the episode and returns the service-assigned UUID.
func (r *Remote) Ingest(ctx context.Context, ep types.Episode) (string, error) {
	return r.send(ctx, http.MethodPost, r.baseURL+"/episodes", ep)
}

// Update replaces the episode identified by id on the service.
func (r *Remote) Update(ctx context.Context, id string, ep types.Episode) (string, error) {
	return r.send(ctx, http.MethodPut, r.baseURL+"/episodes/"+url.PathEscape(id), ep)
}

// Delete removes the episode identified by id. A 404 is not an error;
// the record is already gone.
func (r *Remote) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		r.baseURL+"/episodes/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("building delete request: %w", err)
	}
	r.auth(req)

	resp, err := httputil.DoWithRetry(ctx, r.client, req, 0)
	if err != nil {
		return fmt.Errorf("deleting episode %s: %w", id, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("deleting episode %s: HTTP %d", id, resp.StatusCode)
	}
	return nil
}

func (r *Remote) send(ctx context.Context, method, endpoint string, ep types.Episode) (string, error) {
	payload, err := json.Marshal(episodePayload{
		Name:              ep.Name,
		Body:              ep.Body,
		SourceDescription: ep.SourceDescription,
		ReferenceTime:     ep.ReferenceTime,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling episode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	r.auth(req)

	resp, err := httputil.DoWithRetry(ctx, r.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("sending episode %q: %w", ep.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("sending episode %q: HTTP %d: %s",
			ep.Name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var er episodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return "", fmt.Errorf("decoding response for %q: %w", ep.Name, err)
	}
	if er.UUID == "" {
		return "", fmt.Errorf("response for %q missing uuid", ep.Name)
	}
	return er.UUID, nil
}

func (r *Remote) auth(req *http.Request) {
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
}
