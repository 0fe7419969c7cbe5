// internal/plex/plex.go
package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lramos15/kronos-discord/internal/models"
)

// StreamInfo reports live session counts for one Plex server. Nil counts mean
// the information could not be resolved.
type StreamInfo struct {
	ActiveStreams    *int
	ActiveTranscodes *int
}

// Client queries a single Plex server for its active sessions.
type Client struct {
	plexURL    string
	plexToken  string
	httpClient *http.Client
}

func NewClient(plexURL, plexToken string, timeout time.Duration) *Client {
	return &Client{
		plexURL:    plexURL,
		plexToken:  plexToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// StreamInfo returns the number of active streams and transcodes on the
// server. Any failure yields unknown counts, never an error. Transcodes are
// only counted when at least one stream is active, so the common empty case
// skips the metadata scan entirely.
func (c *Client) StreamInfo(ctx context.Context) StreamInfo {
	endpoint := fmt.Sprintf("%s/status/sessions?X-Plex-Token=%s", c.plexURL, url.QueryEscape(c.plexToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Error("Failed to build Plex sessions request", "url", c.plexURL, "error", err)
		return StreamInfo{}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("Failed to query Plex sessions", "url", c.plexURL, "error", err)
		return StreamInfo{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error("Plex sessions request rejected", "url", c.plexURL, "status", resp.StatusCode)
		return StreamInfo{}
	}

	var sessions models.PlexSessionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		log.Error("Failed to decode Plex sessions response", "url", c.plexURL, "error", err)
		return StreamInfo{}
	}

	activeStreams := sessions.MediaContainer.Size
	activeTranscodes := 0
	if activeStreams > 0 {
		for _, m := range sessions.MediaContainer.Metadata {
			if m.TranscodeSession != nil {
				activeTranscodes++
			}
		}
	}
	return StreamInfo{ActiveStreams: &activeStreams, ActiveTranscodes: &activeTranscodes}
}
