// Package edhrec fetches commander card recommendations.
package edhrec

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"commander_go/internal/domain"
	"commander_go/internal/infra"
)

const defaultBaseURL = "https://json.edhrec.com/pages/commanders"

var slugStrip = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

type pageResponse struct {
	Container struct {
		JSONDict struct {
			CardLists []*struct {
				CardViews []*struct {
					Name string `json:"name"`
				} `json:"cardviews"`
			} `json:"cardlists"`
		} `json:"json_dict"`
	} `json:"container"`
}

// Client is the recommendation source
type Client struct {
	baseURL    string
	httpClient infra.HTTPDoer
}

var _ domain.RecommendationSource = (*Client)(nil)

// NewClient creates a client. An empty baseURL uses the public endpoint.
func NewClient(baseURL string, doer infra.HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if doer == nil {
		doer = infra.NewHTTPClient(10 * time.Second)
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: doer}
}

// Slug turns "Atraxa, Praetors' Voice" into "atraxa-praetors-voice"
func Slug(commander string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(commander), "")
	return strings.ReplaceAll(s, " ", "-")
}

// Recommendations returns the unique recommended card names, sorted
func (c *Client) Recommendations(ctx context.Context, commander string) ([]string, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(Slug(commander)) + ".json"
	slog.Info("Fetching EDHREC recommendations", slog.String("commander", commander), slog.String("url", endpoint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, infra.NewFatalRequestError(err)
	}
	infra.SetBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError("fetch recommendations", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &domain.NotFoundError{Source: "edhrec", Key: commander, Reason: domain.ReasonNotFound}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewNetworkError("fetch recommendations", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	var page pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, domain.NewFatalNetworkError("decode recommendations", err)
	}

	seen := make(map[string]struct{})
	for _, list := range page.Container.JSONDict.CardLists {
		if list == nil {
			continue
		}
		for _, card := range list.CardViews {
			if card == nil || card.Name == "" {
				continue
			}
			seen[card.Name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	slog.Info("EDHREC recommendations loaded", slog.String("commander", commander), slog.Int("cards", len(names)))
	return names, nil
}
