package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/stockpulse/stockpulse/internal/domain"
	"golang.org/x/time/rate"
)

const (
	threadsAPIBase   = "https://graph.threads.net/v1.0"
	threadsPageLimit = 50
)

// ThreadsAdapter reads recent posts through the Threads Graph API using a
// long-lived user access token.
type ThreadsAdapter struct {
	accessToken string
	client      *http.Client
	limiter     *rate.Limiter

	apiBase string
}

func NewThreadsAdapter(accessToken string) *ThreadsAdapter {
	return &ThreadsAdapter{
		accessToken: accessToken,
		client:      &http.Client{Timeout: 15 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(1), 3),
		apiBase:     threadsAPIBase,
	}
}

func (t *ThreadsAdapter) Network() domain.Network { return domain.NetworkThreads }

func (t *ThreadsAdapter) FetchNew(ctx context.Context) ([]domain.RawPost, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, newFetchError(domain.NetworkThreads, "rate wait", err)
	}

	q := url.Values{
		"fields":       {"id,text,username,permalink,timestamp"},
		"limit":        {fmt.Sprint(threadsPageLimit)},
		"access_token": {t.accessToken},
	}
	endpoint := t.apiBase + "/me/threads?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, newFetchError(domain.NetworkThreads, "request", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, newFetchError(domain.NetworkThreads, "request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newFetchError(domain.NetworkThreads, "request", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body struct {
		Data []struct {
			ID        string `json:"id"`
			Text      string `json:"text"`
			Username  string `json:"username"`
			Permalink string `json:"permalink"`
			Timestamp string `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, newFetchError(domain.NetworkThreads, "decode", err)
	}

	posts := make([]domain.RawPost, 0, len(body.Data))
	for _, item := range body.Data {
		if item.ID == "" {
			continue
		}
		createdAt, err := time.Parse(time.RFC3339, item.Timestamp)
		if err != nil {
			// The Graph API uses +0000 without a colon in some responses.
			createdAt, err = time.Parse("2006-01-02T15:04:05-0700", item.Timestamp)
			if err != nil {
				continue
			}
		}
		posts = append(posts, domain.RawPost{
			SourceID:  item.ID,
			Network:   domain.NetworkThreads,
			Author:    item.Username,
			URL:       item.Permalink,
			Text:      item.Text,
			CreatedAt: createdAt.UTC(),
		})
	}
	return posts, nil
}
