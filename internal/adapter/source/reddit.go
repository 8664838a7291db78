package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stockpulse/stockpulse/internal/domain"
	"golang.org/x/time/rate"
)

const (
	redditTokenURL = "https://www.reddit.com/api/v1/access_token"
	redditAPIBase  = "https://oauth.reddit.com"

	// Reddit allows 100 requests per minute for OAuth clients; stay well under.
	redditRequestsPerSecond = 1
	redditBurst             = 5

	tokenExpirySlack = time.Minute
)

type RedditConfig struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	Subreddits   []string
	FetchLimit   int
}

// RedditAdapter reads the newest submissions from a set of subreddits using
// app-only OAuth (client credentials). Tokens are cached until shortly before
// expiry.
type RedditAdapter struct {
	cfg     RedditConfig
	client  *http.Client
	limiter *rate.Limiter
	clock   clockwork.Clock

	// overridable for tests
	tokenURL string
	apiBase  string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewRedditAdapter(cfg RedditConfig, clock clockwork.Clock) *RedditAdapter {
	if cfg.FetchLimit <= 0 || cfg.FetchLimit > 100 {
		cfg.FetchLimit = 100
	}
	return &RedditAdapter{
		cfg:      cfg,
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(redditRequestsPerSecond), redditBurst),
		clock:    clock,
		tokenURL: redditTokenURL,
		apiBase:  redditAPIBase,
	}
}

func (r *RedditAdapter) Network() domain.Network { return domain.NetworkReddit }

func (r *RedditAdapter) FetchNew(ctx context.Context) ([]domain.RawPost, error) {
	token, err := r.token(ctx)
	if err != nil {
		return nil, newFetchError(domain.NetworkReddit, "auth", err)
	}

	var posts []domain.RawPost
	for _, subreddit := range r.cfg.Subreddits {
		batch, err := r.fetchSubreddit(ctx, token, subreddit)
		if err != nil {
			return nil, newFetchError(domain.NetworkReddit, "listing "+subreddit, err)
		}
		posts = append(posts, batch...)
	}
	return posts, nil
}

func (r *RedditAdapter) fetchSubreddit(ctx context.Context, token, subreddit string) ([]domain.RawPost, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/r/%s/new?limit=%d&raw_json=1", r.apiBase, url.PathEscape(subreddit), r.cfg.FetchLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	posts := make([]domain.RawPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		if d.ID == "" {
			continue
		}
		posts = append(posts, domain.RawPost{
			SourceID:  d.ID,
			Network:   domain.NetworkReddit,
			Author:    d.Author,
			URL:       "https://www.reddit.com" + d.Permalink,
			Title:     d.Title,
			Text:      d.Selftext,
			CreatedAt: time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}
	return posts, nil
}

// token returns a cached app-only access token, refreshing when it is within
// tokenExpirySlack of expiry.
func (r *RedditAdapter) token(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accessToken != "" && r.clock.Now().Before(r.tokenExpiry.Add(-tokenExpirySlack)) {
		return r.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(r.cfg.ClientID, r.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	r.accessToken = body.AccessToken
	r.tokenExpiry = r.clock.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return r.accessToken, nil
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID         string  `json:"id"`
				Author     string  `json:"author"`
				Title      string  `json:"title"`
				Selftext   string  `json:"selftext"`
				Permalink  string  `json:"permalink"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}
