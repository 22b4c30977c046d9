package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/coinpulse/internal/adapters/config"
	"github.com/selivandex/coinpulse/pkg/logger"
	"github.com/selivandex/coinpulse/pkg/models"
	"github.com/selivandex/coinpulse/pkg/pipeerrors"
	"github.com/selivandex/coinpulse/pkg/retry"
)

const (
	defaultAuthURL = "https://www.reddit.com/api/v1/access_token"
	defaultAPIURL  = "https://oauth.reddit.com"
)

// Client retrieves posts and top comments from a subreddit's newest-first
// listing using the authenticated OAuth API
type Client struct {
	cfg    *config.RedditConfig
	client *http.Client
	policy retry.Policy

	authURL string
	apiURL  string

	token       string
	tokenExpiry time.Time
}

// NewClient creates new Reddit client with the pipeline retry policy:
// 3 attempts, fixed 10s delay, 30s pause on rate limits
func NewClient(cfg *config.RedditConfig) *Client {
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: 15 * time.Second},
		authURL: defaultAuthURL,
		apiURL:  defaultAPIURL,
		policy: retry.Policy{
			MaxAttempts:    3,
			Delay:          10 * time.Second,
			RateLimitDelay: 30 * time.Second,
			IsRetryable:    isRetryable,
			IsRateLimited:  isRateLimited,
		},
	}
}

// isRetryable treats connectivity failures and transient upstream statuses as
// retryable; a bad request for the given subreddit is terminal
func isRetryable(err error) bool {
	var upstream *pipeerrors.UpstreamError
	if pipeerrors.As(err, &upstream) {
		return upstream.Status == http.StatusTooManyRequests || upstream.Status >= 500
	}
	return true
}

func isRateLimited(err error) bool {
	var upstream *pipeerrors.UpstreamError
	return pipeerrors.As(err, &upstream) && upstream.Status == http.StatusTooManyRequests
}

// Search retrieves posts matching any keyword whose creation time falls
// inside the window. A post appears once per matching keyword; duplicates
// across keywords are not deduplicated at this stage.
func (c *Client) Search(ctx context.Context, subreddit string, keywords []string, window models.TimeWindow) ([]models.ForumPost, error) {
	valid := validKeywords(keywords)
	if len(valid) == 0 {
		return nil, pipeerrors.ErrNoKeywords
	}

	listing, err := c.fetchNewest(ctx, subreddit)
	if err != nil {
		return nil, err
	}

	results := make([]models.ForumPost, 0)
	for _, keyword := range valid {
		lowered := strings.ToLower(keyword)
		matched := 0

		for _, post := range listing {
			if !window.Contains(post.Created) {
				continue
			}
			if !strings.Contains(strings.ToLower(post.Title), lowered) {
				continue
			}
			results = append(results, post)
			matched++
		}

		logger.Debug("keyword filter applied",
			zap.String("subreddit", subreddit),
			zap.String("keyword", keyword),
			zap.Int("matched", matched),
		)
	}

	if len(results) == 0 {
		return nil, pipeerrors.Wrapf(pipeerrors.ErrNoResults, "r/%s, keywords %v", subreddit, valid)
	}

	// Harvest top comments for retained posts only
	for i := range results {
		comments, err := c.fetchTopComments(ctx, results[i].ID)
		if err != nil {
			logger.Warn("failed to fetch comments, continuing without",
				zap.String("post_id", results[i].ID),
				zap.Error(err),
			)
			continue
		}
		results[i].Comments = comments
	}

	logger.Info("retrieved forum posts",
		zap.String("subreddit", subreddit),
		zap.Int("listing_size", len(listing)),
		zap.Int("retained", len(results)),
	)

	return results, nil
}

// fetchNewest pages through the newest-first listing up to the configured
// budget. Recall is bounded to the most recent N posts by design.
func (c *Client) fetchNewest(ctx context.Context, subreddit string) ([]models.ForumPost, error) {
	posts := make([]models.ForumPost, 0, c.cfg.ListingLimit)
	after := ""

	for len(posts) < c.cfg.ListingLimit {
		page, next, err := c.fetchListingPage(ctx, subreddit, after)
		if err != nil {
			return nil, err
		}

		posts = append(posts, page...)
		if next == "" || len(page) == 0 {
			break
		}
		after = next
	}

	if len(posts) > c.cfg.ListingLimit {
		posts = posts[:c.cfg.ListingLimit]
	}

	return posts, nil
}

type listingResponse struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				CreatedUTC  float64 `json:"created_utc"`
				UpvoteRatio float64 `json:"upvote_ratio"`
				Ups         int     `json:"ups"`
				Downs       int     `json:"downs"`
				Score       int     `json:"score"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (c *Client) fetchListingPage(ctx context.Context, subreddit, after string) ([]models.ForumPost, string, error) {
	endpoint := fmt.Sprintf("%s/r/%s/new?limit=%d&raw_json=1", c.apiURL, url.PathEscape(subreddit), c.cfg.PageSize)
	if after != "" {
		endpoint += "&after=" + url.QueryEscape(after)
	}

	var result listingResponse
	err := c.policy.Do(ctx, "reddit listing", func(ctx context.Context) error {
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &result)
	})
	if err != nil {
		return nil, "", err
	}

	posts := make([]models.ForumPost, 0, len(result.Data.Children))
	for _, child := range result.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		data := child.Data
		posts = append(posts, models.ForumPost{
			ID:          data.ID,
			Title:       data.Title,
			Selftext:    data.Selftext,
			Created:     time.Unix(int64(data.CreatedUTC), 0).UTC(),
			UpvoteRatio: data.UpvoteRatio,
			Ups:         data.Ups,
			Downs:       data.Downs,
			Score:       data.Score,
		})
	}

	return posts, result.Data.After, nil
}

// fetchTopComments returns up to MaxCommentsPerPost top-level comment bodies
// in listing order, skipping collapsed "load more" placeholders
func (c *Client) fetchTopComments(ctx context.Context, postID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/comments/%s?limit=%d&depth=1&raw_json=1",
		c.apiURL, url.PathEscape(postID), models.MaxCommentsPerPost*2)

	var listings []struct {
		Data struct {
			Children []struct {
				Kind string `json:"kind"`
				Data struct {
					Body string `json:"body"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}

	err := c.policy.Do(ctx, "reddit comments", func(ctx context.Context) error {
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &listings)
	})
	if err != nil {
		return nil, err
	}

	// Response is [post listing, comment listing]
	if len(listings) < 2 {
		return nil, nil
	}

	comments := make([]string, 0, models.MaxCommentsPerPost)
	for _, child := range listings[1].Data.Children {
		if child.Kind != "t1" {
			// "more" placeholders and anything non-comment
			continue
		}
		comments = append(comments, child.Data.Body)
		if len(comments) == models.MaxCommentsPerPost {
			break
		}
	}

	return comments, nil
}

// get issues one authenticated API request, refreshing the token as needed,
// and translates failures into the pipeline error taxonomy
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, pipeerrors.Wrap(pipeerrors.ErrConnectivity, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, pipeerrors.NewUpstreamError("Reddit", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// ensureToken performs the password-grant OAuth exchange, reusing the token
// until shortly before expiry
func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, "POST", c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}

	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return pipeerrors.Wrap(pipeerrors.ErrConnectivity, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return pipeerrors.NewUpstreamError("Reddit auth", resp.StatusCode, string(body))
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}
	if token.AccessToken == "" {
		return pipeerrors.NewUpstreamError("Reddit auth", resp.StatusCode, "empty access token")
	}

	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)

	return nil
}

// validKeywords drops blank entries, preserving order
func validKeywords(keywords []string) []string {
	valid := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if strings.TrimSpace(k) != "" {
			valid = append(valid, k)
		}
	}
	return valid
}
