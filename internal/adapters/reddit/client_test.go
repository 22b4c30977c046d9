package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/selivandex/coinpulse/internal/adapters/config"
	"github.com/selivandex/coinpulse/pkg/logger"
	"github.com/selivandex/coinpulse/pkg/models"
	"github.com/selivandex/coinpulse/pkg/pipeerrors"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", ""); err != nil {
		panic(err)
	}
	m.Run()
}

type redditPost struct {
	id       string
	title    string
	selftext string
	created  time.Time
}

func listingJSON(after string, posts ...redditPost) []byte {
	children := make([]map[string]any, 0, len(posts))
	for _, p := range posts {
		children = append(children, map[string]any{
			"kind": "t3",
			"data": map[string]any{
				"id":           p.id,
				"title":        p.title,
				"selftext":     p.selftext,
				"created_utc":  float64(p.created.Unix()),
				"upvote_ratio": 0.9,
				"ups":          10,
				"downs":        1,
				"score":        9,
			},
		})
	}
	body, _ := json.Marshal(map[string]any{
		"data": map[string]any{"after": after, "children": children},
	})
	return body
}

func commentsJSON(bodies ...string) []byte {
	children := make([]map[string]any, 0, len(bodies)+1)
	for _, b := range bodies {
		children = append(children, map[string]any{
			"kind": "t1",
			"data": map[string]any{"body": b},
		})
	}
	children = append(children, map[string]any{
		"kind": "more",
		"data": map[string]any{"body": ""},
	})

	payload := []map[string]any{
		{"data": map[string]any{"children": []any{}}},
		{"data": map[string]any{"children": children}},
	}
	body, _ := json.Marshal(payload)
	return body
}

func writeToken(w http.ResponseWriter) {
	fmt.Fprint(w, `{"access_token": "test-token", "expires_in": 3600}`)
}

// newTestClient points a client at the test servers and shrinks the retry
// delays so failure paths run fast
func newTestClient(authURL, apiURL string) *Client {
	c := NewClient(&config.RedditConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		UserAgent:    "coinpulse-test",
		Username:     "user",
		Password:     "pass",
		ListingLimit: 1000,
		PageSize:     100,
	})
	c.authURL = authURL
	c.apiURL = apiURL
	c.policy.Delay = time.Millisecond
	c.policy.RateLimitDelay = time.Millisecond
	return c
}

func TestClient_Search(t *testing.T) {
	window := models.TimeWindow{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	inside := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	outside := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.FormValue("grant_type") != "password" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeToken(w)
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.URL.Path == "/r/CryptoCurrency/new":
			w.Write(listingJSON("",
				redditPost{id: "p1", title: "BTC hits new high", created: inside},
				redditPost{id: "p2", title: "BTC and ETH both pump", created: inside},
				redditPost{id: "p3", title: "BTC from february", created: outside},
				redditPost{id: "p4", title: "unrelated meme", created: inside},
			))
		case r.URL.Path == "/comments/p1":
			w.Write(commentsJSON("to the moon", "hodl"))
		default:
			w.Write(commentsJSON())
		}
	}))
	defer api.Close()

	c := newTestClient(auth.URL, api.URL)

	posts, err := c.Search(context.Background(), "CryptoCurrency", []string{"BTC", "ETH"}, window)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	// BTC matches p1 and p2, ETH matches p2 again: one row per keyword match
	if len(posts) != 3 {
		t.Fatalf("Expected 3 keyword matches, got %d", len(posts))
	}

	ids := make(map[string]int)
	for _, p := range posts {
		ids[p.ID]++
	}
	if ids["p1"] != 1 || ids["p2"] != 2 {
		t.Errorf("Expected p1 once and p2 twice, got %v", ids)
	}
	if ids["p3"] != 0 {
		t.Error("Post outside the window must be filtered")
	}
	if ids["p4"] != 0 {
		t.Error("Post without a keyword match must be filtered")
	}

	for _, p := range posts {
		if p.ID == "p1" {
			if len(p.Comments) != 2 || p.Comments[0] != "to the moon" {
				t.Errorf("Expected harvested comments for p1, got %v", p.Comments)
			}
		}
	}
}

func TestClient_Search_NoKeywords(t *testing.T) {
	c := newTestClient("http://unused", "http://unused")

	window := models.TimeWindow{Start: time.Now().Add(-time.Hour), End: time.Now()}

	_, err := c.Search(context.Background(), "CryptoCurrency", []string{"", "  "}, window)
	if !pipeerrors.Is(err, pipeerrors.ErrNoKeywords) {
		t.Fatalf("Expected ErrNoKeywords, got %v", err)
	}
}

func TestClient_Search_NoResults(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w)
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(listingJSON(""))
	}))
	defer api.Close()

	c := newTestClient(auth.URL, api.URL)

	window := models.TimeWindow{Start: time.Now().Add(-time.Hour), End: time.Now()}

	_, err := c.Search(context.Background(), "CryptoCurrency", []string{"BTC"}, window)
	if !pipeerrors.Is(err, pipeerrors.ErrNoResults) {
		t.Fatalf("Expected ErrNoResults, got %v", err)
	}
}

func TestClient_CommentCap(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w)
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/comments/p1" {
			w.Write(commentsJSON("c1", "c2", "c3", "c4", "c5", "c6", "c7"))
			return
		}
		w.Write(listingJSON("", redditPost{id: "p1", title: "BTC post", created: time.Now().Add(-time.Minute)}))
	}))
	defer api.Close()

	c := newTestClient(auth.URL, api.URL)

	window := models.TimeWindow{Start: time.Now().Add(-time.Hour), End: time.Now()}

	posts, err := c.Search(context.Background(), "CryptoCurrency", []string{"BTC"}, window)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(posts[0].Comments) != models.MaxCommentsPerPost {
		t.Errorf("Expected %d comments, got %d", models.MaxCommentsPerPost, len(posts[0].Comments))
	}
}

func TestClient_CommentFailureIsSoft(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w)
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/comments/p1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write(listingJSON("", redditPost{id: "p1", title: "BTC post", created: time.Now().Add(-time.Minute)}))
	}))
	defer api.Close()

	c := newTestClient(auth.URL, api.URL)

	window := models.TimeWindow{Start: time.Now().Add(-time.Hour), End: time.Now()}

	posts, err := c.Search(context.Background(), "CryptoCurrency", []string{"BTC"}, window)
	if err != nil {
		t.Fatalf("Search must survive a comment fetch failure, got %v", err)
	}
	if len(posts) != 1 || posts[0].Comments != nil {
		t.Errorf("Expected the post without comments, got %+v", posts)
	}
}

func TestClient_Paging(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w)
	}))
	defer auth.Close()

	created := time.Now().Add(-time.Minute)

	var pages atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/CryptoCurrency/new" {
			w.Write(commentsJSON())
			return
		}
		switch r.URL.Query().Get("after") {
		case "":
			pages.Add(1)
			w.Write(listingJSON("cursor1",
				redditPost{id: "p1", title: "BTC one", created: created},
				redditPost{id: "p2", title: "BTC two", created: created},
			))
		case "cursor1":
			pages.Add(1)
			w.Write(listingJSON("",
				redditPost{id: "p3", title: "BTC three", created: created},
			))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer api.Close()

	c := newTestClient(auth.URL, api.URL)
	c.cfg.PageSize = 2

	window := models.TimeWindow{Start: time.Now().Add(-time.Hour), End: time.Now()}

	posts, err := c.Search(context.Background(), "CryptoCurrency", []string{"BTC"}, window)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(posts) != 3 {
		t.Errorf("Expected posts from both pages, got %d", len(posts))
	}
	if pages.Load() != 2 {
		t.Errorf("Expected 2 listing pages fetched, got %d", pages.Load())
	}
}

func TestClient_RetryOnServerError(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w)
	}))
	defer auth.Close()

	var calls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/CryptoCurrency/new" {
			w.Write(commentsJSON())
			return
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(listingJSON("", redditPost{id: "p1", title: "BTC post", created: time.Now().Add(-time.Minute)}))
	}))
	defer api.Close()

	c := newTestClient(auth.URL, api.URL)

	window := models.TimeWindow{Start: time.Now().Add(-time.Hour), End: time.Now()}

	posts, err := c.Search(context.Background(), "CryptoCurrency", []string{"BTC"}, window)
	if err != nil {
		t.Fatalf("Search failed despite retryable error: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("Expected 1 post after retry, got %d", len(posts))
	}
	if calls.Load() != 2 {
		t.Errorf("Expected exactly 2 listing attempts, got %d", calls.Load())
	}
}

func TestClient_TerminalClientError(t *testing.T) {
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w)
	}))
	defer auth.Close()

	var calls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer api.Close()

	c := newTestClient(auth.URL, api.URL)

	window := models.TimeWindow{Start: time.Now().Add(-time.Hour), End: time.Now()}

	_, err := c.Search(context.Background(), "NoSuchSub", []string{"BTC"}, window)
	if err == nil {
		t.Fatal("Expected error for missing subreddit")
	}

	var upstream *pipeerrors.UpstreamError
	if !pipeerrors.As(err, &upstream) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", upstream.Status)
	}
	if calls.Load() != 1 {
		t.Errorf("Client errors must not be retried, got %d attempts", calls.Load())
	}
}

func TestClient_TokenReuse(t *testing.T) {
	var authCalls atomic.Int32
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		authCalls.Add(1)
		writeToken(w)
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/CryptoCurrency/new" {
			w.Write(commentsJSON())
			return
		}
		w.Write(listingJSON("", redditPost{id: "p1", title: "BTC post", created: time.Now().Add(-time.Minute)}))
	}))
	defer api.Close()

	c := newTestClient(auth.URL, api.URL)

	window := models.TimeWindow{Start: time.Now().Add(-time.Hour), End: time.Now()}

	for i := 0; i < 3; i++ {
		if _, err := c.Search(context.Background(), "CryptoCurrency", []string{"BTC"}, window); err != nil {
			t.Fatalf("Search %d failed: %v", i, err)
		}
	}

	if authCalls.Load() != 1 {
		t.Errorf("Expected a single token exchange, got %d", authCalls.Load())
	}
}
