// Package boost keeps the history of paid post boosts. A boost highlights a
// Farcaster, X or Base app post; the newest MaxHistory boosts are kept in a
// kvstore key so the history survives restarts.
package boost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jmerrifield20/SignalMiner/internal/kvstore"
	"go.uber.org/zap"
)

const (
	// DefaultKey is the storage key of the history.
	DefaultKey = "boostedPosts"
	// MaxHistory is the number of boosts kept, newest first.
	MaxHistory = 10
)

// ErrURL is returned for a post URL that is not an absolute http(s) URL.
var ErrURL = errors.New("post URL must be an absolute http or https URL")

// Platform names the network a boosted post lives on.
const (
	PlatformFarcaster = "Farcaster"
	PlatformX         = "Twitter / X"
	PlatformBase      = "Base app"
	PlatformLink      = "Link"
)

// Post is one boosted post.
type Post struct {
	URL      string    `json:"url"`
	Platform string    `json:"platform"`
	Host     string    `json:"host"`
	Token    string    `json:"token,omitempty"`
	TxHash   string    `json:"tx_hash,omitempty"`
	At       time.Time `json:"at"`
}

// ParseURL validates raw and classifies the post by host.
func ParseURL(raw string) (Post, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return Post{}, fmt.Errorf("%w: %q", ErrURL, raw)
	}
	host := strings.ToLower(u.Hostname())
	return Post{URL: raw, Platform: platformOf(host), Host: host}, nil
}

func platformOf(host string) string {
	switch {
	case strings.Contains(host, "warpcast"), strings.Contains(host, "farcaster"):
		return PlatformFarcaster
	case host == "x.com", strings.HasSuffix(host, ".x.com"),
		strings.Contains(host, "twitter.com"):
		return PlatformX
	case strings.Contains(host, "base"):
		return PlatformBase
	default:
		return PlatformLink
	}
}

// History is the bounded list of recent boosts. It is safe for concurrent use.
type History struct {
	mu    sync.Mutex
	posts []Post
	store kvstore.Store
	key   string
}

// OpenHistory loads the history under key. A missing or unreadable value
// yields an empty history.
func OpenHistory(ctx context.Context, store kvstore.Store, key string, logger *zap.Logger) *History {
	if key == "" {
		key = DefaultKey
	}
	h := &History{store: store, key: key}

	data, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		return h
	case err != nil:
		logger.Warn("boost history unreadable, starting empty", zap.String("key", key), zap.Error(err))
		return h
	}
	posts, err := decode(data)
	if err != nil {
		logger.Warn("boost history corrupt, starting empty", zap.String("key", key), zap.Error(err))
		return h
	}
	h.posts = posts
	return h
}

// decode accepts the current record list and the older plain URL list.
func decode(data []byte) ([]Post, error) {
	var posts []Post
	if err := json.Unmarshal(data, &posts); err == nil {
		return trim(posts), nil
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, err
	}
	posts = make([]Post, 0, len(urls))
	for _, raw := range urls {
		p, err := ParseURL(raw)
		if err != nil {
			continue
		}
		posts = append(posts, p)
	}
	return trim(posts), nil
}

func trim(posts []Post) []Post {
	if len(posts) > MaxHistory {
		posts = posts[:MaxHistory]
	}
	return posts
}

// Add records p as the newest boost and persists the history. On a write
// error the post is still kept in memory.
func (h *History) Add(ctx context.Context, p Post) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	posts := make([]Post, 0, MaxHistory)
	posts = append(posts, p)
	posts = append(posts, h.posts...)
	h.posts = trim(posts)

	data, err := json.Marshal(h.posts)
	if err != nil {
		return fmt.Errorf("encode boost history: %w", err)
	}
	if err := h.store.Set(ctx, h.key, data); err != nil {
		return fmt.Errorf("persist boost history: %w", err)
	}
	return nil
}

// List returns the recent boosts, newest first.
func (h *History) List() []Post {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Post, len(h.posts))
	copy(out, h.posts)
	return out
}
