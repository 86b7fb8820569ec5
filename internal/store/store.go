// Package store persists the bot's two JSON documents: the per-chat
// subscription records and the shared product watchlist. Both are read
// and written whole; there is no locking, so interleaved command and
// dispatcher runs can lose updates (last write wins).
package store

import (
	"encoding/json"
	"os"
	"strconv"

	"pupbodhi/dealbot/pkg/errors"
)

// User identifies a watchlisting Telegram user.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Item is a watchlist entry for a single product.
type Item struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Users []User `json:"users"`
}

// HasUser reports whether username already watchlists the item.
func (i Item) HasUser(username string) bool {
	for _, u := range i.Users {
		if u.Username == username {
			return true
		}
	}
	return false
}

// WithoutUser returns the item's users with username removed.
func (i Item) WithoutUser(username string) []User {
	users := make([]User, 0, len(i.Users))
	for _, u := range i.Users {
		if u.Username != username {
			users = append(users, u)
		}
	}
	return users
}

// Subscriptions maps chat ID (decimal string) to the chat's ordered
// conversion currency codes.
type Subscriptions map[string][]string

// Watchlist maps product ID (decimal string) to its entry.
type Watchlist map[string]Item

// ChatKey renders a Telegram chat ID as a store key.
func ChatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// ItemKey renders a product ID as a store key.
func ItemKey(productID int) string {
	return strconv.Itoa(productID)
}

// Store reads and writes the two JSON documents. Callers reload before
// read and save after write; the Store itself caches nothing.
type Store struct {
	subscriptionsPath string
	watchlistPath     string
}

// New creates a Store over the two file paths, initializing either file
// to an empty JSON object when absent.
func New(subscriptionsPath, watchlistPath string) (*Store, error) {
	s := &Store{
		subscriptionsPath: subscriptionsPath,
		watchlistPath:     watchlistPath,
	}
	for _, path := range []string{subscriptionsPath, watchlistPath} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
				return nil, errors.NewStorage("store", "initializing "+path, err)
			}
		}
	}
	return s, nil
}

// LoadSubscriptions parses the full subscriptions file.
func (s *Store) LoadSubscriptions() (Subscriptions, error) {
	data, err := os.ReadFile(s.subscriptionsPath)
	if err != nil {
		return nil, errors.NewStorage("store", "reading "+s.subscriptionsPath, err)
	}
	subs := make(Subscriptions)
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, errors.NewStorage("store", "parsing "+s.subscriptionsPath, err)
	}
	return subs, nil
}

// SaveSubscriptions rewrites the full subscriptions file.
func (s *Store) SaveSubscriptions(subs Subscriptions) error {
	return s.save(s.subscriptionsPath, subs)
}

// LoadWatchlist parses the full watchlist file.
func (s *Store) LoadWatchlist() (Watchlist, error) {
	data, err := os.ReadFile(s.watchlistPath)
	if err != nil {
		return nil, errors.NewStorage("store", "reading "+s.watchlistPath, err)
	}
	watchlist := make(Watchlist)
	if err := json.Unmarshal(data, &watchlist); err != nil {
		return nil, errors.NewStorage("store", "parsing "+s.watchlistPath, err)
	}
	return watchlist, nil
}

// SaveWatchlist rewrites the full watchlist file.
func (s *Store) SaveWatchlist(w Watchlist) error {
	return s.save(s.watchlistPath, w)
}

func (s *Store) save(path string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.NewStorage("store", "encoding "+path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewStorage("store", "writing "+path, err)
	}
	return nil
}
