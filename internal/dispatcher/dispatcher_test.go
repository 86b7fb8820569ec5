package dispatcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pupbodhi/dealbot/config"
	"pupbodhi/dealbot/internal/scraper"
	"pupbodhi/dealbot/internal/store"
)

type fakeAPI struct {
	sent      []tgbotapi.MessageConfig
	members   map[int64]map[int64]tgbotapi.ChatMember
	failChats map[int64]bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, fmt.Errorf("unexpected chattable %T", c)
	}
	if f.failChats[m.ChatID] {
		return tgbotapi.Message{}, fmt.Errorf("forbidden: bot was blocked by the user")
	}
	f.sent = append(f.sent, m)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	chat, ok := f.members[cfg.ChatID]
	if !ok {
		return tgbotapi.ChatMember{}, fmt.Errorf("chat not found")
	}
	member, ok := chat[cfg.UserID]
	if !ok {
		return tgbotapi.ChatMember{}, fmt.Errorf("user not found")
	}
	return member, nil
}

func (f *fakeAPI) sentTo(chatID int64) []string {
	var texts []string
	for _, m := range f.sent {
		if m.ChatID == chatID {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

// dealSite serves a home page whose promotional banner links to a
// featured product priced £50 -> £30, plus the exchange-rate endpoint.
func dealSite(t *testing.T, rates string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div class="promtion-banner"><a href="/neo-widget">Daily Deal</a></div>
		</body></html>`)
	})
	mux.HandleFunc("/neo-widget", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<h1 class="page-title"><span>Neo Widget</span></h1>
			<div class="price-final_price" data-product-id="42">
				<div class="old-price"><span class="price">£50.00</span></div>
				<div class="special-price"><span class="price">£30.00</span></div>
			</div>
		</body></html>`)
	})
	mux.HandleFunc("/rates/GBP", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rates)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T, subscriptions, watchlist string) *store.Store {
	t.Helper()

	dir := t.TempDir()
	subsPath := filepath.Join(dir, "database.json")
	watchPath := filepath.Join(dir, "watchlist.json")
	require.NoError(t, os.WriteFile(subsPath, []byte(subscriptions), 0644))
	require.NoError(t, os.WriteFile(watchPath, []byte(watchlist), 0644))

	st, err := store.New(subsPath, watchPath)
	require.NoError(t, err)
	return st
}

func newTestDispatcher(t *testing.T, api *fakeAPI, st *store.Store, siteURL string) *Dispatcher {
	t.Helper()

	cfg := config.Config{
		NotifyTime:   "21:00",
		MentionDelay: 0,
	}
	sc := scraper.New(siteURL, siteURL+"/rates", nil, 0)
	return New(api, cfg, st, sc, nil)
}

func TestRunSendsConvertedDealAlert(t *testing.T) {
	srv := dealSite(t, `{"result":"success","rates":{"GBP":1,"JPY":190}}`)
	api := &fakeAPI{}
	st := newTestStore(t, `{"100": ["GBP", "JPY"]}`, `{}`)
	d := newTestDispatcher(t, api, st, srv.URL)

	require.NoError(t, d.Run(context.Background()))

	texts := api.sentTo(100)
	require.Len(t, texts, 1)
	expected := "<i>A new Libidex Daily Deal has been posted!</i>\n\n" +
		"<b><a href=\"" + srv.URL + "/neo-widget\">Neo Widget (#42)</a></b>\n" +
		"GBP <s>£50</s> -> £30\n" +
		"GBP £50.00 -> £30.00\n" +
		"JPY ¥9500.00 -> ¥5700.00"
	assert.Equal(t, expected, texts[0])
}

func TestRunWithoutCurrenciesSendsOnlyBasePriceLine(t *testing.T) {
	srv := dealSite(t, `{"rates":{"GBP":1}}`)
	api := &fakeAPI{}
	st := newTestStore(t, `{"100": []}`, `{}`)
	d := newTestDispatcher(t, api, st, srv.URL)

	require.NoError(t, d.Run(context.Background()))

	texts := api.sentTo(100)
	require.Len(t, texts, 1)
	assert.True(t, strings.HasSuffix(texts[0], "GBP <s>£50</s> -> £30"))
}

func TestRunMentionsWatchlistingMembers(t *testing.T) {
	srv := dealSite(t, `{"rates":{"GBP":1}}`)
	api := &fakeAPI{
		members: map[int64]map[int64]tgbotapi.ChatMember{
			100: {
				7: {Status: "member"},
				8: {Status: "left"},
			},
		},
	}
	st := newTestStore(t, `{"100": []}`, `{
		"42": {
			"id": 42,
			"name": "Neo Widget",
			"url": "https://example.com/neo-widget",
			"users": [
				{"id": 7, "username": "alice"},
				{"id": 8, "username": "bob"},
				{"id": 9, "username": "carol"}
			]
		}
	}`)
	d := newTestDispatcher(t, api, st, srv.URL)

	require.NoError(t, d.Run(context.Background()))

	texts := api.sentTo(100)
	require.Len(t, texts, 2)
	assert.Equal(t, "<b>This item is on someone's watchlist!</b>\n\n@alice", texts[1])
}

func TestRunSkipsWatchlistAlertWithoutPresentMembers(t *testing.T) {
	srv := dealSite(t, `{"rates":{"GBP":1}}`)
	api := &fakeAPI{
		members: map[int64]map[int64]tgbotapi.ChatMember{
			100: {8: {Status: "kicked"}},
		},
	}
	st := newTestStore(t, `{"100": []}`, `{
		"42": {"id": 42, "name": "Neo Widget", "url": "u", "users": [{"id": 8, "username": "bob"}]}
	}`)
	d := newTestDispatcher(t, api, st, srv.URL)

	require.NoError(t, d.Run(context.Background()))
	assert.Len(t, api.sentTo(100), 1)
}

func TestRunContinuesAfterPerChatSendFailure(t *testing.T) {
	srv := dealSite(t, `{"rates":{"GBP":1}}`)
	api := &fakeAPI{failChats: map[int64]bool{100: true}}
	st := newTestStore(t, `{"100": [], "200": []}`, `{}`)
	d := newTestDispatcher(t, api, st, srv.URL)

	require.NoError(t, d.Run(context.Background()))
	assert.Empty(t, api.sentTo(100))
	assert.Len(t, api.sentTo(200), 1)
}

func TestRunReportsScrapeFailureToOperator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>no banner today</body></html>`)
	}))
	defer srv.Close()

	api := &fakeAPI{}
	st := newTestStore(t, `{"100": ["GBP"]}`, `{}`)
	d := newTestDispatcher(t, api, st, srv.URL)
	d.cfg.OperatorChatID = 999

	require.NoError(t, d.Run(context.Background()))

	assert.Empty(t, api.sentTo(100))
	texts := api.sentTo(999)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "The daily deal check is broken!")
	assert.Contains(t, texts[0], "<code>")
}

func TestRunWithoutOperatorSwallowsScrapeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer srv.Close()

	api := &fakeAPI{}
	st := newTestStore(t, `{"100": ["GBP"]}`, `{}`)
	d := newTestDispatcher(t, api, st, srv.URL)

	require.NoError(t, d.Run(context.Background()))
	assert.Empty(t, api.sent)
}

func TestBuildDealMessageSkipsUnknownRates(t *testing.T) {
	deal := &scraper.Deal{ID: 7, Name: "Catsuit", URL: "https://example.com/catsuit", OriginalPrice: 120, NewPrice: 99.5}
	rates := map[string]float64{"USD": 1.25}

	msg := BuildDealMessage(deal, []string{"USD", "XXX"}, rates)

	assert.Contains(t, msg, "GBP <s>£120</s> -> £99.5")
	assert.Contains(t, msg, "USD $150.00 -> $124.38")
	assert.NotContains(t, msg, "XXX")
}

func TestNextFireTime(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	next := nextFireTime(now, "21:00")
	assert.Equal(t, time.Date(2025, 3, 10, 21, 0, 0, 0, time.UTC), next)

	next = nextFireTime(now, "09:30")
	assert.Equal(t, time.Date(2025, 3, 11, 9, 30, 0, 0, time.UTC), next)

	// exactly at the fire time rolls over to the next day
	next = nextFireTime(time.Date(2025, 3, 10, 21, 0, 0, 0, time.UTC), "21:00")
	assert.Equal(t, time.Date(2025, 3, 11, 21, 0, 0, 0, time.UTC), next)
}
