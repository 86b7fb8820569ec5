// Package dispatcher runs the scheduled daily-deal notification pass:
// scrape the featured deal, convert prices per chat, fan alerts out to
// every subscribed chat, then mention watchlisting users. Each run is
// independent; nothing is persisted between runs.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pupbodhi/dealbot/config"
	"pupbodhi/dealbot/internal/currency"
	"pupbodhi/dealbot/internal/scraper"
	"pupbodhi/dealbot/internal/store"
	"pupbodhi/dealbot/logger"
	"pupbodhi/dealbot/services/publisher"
)

// baseCurrency is the deal site's pricing currency.
const baseCurrency = "GBP"

// API is the slice of the Telegram Bot API the dispatcher uses. It is
// satisfied by *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Dispatcher drives the daily notification runs.
type Dispatcher struct {
	api     API
	cfg     config.Config
	store   *store.Store
	scraper *scraper.Scraper
	pub     publisher.Publisher
	log     *logger.Logger
}

// New creates a Dispatcher. pub may be nil, which disables deal event
// publishing.
func New(api API, cfg config.Config, st *store.Store, sc *scraper.Scraper, pub publisher.Publisher) *Dispatcher {
	return &Dispatcher{
		api:     api,
		cfg:     cfg,
		store:   st,
		scraper: sc,
		pub:     pub,
		log:     logger.ForDispatcher(),
	}
}

// Start fires Run once a day at the configured notify time until the
// context is cancelled. Store failures terminate the process.
func (d *Dispatcher) Start(ctx context.Context) {
	for {
		next := nextFireTime(time.Now().UTC(), d.cfg.NotifyTime)
		d.log.Info().Time("next_run", next).Msg("Dispatcher scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := d.Run(ctx); err != nil {
			d.log.WithError(err).Fatal().Msg("Store failure")
		}
	}
}

// Run executes a single notification pass. The returned error is
// non-nil only for store failures; scrape and delivery failures are
// handled in place and never propagate.
func (d *Dispatcher) Run(ctx context.Context) error {
	subs, err := d.store.LoadSubscriptions()
	if err != nil {
		return err
	}
	watchlist, err := d.store.LoadWatchlist()
	if err != nil {
		return err
	}

	deal, err := d.scraper.FetchFeaturedDeal()
	if err != nil {
		d.reportFailure(err)
		return nil
	}

	d.publish(deal)

	rates, err := d.scraper.FetchExchangeRates(baseCurrency)
	if err != nil {
		d.reportFailure(err)
		return nil
	}

	chatKeys := sortedChatKeys(subs)
	for _, key := range chatKeys {
		chatID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		if err := d.send(chatID, BuildDealMessage(deal, subs[key], rates)); err != nil {
			// best effort: one unreachable chat must not stall the rest
			d.log.WithError(err).Warn().Int64("chat_id", chatID).Msg("Deal alert delivery failed")
		}
	}

	d.log.Info().
		Int("chats", len(chatKeys)).
		Int("product_id", deal.ID).
		Str("name", deal.Name).
		Msg("Daily deal alerts dispatched")

	entry, ok := watchlist[store.ItemKey(deal.ID)]
	if !ok {
		return nil
	}

	// Give the platform's chat membership caches a moment to settle
	// before the member lookups.
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(d.cfg.MentionDelay):
	}

	for _, key := range chatKeys {
		chatID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		mentions := d.memberMentions(chatID, entry.Users)
		if len(mentions) == 0 {
			continue
		}
		text := watchlistAlertText(mentions)
		if err := d.send(chatID, text); err != nil {
			d.log.WithError(err).Warn().Int64("chat_id", chatID).Msg("Watchlist alert delivery failed")
		}
	}

	d.log.Info().Int("product_id", deal.ID).Msg("Watchlist alerts dispatched")
	return nil
}

// memberMentions returns @username mentions for the watchlisting users
// that are members of the chat. Lookup failures drop the user silently.
func (d *Dispatcher) memberMentions(chatID int64, users []store.User) []string {
	var mentions []string
	for _, u := range users {
		member, err := d.api.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
				ChatID: chatID,
				UserID: u.ID,
			},
		})
		if err != nil {
			continue
		}
		if member.HasLeft() || member.WasKicked() {
			continue
		}
		mentions = append(mentions, "@"+u.Username)
	}
	return mentions
}

// publish exports the deal event to the configured stream, best effort.
func (d *Dispatcher) publish(deal *scraper.Deal) {
	if d.pub == nil {
		return
	}
	data, err := json.Marshal(deal)
	if err != nil {
		d.log.WithError(err).Warn().Msg("Encoding deal event failed")
		return
	}
	if err := d.pub.Publish(data); err != nil {
		d.log.WithError(err).Warn().Msg("Publishing deal event failed")
	}
}

// reportFailure logs a scrape failure and notifies the operator chat.
func (d *Dispatcher) reportFailure(err error) {
	d.log.WithError(err).Error().Msg("Daily deal check failed")
	if d.cfg.OperatorChatID == 0 {
		return
	}
	text := fmt.Sprintf("The daily deal check is broken!\n\n<code>%s</code>\n\n<i>Please check the service logs for more details.</i>",
		html.EscapeString(err.Error()))
	if sendErr := d.send(d.cfg.OperatorChatID, text); sendErr != nil {
		d.log.WithError(sendErr).Warn().Msg("Operator alert delivery failed")
	}
}

func (d *Dispatcher) send(chatID int64, text string) error {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	_, err := d.api.Send(m)
	return err
}

// BuildDealMessage renders the alert for one chat: the GBP price pair
// followed by one line per configured currency, converted with the
// fetched rates and formatted to two decimals with the currency symbol.
func BuildDealMessage(deal *scraper.Deal, currencies []string, rates map[string]float64) string {
	var b strings.Builder
	b.WriteString("<i>A new Libidex Daily Deal has been posted!</i>\n\n")
	fmt.Fprintf(&b, "<b><a href=%q>%s (#%d)</a></b>\n", deal.URL, deal.Name, deal.ID)
	fmt.Fprintf(&b, "GBP <s>£%s</s> -> £%s", formatPrice(deal.OriginalPrice), formatPrice(deal.NewPrice))

	for _, code := range currencies {
		code = strings.ToUpper(code)
		rate, ok := rates[code]
		if !ok {
			continue
		}
		sym := currency.Symbol(code)
		fmt.Fprintf(&b, "\n%s %s%.2f -> %s%.2f", code, sym, deal.OriginalPrice*rate, sym, deal.NewPrice*rate)
	}

	return b.String()
}

func watchlistAlertText(mentions []string) string {
	return "<b>This item is on someone's watchlist!</b>\n\n" + strings.Join(mentions, "\n")
}

// formatPrice renders a GBP price without forced decimals (50, 29.99).
func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// sortedChatKeys returns subscription keys in ascending numeric chat id
// order, standing in for the JSON document's key order.
func sortedChatKeys(subs store.Subscriptions) []string {
	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.ParseInt(keys[i], 10, 64)
		b, _ := strconv.ParseInt(keys[j], 10, 64)
		return a < b
	})
	return keys
}

// nextFireTime computes the next daily fire time at hhmm UTC, assuming
// hhmm was validated at startup.
func nextFireTime(now time.Time, hhmm string) time.Time {
	t, _ := time.Parse("15:04", hhmm)
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
