package bot

import (
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pupbodhi/dealbot/internal/currency"
	"pupbodhi/dealbot/internal/store"
)

// handleStart subscribes the chat to daily-deal alerts, assigning the
// default currency list when the chat is new. Idempotent.
func (h *Handler) handleStart(msg *tgbotapi.Message) {
	subs, err := h.store.LoadSubscriptions()
	if err != nil {
		h.fatal(err)
	}

	key := store.ChatKey(msg.Chat.ID)
	if _, ok := subs[key]; !ok {
		subs[key] = currency.DefaultList()
	}

	h.send(msg.Chat.ID, welcomeText(msg.Chat))

	if err := h.store.SaveSubscriptions(subs); err != nil {
		h.fatal(err)
	}
}

// handleDelete unsubscribes the chat unconditionally.
func (h *Handler) handleDelete(msg *tgbotapi.Message) {
	subs, err := h.store.LoadSubscriptions()
	if err != nil {
		h.fatal(err)
	}

	delete(subs, store.ChatKey(msg.Chat.ID))

	h.send(msg.Chat.ID, unsubscribedText)

	if err := h.store.SaveSubscriptions(subs); err != nil {
		h.fatal(err)
	}
}

// handleAdd puts the caller on the watchlist for the item at the given
// URL, creating the entry on first add. Adding twice is a no-op.
func (h *Handler) handleAdd(msg *tgbotapi.Message) {
	if !h.requireSubscription(msg.Chat.ID) || msg.From == nil {
		return
	}

	arg := strings.TrimSpace(msg.CommandArguments())
	if !h.isSiteURL(arg) {
		h.reply(msg, usageAddText)
		return
	}

	meta, err := h.scraper.FetchItemMetadata(arg)
	if err != nil {
		h.log.WithError(err).Warn().Str("url", arg).Msg("Item metadata fetch failed")
		h.reply(msg, parseFailText)
		return
	}

	watchlist, err := h.store.LoadWatchlist()
	if err != nil {
		h.fatal(err)
	}

	key := store.ItemKey(meta.ID)
	item, ok := watchlist[key]
	if !ok {
		item = store.Item{ID: meta.ID, Name: meta.Name, URL: arg, Users: []store.User{}}
	}
	if !item.HasUser(msg.From.UserName) {
		item.Users = append(item.Users, store.User{ID: msg.From.ID, Username: msg.From.UserName})
	}
	watchlist[key] = item

	if err := h.store.SaveWatchlist(watchlist); err != nil {
		h.fatal(err)
	}

	h.reply(msg, addedText(item.Name, item.ID, arg))
}

// handleRemove drops the caller from the item's watchlist, deleting the
// entry when no watchers remain.
func (h *Handler) handleRemove(msg *tgbotapi.Message) {
	if !h.requireSubscription(msg.Chat.ID) || msg.From == nil {
		return
	}

	arg := strings.TrimSpace(msg.CommandArguments())
	if !h.isSiteURL(arg) {
		h.reply(msg, usageRemoveText)
		return
	}

	meta, err := h.scraper.FetchItemMetadata(arg)
	if err != nil {
		h.log.WithError(err).Warn().Str("url", arg).Msg("Item metadata fetch failed")
		h.reply(msg, parseFailText)
		return
	}

	watchlist, err := h.store.LoadWatchlist()
	if err != nil {
		h.fatal(err)
	}

	key := store.ItemKey(meta.ID)
	item, ok := watchlist[key]
	if !ok {
		h.reply(msg, parseFailText)
		return
	}

	remaining := item.WithoutUser(msg.From.UserName)
	if len(remaining) == 0 {
		delete(watchlist, key)
	} else {
		item.Users = remaining
		watchlist[key] = item
	}

	if err := h.store.SaveWatchlist(watchlist); err != nil {
		h.fatal(err)
	}

	h.reply(msg, removedText(item.Name, item.ID, arg))
}

// handleWatchlist lists the watchlist entries carrying the caller's
// username, in product id order.
func (h *Handler) handleWatchlist(msg *tgbotapi.Message) {
	if !h.requireSubscription(msg.Chat.ID) || msg.From == nil {
		return
	}

	watchlist, err := h.store.LoadWatchlist()
	if err != nil {
		h.fatal(err)
	}

	var items []store.Item
	for _, item := range watchlist {
		if item.HasUser(msg.From.UserName) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	if len(items) == 0 {
		h.reply(msg, emptyWatchlistText)
		return
	}
	h.reply(msg, watchlistText(items))
}

// handleCurrency replaces the chat's conversion list with the given
// codes, or clears it when none are given. An unsupported code draws a
// usage reply but does not stop the remaining codes from being applied.
func (h *Handler) handleCurrency(msg *tgbotapi.Message) {
	if !h.requireSubscription(msg.Chat.ID) {
		return
	}

	subs, err := h.store.LoadSubscriptions()
	if err != nil {
		h.fatal(err)
	}
	key := store.ChatKey(msg.Chat.ID)

	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		subs[key] = []string{}
		if err := h.store.SaveSubscriptions(subs); err != nil {
			h.fatal(err)
		}
		h.reply(msg, currencyClearedText)
		return
	}

	valid := make([]string, 0, len(args))
	for _, code := range args {
		code = strings.ToUpper(code)
		if !currency.IsSupported(code) {
			h.reply(msg, usageCurrencyText)
			continue
		}
		valid = append(valid, code)
	}

	subs[key] = valid
	if err := h.store.SaveSubscriptions(subs); err != nil {
		h.fatal(err)
	}

	if len(valid) > 0 {
		h.reply(msg, currencyChangedText(valid))
	}
}

// handleHelp sends the static command reference.
func (h *Handler) handleHelp(msg *tgbotapi.Message) {
	h.reply(msg, helpText)
}
