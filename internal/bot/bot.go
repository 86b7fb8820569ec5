// Package bot routes incoming Telegram commands to their handlers.
// Every handler reloads the stores it reads and saves after mutation;
// nothing is cached between commands.
package bot

import (
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pupbodhi/dealbot/config"
	"pupbodhi/dealbot/internal/scraper"
	"pupbodhi/dealbot/internal/store"
	"pupbodhi/dealbot/logger"
)

// API is the slice of the Telegram Bot API the handlers use. It is
// satisfied by *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Handler dispatches bot commands.
type Handler struct {
	api      API
	cfg      config.Config
	store    *store.Store
	scraper  *scraper.Scraper
	log      *logger.Logger
	siteHost string
}

// NewHandler creates a command handler.
func NewHandler(api API, cfg config.Config, st *store.Store, sc *scraper.Scraper) *Handler {
	siteHost := ""
	if u, err := url.Parse(cfg.SiteURL); err == nil {
		siteHost = strings.TrimPrefix(u.Host, "www.")
	}
	return &Handler{
		api:      api,
		cfg:      cfg,
		store:    st,
		scraper:  sc,
		log:      logger.ForBot(),
		siteHost: siteHost,
	}
}

// HandleUpdate routes a single update. Non-command messages and unknown
// commands are ignored.
func (h *Handler) HandleUpdate(upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		msg = upd.ChannelPost
	}
	if msg == nil || !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start":
		h.handleStart(msg)
	case "add":
		h.handleAdd(msg)
	case "remove":
		h.handleRemove(msg)
	case "watchlist", "list":
		h.handleWatchlist(msg)
	case "currency":
		h.handleCurrency(msg)
	case "delete":
		h.handleDelete(msg)
	case "help":
		h.handleHelp(msg)
	}
}

// requireSubscription reloads the subscription store and checks the chat
// is subscribed, replying with a hint when it is not. Reloading per
// command tolerates a concurrent /delete.
func (h *Handler) requireSubscription(chatID int64) bool {
	subs, err := h.store.LoadSubscriptions()
	if err != nil {
		h.fatal(err)
	}
	if _, ok := subs[store.ChatKey(chatID)]; ok {
		return true
	}
	h.send(chatID, notSubscribedText)
	return false
}

// send delivers an HTML message with link previews suppressed. Delivery
// failures are logged and swallowed.
func (h *Handler) send(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	m.DisableWebPagePreview = true
	if _, err := h.api.Send(m); err != nil {
		h.log.WithError(err).Warn().Int64("chat_id", chatID).Msg("Sending message failed")
	}
}

// reply is send with reply_to_message_id set to the triggering command.
func (h *Handler) reply(msg *tgbotapi.Message, text string) {
	m := tgbotapi.NewMessage(msg.Chat.ID, text)
	m.ParseMode = tgbotapi.ModeHTML
	m.DisableWebPagePreview = true
	m.ReplyToMessageID = msg.MessageID
	if _, err := h.api.Send(m); err != nil {
		h.log.WithError(err).Warn().Int64("chat_id", msg.Chat.ID).Msg("Sending reply failed")
	}
}

// isSiteURL reports whether arg is an absolute http(s) URL on the deal
// site's domain.
func (h *Handler) isSiteURL(arg string) bool {
	u, err := url.Parse(arg)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	return strings.Contains(strings.TrimPrefix(u.Host, "www."), h.siteHost)
}

// fatal terminates the process on a store failure, per the error policy:
// storage errors are never recovered from.
func (h *Handler) fatal(err error) {
	h.log.WithError(err).Fatal().Msg("Store failure")
}
