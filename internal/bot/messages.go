package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pupbodhi/dealbot/internal/store"
)

const notSubscribedText = `Not subscribed to Daily Deal alerts! Please use /start first.`

const unsubscribedText = `<b>Unsubscribed from Daily Deal alerts.</b>
You will no longer receive alerts when new Daily Deals have been posted. Use <code>/start</code> to resubscribe.

Thank you for using me!`

const helpText = `<b>Libidex Deals Bot</b>
<i>A bot to fetch and alert Telegram chats of new items in Libidex's Daily Deal.</i>

<b>Commands:</b>
- <code>/start</code>: Subscribes your DM/group/channel to Daily Deal alerts.
- <code>/currency &lt;ISO 4217 Codes&gt;</code>: Changes auto price conversion currencies. Use ISO 4217 codes, e.g. USD, EUR, CAD etc...
- <code>/watchlist</code>: View your personal item watchlist.
- <code>/add &lt;Libidex Item URL&gt;</code>: Add an item to your watchlist. Get pinged when an item on your list becomes the Daily Deal!
- <code>/remove &lt;Libidex Item URL&gt;</code>: Removes an item from your watchlist.
- <code>/delete</code>: Unsubscribes your DM/group/channel from Daily Deal alerts.
- <code>/help</code>: Get help with commands.`

const usageAddText = `<i>Argument is not a valid Libidex URL!</i>

<b>Usage:</b> <code>/add &lt;Libidex Item URL&gt;</code>`

const usageRemoveText = `<i>Argument is not a valid Libidex URL!</i>

<b>Usage:</b> <code>/remove &lt;Libidex Item URL&gt;</code>`

const usageCurrencyText = `<i>Argument is not a valid ISO 4217 currency!</i>

<b>Usage:</b> <code>/currency &lt;ISO 4217 Codes&gt;</code>
To add multiple currencies, separate each currency code with a space. Ex: <code>/currency USD EUR</code>`

const parseFailText = `Could not parse Libidex item. Are you sure you have a valid Libidex URL?`

const emptyWatchlistText = `<i>You have no items on your watchlist.</i>`

const currencyClearedText = `<i>Price conversion list cleared. Alerts will show the GBP price only.</i>`

const welcomeCommon = `

This bot will send an alert here every time the Libidex Daily Deal is updated. Add things you're looking to buy using <code>/add &lt;Libidex Item URL&gt;</code> and get a special ping when that item is the Daily Deal!

<i>For example...</i>
<code>/add https://libidex.com/neo-catsuit-no-pouch.html</code> adds the Neo Catsuit (no pouch) to your watchlist.

You can also change the currencies for the automatic price conversion. Most ISO 4217 currencies are supported. Use <code>/currency &lt;ISO 4217 Codes&gt;</code> to change currencies.

<i>For example...</i>
<code>/currency USD EUR CAD</code> will convert the Libidex price to US Dollars, Euros, and Canadian Dollars at the current exchange rate.

/help for all commands.`

// welcomeText picks the greeting by chat kind.
func welcomeText(chat *tgbotapi.Chat) string {
	switch {
	case chat.IsPrivate():
		return `<b>Welcome!</b>` + welcomeCommon + `

This bot also works very well in groups and channels! Invite it so all your friends can get alerted of the new Daily Deal!`
	case chat.IsChannel():
		return `<b>This channel is now subscribed to Daily Deal alerts!</b>` + welcomeCommon
	default:
		return `<b>This group is now subscribed to Daily Deal alerts!</b>` + welcomeCommon
	}
}

func addedText(name string, id int, url string) string {
	return fmt.Sprintf(`<a href=%q><b>%s</b> (#%d)</a><i> added to your personal watchlist! You will get a ping when your item is the daily deal.</i>`, url, name, id)
}

func removedText(name string, id int, url string) string {
	return fmt.Sprintf(`<a href=%q><b>%s</b> (#%d)</a><i> removed from your personal watchlist.</i>`, url, name, id)
}

func watchlistText(items []store.Item) string {
	var b strings.Builder
	b.WriteString("<i>Items on your watchlist:</i>\n")
	for _, item := range items {
		fmt.Fprintf(&b, "\n- <a href=%q>%s (#%d)</a>", item.URL, item.Name, item.ID)
	}
	return b.String()
}

func currencyChangedText(codes []string) string {
	return fmt.Sprintf(`<i>Price conversion currencies set to:</i> <b>%s</b>`, strings.Join(codes, ", "))
}
