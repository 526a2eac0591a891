// Package format renders announcement text for Telegram's HTML parse mode.
package format

import (
	"html"
	"strings"

	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"
)

// Formatter renders the announcement for an item. It must be pure: the same
// item and plan always produce the same text.
type Formatter func(item *models.Item, plan models.Plan) string

const watchURLPrefix = "https://youtu.be/"

// Headline returns the first line of an announcement for the item type.
func Headline(t models.ItemType) string {
	switch t {
	case models.ItemLive:
		return "🔴 Jonli efir boshlanmoqda!"
	case models.ItemPremiere:
		return "🎥 Yangi premyera!"
	default:
		return "🎬 Yangi video joylandi!"
	}
}

// WatchURL is the short link announced for an item.
func WatchURL(itemID string) string {
	return watchURLPrefix + itemID
}

// New returns the default formatter. Free-plan announcements end with footer.
func New(footer string) Formatter {
	footer = strings.TrimSpace(footer)

	return func(item *models.Item, plan models.Plan) string {
		var b strings.Builder

		b.WriteString(Headline(item.Type))
		b.WriteString("\n\n")

		if title := strings.TrimSpace(item.Title); title != "" {
			b.WriteString("📌 <b>")
			b.WriteString(html.EscapeString(title))
			b.WriteString("</b>\n")
		}
		if ch := strings.TrimSpace(item.ChannelTitle); ch != "" {
			b.WriteString("📺 Kanal: ")
			b.WriteString(html.EscapeString(ch))
			b.WriteString("\n")
		}
		b.WriteString("🔗 Tomosha qilish: ")
		b.WriteString(WatchURL(item.ID))

		if plan != models.PlanPlus && footer != "" {
			b.WriteString("\n\n")
			b.WriteString(html.EscapeString(footer))
		}

		return b.String()
	}
}
