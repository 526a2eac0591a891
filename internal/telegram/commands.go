package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-announcer-go/internal/config"
	"github.com/ad-tracker/youtube-announcer-go/internal/db"
	dbmodels "github.com/ad-tracker/youtube-announcer-go/internal/db/models"
	"github.com/ad-tracker/youtube-announcer-go/internal/format"
	"github.com/ad-tracker/youtube-announcer-go/internal/onboarding"
	"github.com/ad-tracker/youtube-announcer-go/internal/scheduler"
	"github.com/ad-tracker/youtube-announcer-go/internal/service"
	"github.com/ad-tracker/youtube-announcer-go/internal/service/youtube"
	"github.com/ad-tracker/youtube-announcer-go/internal/validation"
)

// ChannelStore is the part of the channel registry the bot commands use.
type ChannelStore interface {
	Upsert(ctx context.Context, channel *dbmodels.Channel) error
	GetByKey(ctx context.Context, channelKey string) (*dbmodels.Channel, error)
	ListByOwner(ctx context.Context, ownerUserID int64) ([]*dbmodels.Channel, error)
	SetSource(ctx context.Context, channelKey, sourceID, sourceURL string) error
	SetPlan(ctx context.Context, channelKey string, plan dbmodels.Plan) error
	Stats(ctx context.Context) (*dbmodels.ChannelStats, error)
}

// Ledger lists what was already announced to a channel.
type Ledger interface {
	ListRecent(ctx context.Context, channelKey string, limit int) ([]*dbmodels.LedgerEntry, error)
}

// QuotaReporter reports today's YouTube API quota usage.
type QuotaReporter interface {
	GetQuotaUsagePercentage(ctx context.Context) (float64, error)
	GetRemainingQuota(ctx context.Context) (int, error)
	IsQuotaExhausted(ctx context.Context) (bool, error)
}

// Resolver turns a YouTube channel URL into channel metadata.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*youtube.ChannelInfo, error)
}

// StatusProvider reports the sweep scheduler's state.
type StatusProvider interface {
	Status() scheduler.Status
}

// CommandOptions carries the settings shown or enforced by commands.
type CommandOptions struct {
	Telegram      config.TelegramConfig
	Interval      time.Duration
	HasAPIKey     bool
	StorageDriver string
}

// CommandHandler serves the bot's commands and the onboarding replies that
// follow /connect_channel and /set_youtube.
type CommandHandler struct {
	sender   Sender
	channels ChannelStore
	ledger   Ledger
	quota    QuotaReporter
	resolver Resolver
	source   service.ContentSource
	format   format.Formatter
	sessions *onboarding.Manager
	status   StatusProvider
	opts     CommandOptions
	logger   *zap.Logger
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(
	sender Sender,
	channels ChannelStore,
	ledger Ledger,
	quota QuotaReporter,
	resolver Resolver,
	source service.ContentSource,
	f format.Formatter,
	sessions *onboarding.Manager,
	status StatusProvider,
	opts CommandOptions,
	logger *zap.Logger,
) *CommandHandler {
	if sessions == nil {
		sessions = onboarding.NewManager(onboarding.DefaultTTL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CommandHandler{
		sender:   sender,
		channels: channels,
		ledger:   ledger,
		quota:    quota,
		resolver: resolver,
		source:   source,
		format:   f,
		sessions: sessions,
		status:   status,
		opts:     opts,
		logger:   logger,
	}
}

// Commands is the command menu published with setMyCommands.
func (h *CommandHandler) Commands() []models.BotCommand {
	return []models.BotCommand{
		{Command: "start", Description: "Botni ishga tushirish"},
		{Command: "connect_channel", Description: "Kanal ulash"},
		{Command: "set_youtube", Description: "YouTube kanalini sozlash"},
		{Command: "preview_post", Description: "Postni oldindan ko'rish"},
		{Command: "history", Description: "Oxirgi e'lonlar"},
		{Command: "cancel", Description: "Joriy amalni bekor qilish"},
		{Command: "help", Description: "Yordam"},
		{Command: "status", Description: "Bot holati (admin)"},
		{Command: "users_count", Description: "Foydalanuvchilar soni (admin)"},
		{Command: "set_plan", Description: "Kanal tarifini o'zgartirish (admin)"},
	}
}

// Register attaches the command handlers to b. Replies to onboarding
// prompts arrive as plain text, so HandleText must be installed as the
// bot's default handler.
func (h *CommandHandler) Register(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.HandleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.HandleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/connect_channel", bot.MatchTypePrefix, h.HandleConnectChannel)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/set_youtube", bot.MatchTypePrefix, h.HandleSetYouTube)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/preview_post", bot.MatchTypeExact, h.HandlePreviewPost)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, h.HandleCancel)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, h.HandleStatus)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/users_count", bot.MatchTypeExact, h.HandleUsersCount)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/history", bot.MatchTypeExact, h.HandleHistory)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/set_plan", bot.MatchTypePrefix, h.HandleSetPlan)
}

const (
	welcomeText = "🎉 <b>Humo TV Bot'ga xush kelibsiz!</b>\n\n" +
		"Bu bot YouTube kanalingizdagi yangi videolar va jonli efirlar haqida " +
		"Telegram kanalingizga avtomatik ravishda e'lon joylaydi.\n\n" +
		"📋 <b>Asosiy buyruqlar:</b>\n" +
		"/connect_channel - Telegram kanalingizni ulash\n" +
		"/set_youtube - YouTube kanal manzilini sozlash\n" +
		"/preview_post - Postni oldindan ko'rish\n" +
		"/history - Oxirgi e'lonlar\n" +
		"/help - Yordam olish\n\n" +
		"⚠️ <b>Muhim eslatma:</b> Bot faqat matn va havolalarni joylaydi, " +
		"videolarni yuklamaydi va qayta joylamaydi."

	helpText = "🆘 <b>Humo TV Bot Yordam</b>\n\n" +
		"<b>Botning maqsadi:</b>\n" +
		"YouTube kanalingizdagi yangi videolar va jonli efirlar haqida " +
		"Telegram kanalingizga avtomatik ravishda e'lon joylash.\n\n" +
		"<b>Qonuniylik:</b>\n" +
		"• Bot faqat matn va havolalarni joylaydi\n" +
		"• Videolarni yuklamaydi va qayta joylamaydi\n" +
		"• Mualliflik huquqiga hurmat qiladi\n\n" +
		"<b>Tariflar:</b>\n" +
		"• <b>Bepul:</b> Har bir postda reklama qo'shimchasi\n" +
		"• <b>Plus (19,990 so'm/oy):</b> Reklamasiz, toza postlar\n\n" +
		"<b>Ish tartibi:</b>\n" +
		"1. /connect_channel - Telegram kanalingizni ulang\n" +
		"2. /set_youtube - YouTube kanal manzilini sozlang\n" +
		"3. Bot avtomatik yangiliklarni kuzatib boradi\n\n" +
		"<b>Qo'shimcha ma'lumot:</b>\n" +
		"🌐 Rasmiy sayt: https://forhumo.uz\n" +
		"📢 Kanal: @ForHumoTV\n" +
		"👥 Hamjamiyat: @forhumo"

	connectInstructions = "📌 <b>Kanal ulash bo'yicha ko'rsatmalar:</b>\n\n" +
		"1. Botni kanalingizga <b>admin</b> qilib qo'shing\n" +
		"2. Botga kanalda xabar yuborish ruxsatini bering\n" +
		"3. Kanal nomini yuboring (@ belgisiz)\n\n" +
		"<b>Misol:</b> @ForHumoTV yozish o'rniga shunchaki <b>ForHumoTV</b> yozing\n\n" +
		"Yoki, agar kanalingiz shaxsiy bo'lsa, uning ID raqamini yuboring."

	setYouTubeInstructions = "📺 <b>YouTube kanalini sozlash</b>\n\n" +
		"YouTube kanalingizning to'liq manzilini yuboring:\n\n" +
		"<b>Misol manzillar:</b>\n" +
		"• https://www.youtube.com/@ForHumo\n" +
		"• https://www.youtube.com/channel/UC1234567890\n" +
		"• https://www.youtube.com/c/ForHumoTV\n\n" +
		"Bot faqat YouTube kanalingiz haqida ma'lumot olish uchun manzildan foydalanadi."

	channelConnectedText = "✅ Kanal muvaffaqiyatli ulandi!\n\n" +
		"Endi YouTube kanal manzilini sozlash uchun /set_youtube buyrug'idan foydalaning."

	adminOnlyText = "❌ Bu buyruq faqat adminlar uchun"
)

const (
	noChannelText     = "Avval /connect_channel orqali Telegram kanalingizni ulang"
	notConfiguredText = "Kanal ulanmagan yoki YouTube manzili sozlanmagan"
	noVideosText      = "Kanalda videolar topilmadi"
	noHistoryText     = "📭 Hali hech narsa e'lon qilinmagan."
	setPlanUsageText  = "Foydalanish: /set_plan @kanal free|plus"
	foreignOwnerText  = "Bu kanal boshqa foydalanuvchiga ulangan"
)

var errNoChannel = errors.New("user has no active channel")

func (h *CommandHandler) HandleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, ok := h.message(update, "start")
	if !ok {
		return
	}
	h.reply(ctx, msg.Chat.ID, welcomeText)
}

func (h *CommandHandler) HandleHelp(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, ok := h.message(update, "help")
	if !ok {
		return
	}
	h.reply(ctx, msg.Chat.ID, helpText)
}

// HandleConnectChannel registers the user's Telegram channel. The channel
// may follow the command or come in the next message.
func (h *CommandHandler) HandleConnectChannel(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, ok := h.message(update, "connect_channel")
	if !ok {
		return
	}

	if arg := commandArgs(msg.Text); arg != "" {
		h.connectChannel(ctx, msg.Chat.ID, msg.From.ID, arg)
		return
	}

	h.sessions.AwaitChannelHandle(msg.From.ID)
	h.reply(ctx, msg.Chat.ID, connectInstructions)
}

// HandleSetYouTube points the user's channel at a YouTube channel. The URL
// may follow the command or come in the next message.
func (h *CommandHandler) HandleSetYouTube(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, ok := h.message(update, "set_youtube")
	if !ok {
		return
	}

	channel, err := h.ownedChannel(ctx, msg.From.ID)
	if errors.Is(err, errNoChannel) {
		h.replyFailure(ctx, msg.Chat.ID, noChannelText)
		return
	}
	if err != nil {
		h.replyError(ctx, msg.Chat.ID, err)
		return
	}

	if arg := commandArgs(msg.Text); arg != "" {
		h.setSource(ctx, msg.Chat.ID, msg.From.ID, channel.ChannelKey, arg)
		return
	}

	h.sessions.AwaitSourceURL(msg.From.ID, channel.ChannelKey)
	h.reply(ctx, msg.Chat.ID, setYouTubeInstructions)
}

// HandlePreviewPost renders the latest item of the user's YouTube channel
// as it would be announced. Nothing is recorded.
func (h *CommandHandler) HandlePreviewPost(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, ok := h.message(update, "preview_post")
	if !ok {
		return
	}

	channel, err := h.ownedChannel(ctx, msg.From.ID)
	if errors.Is(err, errNoChannel) || (err == nil && !channel.HasSource()) {
		h.replyFailure(ctx, msg.Chat.ID, notConfiguredText)
		return
	}
	if err != nil {
		h.replyError(ctx, msg.Chat.ID, err)
		return
	}

	items, err := h.source.Fetch(ctx, channel.Source())
	if err != nil {
		h.replyError(ctx, msg.Chat.ID, err)
		return
	}
	if len(items) == 0 {
		h.replyFailure(ctx, msg.Chat.ID, noVideosText)
		return
	}

	h.reply(ctx, msg.Chat.ID, "📋 <b>Post ko'rinishi:</b>\n\n"+h.format(items[0], channel.Plan))
}

func (h *CommandHandler) HandleCancel(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, ok := h.message(update, "cancel")
	if !ok {
		return
	}

	if h.sessions.Reset(msg.From.ID) {
		h.reply(ctx, msg.Chat.ID, "Bekor qilindi.")
		return
	}
	h.reply(ctx, msg.Chat.ID, "Bekor qilinadigan amal yo'q.")
}

func (h *CommandHandler) HandleStatus(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, ok := h.adminMessage(ctx, update, "status")
	if !ok {
		return
	}

	stats, err := h.channels.Stats(ctx)
	if err != nil {
		h.replyError(ctx, msg.Chat.ID, err)
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Bot Holati</b>\n\n")
	fmt.Fprintf(&sb, "👥 <b>Foydalanuvchilar:</b> %d\n", stats.Owners)
	fmt.Fprintf(&sb, "📢 <b>Kanallar:</b> %d (faol: %d, sozlangan: %d)\n", stats.Total, stats.Active, stats.Configured)
	fmt.Fprintf(&sb, "⭐️ <b>Plus tarif:</b> %d\n", stats.Plus)
	fmt.Fprintf(&sb, "🔄 <b>Tekshirish oraligi:</b> %d soniya\n", int(h.opts.Interval.Seconds()))

	if h.status != nil {
		st := h.status.Status()
		fmt.Fprintf(&sb, "⚙️ <b>Rejalashtiruvchi:</b> %s\n", st.State)
		if last := st.LastSweep; last != nil && !last.FinishedAt.IsZero() {
			fmt.Fprintf(&sb, "🕒 <b>Oxirgi tekshiruv:</b> %s, %d kanal, %d e'lon, %d xato\n",
				last.FinishedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
				len(last.Channels), last.Delivered(), last.Count(service.StatusFetchError))
		} else {
			sb.WriteString("🕒 <b>Oxirgi tekshiruv:</b> hali yo'q\n")
		}
	}

	h.writeQuota(ctx, &sb)

	sb.WriteString("\n<b>Konfiguratsiya:</b>\n")
	fmt.Fprintf(&sb, "• YouTube API: %s\n", checkmark(h.opts.HasAPIKey))
	fmt.Fprintf(&sb, "• Telegram Bot: %s\n", checkmark(h.opts.Telegram.Token != ""))
	fmt.Fprintf(&sb, "• Ma'lumotlar bazasi: %s", html.EscapeString(h.opts.StorageDriver))

	h.reply(ctx, msg.Chat.ID, sb.String())
}

func (h *CommandHandler) HandleUsersCount(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, ok := h.adminMessage(ctx, update, "users_count")
	if !ok {
		return
	}

	stats, err := h.channels.Stats(ctx)
	if err != nil {
		h.replyError(ctx, msg.Chat.ID, err)
		return
	}
	h.reply(ctx, msg.Chat.ID, fmt.Sprintf("📊 Jami foydalanuvchilar: %d", stats.Owners))
}

// historyLimit is how many announcements /history lists.
const historyLimit = 5

// HandleHistory lists the latest announcements sent to the user's channel.
func (h *CommandHandler) HandleHistory(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, ok := h.message(update, "history")
	if !ok {
		return
	}

	channel, err := h.ownedChannel(ctx, msg.From.ID)
	if errors.Is(err, errNoChannel) {
		h.replyFailure(ctx, msg.Chat.ID, noChannelText)
		return
	}
	if err != nil {
		h.replyError(ctx, msg.Chat.ID, err)
		return
	}

	entries, err := h.ledger.ListRecent(ctx, channel.ChannelKey, historyLimit)
	if err != nil {
		h.replyError(ctx, msg.Chat.ID, err)
		return
	}
	if len(entries) == 0 {
		h.reply(ctx, msg.Chat.ID, noHistoryText)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗂 <b>Oxirgi e'lonlar</b> (%s):\n\n", html.EscapeString(channel.ChannelKey))
	for _, e := range entries {
		fmt.Fprintf(&sb, "• %s %s: %s\n",
			e.PostedAt.UTC().Format("2006-01-02 15:04"),
			format.Headline(e.ItemType),
			format.WatchURL(e.ItemID))
	}

	h.reply(ctx, msg.Chat.ID, strings.TrimRight(sb.String(), "\n"))
}

// HandleSetPlan switches a channel between the free and plus plans.
func (h *CommandHandler) HandleSetPlan(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg, ok := h.adminMessage(ctx, update, "set_plan")
	if !ok {
		return
	}

	fields := strings.Fields(commandArgs(msg.Text))
	if len(fields) != 2 {
		h.replyFailure(ctx, msg.Chat.ID, setPlanUsageText)
		return
	}
	key, err := validation.ChannelKey(fields[0])
	if err != nil {
		h.replyFailure(ctx, msg.Chat.ID, setPlanUsageText)
		return
	}
	plan, err := dbmodels.ParsePlan(strings.ToLower(fields[1]))
	if err != nil {
		h.replyFailure(ctx, msg.Chat.ID, setPlanUsageText)
		return
	}

	if err := h.channels.SetPlan(ctx, key, plan); err != nil {
		if db.IsNotFound(err) {
			h.replyFailure(ctx, msg.Chat.ID, "Kanal topilmadi: "+key)
			return
		}
		h.replyError(ctx, msg.Chat.ID, err)
		return
	}

	h.logger.Info("channel plan changed",
		zap.String("channel_key", key),
		zap.String("plan", string(plan)),
		zap.Int64("admin_id", msg.From.ID),
	)
	h.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ %s tarifi: <b>%s</b>", html.EscapeString(key), plan))
}

// HandleText receives plain messages and completes an open onboarding step.
// Messages outside a conversation are ignored.
func (h *CommandHandler) HandleText(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" || strings.HasPrefix(msg.Text, "/") {
		return
	}

	session := h.sessions.Current(msg.From.ID)
	switch session.State {
	case onboarding.AwaitingChannelHandle:
		h.connectChannel(ctx, msg.Chat.ID, msg.From.ID, msg.Text)
	case onboarding.AwaitingSourceURL:
		h.setSource(ctx, msg.Chat.ID, msg.From.ID, session.ChannelKey, msg.Text)
	}
}

func (h *CommandHandler) connectChannel(ctx context.Context, chatID, userID int64, input string) {
	key, err := validation.ChannelKey(input)
	if err != nil {
		h.replyFailure(ctx, chatID, "Kanal nomi noto'g'ri. Masalan: ForHumoTV")
		return
	}

	existing, err := h.channels.GetByKey(ctx, key)
	switch {
	case db.IsNotFound(err):
	case err != nil:
		h.replyError(ctx, chatID, err)
		return
	case existing.OwnerUserID != userID:
		h.sessions.Reset(userID)
		h.replyFailure(ctx, chatID, foreignOwnerText)
		return
	}

	if err := h.channels.Upsert(ctx, dbmodels.NewChannel(key, userID, key)); err != nil {
		h.replyError(ctx, chatID, err)
		return
	}

	h.sessions.Reset(userID)
	h.logger.Info("channel connected", zap.String("channel_key", key), zap.Int64("user_id", userID))
	h.reply(ctx, chatID, channelConnectedText)
}

func (h *CommandHandler) setSource(ctx context.Context, chatID, userID int64, channelKey, rawURL string) {
	rawURL = strings.TrimSpace(rawURL)

	info, err := h.resolver.Resolve(ctx, rawURL)
	if err != nil {
		h.logger.Info("channel url not resolved", zap.String("url", rawURL), zap.Error(err))
		h.replyFailure(ctx, chatID, resolveErrorText(err)+"\n\nIltimos, to'g'ri YouTube kanal manzilini yuboring.")
		return
	}

	if err := h.channels.SetSource(ctx, channelKey, info.ID, rawURL); err != nil {
		h.replyError(ctx, chatID, err)
		return
	}

	h.sessions.Reset(userID)
	h.logger.Info("youtube source set",
		zap.String("channel_key", channelKey),
		zap.String("source_id", info.ID),
	)

	var sb strings.Builder
	sb.WriteString("✅ YouTube kanali muvaffaqiyatli sozlandi!\n\n")
	if info.Title != "" {
		fmt.Fprintf(&sb, "📛 <b>Kanal nomi:</b> %s\n", html.EscapeString(info.Title))
	}
	if info.SubscriberCount > 0 || info.VideoCount > 0 {
		fmt.Fprintf(&sb, "👥 <b>Obunachilar:</b> %d\n", info.SubscriberCount)
		fmt.Fprintf(&sb, "🎬 <b>Videolar:</b> %d\n", info.VideoCount)
	}
	fmt.Fprintf(&sb, "\nBot har %s yangi kontentni tekshiradi va Telegram kanalingizga avtomatik e'lon joylaydi.",
		everyText(h.opts.Interval))

	h.reply(ctx, chatID, sb.String())
}

// ownedChannel returns the user's most recently updated channel.
func (h *CommandHandler) ownedChannel(ctx context.Context, userID int64) (*dbmodels.Channel, error) {
	channels, err := h.channels.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	channels = lo.Filter(channels, func(c *dbmodels.Channel, _ int) bool { return c.Active })
	if len(channels) == 0 {
		return nil, errNoChannel
	}

	return lo.MaxBy(channels, func(a, b *dbmodels.Channel) bool {
		return a.UpdatedAt.After(b.UpdatedAt)
	}), nil
}

// writeQuota appends today's YouTube quota usage. It is left out when no
// quota manager is wired or it cannot be read.
func (h *CommandHandler) writeQuota(ctx context.Context, sb *strings.Builder) {
	if h.quota == nil {
		return
	}

	percent, err := h.quota.GetQuotaUsagePercentage(ctx)
	if err != nil {
		h.logger.Warn("failed to read quota usage", zap.Error(err))
		return
	}
	remaining, err := h.quota.GetRemainingQuota(ctx)
	if err != nil {
		h.logger.Warn("failed to read remaining quota", zap.Error(err))
		return
	}

	fmt.Fprintf(sb, "📈 <b>YouTube kvota:</b> %.1f%% ishlatilgan, %d birlik qoldi", percent, remaining)
	if exhausted, err := h.quota.IsQuotaExhausted(ctx); err == nil && exhausted {
		sb.WriteString(" (⛔️ chegaraga yetildi)")
	}
	sb.WriteString("\n")
}

func (h *CommandHandler) message(update *models.Update, command string) (*models.Message, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil, false
	}
	h.logger.Debug("command received", zap.String("command", command), zap.Int64("user_id", msg.From.ID))
	return msg, true
}

func (h *CommandHandler) adminMessage(ctx context.Context, update *models.Update, command string) (*models.Message, bool) {
	msg, ok := h.message(update, command)
	if !ok {
		return nil, false
	}
	if !h.opts.Telegram.IsAdmin(msg.From.ID) {
		h.reply(ctx, msg.Chat.ID, adminOnlyText)
		return nil, false
	}
	return msg, true
}

func (h *CommandHandler) reply(ctx context.Context, chatID int64, text string) {
	_, err := h.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		h.logger.Warn("failed to reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *CommandHandler) replyError(ctx context.Context, chatID int64, err error) {
	h.replyFailure(ctx, chatID, err.Error())
}

func (h *CommandHandler) replyFailure(ctx context.Context, chatID int64, text string) {
	h.reply(ctx, chatID, "❌ Xatolik: "+html.EscapeString(text))
}

func resolveErrorText(err error) string {
	switch {
	case errors.Is(err, youtube.ErrInvalidChannelURL):
		return "YouTube kanal manzili noto'g'ri"
	case service.IsNotFound(err):
		return "YouTube kanali topilmadi"
	case errors.Is(err, youtube.ErrQuotaExceeded):
		return "YouTube API limiti tugadi, keyinroq urinib ko'ring"
	case errors.Is(err, service.ErrLookupUnavailable):
		return "Bu manzil turini tekshirib bo'lmaydi, /channel/UC... ko'rinishidagi manzilni yuboring"
	default:
		return err.Error()
	}
}

// commandArgs returns the text after the command word.
func commandArgs(text string) string {
	_, rest, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(rest)
}

func everyText(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%d daqiqada", int(d.Minutes()))
	}
	return fmt.Sprintf("%d soniyada", int(d.Seconds()))
}

func checkmark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}
