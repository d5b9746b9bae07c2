// Package bot — Telegram-интерфейс к сервису записи.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/ctxutil"
	"github.com/Spok95/volunteer-slots/internal/logging"
	"github.com/Spok95/volunteer-slots/internal/models"
	"github.com/Spok95/volunteer-slots/internal/observability"
	"github.com/Spok95/volunteer-slots/internal/scheduling"
)

// Directory — поиск профиля по telegram id.
type Directory interface {
	ProfileByTelegramID(ctx context.Context, telegramID int64) (models.Profile, error)
}

type Bot struct {
	api     Sender
	svc     *scheduling.Service
	dir     Directory
	log     *zap.Logger
	limiter *ChatLimiter
	now     func() time.Time
}

func New(api Sender, svc *scheduling.Service, dir Directory, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{api: api, svc: svc, dir: dir, log: log, limiter: NewChatLimiter(), now: time.Now}
}

// Run — разбор апдейтов до отмены ctx. Чаты обрабатываются параллельно,
// апдейты одного чата — по очереди.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			go b.Handle(ctx, upd)
		}
	}
}

func (b *Bot) Handle(ctx context.Context, upd tgbotapi.Update) {
	chatID, userID := updateChat(upd)
	if chatID == 0 {
		return
	}
	unlock := b.limiter.lock(chatID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in bot handler: %v", r)
			b.log.Error("bot handler panic", zap.Int64("chat_id", chatID), zap.Error(err))
			observability.CaptureErr(err)
		}
	}()

	ctx = ctxutil.WithChatID(ctx, chatID)
	req, err := b.resolve(ctx, userID)
	if err != nil {
		if upd.CallbackQuery != nil {
			b.answer(upd.CallbackQuery.ID, "")
		}
		b.reply(chatID, "⚠️ Profilo non collegato. Contatta l'amministratore.")
		if !apperr.Expected(err) {
			observability.CaptureCtx(ctx, err)
		}
		return
	}
	ctx = ctxutil.WithUserID(ctx, req.UserID)

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, req, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, req, upd.Message)
	}
}

func updateChat(upd tgbotapi.Update) (chatID, userID int64) {
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil && upd.CallbackQuery.From != nil:
		return upd.CallbackQuery.Message.Chat.ID, upd.CallbackQuery.From.ID
	case upd.Message != nil && upd.Message.From != nil:
		return upd.Message.Chat.ID, upd.Message.From.ID
	}
	return 0, 0
}

func (b *Bot) resolve(ctx context.Context, telegramID int64) (scheduling.Request, error) {
	p, err := b.dir.ProfileByTelegramID(ctx, telegramID)
	if err != nil {
		return scheduling.Request{}, err
	}
	return b.svc.Resolve(ctx, p.UserID, b.now())
}

func (b *Bot) handleMessage(ctx context.Context, req scheduling.Request, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch strings.TrimSpace(msg.Text) {
	case "/start":
		m := tgbotapi.NewMessage(chatID, fmt.Sprintf("Benvenuto! Ruolo: %s. Scegli un'azione:", req.Role.Label()))
		m.ReplyMarkup = RoleMenu(req.Role)
		_, _ = send(b.api, m)
	case "/free", btnFree:
		b.showFree(ctx, req, chatID)
	case "/my", btnMine:
		b.showMine(ctx, req, chatID)
	case "/roster", btnRoster:
		b.showRoster(ctx, req, chatID)
	default:
		b.reply(chatID, "Comandi: /free — posti liberi, /my — le mie prenotazioni, /roster — iscritti.")
	}
}

func (b *Bot) showFree(ctx context.Context, req scheduling.Request, chatID int64) {
	groups, err := b.svc.GroupFreeSlots(ctx, req.AsOf)
	if err != nil {
		b.fail(ctx, chatID, err)
		return
	}
	if len(groups) == 0 {
		b.reply(chatID, "Nessun posto libero al momento.")
		return
	}
	canBook := req.Role == models.Volunteer || req.Role == models.Admin
	for _, g := range groups {
		m := tgbotapi.NewMessage(chatID, FormatGroup(g))
		if canBook {
			m.ReplyMarkup = GroupKeyboard(g)
		}
		_, _ = send(b.api, m)
	}
}

func (b *Bot) showMine(ctx context.Context, req scheduling.Request, chatID int64) {
	list, err := b.svc.ListMyUpcoming(ctx, req, req.UserID)
	if err != nil {
		b.fail(ctx, chatID, err)
		return
	}
	if len(list) == 0 {
		b.reply(chatID, "Non hai prenotazioni in programma.")
		return
	}
	for _, u := range list {
		m := tgbotapi.NewMessage(chatID, FormatUpcoming(u))
		m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Annulla", CancelData(u.Booking.ID)),
		))
		_, _ = send(b.api, m)
	}
}

func (b *Bot) showRoster(ctx context.Context, req scheduling.Request, chatID int64) {
	entries, err := b.svc.ListRosterForSlotOwner(ctx, req, req.UserID)
	if err != nil {
		b.fail(ctx, chatID, err)
		return
	}
	b.reply(chatID, FormatRoster(entries))
}

func (b *Bot) handleCallback(ctx context.Context, req scheduling.Request, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	cb, err := ParseCallback(cq.Data)
	if err != nil {
		b.log.Debug("unknown callback", zap.String("data", cq.Data), zap.Error(err))
		b.answer(cq.ID, "")
		return
	}

	switch cb.Action {
	case ActionBook:
		bk, err := b.svc.CreateBooking(ctx, req, cb.ID, req.UserID)
		if err != nil {
			b.answer(cq.ID, userMessage(err))
			if !apperr.Expected(err) {
				b.fail(ctx, chatID, err)
			}
			return
		}
		b.answer(cq.ID, "✅ Prenotato")
		b.reply(chatID, fmt.Sprintf("✅ Prenotazione confermata (#%d).", bk.ID))
	case ActionCancel:
		if err := b.svc.CancelBooking(ctx, req, cb.ID); err != nil {
			b.answer(cq.ID, userMessage(err))
			if !apperr.Expected(err) {
				b.fail(ctx, chatID, err)
			}
			return
		}
		disableMarkup(b.api, chatID, cq.Message.MessageID)
		b.answer(cq.ID, "Annullata")
		b.reply(chatID, "Prenotazione annullata.")
	}
}

func (b *Bot) reply(chatID int64, text string) {
	_, _ = send(b.api, tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) answer(callbackID, text string) {
	_, _ = request(b.api, tgbotapi.NewCallback(callbackID, text))
}

func (b *Bot) fail(ctx context.Context, chatID int64, err error) {
	if errors.Is(err, apperr.ErrPersistence) || !apperr.Expected(err) {
		logging.FromContext(ctx, b.log).Error("bot request failed", zap.Error(err))
		observability.CaptureCtx(ctx, err)
	}
	b.reply(chatID, userMessage(err))
}
