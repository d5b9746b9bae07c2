package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/volunteer-slots/internal/metrics"
	"github.com/Spok95/volunteer-slots/internal/observability"
)

// Sender — часть *tgbotapi.BotAPI, которой пользуется бот.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Считаем системными: 5xx, 429, timeout. 400-ки и типичные телеграм-валидации в Sentry не шлём.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	for _, marker := range []string{"429", "500", "502", "503", "timeout"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func send(api Sender, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := api.Send(msg)
	if err != nil {
		metrics.HandlerErrors.Inc()
		if isSystemErr(err) {
			observability.CaptureErr(err)
		}
	}
	return m, err
}

func request(api Sender, req tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r, err := api.Request(req)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return r, err
}

// disableMarkup гасит inline-клавиатуру у сообщения после нажатия.
func disableMarkup(api Sender, chatID int64, messageID int) {
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: make([][]tgbotapi.InlineKeyboardButton, 0)}
	_, _ = request(api, tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, empty))
}
