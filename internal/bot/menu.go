package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/volunteer-slots/internal/models"
)

// Кнопки главного меню дублируют команды.
const (
	btnFree   = "🗓 Posti liberi"
	btnMine   = "📋 Le mie prenotazioni"
	btnRoster = "👥 Iscritti"
)

// RoleMenu — клавиатура по роли пользователя.
func RoleMenu(role models.Role) tgbotapi.ReplyKeyboardMarkup {
	switch role {
	case models.Volunteer:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnFree),
				tgbotapi.NewKeyboardButton(btnMine),
			),
		)
	case models.Instructor:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnRoster),
				tgbotapi.NewKeyboardButton(btnFree),
			),
		)
	case models.Admin:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnFree),
				tgbotapi.NewKeyboardButton(btnMine),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(btnRoster),
			),
		)
	default:
		return tgbotapi.NewReplyKeyboard()
	}
}
