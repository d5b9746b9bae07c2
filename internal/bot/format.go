package bot

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/volunteer-slots/internal/apperr"
	"github.com/Spok95/volunteer-slots/internal/models"
	"github.com/Spok95/volunteer-slots/internal/scheduling"
)

const buttonsPerRow = 4

func formatRange(day models.Date, from, to models.Clock) string {
	return fmt.Sprintf("%s %s–%s", day, from, to)
}

// FormatGroup — шапка карточки свободных слотов инструктора на день.
func FormatGroup(g scheduling.SlotGroup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s\n📅 %s\n", g.InstructorName, g.Day)
	ranges := make([]string, 0, len(g.Ranges))
	for _, r := range g.Ranges {
		ranges = append(ranges, fmt.Sprintf("%s–%s", r.Start, r.End))
	}
	fmt.Fprintf(&b, "🕘 %s\n", strings.Join(ranges, ", "))
	fmt.Fprintf(&b, "Posti liberi: %d", g.Count)
	return b.String()
}

// GroupKeyboard — по кнопке "Prenota" на каждый слот группы.
func GroupKeyboard(g scheduling.SlotGroup) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, sl := range g.Slots {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(sl.StartTime.String(), BookData(sl.ID)))
		if len(row) == buttonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func FormatUpcoming(u models.UpcomingBooking) string {
	return fmt.Sprintf("✅ %s\n👤 %s", formatRange(u.Slot.Day, u.Slot.StartTime, u.Slot.EndTime), u.InstructorName)
}

// FormatRoster — список записавшихся одним сообщением.
func FormatRoster(entries []models.RosterEntry) string {
	if len(entries) == 0 {
		return "Nessun iscritto ai prossimi turni."
	}
	var b strings.Builder
	b.WriteString("👥 Iscritti ai prossimi turni:\n")
	var day models.Date
	for _, e := range entries {
		if e.Slot.Day != day {
			day = e.Slot.Day
			fmt.Fprintf(&b, "\n📅 %s\n", day)
		}
		name := e.Volunteer.DisplayName("—")
		if !e.Known {
			name = "(profilo mancante)"
		}
		fmt.Fprintf(&b, "• %s–%s %s", e.Slot.StartTime, e.Slot.EndTime, name)
		if e.Volunteer.Phone != "" {
			fmt.Fprintf(&b, " · %s", e.Volunteer.Phone)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// userMessage — что показать пользователю вместо ошибки.
func userMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrConflict):
		return "⚠️ Questo posto è appena stato prenotato da qualcun altro."
	case errors.Is(err, apperr.ErrForbidden):
		return "🚫 Operazione non consentita."
	case errors.Is(err, apperr.ErrNotFound):
		return "⚠️ Non trovato: forse è stato rimosso."
	case errors.Is(err, apperr.ErrValidation):
		return "⚠️ Il posto non è più disponibile."
	default:
		return "⚠️ Errore temporaneo, riprova più tardi."
	}
}
