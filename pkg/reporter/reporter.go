package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/logger"
)

// maxPayloadLength keeps the report comfortably under the platform's 4096
// character message limit once the surrounding markup is added.
const maxPayloadLength = 3800

type TelegramSender interface {
	SendHTML(chatID int64, html string) error
}

// reporter forwards diagnostic payloads for unrecoverable failures to a
// designated operator chat. Delivery is best-effort: a failed report is
// logged and never retried.
type reporter struct {
	telegram        TelegramSender
	developerChatID int64
}

func New(telegram TelegramSender, developerChatID int64) *reporter {
	return &reporter{telegram: telegram, developerChatID: developerChatID}
}

func (r *reporter) Report(ctx context.Context, update *tgbotapi.Update, err error) {
	updateJSON, marshalErr := json.MarshalIndent(update, "", "  ")
	if marshalErr != nil {
		updateJSON = []byte(fmt.Sprintf("%+v", update))
	}

	payload := fmt.Sprintf("update = %s\n\nerror = %v\n\n%s", updateJSON, err, debug.Stack())
	payload = truncate(payload, maxPayloadLength)

	message := "Ocorreu uma exceção ao manipular uma atualização\n\n<pre>" + html.EscapeString(payload) + "</pre>"

	if sendErr := r.telegram.SendHTML(r.developerChatID, message); sendErr != nil {
		slog.ErrorContext(ctx, "delivering error report", logger.Err(sendErr))
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
