package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/domain"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/gemini"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/logger"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/media"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/pdfext"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/render"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/telegram"
)

type TelegramClient interface {
	SendMessage(chatID int64, text string) error
	SendHTML(chatID int64, html string) error
	DownloadToMemory(ctx context.Context, fileID string) ([]byte, error)
}

type AIClient interface {
	GenerateText(ctx context.Context, cfg domain.AIConfig, history domain.History, prompt string) (string, error)
	GenerateWithImage(ctx context.Context, cfg domain.AIConfig, prompt string, image []byte, mimeType string) (string, error)
	GenerateWithFile(ctx context.Context, cfg domain.AIConfig, prompt string, file *gemini.UploadedFile) (string, error)
}

type ConfigRepository interface {
	GetAll() domain.AIConfig
}

type ContextRepository interface {
	Get(chatID int64) domain.History
	Save(chatID int64, history domain.History)
	Clear(chatID int64) bool
}

type MediaStager interface {
	Stage(ctx context.Context, fileID, ext string) (*media.StagedMedia, error)
	Release(ctx context.Context, staged *media.StagedMedia)
}

type Reporter interface {
	Report(ctx context.Context, update *tgbotapi.Update, err error)
}

// errDelivery marks a failure of the send itself, which escalates to the
// operator report instead of a user-facing apology.
var errDelivery = errors.New("delivery failure")

// Dispatcher classifies each inbound update by content kind and routes it
// to the matching handler. Handlers return errors; the dispatcher maps
// validation sentinels to their fixed user messages and everything else to
// a generic apology. Unrecognized updates are ignored.
type Dispatcher struct {
	telegram TelegramClient
	ai       AIClient
	config   ConfigRepository
	contexts ContextRepository
	stager   MediaStager
	reporter Reporter

	extractText func(data []byte) (string, error)
}

func NewDispatcher(
	telegramClient TelegramClient,
	ai AIClient,
	config ConfigRepository,
	contexts ContextRepository,
	stager MediaStager,
	reporter Reporter,
) *Dispatcher {
	return &Dispatcher{
		telegram:    telegramClient,
		ai:          ai,
		config:      config,
		contexts:    contexts,
		stager:      stager,
		reporter:    reporter,
		extractText: pdfext.ExtractText,
	}
}

func (d *Dispatcher) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	ctx = logger.ContextWithUpdateID(ctx, update.UpdateID)

	msg := update.Message
	if msg == nil {
		slog.DebugContext(ctx, "ignoring update without message")
		return
	}
	chatID := msg.Chat.ID

	var err error
	switch {
	case msg.IsCommand():
		err = d.handleCommand(ctx, chatID, msg.Command())
	case len(msg.Photo) > 0:
		err = d.handlePhoto(ctx, chatID, msg)
	case msg.Voice != nil || msg.Audio != nil:
		err = d.handleAudio(ctx, chatID, msg)
	case msg.Video != nil:
		err = d.handleVideo(ctx, chatID, msg)
	case msg.Document != nil:
		err = d.handleDocument(ctx, chatID, msg)
	case msg.Text != "":
		err = d.handleText(ctx, chatID, msg.Text)
	default:
		slog.DebugContext(ctx, "ignoring unrecognized update kind", "chatID", chatID)
		return
	}

	if err == nil {
		return
	}

	if errors.Is(err, errDelivery) {
		slog.ErrorContext(ctx, "delivering reply", "chatID", chatID, logger.Err(err))
		d.reporter.Report(ctx, update, err)
		return
	}

	reply := domain.ReplyGenericFailure
	switch {
	case errors.Is(err, domain.ErrNotPDF):
		reply = domain.ReplyNotPDF
		slog.InfoContext(ctx, "rejecting non-PDF document", "chatID", chatID)
	case errors.Is(err, domain.ErrNoExtractableText):
		reply = domain.ReplyNoExtractableText
		slog.InfoContext(ctx, "rejecting PDF without extractable text", "chatID", chatID)
	default:
		slog.ErrorContext(ctx, "handling update", "chatID", chatID, logger.Err(err))
	}

	if sendErr := d.telegram.SendMessage(chatID, reply); sendErr != nil {
		slog.ErrorContext(ctx, "delivering failure notice", "chatID", chatID, logger.Err(sendErr))
		d.reporter.Report(ctx, update, sendErr)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, chatID int64, command string) error {
	switch command {
	case "start":
		return d.send(chatID, domain.ReplyWelcome)

	case "clear":
		reply := domain.ReplyHistoryCleared
		if !d.contexts.Clear(chatID) {
			reply = domain.ReplyHistoryClearedPartial
		}
		return d.send(chatID, reply)

	default:
		slog.DebugContext(ctx, "ignoring unknown command", "command", command)
		return nil
	}
}

func (d *Dispatcher) handleText(ctx context.Context, chatID int64, text string) error {
	slog.InfoContext(ctx, "processing text", "chatID", chatID)

	cfg := d.config.GetAll()

	history := d.contexts.Get(chatID)
	history = history.Append(domain.NewTurn(domain.RoleUser, text))

	// The prior context handed to the backend excludes the live user turn;
	// the backend receives it as the prompt instead.
	reply, err := d.ai.GenerateText(ctx, cfg, history[:len(history)-1], text)
	if err != nil {
		return fmt.Errorf("generating text response: %w", err)
	}

	history = history.Append(domain.NewTurn(domain.RoleModel, reply))
	d.contexts.Save(chatID, history)

	return d.sendFormatted(chatID, reply)
}

// handlePhoto describes the highest-resolution photo variant. Photos are
// single-shot: they do not join the rolling conversation history.
func (d *Dispatcher) handlePhoto(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	slog.InfoContext(ctx, "processing photo", "chatID", chatID)

	fileID := msg.Photo[len(msg.Photo)-1].FileID
	data, err := d.telegram.DownloadToMemory(ctx, fileID)
	if err != nil {
		return fmt.Errorf("downloading photo: %w", err)
	}

	cfg := d.config.GetAll()
	reply, err := d.ai.GenerateWithImage(ctx, cfg, domain.PromptDescribeImage, data, http.DetectContentType(data))
	if err != nil {
		return fmt.Errorf("describing image: %w", err)
	}

	return d.sendFormatted(chatID, reply)
}

func (d *Dispatcher) handleAudio(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	slog.InfoContext(ctx, "processing audio", "chatID", chatID)

	var fileID, ext string
	if msg.Voice != nil {
		fileID, ext = msg.Voice.FileID, "ogg"
	} else {
		fileID, ext = msg.Audio.FileID, extensionOf(msg.Audio.FileName)
	}

	d.notify(ctx, chatID, domain.ReplyProcessingAudio)

	return d.analyzeStagedMedia(ctx, chatID, fileID, ext, domain.PromptTranscribeFile, domain.AudioReplyPrefix)
}

func (d *Dispatcher) handleVideo(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	slog.InfoContext(ctx, "processing video", "chatID", chatID)

	d.notify(ctx, chatID, domain.ReplyProcessingVideo)

	return d.analyzeStagedMedia(ctx, chatID, msg.Video.FileID, "mp4", domain.PromptSummarizeVideo, domain.VideoReplyPrefix)
}

// analyzeStagedMedia stages the file, runs the fixed prompt against it and
// replies. The staged media is released on every exit path.
func (d *Dispatcher) analyzeStagedMedia(ctx context.Context, chatID int64, fileID, ext, prompt, replyPrefix string) error {
	staged, err := d.stager.Stage(ctx, fileID, ext)
	defer d.stager.Release(ctx, staged)
	if err != nil {
		return fmt.Errorf("staging media: %w", err)
	}

	cfg := d.config.GetAll()
	reply, err := d.ai.GenerateWithFile(ctx, cfg, prompt, staged.Remote)
	if err != nil {
		return fmt.Errorf("analyzing media: %w", err)
	}

	return d.send(chatID, replyPrefix+reply)
}

func (d *Dispatcher) handleDocument(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	doc := msg.Document
	if doc.MimeType != "application/pdf" {
		return domain.ErrNotPDF
	}

	slog.InfoContext(ctx, "processing PDF", "chatID", chatID, "fileName", doc.FileName)
	d.notify(ctx, chatID, fmt.Sprintf("Analisando o PDF '%s'...", doc.FileName))

	data, err := d.telegram.DownloadToMemory(ctx, doc.FileID)
	if err != nil {
		return fmt.Errorf("downloading document: %w", err)
	}

	text, err := d.extractText(data)
	if err != nil {
		if errors.Is(err, domain.ErrNoExtractableText) {
			return err
		}
		return fmt.Errorf("extracting PDF text: %w", err)
	}

	prompt := domain.PromptSummarizePDF + pdfext.Truncate(text, domain.PDFPromptLimit)

	cfg := d.config.GetAll()
	reply, err := d.ai.GenerateText(ctx, cfg, nil, prompt)
	if err != nil {
		return fmt.Errorf("summarizing PDF: %w", err)
	}

	// Partial failure mid-sequence is not retried; it surfaces as a
	// delivery error for that segment only.
	for _, chunk := range telegram.Chunk(domain.PDFReplyPrefix + reply) {
		if err := d.send(chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

// send wraps platform delivery failures so the dispatcher can escalate
// them to the operator report instead of attempting another send.
func (d *Dispatcher) send(chatID int64, text string) error {
	if err := d.telegram.SendMessage(chatID, text); err != nil {
		return fmt.Errorf("%w: %v", errDelivery, err)
	}
	return nil
}

// sendFormatted renders model markdown to Telegram HTML, falling back to
// plain text when the platform rejects the rendered payload.
func (d *Dispatcher) sendFormatted(chatID int64, text string) error {
	if html := render.ToHTML(text); html != "" {
		if err := d.telegram.SendHTML(chatID, html); err == nil {
			return nil
		} else {
			slog.Warn("sending formatted reply failed, falling back to plain text", "chatID", chatID, logger.Err(err))
		}
	}
	return d.send(chatID, text)
}

// notify sends a best-effort "processing" acknowledgement before slow work.
func (d *Dispatcher) notify(ctx context.Context, chatID int64, text string) {
	if err := d.telegram.SendMessage(chatID, text); err != nil {
		slog.WarnContext(ctx, "sending processing notice", "chatID", chatID, logger.Err(err))
	}
}

func extensionOf(fileName string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if ext == "" {
		return "ogg"
	}
	return ext
}
