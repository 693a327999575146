package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/domain"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/gemini"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/media"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/telegram"
)

type fakeTelegram struct {
	sent      []string
	sentHTML  []string
	failSends bool
	failHTML  bool
	downloads int
}

func (f *fakeTelegram) SendMessage(_ int64, text string) error {
	if f.failSends {
		return errors.New("network drop")
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTelegram) SendHTML(_ int64, html string) error {
	if f.failHTML {
		return errors.New("bad html")
	}
	f.sentHTML = append(f.sentHTML, html)
	return nil
}

func (f *fakeTelegram) DownloadToMemory(context.Context, string) ([]byte, error) {
	f.downloads++
	return []byte("file bytes"), nil
}

type fakeAI struct {
	reply        string
	err          error
	calls        int
	lastPrompt   string
	priorHistory domain.History
}

func (f *fakeAI) GenerateText(_ context.Context, _ domain.AIConfig, history domain.History, prompt string) (string, error) {
	f.calls++
	f.priorHistory = history
	f.lastPrompt = prompt
	return f.reply, f.err
}

func (f *fakeAI) GenerateWithImage(_ context.Context, _ domain.AIConfig, prompt string, _ []byte, _ string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.reply, f.err
}

func (f *fakeAI) GenerateWithFile(_ context.Context, _ domain.AIConfig, prompt string, _ *gemini.UploadedFile) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.reply, f.err
}

type fakeConfig struct{}

func (fakeConfig) GetAll() domain.AIConfig { return domain.DefaultAIConfig() }

type fakeContexts struct {
	histories   map[int64]domain.History
	clearResult bool
	cleared     []int64
}

func newFakeContexts() *fakeContexts {
	return &fakeContexts{histories: make(map[int64]domain.History), clearResult: true}
}

func (f *fakeContexts) Get(chatID int64) domain.History { return f.histories[chatID] }

func (f *fakeContexts) Save(chatID int64, history domain.History) { f.histories[chatID] = history }

func (f *fakeContexts) Clear(chatID int64) bool {
	f.cleared = append(f.cleared, chatID)
	delete(f.histories, chatID)
	return f.clearResult
}

type fakeStager struct {
	stageErr error
	staged   []string
	released int
	lastExt  string
}

func (f *fakeStager) Stage(_ context.Context, fileID, ext string) (*media.StagedMedia, error) {
	f.staged = append(f.staged, fileID)
	f.lastExt = ext
	if f.stageErr != nil {
		return nil, f.stageErr
	}
	return &media.StagedMedia{
		LocalPath: "/tmp/" + fileID + "." + ext,
		Remote:    &gemini.UploadedFile{Name: "files/xyz", URI: "https://files/xyz"},
	}, nil
}

func (f *fakeStager) Release(_ context.Context, staged *media.StagedMedia) {
	if staged != nil {
		f.released++
	}
}

type fakeReporter struct {
	reports []error
}

func (f *fakeReporter) Report(_ context.Context, _ *tgbotapi.Update, err error) {
	f.reports = append(f.reports, err)
}

type fixture struct {
	dispatcher *Dispatcher
	telegram   *fakeTelegram
	ai         *fakeAI
	contexts   *fakeContexts
	stager     *fakeStager
	reporter   *fakeReporter
}

func newFixture() *fixture {
	f := &fixture{
		telegram: &fakeTelegram{},
		ai:       &fakeAI{reply: "resposta do modelo"},
		contexts: newFakeContexts(),
		stager:   &fakeStager{},
		reporter: &fakeReporter{},
	}
	f.dispatcher = NewDispatcher(f.telegram, f.ai, fakeConfig{}, f.contexts, f.stager, f.reporter)
	return f
}

func textUpdate(chatID int64, text string) *tgbotapi.Update {
	msg := &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chatID}}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])}}
	}
	return &tgbotapi.Update{Message: msg}
}

func TestTextRoundTripPersistsBothTurns(t *testing.T) {
	f := newFixture()

	f.dispatcher.HandleUpdate(context.Background(), textUpdate(42, "qual a capital do Brasil?"))

	history := f.contexts.histories[42]
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "qual a capital do Brasil?", history[0].Text())
	assert.Equal(t, domain.RoleModel, history[1].Role)

	// The prior context handed to the backend excludes the live user turn.
	assert.Empty(t, f.ai.priorHistory)
	assert.Equal(t, "qual a capital do Brasil?", f.ai.lastPrompt)
	require.Len(t, f.telegram.sentHTML, 1)
}

func TestTextHistoryNeverExceedsTwentyTurns(t *testing.T) {
	f := newFixture()

	for i := 0; i < 15; i++ {
		f.dispatcher.HandleUpdate(context.Background(), textUpdate(42, "pergunta"))
	}

	assert.Len(t, f.contexts.histories[42], domain.MaxHistoryTurns)
}

func TestTextAIFailureSendsGenericApology(t *testing.T) {
	f := newFixture()
	f.ai.err = errors.New("backend unavailable")

	f.dispatcher.HandleUpdate(context.Background(), textUpdate(42, "oi"))

	require.Len(t, f.telegram.sent, 1)
	assert.Equal(t, domain.ReplyGenericFailure, f.telegram.sent[0])
	assert.Empty(t, f.contexts.histories[42])
	assert.Empty(t, f.reporter.reports)
}

func TestTextFormattedSendFallsBackToPlain(t *testing.T) {
	f := newFixture()
	f.telegram.failHTML = true

	f.dispatcher.HandleUpdate(context.Background(), textUpdate(42, "oi"))

	require.Len(t, f.telegram.sent, 1)
	assert.Equal(t, "resposta do modelo", f.telegram.sent[0])
}

func TestDeliveryFailureEscalatesToReporter(t *testing.T) {
	f := newFixture()
	f.telegram.failSends = true
	f.telegram.failHTML = true

	f.dispatcher.HandleUpdate(context.Background(), textUpdate(42, "oi"))

	require.Len(t, f.reporter.reports, 1)
	assert.ErrorIs(t, f.reporter.reports[0], errDelivery)
}

func TestStartCommandSendsWelcome(t *testing.T) {
	f := newFixture()

	f.dispatcher.HandleUpdate(context.Background(), textUpdate(42, "/start"))

	require.Len(t, f.telegram.sent, 1)
	assert.Equal(t, domain.ReplyWelcome, f.telegram.sent[0])
	assert.Zero(t, f.ai.calls)
}

func TestClearCommandWithoutPriorHistory(t *testing.T) {
	f := newFixture()

	f.dispatcher.HandleUpdate(context.Background(), textUpdate(42, "/clear"))

	assert.Equal(t, []int64{42}, f.contexts.cleared)
	require.Len(t, f.telegram.sent, 1)
	assert.Equal(t, domain.ReplyHistoryCleared, f.telegram.sent[0])
}

func TestClearCommandReportsDurabilityCaveat(t *testing.T) {
	f := newFixture()
	f.contexts.clearResult = false

	f.dispatcher.HandleUpdate(context.Background(), textUpdate(42, "/clear"))

	require.Len(t, f.telegram.sent, 1)
	assert.Equal(t, domain.ReplyHistoryClearedPartial, f.telegram.sent[0])
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	f := newFixture()

	f.dispatcher.HandleUpdate(context.Background(), textUpdate(42, "/settings"))

	assert.Empty(t, f.telegram.sent)
	assert.Zero(t, f.ai.calls)
}

func TestUnrecognizedUpdateIsIgnored(t *testing.T) {
	f := newFixture()

	f.dispatcher.HandleUpdate(context.Background(), &tgbotapi.Update{
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}, Sticker: &tgbotapi.Sticker{FileID: "sticker"}},
	})
	f.dispatcher.HandleUpdate(context.Background(), &tgbotapi.Update{UpdateID: 1})

	assert.Empty(t, f.telegram.sent)
	assert.Empty(t, f.reporter.reports)
	assert.Zero(t, f.ai.calls)
}

func TestEmptyPhotoListIsIgnored(t *testing.T) {
	f := newFixture()

	// The webhook accepts arbitrary JSON; "photo": [] decodes to a non-nil
	// empty slice and must not reach the photo handler.
	f.dispatcher.HandleUpdate(context.Background(), &tgbotapi.Update{
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}, Photo: []tgbotapi.PhotoSize{}},
	})

	assert.Empty(t, f.telegram.sent)
	assert.Empty(t, f.reporter.reports)
	assert.Zero(t, f.ai.calls)
}

func TestPhotoUsesHighestResolutionVariant(t *testing.T) {
	f := newFixture()

	f.dispatcher.HandleUpdate(context.Background(), &tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:  &tgbotapi.Chat{ID: 42},
			Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
		},
	})

	assert.Equal(t, 1, f.telegram.downloads)
	assert.Equal(t, domain.PromptDescribeImage, f.ai.lastPrompt)
	require.Len(t, f.telegram.sentHTML, 1)
	// Photos are single-shot: no history is persisted.
	assert.Empty(t, f.contexts.histories[42])
}

func TestVoiceMessageIsStagedAndReleased(t *testing.T) {
	f := newFixture()

	f.dispatcher.HandleUpdate(context.Background(), &tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:  &tgbotapi.Chat{ID: 42},
			Voice: &tgbotapi.Voice{FileID: "voice-1"},
		},
	})

	assert.Equal(t, []string{"voice-1"}, f.stager.staged)
	assert.Equal(t, "ogg", f.stager.lastExt)
	assert.Equal(t, 1, f.stager.released)
	assert.Equal(t, domain.PromptTranscribeFile, f.ai.lastPrompt)

	require.Len(t, f.telegram.sent, 2)
	assert.Equal(t, domain.ReplyProcessingAudio, f.telegram.sent[0])
	assert.True(t, strings.HasPrefix(f.telegram.sent[1], domain.AudioReplyPrefix))
}

func TestAudioExtensionComesFromFileName(t *testing.T) {
	f := newFixture()

	f.dispatcher.HandleUpdate(context.Background(), &tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:  &tgbotapi.Chat{ID: 42},
			Audio: &tgbotapi.Audio{FileID: "audio-1", FileName: "musica.MP3"},
		},
	})

	assert.Equal(t, "mp3", f.stager.lastExt)
}

func TestMediaReleasedWhenAIFails(t *testing.T) {
	f := newFixture()
	f.ai.err = errors.New("backend unavailable")

	f.dispatcher.HandleUpdate(context.Background(), &tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:  &tgbotapi.Chat{ID: 42},
			Video: &tgbotapi.Video{FileID: "video-1"},
		},
	})

	assert.Equal(t, 1, f.stager.released)
	assert.Equal(t, "mp4", f.stager.lastExt)
	// Processing notice plus the apology.
	require.Len(t, f.telegram.sent, 2)
	assert.Equal(t, domain.ReplyGenericFailure, f.telegram.sent[1])
}

func pdfUpdate(mimeType string) *tgbotapi.Update {
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:     &tgbotapi.Chat{ID: 42},
			Document: &tgbotapi.Document{FileID: "doc-1", FileName: "relatorio.pdf", MimeType: mimeType},
		},
	}
}

func TestNonPDFDocumentIsRejectedWithoutAnyWork(t *testing.T) {
	f := newFixture()

	f.dispatcher.HandleUpdate(context.Background(), pdfUpdate("image/png"))

	require.Len(t, f.telegram.sent, 1)
	assert.Equal(t, "Por favor, envie um arquivo no formato PDF.", f.telegram.sent[0])
	assert.Zero(t, f.telegram.downloads)
	assert.Zero(t, f.ai.calls)
}

func TestPDFWithoutExtractableText(t *testing.T) {
	f := newFixture()
	f.dispatcher.extractText = func([]byte) (string, error) {
		return "", domain.ErrNoExtractableText
	}

	f.dispatcher.HandleUpdate(context.Background(), pdfUpdate("application/pdf"))

	require.Len(t, f.telegram.sent, 2)
	assert.Equal(t, domain.ReplyNoExtractableText, f.telegram.sent[1])
	assert.Zero(t, f.ai.calls)
}

func TestPDFSummaryIsChunkedInOrder(t *testing.T) {
	f := newFixture()
	f.dispatcher.extractText = func([]byte) (string, error) {
		return "texto extraído do relatório", nil
	}
	f.ai.reply = strings.Repeat("r", 9000)

	f.dispatcher.HandleUpdate(context.Background(), pdfUpdate("application/pdf"))

	// One processing notice followed by exactly three chunks.
	require.Len(t, f.telegram.sent, 4)
	chunks := f.telegram.sent[1:]
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), telegram.MaxMessageLength)
	}
	assert.Equal(t, domain.PDFReplyPrefix+f.ai.reply, strings.Join(chunks, ""))
	assert.True(t, strings.HasPrefix(f.ai.lastPrompt, domain.PromptSummarizePDF))
}

func TestPDFPromptTruncatedToTenThousandChars(t *testing.T) {
	f := newFixture()
	f.dispatcher.extractText = func([]byte) (string, error) {
		return strings.Repeat("t", 25000), nil
	}

	f.dispatcher.HandleUpdate(context.Background(), pdfUpdate("application/pdf"))

	require.Equal(t, 1, f.ai.calls)
	assert.Len(t, f.ai.lastPrompt, len(domain.PromptSummarizePDF)+domain.PDFPromptLimit)
}
