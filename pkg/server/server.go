package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v5"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/domain"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/logger"
)

type Dispatcher interface {
	HandleUpdate(ctx context.Context, update *tgbotapi.Update)
}

type TelegramAdmin interface {
	WebhookInfo() (tgbotapi.WebhookInfo, error)
	SetWebhook(url string) error
}

type ConfigStore interface {
	GetAll() domain.AIConfig
	SetItem(key string, value any) bool
}

// Server exposes the webhook endpoint the platform posts updates to, a
// health probe, and the operator dashboard. The webhook path embeds the bot
// token as a minimal shared-secret check.
type Server struct {
	echo          *echo.Echo
	dispatcher    Dispatcher
	telegram      TelegramAdmin
	config        ConfigStore
	botToken      string
	adminPassword string
	sessions      *sessionStore
}

func New(dispatcher Dispatcher, telegram TelegramAdmin, config ConfigStore, botToken, adminPassword string) *Server {
	s := &Server{
		echo:          echo.New(),
		dispatcher:    dispatcher,
		telegram:      telegram,
		config:        config,
		botToken:      botToken,
		adminPassword: adminPassword,
		sessions:      newSessionStore(),
	}

	s.echo.GET("/", s.handleHealth)
	s.echo.POST("/webhook/:token", s.handleWebhook)
	s.registerAdminRoutes()

	return s
}

func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) handleHealth(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleWebhook(c *echo.Context) error {
	if c.Param("token") != s.botToken {
		return c.String(http.StatusNotFound, "not found")
	}

	// The fixed acknowledgement goes back on every outcome, including
	// internal errors, so the platform does not retry the update.
	var update tgbotapi.Update
	if err := json.NewDecoder(c.Request().Body).Decode(&update); err != nil {
		slog.Warn("decoding webhook update", logger.Err(err))
		return c.String(http.StatusOK, "ok")
	}

	s.dispatcher.HandleUpdate(c.Request().Context(), &update)

	return c.String(http.StatusOK, "ok")
}
