package server

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v5"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/domain"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/logger"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

var thresholdOptions = []domain.BlockThreshold{
	domain.BlockNone,
	domain.BlockOnlyHigh,
	domain.BlockMediumAndAbove,
	domain.BlockLowAndAbove,
}

type safetyRow struct {
	Category  domain.HarmCategory
	Threshold domain.BlockThreshold
	Options   []domain.BlockThreshold
}

type dashboardData struct {
	SystemInstruction string
	SafetySettings    []safetyRow
	WebhookURL        string
	PendingUpdates    int
	Flash             string
}

func (s *Server) registerAdminRoutes() {
	// No password configured: the dashboard stays off entirely.
	if s.adminPassword == "" {
		return
	}

	s.echo.GET("/admin/login", s.handleLoginPage)
	s.echo.POST("/admin/login", s.handleLogin)
	s.echo.POST("/admin/logout", s.handleLogout)
	s.echo.GET("/admin", s.handleDashboard)
	s.echo.POST("/admin/config", s.handleSaveConfig)
	s.echo.POST("/admin/simulate", s.handleSimulate)
	s.echo.POST("/admin/webhook", s.handleSetWebhook)
}

func (s *Server) authorized(c *echo.Context) bool {
	cookie, err := c.Request().Cookie(sessionCookieName)
	if err != nil {
		return false
	}
	return s.sessions.valid(cookie.Value)
}

func (s *Server) handleLoginPage(c *echo.Context) error {
	return s.renderTemplate(c, "login.html", map[string]string{"Flash": c.QueryParam("msg")})
}

func (s *Server) handleLogin(c *echo.Context) error {
	if c.FormValue("password") != s.adminPassword {
		return c.Redirect(http.StatusFound, "/admin/login?msg="+url.QueryEscape("Senha incorreta."))
	}

	token := s.sessions.create()
	http.SetCookie(c.Response(), &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/admin",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, "/admin")
}

func (s *Server) handleLogout(c *echo.Context) error {
	if cookie, err := c.Request().Cookie(sessionCookieName); err == nil {
		s.sessions.revoke(cookie.Value)
	}
	http.SetCookie(c.Response(), &http.Cookie{Name: sessionCookieName, Value: "", Path: "/admin", MaxAge: -1})
	return c.Redirect(http.StatusFound, "/admin/login")
}

func (s *Server) handleDashboard(c *echo.Context) error {
	if !s.authorized(c) {
		return c.Redirect(http.StatusFound, "/admin/login")
	}

	cfg := s.config.GetAll()

	rows := make([]safetyRow, 0, len(cfg.SafetySettings))
	for category, threshold := range cfg.SafetySettings {
		rows = append(rows, safetyRow{Category: category, Threshold: threshold, Options: thresholdOptions})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Category < rows[j].Category })

	data := dashboardData{
		SystemInstruction: cfg.SystemInstruction,
		SafetySettings:    rows,
		Flash:             c.QueryParam("msg"),
	}

	if info, err := s.telegram.WebhookInfo(); err != nil {
		slog.Warn("fetching webhook info", logger.Err(err))
	} else {
		data.WebhookURL = info.URL
		data.PendingUpdates = info.PendingUpdateCount
	}

	return s.renderTemplate(c, "dashboard.html", data)
}

func (s *Server) handleSaveConfig(c *echo.Context) error {
	if !s.authorized(c) {
		return c.Redirect(http.StatusFound, "/admin/login")
	}

	settings := make(map[domain.HarmCategory]domain.BlockThreshold)
	for category := range domain.DefaultAIConfig().SafetySettings {
		if value := c.FormValue("safety_" + string(category)); value != "" {
			settings[category] = domain.BlockThreshold(value)
		}
	}

	ok := s.config.SetItem(domain.SystemInstructionKey, c.FormValue("system_instruction"))
	ok = s.config.SetItem(domain.SafetySettingsKey, settings) && ok

	msg := "Configuração salva."
	if !ok {
		msg = "Falha ao salvar no armazenamento remoto."
	}
	return c.Redirect(http.StatusFound, "/admin?msg="+url.QueryEscape(msg))
}

// handleSimulate injects a synthetic text update into the dispatcher, the
// same path a real webhook delivery takes.
func (s *Server) handleSimulate(c *echo.Context) error {
	if !s.authorized(c) {
		return c.Redirect(http.StatusFound, "/admin/login")
	}

	chatID, err := strconv.ParseInt(c.FormValue("chat_id"), 10, 64)
	if err != nil {
		return c.Redirect(http.StatusFound, "/admin?msg="+url.QueryEscape("ID de chat inválido."))
	}

	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: c.FormValue("text"),
			Chat: &tgbotapi.Chat{ID: chatID},
		},
	}
	s.dispatcher.HandleUpdate(c.Request().Context(), &update)

	return c.Redirect(http.StatusFound, "/admin?msg="+url.QueryEscape("Mensagem simulada enviada."))
}

func (s *Server) handleSetWebhook(c *echo.Context) error {
	if !s.authorized(c) {
		return c.Redirect(http.StatusFound, "/admin/login")
	}

	webhookURL := c.FormValue("url")
	msg := "Webhook configurado."
	if err := s.telegram.SetWebhook(webhookURL); err != nil {
		slog.Error("setting webhook", "url", webhookURL, logger.Err(err))
		msg = "Falha ao configurar o webhook."
	}
	return c.Redirect(http.StatusFound, "/admin?msg="+url.QueryEscape(msg))
}

func (s *Server) renderTemplate(c *echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTML(http.StatusOK, buf.String())
}
