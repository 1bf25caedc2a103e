// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/EgoistMa/tokomo-app/internal/config"
	"github.com/EgoistMa/tokomo-app/internal/handler"
	"github.com/EgoistMa/tokomo-app/internal/service"
	"github.com/EgoistMa/tokomo-app/internal/siteconfig"
	"github.com/EgoistMa/tokomo-app/internal/view"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	adminService *service.AdminService

	// Handlers
	accountHandler *handler.AccountHandler
	catalogHandler *handler.CatalogHandler
	redeemHandler  *handler.RedeemHandler
	depositHandler *handler.DepositHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config          *config.Config
	SessionService  *service.SessionService
	ProfileService  *service.ProfileService
	CatalogService  *service.CatalogService
	RedeemService   *service.RedeemService
	DepositService  *service.DepositService
	PasswordService *service.PasswordService
	AdminService    *service.AdminService
	SiteConfig      *siteconfig.Provider
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: deps.Config.Bot.PollTimeout},
		OnError: func(err error, c tele.Context) {
			evt := log.Error().Err(err)
			if c != nil && c.Sender() != nil {
				evt = evt.Int64("telegram_id", c.Sender().ID)
			}
			evt.Msg("Telegram handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:          teleBot,
		cfg:          deps.Config,
		adminService: deps.AdminService,
	}

	// Initialize handlers
	b.accountHandler = handler.NewAccountHandler(deps.SessionService, deps.ProfileService, deps.PasswordService, deps.SiteConfig)
	b.catalogHandler = handler.NewCatalogHandler(deps.CatalogService, deps.ProfileService)
	b.redeemHandler = handler.NewRedeemHandler(deps.RedeemService)
	b.depositHandler = handler.NewDepositHandler(deps.DepositService)
	b.adminHandler = handler.NewAdminHandler(deps.AdminService, deps.SiteConfig)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(PrivateChatMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Account handlers
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/help", b.accountHandler.HandleHelp)
	b.bot.Handle("/guide", b.accountHandler.HandleGuide)
	b.bot.Handle("/login", b.accountHandler.HandleLogin)
	b.bot.Handle("/register", b.accountHandler.HandleRegister)
	b.bot.Handle("/logout", b.accountHandler.HandleLogout)
	b.bot.Handle("/me", b.accountHandler.HandleMe)
	b.bot.Handle("/forgot", b.accountHandler.HandleForgot)
	b.bot.Handle("/reset", b.accountHandler.HandleReset)

	// Catalog handlers
	b.bot.Handle("/search", b.catalogHandler.HandleSearch)
	b.bot.Handle("/library", b.catalogHandler.HandleLibrary)

	// Redeem handlers
	b.bot.Handle("/vip", b.redeemHandler.HandleVIP)
	b.bot.Handle("/paycode", b.redeemHandler.HandlePaycode)
	b.bot.Handle("/payments", b.redeemHandler.HandlePayments)

	// Deposit handler
	b.bot.Handle("/deposit", b.depositHandler.HandleDeposit)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.adminService))
	adminGroup.Handle("/admin", b.adminHandler.HandleAdmin)
	adminGroup.Handle("/admin_games", b.adminHandler.HandleGames)
	adminGroup.Handle("/admin_game_add", b.adminHandler.HandleGameAdd)
	adminGroup.Handle("/admin_game_edit", b.adminHandler.HandleGameEdit)
	adminGroup.Handle("/admin_game_del", b.adminHandler.HandleGameDel)
	adminGroup.Handle("/admin_users", b.adminHandler.HandleUsers)
	adminGroup.Handle("/admin_user_edit", b.adminHandler.HandleUserEdit)
	adminGroup.Handle("/admin_user_toggle", b.adminHandler.HandleUserToggle)
	adminGroup.Handle("/admin_codes", b.adminHandler.HandleCodes)
	adminGroup.Handle("/admin_codes_gen", b.adminHandler.HandleCodesGen)
	adminGroup.Handle("/admin_vip_gen", b.adminHandler.HandleVIPGen)
	adminGroup.Handle("/admin_paycodes", b.adminHandler.HandlePaycodes)
	adminGroup.Handle("/admin_paycodes_gen", b.adminHandler.HandlePaycodesGen)
	adminGroup.Handle("/admin_paycode_edit", b.adminHandler.HandlePaycodeEdit)
	adminGroup.Handle("/admin_paycode_del", b.adminHandler.HandlePaycodeDel)
	adminGroup.Handle("/admin_records", b.adminHandler.HandleRecords)
	adminGroup.Handle("/admin_export", b.adminHandler.HandleExport)
	adminGroup.Handle("/admin_site_config", b.adminHandler.HandleSiteConfig)

	// Spreadsheet uploads authorize inside the handler: most documents are not uploads.
	b.bot.Handle(tele.OnDocument, b.adminHandler.HandleUpload)

	// Generic callback handler for inline buttons
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// callbackData strips the \f marker telebot puts in front of button data.
func callbackData(raw string) string {
	return strings.TrimPrefix(raw, "\f")
}

// handleCallback routes callbacks to appropriate handlers
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	data := callbackData(callback.Data)
	log.Debug().Str("data", data).Msg("Callback received")

	switch {
	case strings.HasPrefix(data, view.CallbackUnlock):
		return b.catalogHandler.HandleUnlockCallback(c, data)
	case strings.HasPrefix(data, view.CallbackResults):
		return b.catalogHandler.HandleResultsCallback(c, data)
	case data == view.CallbackDepositConfirm:
		return b.depositHandler.HandleConfirmCallback(c)
	case data == view.CallbackDepositCancel:
		return b.depositHandler.HandleCancelCallback(c)
	}
	return c.Respond(&tele.CallbackResponse{Text: "❌ 未知操作"})
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("bot", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
