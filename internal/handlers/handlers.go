package handlers

import (
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/safar/go-shop-api/internal/auth"
	"github.com/safar/go-shop-api/internal/catalog"
	"github.com/safar/go-shop-api/internal/config"
	"github.com/safar/go-shop-api/internal/events"
	"github.com/safar/go-shop-api/internal/notify"
	"go.uber.org/zap"
)

// Handler carries the request-path dependencies. Everything is injected
// once at startup; handlers never open connections of their own.
type Handler struct {
	db       *sql.DB
	logger   *zap.Logger
	cache    *catalog.Cache
	bus      events.Publisher
	tokens   *auth.Tokens
	mailer   notify.EmailSender
	cfg      *config.Config
	validate *validator.Validate
}

func New(db *sql.DB, logger *zap.Logger, cache *catalog.Cache, bus events.Publisher, tokens *auth.Tokens, mailer notify.EmailSender, cfg *config.Config) *Handler {
	return &Handler{
		db:       db,
		logger:   logger,
		cache:    cache,
		bus:      bus,
		tokens:   tokens,
		mailer:   mailer,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}
