package handlers

import (
	"errors"
	"net/http"

	"github.com/safar/go-shop-api/internal/auth"
	"github.com/safar/go-shop-api/internal/database"
	"github.com/safar/go-shop-api/internal/models"
	"github.com/safar/go-shop-api/internal/notify"
	"github.com/safar/go-shop-api/internal/store"
	"go.uber.org/zap"
)

type registerCommand struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone" validate:"omitempty,e164"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var cmd registerCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	user, err := store.CreateUser(r.Context(), h.db, cmd.Email, cmd.Name, hash, cmd.Phone)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeSession(w, user)
	h.writeJSON(w, http.StatusCreated, user)
}

type loginCommand struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var cmd loginCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	user, err := store.GetUserByEmail(r.Context(), h.db, cmd.Email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			// Same response as a wrong password so the endpoint does not
			// confirm which addresses hold accounts.
			h.writeErrorMessage(w, http.StatusUnauthorized, "BAD_CREDENTIALS", "invalid email or password")
			return
		}
		h.writeError(w, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, cmd.Password) {
		h.writeErrorMessage(w, http.StatusUnauthorized, "BAD_CREDENTIALS", "invalid email or password")
		return
	}

	h.writeSession(w, user)
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.writeJSON(w, http.StatusNoContent, nil)
}

// writeSession issues a token and sets it as the session cookie. The token is
// also returned in the body for non-browser clients.
func (h *Handler) writeSession(w http.ResponseWriter, user *models.User) {
	token, err := h.tokens.Issue(user.ID, user.IsAdmin)
	if err != nil {
		h.logger.Error("issue session token", zap.Error(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.Auth.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Server.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("X-Session-Token", token)
}

type forgotPasswordCommand struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword always answers 202. Whether the address exists, whether the
// token was minted and whether the mail went out are all invisible to the
// caller.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var cmd forgotPasswordCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	user, err := store.GetUserByEmail(r.Context(), h.db, cmd.Email)
	if err == nil {
		token, resetErr := store.CreatePasswordReset(r.Context(), h.db, user.ID, h.cfg.Auth.TokenTTL)
		if resetErr == nil {
			go func() {
				mailErr := h.mailer.Send(notify.EmailMessage{
					To:      user.Email,
					Subject: "Password reset",
					Body: "<p>Hello " + user.Name + ",</p>" +
						"<p>Use this token to reset your password: <b>" + token + "</b></p>" +
						"<p>If you did not request a reset, ignore this message.</p>",
				})
				if mailErr != nil {
					h.logger.Error("send password reset email", zap.Error(mailErr))
				}
			}()
		} else {
			h.logger.Error("create password reset", zap.Error(resetErr))
		}
	} else if !errors.Is(err, database.ErrUserNotFound) {
		h.logger.Error("lookup user for password reset", zap.Error(err))
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the address is registered, a reset email is on its way",
	})
}

type resetPasswordCommand struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var cmd resetPasswordCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	userID, err := store.ConsumePasswordReset(r.Context(), h.db, cmd.Token)
	if err != nil {
		h.writeError(w, err)
		return
	}

	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := store.UpdatePassword(r.Context(), h.db, userID, hash); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	user, err := store.GetUser(r.Context(), h.db, p.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	user.Favorites, err = store.ListFavorites(r.Context(), h.db, user.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}

type updateProfileCommand struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Phone string `json:"phone" validate:"omitempty,e164"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var cmd updateProfileCommand
	if !h.decode(w, r, &cmd) {
		return
	}

	user, err := store.UpdateUserContact(r.Context(), h.db, p.UserID, cmd.Name, cmd.Phone)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}
