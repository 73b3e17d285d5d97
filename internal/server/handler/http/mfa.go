package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/authkeeper/internal/middleware"
	"github.com/atinyakov/authkeeper/internal/models"
)

// MFAService defines the two-factor operations required by MFAHandler.
type MFAService interface {
	SetupMFA(ctx context.Context, userID string) (*models.MFASetup, error)
	VerifyMFA(ctx context.Context, userID, code string) error
	ResetMFA(ctx context.Context, userID string) error
}

// MFAHandler handles the /2fa endpoints. All of them act on the user bound
// to the current session.
type MFAHandler struct {
	MFAService MFAService
	Log        *zap.Logger
}

// VerifyRequest carries the TOTP code typed by the user.
type VerifyRequest struct {
	Token string `json:"token"`
}

type setupResponse struct {
	Message   string `json:"message"`
	QRCodeURL string `json:"qrCodeUrl"`
	Secret    string `json:"secret"`
}

func (h *MFAHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// Setup handles POST /2fa/setup.
func (h *MFAHandler) Setup(w http.ResponseWriter, r *http.Request) {
	setup, err := h.MFAService.SetupMFA(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger(), err)
		return
	}
	writeJSON(w, http.StatusOK, setupResponse{
		Message:   "2FA setup successful",
		QRCodeURL: setup.QRCodeURL,
		Secret:    setup.Secret,
	})
}

// Verify handles POST /2fa/verify.
func (h *MFAHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r.Context())

	var req VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger(), err)
		return
	}

	if err := h.MFAService.VerifyMFA(r.Context(), userID, req.Token); err != nil {
		writeError(w, r, h.logger(), err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "2FA verification successful"})
}

// Reset handles GET and POST /2fa/reset.
func (h *MFAHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.MFAService.ResetMFA(r.Context(), middleware.GetUserIDFromContext(r.Context())); err != nil {
		writeError(w, r, h.logger(), err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "2FA has been reset successfully"})
}
