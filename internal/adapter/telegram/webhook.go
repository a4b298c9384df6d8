package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/pscheid92/voteban/internal/domain"
)

const (
	secretTokenHeader        = "X-Telegram-Bot-Api-Secret-Token"
	webhookProcessingTimeout = 30 * time.Second
	maxUpdateBytes           = 1 << 20
)

// Dispatcher handles one decoded update. It owns error handling; the webhook
// always acknowledges so Telegram does not redeliver.
type Dispatcher interface {
	Dispatch(ctx context.Context, u domain.Update)
}

type WebhookHandler struct {
	secret     string
	dispatcher Dispatcher
}

func NewWebhookHandler(secret string, dispatcher Dispatcher) *WebhookHandler {
	return &WebhookHandler{secret: secret, dispatcher: dispatcher}
}

func (wh *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if wh.secret != "" {
		got := r.Header.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(wh.secret)) != 1 {
			slog.Warn("Webhook request with invalid secret token", "remote", r.RemoteAddr)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	var upd models.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&upd); err != nil {
		slog.Warn("Failed to decode webhook update", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Processing continues after the client disconnects.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), webhookProcessingTimeout)
	defer cancel()

	wh.dispatcher.Dispatch(ctx, toDomainUpdate(&upd))
	w.WriteHeader(http.StatusOK)
}
