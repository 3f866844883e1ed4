package transport

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	maxUpdateSize   = 1 << 20
	queueTimeout    = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

// WebhookPath возвращает путь вебхука. Секрет входит в путь, чтобы чужие запросы получали 404.
func WebhookPath(secret string) string {
	if secret == "" {
		return "/webhook"
	}
	return "/webhook/" + secret
}

var errHandlerClosed = errors.New("webhook handler closed")

// WebhookHandler принимает обновления от Telegram. Канал out принадлежит обработчику
// и закрывается в Close.
type WebhookHandler struct {
	path         string
	out          chan<- tgbotapi.Update
	queueTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewWebhookHandler создаёт обработчик, пишущий обновления в out
func NewWebhookHandler(secret string, out chan<- tgbotapi.Update) *WebhookHandler {
	return &WebhookHandler{
		path:         WebhookPath(secret),
		out:          out,
		queueTimeout: queueTimeout,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if subtle.ConstantTimeCompare([]byte(r.URL.Path), []byte(h.path)) != 1 {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var upd tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateSize)).Decode(&upd); err != nil {
		log.WithError(err).Warn("Invalid webhook payload")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.queueTimeout)
	defer cancel()

	if err := h.enqueue(ctx, upd); err != nil {
		// Telegram повторит доставку позже
		log.WithError(err).WithField("update_id", upd.UpdateID).Warn("Update queue is unavailable, rejecting webhook")
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) enqueue(ctx context.Context, upd tgbotapi.Update) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return errHandlerClosed
	}

	select {
	case h.out <- upd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close дожидается запросов, которые пишут в канал, и закрывает его.
// Последующие запросы получают 503.
func (h *WebhookHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.out)
	}
}

// WebhookServer HTTP-сервер вебхука с проверкой живости на /healthz
type WebhookServer struct {
	srv     *http.Server
	handler *WebhookHandler
}

// NewWebhookServer создаёт сервер на addr
func NewWebhookServer(addr string, handler *WebhookHandler) *WebhookServer {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/webhook", handler)
	mux.Handle("/webhook/", handler)

	return &WebhookServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		handler: handler,
	}
}

// Handler возвращает корневой обработчик сервера
func (s *WebhookServer) Handler() http.Handler {
	return s.srv.Handler
}

// Run обслуживает запросы до отмены ctx и корректно останавливает сервер.
// После возврата канал обновлений закрыт, даже если Shutdown не дождался запросов.
func (s *WebhookServer) Run(ctx context.Context) error {
	defer s.handler.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("address", s.srv.Addr).Info("Webhook server started")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook shutdown: %w", err)
		}
		log.Info("Webhook server stopped")
		return nil
	})

	return g.Wait()
}

// Requester часть tgbotapi.BotAPI для служебных запросов
type Requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// PreparePolling удаляет вебхук, иначе getUpdates вернёт 409 Conflict
func PreparePolling(api Requester, dropPending bool) error {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// RegisterWebhook регистрирует вебхук baseURL + WebhookPath(secret).
// Пустой allowedUpdates оставляет набор типов обновлений по умолчанию.
func RegisterWebhook(api Requester, baseURL, secret string, allowedUpdates []string, dropPending bool) error {
	wh, err := tgbotapi.NewWebhook(strings.TrimRight(baseURL, "/") + WebhookPath(secret))
	if err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}
	wh.DropPendingUpdates = dropPending
	wh.AllowedUpdates = allowedUpdates
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}
