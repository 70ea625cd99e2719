package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/treadwise/agent/internal/concurrency"
	twErrors "github.com/treadwise/agent/internal/errors"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

type SlackAdapter struct {
	signingSecret string
	botToken      string
	eventHandler  EventHandler
	port          int
	client        *slack.Client

	mu     sync.RWMutex
	server *http.Server
	wg     sync.WaitGroup
}

func NewSlackAdapter(port int, signingSecret, botToken string, eventHandler EventHandler) *SlackAdapter {
	if signingSecret == "" {
		signingSecret = os.Getenv("SLACK_SIGNING_SECRET")
	}
	if botToken == "" {
		botToken = os.Getenv("SLACK_BOT_TOKEN")
	}
	return &SlackAdapter{
		signingSecret: signingSecret,
		botToken:      botToken,
		eventHandler:  eventHandler,
		port:          port,
		client:        slack.New(botToken),
	}
}

func (s *SlackAdapter) Name() string {
	return "slack"
}

func (s *SlackAdapter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /slack/events", s.handleEvents)
	return mux
}

func (s *SlackAdapter) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Slack Adapter listening", "port", s.port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// Stop shuts the HTTP listener and waits for in-flight replies.
func (s *SlackAdapter) Stop(ctx context.Context) error {
	s.mu.RLock()
	server := s.server
	s.mu.RUnlock()
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SlackAdapter) Send(ctx context.Context, sessionID string, content string) error {
	// sessionID maps to channel ID for Slack
	_, _, err := s.client.PostMessageContext(ctx, sessionID, slack.MsgOptionText(content, false))
	if err != nil {
		return twErrors.Wrap(err, "failed to send Slack message")
	}
	slog.Debug("Slack message sent", "channel", sessionID)
	return nil
}

func (s *SlackAdapter) Health(ctx context.Context) error {
	s.mu.RLock()
	server := s.server
	s.mu.RUnlock()
	if server == nil {
		return twErrors.Transient("Slack server not started")
	}
	if s.client == nil {
		return twErrors.Transient("Slack client not initialized")
	}

	if _, err := s.client.AuthTestContext(ctx); err != nil {
		return twErrors.Transient("Slack connection failed")
	}
	return nil
}

// Wait blocks until every accepted event has been answered.
func (s *SlackAdapter) Wait() {
	s.wg.Wait()
}

func (s *SlackAdapter) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sv, err := slack.NewSecretsVerifier(r.Header, s.signingSecret)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if _, err := sv.Write(body); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := sv.Ensure(); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	eventsAPIEvent, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if eventsAPIEvent.Type == slackevents.URLVerification {
		var challenge *slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(challenge.Challenge))
		return
	}

	if eventsAPIEvent.Type == slackevents.CallbackEvent {
		var eventID string
		if cb, ok := eventsAPIEvent.Data.(*slackevents.EventsAPICallbackEvent); ok {
			eventID = cb.EventID
		}

		switch ev := eventsAPIEvent.InnerEvent.Data.(type) {
		case *slackevents.MessageEvent:
			// Ignore bot messages, including our own replies.
			if ev.BotID != "" || ev.SubType != "" {
				break
			}

			metadata := map[string]string{
				MetaEventID: eventID,
				MetaUserID:  ev.User,
				"ts":        ev.TimeStamp,
			}
			s.dispatch(r.Context(), ev.Channel, ev.Text, metadata)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// dispatch answers in the background: Slack retries any event not
// acknowledged within three seconds.
func (s *SlackAdapter) dispatch(ctx context.Context, channel, text string, metadata map[string]string) {
	if s.eventHandler == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	concurrency.SafeGo("slack-event", func() {
		defer s.wg.Done()
		if err := s.eventHandler(ctx, s.Name(), EventTypeUserMessage, channel, text, metadata); err != nil && !errors.Is(err, twErrors.ErrDuplicateEvent) {
			slog.Error("Failed to handle Slack event", "error", err)
		}
	}, nil)
}
