package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/treadwise/agent/internal/config"
	"github.com/treadwise/agent/internal/logger"
)

// FeedbackAck is returned to the model after a question is logged.
const FeedbackAck = "Question logged for review by our team."

// Journal appends one JSON record per line to a named log.
type Journal interface {
	Append(ctx context.Context, journal string, record interface{}) error
}

// Logger records sales leads and unanswered questions. It performs no
// validation: whatever the model extracted is stored verbatim.
type Logger struct {
	journal      Journal
	leadsFile    string
	feedbackFile string
	now          func() time.Time
}

type Option func(*Logger)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

func NewLogger(journal Journal, leadsFile, feedbackFile string, opts ...Option) *Logger {
	if leadsFile == "" {
		leadsFile = config.DefaultStoreLeadsFile
	}
	if feedbackFile == "" {
		feedbackFile = config.DefaultStoreFeedbackFile
	}
	l := &Logger{
		journal:      journal,
		leadsFile:    leadsFile,
		feedbackFile: feedbackFile,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordCustomerInterest appends a lead and returns the confirmation the
// model relays to the customer.
func (l *Logger) RecordCustomerInterest(ctx context.Context, email, name, message string) (string, error) {
	rec := LeadRecord{
		Timestamp: formatTimestamp(l.now()),
		Name:      name,
		Email:     email,
		Message:   message,
	}
	if err := l.journal.Append(ctx, l.leadsFile, rec); err != nil {
		return "", fmt.Errorf("append lead: %w", err)
	}

	logger.FromContext(ctx).Info("Lead recorded", "name", name, "email", email, "file", l.leadsFile)

	return fmt.Sprintf("Thank you, %s! Your information has been recorded. Our team will reach out to you at %s shortly.", name, email), nil
}

// RecordFeedback appends a question the agent could not answer.
func (l *Logger) RecordFeedback(ctx context.Context, question string) (string, error) {
	rec := FeedbackRecord{
		Timestamp: formatTimestamp(l.now()),
		Question:  question,
	}
	if err := l.journal.Append(ctx, l.feedbackFile, rec); err != nil {
		return "", fmt.Errorf("append feedback: %w", err)
	}

	logger.FromContext(ctx).Info("Feedback logged", "question", question, "file", l.feedbackFile)

	return FeedbackAck, nil
}
