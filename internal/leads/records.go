package leads

import "time"

// TimestampLayout is the wall-clock format written to both journals.
const TimestampLayout = "2006-01-02 15:04:05"

// LeadRecord is one line of the customer leads journal. Field order matches
// the on-disk key order.
type LeadRecord struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Name      string `json:"name" yaml:"name"`
	Email     string `json:"email" yaml:"email"`
	Message   string `json:"message" yaml:"message"`
}

// FeedbackRecord is one line of the feedback journal.
type FeedbackRecord struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Question  string `json:"question" yaml:"question"`
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}
