package formatter

import (
	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/treadwise/agent/internal/leads"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	green := lipgloss.Color("35")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(green).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(green),
	}
}

func (f *TableFormatter) FormatLeads(records []leads.LeadRecord) (string, error) {
	if len(records) == 0 {
		return "No leads recorded", nil
	}

	t := f.newTable().Headers("Timestamp", "Name", "Email", "Message")
	for _, r := range records {
		t.Row(r.Timestamp, truncateString(r.Name, 24), truncateString(r.Email, 32), truncateString(r.Message, 48))
	}
	return t.String(), nil
}

func (f *TableFormatter) FormatFeedback(records []leads.FeedbackRecord) (string, error) {
	if len(records) == 0 {
		return "No questions logged", nil
	}

	t := f.newTable().Headers("Timestamp", "Question")
	for _, r := range records {
		t.Row(r.Timestamp, truncateString(r.Question, 72))
	}
	return t.String(), nil
}

func (f *TableFormatter) newTable() *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		})
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
