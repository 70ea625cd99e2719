package adapter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"charm.land/lipgloss/v2"
)

// CLIAdapter is an interactive terminal chat bound to a single session.
type CLIAdapter struct {
	replier   Replier
	sessionID string
	in        io.Reader
	out       io.Writer

	title       string
	description string
	examples    []string

	titleStyle     lipgloss.Style
	hintStyle      lipgloss.Style
	assistantStyle lipgloss.Style
	errorStyle     lipgloss.Style

	mu      sync.Mutex
	running bool
}

type CLIOptions struct {
	SessionID   string
	Title       string
	Description string
	Examples    []string
}

func NewCLIAdapter(replier Replier, in io.Reader, out io.Writer, opts CLIOptions) *CLIAdapter {
	sessionID := strings.TrimSpace(opts.SessionID)
	if sessionID == "" {
		sessionID = "local"
	}
	return &CLIAdapter{
		replier:        replier,
		sessionID:      sessionID,
		in:             in,
		out:            out,
		title:          opts.Title,
		description:    opts.Description,
		examples:       opts.Examples,
		titleStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("35")).Bold(true),
		hintStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		assistantStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		errorStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

func (a *CLIAdapter) Name() string {
	return "cli"
}

// SessionID is the key used for this terminal's conversation.
func (a *CLIAdapter) SessionID() string {
	return SessionKey(a.Name(), a.sessionID)
}

// Start runs the read-reply loop until EOF, /exit or ctx cancellation.
func (a *CLIAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	a.banner()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		a.prompt()
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(a.out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			switch strings.ToLower(line) {
			case "/exit", "/quit":
				fmt.Fprintln(a.out, a.hintStyle.Render("Goodbye!"))
				return nil
			}
			if err := a.Send(ctx, a.sessionID, a.replier.Reply(ctx, a.SessionID(), line)); err != nil {
				return err
			}
		}
	}
}

func (a *CLIAdapter) Stop(ctx context.Context) error {
	return nil
}

// Send prints a reply. Apologies are highlighted as errors.
func (a *CLIAdapter) Send(ctx context.Context, sessionID string, content string) error {
	if content == "" {
		return nil
	}
	style := a.assistantStyle
	if strings.HasPrefix(content, "I apologize, but I encountered") {
		style = a.errorStyle
	}
	_, err := fmt.Fprintln(a.out, style.Render(content))
	return err
}

func (a *CLIAdapter) Health(ctx context.Context) error {
	return nil
}

func (a *CLIAdapter) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *CLIAdapter) banner() {
	if a.title != "" {
		fmt.Fprintln(a.out, a.titleStyle.Render(a.title))
	}
	if a.description != "" {
		fmt.Fprintln(a.out, a.description)
	}
	if len(a.examples) > 0 {
		fmt.Fprintln(a.out, a.hintStyle.Render("Try: "+a.examples[0]))
	}
	fmt.Fprintln(a.out, a.hintStyle.Render("Commands: /help, /examples, /reset, /exit"))
}

func (a *CLIAdapter) prompt() {
	fmt.Fprint(a.out, "> ")
}
