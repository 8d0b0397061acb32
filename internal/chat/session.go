package chat

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/picatz/bato"
	"github.com/picatz/bato/internal/chat/storage"
	"github.com/picatz/bato/stream"
	"golang.org/x/term"
)

// CommandFunc defines the function signature for executing a command.
type CommandFunc func(ctx context.Context, session *Session, input string)

// Command represents an abstract command with a name, a matching function, and an execution function.
type Command struct {
	// Name of the command.
	//
	// If Matches is nil, the command is executed when the input matches the name.
	Name string

	// Description of the command.
	Description string

	// Matches is a function that checks if the command matches the input.
	//
	// If Matches is nil, the command is executed when the input matches the name.
	// If Matches is not nil, the command is executed when Matches returns true.
	Matches func(input string) bool

	// Run is the function that executes the command.
	Run CommandFunc
}

// builtinCommands are the built-in commands available in the chat session,
// used for managing the conversation and session state.
var builtinCommands = []Command{
	{
		Name:        "exit",
		Description: "Exit the chat session.",
		// Exiting is a special case, used for documentation.
	},
	{
		Name:        "clear",
		Description: "Clear the terminal screen.",
		Run: func(ctx context.Context, s *Session, input string) {
			s.clearScreen()
		},
	},
	{
		Name:        "help",
		Description: "Show help for commands.",
		Run: func(ctx context.Context, s *Session, input string) {
			s.ShowHelp()
		},
	},
	{
		Name:        "erase",
		Description: "Forget the conversation sent with the next message.",
		Run: func(ctx context.Context, s *Session, input string) {
			s.Turns = []bato.Turn{}
			s.OutWriter.WriteString("Conversation cleared.\n")
		},
	},
	{
		Name:        "erase all",
		Description: "Forget the conversation and delete the local history.",
		Run: func(ctx context.Context, s *Session, input string) {
			s.OutWriter.WriteString("\nAre you sure you want to delete the local history? (y/n): ")
			s.OutWriter.Flush()

			confirmation, err := s.Terminal.ReadLine()
			if err != nil {
				s.OutWriter.WriteString(fmt.Sprintf("Error reading confirmation: %s\n", err))
				return
			}

			if strings.ToLower(strings.TrimSpace(confirmation)) != "y" {
				s.OutWriter.WriteString("\nHistory not deleted.\n")
				return
			}

			s.Turns = []bato.Turn{}

			entries, err := storage.All(ctx, s.StorageBackend)
			if err != nil {
				s.OutWriter.WriteString(fmt.Sprintf("Error listing history: %s\n", err))
				return
			}

			for _, entry := range entries {
				if err := s.StorageBackend.Delete(ctx, entry.Key); err != nil {
					s.OutWriter.WriteString(fmt.Sprintf("Error deleting entry %s: %s\n", entry.Key, err))
				}
			}

			if err := s.StorageBackend.Flush(ctx); err != nil {
				s.OutWriter.WriteString(fmt.Sprintf("Error flushing history: %s\n", err))
				return
			}
			s.OutWriter.WriteString(fmt.Sprintf("\nDeleted %d transcripts.\n\n", len(entries)))
		},
	},
	{
		Name:        "strict",
		Description: "Toggle strict mode, which keeps the assistant on the roadmap's subject.",
		Run: func(ctx context.Context, s *Session, input string) {
			s.StrictMode = !s.StrictMode
			s.OutWriter.WriteString(fmt.Sprintf("Strict mode %s.\n", onOff(s.StrictMode)))
		},
	},
	{
		Name:        "status",
		Description: "Show the session state.",
		Run: func(ctx context.Context, s *Session, input string) {
			s.ShowStatus()
		},
	},
	{
		Name:        "roadmap",
		Description: "Show the last roadmap, or the stored roadmap with 'roadmap:<id>'.",
		Matches: func(input string) bool {
			input = strings.TrimSpace(input)
			return input == "roadmap" || strings.HasPrefix(input, "roadmap:")
		},
		Run: func(ctx context.Context, s *Session, input string) {
			id := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), "roadmap:"))
			if id == "roadmap" {
				id = ""
			}
			s.showRoadmap(ctx, id)
		},
	},
	{
		Name: "history",
		Matches: func(input string) bool {
			// Matches "history" or "history <number>".
			switch {
			case strings.TrimSpace(input) == "history":
				return true
			case strings.HasPrefix(strings.TrimSpace(input), "history "):
				parts := strings.Fields(input)
				if len(parts) == 2 {
					_, err := strconv.Atoi(parts[1])
					return err == nil
				}
				return false
			default:
				return false
			}
		},
		Description: "Show the most recent exchanges from the local history.",
		Run: func(ctx context.Context, s *Session, input string) {
			// Default to showing the last 10 exchanges if no number is provided.
			numToShow := 10
			if parts := strings.Fields(input); len(parts) == 2 {
				if num, err := strconv.Atoi(parts[1]); err == nil {
					numToShow = num
				}
			}

			if numToShow <= 0 {
				s.OutWriter.WriteString("Invalid number of exchanges to show.\n")
				return
			}

			s.showHistory(ctx, numToShow)
		},
	},
}

// Option configures a Session.
type Option func(*Session)

// WithChatSessionID attaches the session to a chat stored by the backend. Its messages
// seed the conversation and every finished exchange is added to it.
func WithChatSessionID(id string) Option {
	return func(s *Session) {
		s.ChatSessionID = id
	}
}

// WithStrictMode sets the initial strict mode.
func WithStrictMode(strict bool) Option {
	return func(s *Session) {
		s.StrictMode = strict
	}
}

// WithPrefixMode sets how stream frames without a "data:" marker are handled.
func WithPrefixMode(mode stream.PrefixMode) Option {
	return func(s *Session) {
		s.PrefixMode = mode
	}
}

// WithLogger sets the session's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// Session encapsulates the state and behavior of a CLI chat session.
// It manages terminal I/O, the conversation, the local history, and command processing.
type Session struct {
	Client         *bato.Client
	StorageBackend storage.Backend[string, Transcript]
	Turns          []bato.Turn
	ChatSessionID  string
	StrictMode     bool
	PrefixMode     stream.PrefixMode
	Logger         *slog.Logger

	LastStatus    string
	LastRoadmapID string
	LastRoadmap   *bato.Roadmap

	Terminal   *term.Terminal
	OutWriter  *bufio.Writer
	TermWidth  int
	TermHeight int
	Commands   []Command

	mu     sync.Mutex
	cancel context.CancelFunc

	// cooked leaves raw mode for the duration of a generation, so the interrupt
	// key is delivered as a signal. It returns the function switching back.
	cooked func() (raw func())
}

// NewSession creates and initializes a new chat session.
//
// It sets the terminal to raw mode, loads the recent conversation, and registers
// the default commands.
//
// A restoration function is returned to restore the terminal state on exit.
func NewSession(ctx context.Context, client *bato.Client, r io.Reader, w io.Writer, b storage.Backend[string, Transcript], opts ...Option) (*Session, func(), error) {
	var (
		restoreFunc     = func() {} // Default no-op restore function.
		cooked          func() func()
		termWidth   int = 80 // Terminal width (default 80).
		termHeight  int = 24 // Terminal height (default 24).
	)

	// If we're running in a terminal, set it to "raw" mode.
	if stdout, ok := w.(*os.File); ok && term.IsTerminal(int(stdout.Fd())) {
		fd := int(stdout.Fd())

		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to set terminal to raw mode: %w", err)
		}

		restoreFunc = func() {
			if err := term.Restore(fd, oldState); err != nil {
				fmt.Fprintf(os.Stderr, "\nfailed to restore terminal: %s\n", err)
			}
		}

		cooked = func() func() {
			if err := term.Restore(fd, oldState); err != nil {
				return func() {}
			}
			return func() {
				_, _ = term.MakeRaw(fd)
			}
		}

		termWidth, termHeight, err = term.GetSize(fd)
		if err != nil {
			restoreFunc()
			return nil, nil, fmt.Errorf("failed to get terminal size while creating new chat session: %w", err)
		}
	}

	// Combine the reader and writer into a single io.ReadWriter.
	termReadWriter := struct {
		io.Reader
		io.Writer
	}{r, w}

	t := term.NewTerminal(termReadWriter, "")
	t.SetSize(termWidth, termHeight)

	cs := &Session{
		Client:         client,
		StorageBackend: b,
		Turns:          []bato.Turn{},
		PrefixMode:     stream.PrefixOptional,
		Logger:         slog.New(slog.DiscardHandler),
		Terminal:       t,
		OutWriter:      bufio.NewWriter(t),
		TermWidth:      termWidth,
		TermHeight:     termHeight,
		Commands:       builtinCommands,
		cooked:         cooked,
	}

	for _, opt := range opts {
		opt(cs)
	}

	// Set up tab-completion for common commands.
	t.AutoCompleteCallback = cs.autoComplete

	if err := cs.loadConversation(ctx); err != nil {
		restoreFunc()
		return nil, nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	return cs, restoreFunc, nil
}

func (cs *Session) ShowHelp() {
	cs.OutWriter.WriteString(titleStyle.Render("Commands") + " " + faintStyle.Render("(tab complete)") + "\n\n")

	for _, cmd := range cs.Commands {
		cs.OutWriter.WriteString("- " + faintStyle.Render(cmd.Name) + ": " + cmd.Description + "\n")
	}

	cs.OutWriter.WriteString("\nAnything else is sent to the assistant. Describe what you want to learn to get a roadmap.\n")
	cs.OutWriter.WriteString("Press " + faintStyle.Render("Ctrl-C") + " during a reply to stop it.\n\n")

	cs.OutWriter.Flush()
}

// ShowStatus prints the session state.
func (cs *Session) ShowStatus() {
	chatID := cs.ChatSessionID
	if chatID == "" {
		chatID = faintStyle.Render("(local only)")
	}

	cs.OutWriter.WriteString(fmt.Sprintf("Chat session: %s\n", chatID))
	cs.OutWriter.WriteString(fmt.Sprintf("Strict mode: %s\n", onOff(cs.StrictMode)))
	cs.OutWriter.WriteString(fmt.Sprintf("Prefix mode: %s\n", cs.PrefixMode))
	cs.OutWriter.WriteString(fmt.Sprintf("Turns: %d\n", len(cs.Turns)))
	if cs.LastStatus != "" {
		cs.OutWriter.WriteString(fmt.Sprintf("Last status: %s\n", cs.LastStatus))
	}
	if cs.LastRoadmapID != "" {
		cs.OutWriter.WriteString(fmt.Sprintf("Last roadmap: %s\n", cs.LastRoadmapID))
	}
}

// Run starts the main loop of the chat session.
func (cs *Session) Run(ctx context.Context) {
	cs.clearScreen()

	// User is new, show the welcome message.
	if len(cs.Turns) == 0 {
		cs.OutWriter.WriteString(titleStyle.Render("Welcome to bato!") + "\n\n")
		cs.ShowHelp()
	}

	for {
		done, err := cs.RunOnce(ctx)
		if err != nil {
			cs.OutWriter.WriteString(errorStyle.Render(fmt.Sprintf("Error: %s", err)) + "\n")
			cs.OutWriter.Flush()
		}

		if done {
			break
		}
	}

	if err := cs.StorageBackend.Flush(ctx); err != nil {
		cs.OutWriter.WriteString(fmt.Sprintf("Failed to save chat history: %s\n", err))
		cs.OutWriter.Flush()
	}
}

func doneWithoutError() (bool, error) {
	return true, nil
}

func nonFatalError(err error) (bool, error) {
	return false, err
}

func fatalError(err error) (bool, error) {
	return true, err
}

func ranSuccessfully() (bool, error) {
	return false, nil
}

// RunOnce reads one line and handles it, either as a command or as a message to the
// assistant. done is true once the session should end.
func (cs *Session) RunOnce(ctx context.Context) (done bool, err error) {
	cs.OutWriter.WriteString("‣ ")
	cs.OutWriter.Flush()

	input, err := cs.Terminal.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return doneWithoutError()
		}
		return fatalError(fmt.Errorf("failed to read input: %w", err))
	}

	trimmed := strings.TrimSpace(input)
	switch {
	case trimmed == "exit":
		return doneWithoutError()
	case trimmed == "":
		return ranSuccessfully()
	case cs.processInput(ctx, trimmed):
		return ranSuccessfully()
	}

	if err := cs.send(ctx, trimmed); err != nil {
		return nonFatalError(err)
	}

	return ranSuccessfully()
}

// Interrupt cancels the generation in flight, if any. It reports whether there was
// one to cancel.
func (cs *Session) Interrupt() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.cancel == nil {
		return false
	}
	cs.cancel()
	return true
}

func (cs *Session) setCancel(cancel context.CancelFunc) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cancel = cancel
}

// processInput iterates over the abstracted commands to see if any match the input.
// If a command matches, it is executed and the function returns true.
func (cs *Session) processInput(ctx context.Context, input string) bool {
	// Ensure the output writer is flushed after each command execution,
	// to avoid common boilerplate code that each command wants to do.
	defer cs.OutWriter.Flush()

	for _, cmd := range cs.Commands {
		if cmd.Run == nil {
			continue
		}
		switch {
		case cmd.Matches == nil:
			if input == cmd.Name {
				cmd.Run(ctx, cs, input)
				return true
			}
		case cmd.Matches(input):
			cmd.Run(ctx, cs, input)
			return true
		}
	}

	return false
}

// send streams the assistant's reply to message. Content is written as it arrives and
// status changes are shown on their own line. The finished exchange is stored in the
// local history and, for a backend chat session, added to it.
func (cs *Session) send(ctx context.Context, message string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cs.setCancel(cancel)
	defer cs.setCancel(nil)

	if cs.cooked != nil {
		defer cs.cooked()()
	}

	var acc stream.Accumulator

	s, err := cs.Client.StreamRoadmap(ctx, &bato.GenerateRoadmapRequest{
		Message:             message,
		ConversationHistory: cs.Turns,
		ChatSessionID:       cs.ChatSessionID,
		StrictMode:          cs.StrictMode,
	}, stream.WithPrefixMode(cs.PrefixMode), stream.WithOnCreated(acc.OnCreated))
	if err != nil {
		if ctx.Err() != nil {
			cs.writeCancelled()
			return nil
		}
		return err
	}

	var (
		midLine   bool
		streamErr error
	)

	for ev, err := range s.Events() {
		if err != nil {
			streamErr = err
			break
		}
		acc.Add(ev)

		switch ev.Type {
		case stream.EventTypeContent:
			cs.OutWriter.WriteString(ev.Data)
			midLine = !strings.HasSuffix(ev.Data, "\n")
		case stream.EventTypeStatus:
			if midLine {
				cs.OutWriter.WriteString("\n")
				midLine = false
			}
			cs.OutWriter.WriteString(faintStyle.Render("· "+ev.Data) + "\n")
		case stream.EventTypeError:
			if midLine {
				cs.OutWriter.WriteString("\n")
				midLine = false
			}
			cs.OutWriter.WriteString(errorStyle.Render("Error during generation: "+ev.Data) + "\n")
			if strings.Contains(ev.Data, "402") {
				cs.OutWriter.WriteString(faintStyle.Render(stream.QuotaHint) + "\n")
			}
		}
		cs.OutWriter.Flush()
	}

	cancelled := ctx.Err() != nil
	if midLine {
		cs.OutWriter.WriteString("\n")
	}

	cs.Logger.Debug("generation finished",
		"events", s.EventCount(),
		"state", s.State(),
		"roadmap", acc.RoadmapID(),
		"cancelled", cancelled,
	)

	if acc.Status() != "" {
		cs.LastStatus = acc.Status()
	}
	if acc.RoadmapID() != "" {
		cs.LastRoadmapID = acc.RoadmapID()
	}
	if r, err := bato.ParseRoadmap(acc.Text()); err == nil {
		cs.LastRoadmap = r
		cs.OutWriter.WriteString("\n" + RenderRoadmap(r, nil) + "\n")
	}

	if cancelled {
		cs.writeCancelled()
	}
	cs.OutWriter.Flush()

	transcript := Transcript{
		ChatSessionID: cs.ChatSessionID,
		Request:       message,
		Response:      acc.Text(),
		RoadmapID:     acc.RoadmapID(),
		Status:        acc.Status(),
		Errors:        acc.Errors(),
		Cancelled:     cancelled,
		CreatedAt:     time.Now().UTC(),
	}

	// The generation context is done once cancelled, the history is still written.
	if err := cs.saveTranscript(context.WithoutCancel(ctx), transcript); err != nil {
		return err
	}

	if streamErr != nil {
		return fmt.Errorf("generation failed: %w", streamErr)
	}
	if cancelled {
		return nil
	}

	cs.Turns = append(cs.Turns, transcript.Turns()...)
	cs.addToChat(ctx, transcript)

	return nil
}

func (cs *Session) writeCancelled() {
	cs.OutWriter.WriteString(faintStyle.Render("Generation cancelled.") + "\n")
	cs.OutWriter.Flush()
}

func (cs *Session) saveTranscript(ctx context.Context, t Transcript) error {
	key, err := TranscriptKey(t.CreatedAt)
	if err != nil {
		return err
	}

	if err := cs.StorageBackend.Set(ctx, key, t); err != nil {
		return fmt.Errorf("failed to save transcript to history: %w", err)
	}
	return nil
}

// addToChat stores the exchange in the backend chat session. Failures are reported
// but don't end the exchange, which is already in the local history.
func (cs *Session) addToChat(ctx context.Context, t Transcript) {
	if cs.ChatSessionID == "" {
		return
	}

	for _, req := range []*bato.AddMessageRequest{
		{Role: bato.RoleUser, Content: t.Request},
		{Role: bato.RoleAssistant, Content: t.Response, RoadmapID: t.RoadmapID},
	} {
		if _, err := cs.Client.AddMessage(ctx, cs.ChatSessionID, req); err != nil {
			cs.Logger.Warn("failed to add message to chat", "chat", cs.ChatSessionID, "role", req.Role, "error", err)
			cs.OutWriter.WriteString(errorStyle.Render(fmt.Sprintf("Failed to save message to chat: %s", err)) + "\n")
			cs.OutWriter.Flush()
			return
		}
	}
}

func (cs *Session) showRoadmap(ctx context.Context, id string) {
	if id == "" && cs.LastRoadmap != nil {
		cs.OutWriter.WriteString(RenderRoadmap(cs.LastRoadmap, nil) + "\n")
		return
	}

	id = cmp.Or(id, cs.LastRoadmapID)
	if id == "" {
		cs.OutWriter.WriteString("No roadmap yet. Describe what you want to learn to create one.\n")
		return
	}

	stored, err := cs.Client.GetRoadmap(ctx, id)
	if err != nil {
		cs.OutWriter.WriteString(fmt.Sprintf("Error getting roadmap %s: %s\n", id, err))
		return
	}

	r, err := stored.Roadmap()
	if err != nil {
		cs.OutWriter.WriteString(fmt.Sprintf("Error reading roadmap %s: %s\n", id, err))
		return
	}

	var progress *bato.Progress
	if p, err := cs.Client.GetProgress(ctx, id); err == nil {
		progress = p
	} else if !bato.IsNotFound(err) {
		cs.Logger.Warn("failed to get progress", "roadmap", id, "error", err)
	}

	cs.OutWriter.WriteString(RenderRoadmap(r, progress) + "\n")
}

func (cs *Session) showHistory(ctx context.Context, n int) {
	entries, err := Recent(ctx, cs.StorageBackend, cs.ChatSessionID, n)
	if err != nil {
		cs.OutWriter.WriteString(fmt.Sprintf("Error listing history: %s\n", err))
		return
	}

	if len(entries) == 0 {
		cs.OutWriter.WriteString("No history yet.\n")
		return
	}

	for _, entry := range entries {
		t := entry.Value

		cs.OutWriter.WriteString(faintStyle.Render(fmt.Sprintf("%s · %s", entry.Key, t.CreatedAt.Local().Format(time.DateTime))) + "\n")
		cs.OutWriter.WriteString(titleStyle.Render("you: ") + t.Request + "\n\n")

		if r, err := bato.ParseRoadmap(t.Response); err == nil {
			cs.OutWriter.WriteString(RenderRoadmap(r, nil) + "\n")
		} else if t.Response != "" {
			rendered, err := RenderMarkdown(t.Response, cs.TermWidth)
			if err != nil {
				rendered = t.Response + "\n"
			}
			cs.OutWriter.WriteString(rendered)
		}

		if t.Cancelled {
			cs.OutWriter.WriteString(faintStyle.Render("(cancelled)") + "\n")
		}
		cs.OutWriter.WriteString("---\n")
	}
}

// loadConversation seeds the conversation: from the backend chat session when one is
// set, otherwise from the most recent local exchanges.
func (cs *Session) loadConversation(ctx context.Context) error {
	if cs.ChatSessionID != "" {
		msgs, err := cs.Client.GetChatMessages(ctx, cs.ChatSessionID)
		if err != nil {
			return fmt.Errorf("failed to get chat messages: %w", err)
		}

		for _, m := range msgs {
			cs.Turns = append(cs.Turns, bato.Turn{Role: m.Role, Content: m.Content})
			if m.RoadmapID != "" {
				cs.LastRoadmapID = m.RoadmapID
			}
		}
		return nil
	}

	entries, err := Recent(ctx, cs.StorageBackend, "", 10)
	if err != nil {
		return fmt.Errorf("failed to list chat history: %w", err)
	}

	for _, entry := range entries {
		if entry.Value.Cancelled || entry.Value.ChatSessionID != "" {
			continue
		}
		cs.Turns = append(cs.Turns, entry.Value.Turns()...)
		if entry.Value.RoadmapID != "" {
			cs.LastRoadmapID = entry.Value.RoadmapID
		}
	}

	return nil
}

// clearScreen clears the terminal.
func (cs *Session) clearScreen() {
	cs.OutWriter.WriteString("\033[2J") // Clear the screen.
	cs.OutWriter.WriteString("\033[H")  // Move cursor to the top-left corner (like 'clear' command).
	cs.OutWriter.Flush()
}

// autoComplete provides basic tab-completion for common commands.
func (cs *Session) autoComplete(line string, pos int, key rune) (string, int, bool) {
	if key == '\t' {
		for _, cmd := range cs.Commands {
			if strings.HasPrefix(cmd.Name, line) {
				return cmd.Name, len(cmd.Name), true
			}
		}
	}
	return line, pos, false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
