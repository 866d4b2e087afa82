// Package tui is a single-player terminal driver for the memory game.
//
// The model holds one engine.Game and replaces it on every transition. When
// two different cards are showing it schedules a MismatchMsg tagged with the
// current generation; a reset or any later change bumps the generation so a
// stale message is ignored.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wricardo/memorygame/game/engine"
)

// TickMsg refreshes the running timer
type TickMsg struct {
	Time time.Time
}

// MismatchMsg asks the model to turn unmatched cards back
type MismatchMsg struct {
	Generation uint64
}

// TickCmd sends a TickMsg after interval
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// MismatchCmd sends a MismatchMsg for generation after delay
func MismatchCmd(delay time.Duration, generation uint64) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return MismatchMsg{Generation: generation}
	})
}

// Model is the bubbletea model for one game
type Model struct {
	game          engine.Game
	mismatchDelay time.Duration
	generation    uint64
	cursor        int
	width         int
	quitting      bool
}

// NewModel wraps game; mismatched cards turn back after mismatchDelay
func NewModel(game engine.Game, mismatchDelay time.Duration) Model {
	return Model{
		game:          game,
		mismatchDelay: mismatchDelay,
	}
}

// Game returns the current game value
func (m Model) Game() engine.Game {
	return m.game
}

// Cursor returns the selected board index
func (m Model) Cursor() int {
	return m.cursor
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return TickCmd(time.Second)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case TickMsg:
		return m, TickCmd(time.Second)

	case MismatchMsg:
		if msg.Generation == m.generation && m.game.HasFlippedTwoCardsWithoutMatch() {
			m.apply(m.game.ResetUnmatchedCards())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cards := m.game.Cards()
	cols := columns(len(cards))

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "left", "h":
		if m.cursor%cols > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor%cols < cols-1 && m.cursor+1 < len(cards) {
			m.cursor++
		}
	case "up", "k":
		if m.cursor-cols >= 0 {
			m.cursor -= cols
		}
	case "down", "j":
		if m.cursor+cols < len(cards) {
			m.cursor += cols
		}
	case "enter", " ":
		return m.flip()
	case "r":
		m.apply(m.game.Reset())
	case "1", "2", "3":
		n, _ := strconv.Atoi(msg.String())
		m.apply(m.game.ResetWithDifficulty(engine.Difficulties()[n-1]))
	}

	return m, nil
}

func (m Model) flip() (tea.Model, tea.Cmd) {
	cards := m.game.Cards()
	if m.cursor >= len(cards) {
		return m, nil
	}

	next := m.game.HandleClick(cards[m.cursor])
	if next.Attempts() == m.game.Attempts() {
		return m, nil
	}
	m.apply(next)

	if m.game.HasFlippedTwoCardsWithoutMatch() {
		return m, MismatchCmd(m.mismatchDelay, m.generation)
	}
	return m, nil
}

// apply installs a new game value and invalidates pending mismatch messages
func (m *Model) apply(game engine.Game) {
	m.game = game
	m.generation++
	if n := len(game.Cards()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Memory (%s)", m.game.Difficulty())))
	b.WriteString("\n\n")
	b.WriteString(m.renderBoard())
	b.WriteString("\n")
	b.WriteString(StatusBarStyle.Render(m.statusLine()))
	b.WriteString("\n")
	b.WriteString(StatusBarStyle.Render(m.countsLine()))
	b.WriteString("\n")

	if m.game.Started() && m.game.HasMatchAllCards() {
		b.WriteString(CompletedStyle.Render(fmt.Sprintf("All pairs found in %d attempts, %s. Press r to play again.",
			m.game.Attempts(), m.game.Duration())))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("arrows/hjkl move • enter/space flip • r reset • 1/2/3 easy/medium/hard • q quit"))
	return b.String()
}

func (m Model) statusLine() string {
	pairs := len(m.game.Cards()) / engine.MatchSize
	return fmt.Sprintf("Pairs %d/%d  Attempts %d  Time %s",
		m.game.Score(), pairs, m.game.Attempts(), m.game.Duration())
}

// countsLine lists how often each card was turned face up, by board position
func (m Model) countsLine() string {
	counts := m.game.Counts()
	parts := make([]string, len(counts))
	for i, n := range counts {
		parts[i] = strconv.Itoa(n)
	}
	return "Flips " + strings.Join(parts, " ")
}

func (m Model) renderBoard() string {
	cards := m.game.Cards()
	cols := columns(len(cards))

	var rows []string
	for start := 0; start < len(cards); start += cols {
		end := min(start+cols, len(cards))
		cells := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cells = append(cells, m.renderCard(i, cards[i]))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderCard(i int, c engine.Card) string {
	label := "?"
	style := FaceDownStyle
	switch {
	case c.IsMatched:
		label, style = strconv.Itoa(c.Value), MatchedStyle
	case c.IsFaceUp:
		label, style = strconv.Itoa(c.Value), FaceUpStyle
	}
	if i == m.cursor {
		style = CursorStyle.Foreground(style.GetForeground())
	}
	return style.Render(label)
}

// columns lays n cards out in a near-square grid
func columns(n int) int {
	cols := 1
	for cols*cols < n {
		cols++
	}
	return cols
}

// Run plays game in the terminal until the user quits or ctx is done
func Run(ctx context.Context, game engine.Game, mismatchDelay time.Duration) error {
	p := tea.NewProgram(NewModel(game, mismatchDelay), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
