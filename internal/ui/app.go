// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/treeline/internal/config"
	"github.com/jeranaias/treeline/internal/layout"
	"github.com/jeranaias/treeline/internal/model"
	"github.com/jeranaias/treeline/internal/ollama"
	"github.com/jeranaias/treeline/internal/prompt"
	"github.com/jeranaias/treeline/internal/segment"
	"github.com/jeranaias/treeline/internal/session"
)

// =============================================================================
// APP STATE
// =============================================================================

// mode represents the current input mode.
type mode int

const (
	modeBrowse   mode = iota // Navigating the tree
	modeAsk                  // Typing a question
	modeSessions             // Session picker
	modeBusy                 // Waiting on the model
)

// entry is one visible row of the tree outline.
type entry struct {
	id    string
	depth int
}

// App is the Bubble Tea model for the treeline TUI.
type App struct {
	cfg      *config.Config
	mgr      *session.Manager
	engine   *layout.Engine
	client   *ollama.Client
	renderer *glamour.TermRenderer

	mode mode

	// Tree outline
	order    []entry
	selected int

	// Branch state for the next question
	askParentID   string // "" = new root
	branchSection *int   // nil = full parent answer

	// Session picker
	sessions   []session.Meta
	sessionIdx int

	// Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Dimensions
	width  int
	height int
	ready  bool

	status string
	errMsg string

	// refit is set by the layout-complete hook so the next render re-centers
	// the detail viewport.
	refit bool
}

// ConfigReloadedMsg carries freshly loaded layout settings into the update
// loop. The config watcher fires on its own goroutine; it must send this
// message instead of touching the tree, which only the event loop owns.
type ConfigReloadedMsg struct {
	Layout layout.Config
}

// answerMsg carries a completed model call back into the update loop.
type answerMsg struct {
	parentID string
	section  *int
	question string
	answer   string
	err      error
}

// New creates the app over an already-loaded session manager.
func New(cfg *config.Config, mgr *session.Manager, engine *layout.Engine, client *ollama.Client) (*App, error) {
	renderer, err := newRenderer(cfg.UI.Theme, cfg.UI.WordWrap)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}

	input := textinput.New()
	input.Placeholder = "Type a question..."
	input.CharLimit = 0

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(promptStyle),
	)

	a := &App{
		cfg:      cfg,
		mgr:      mgr,
		engine:   engine,
		client:   client,
		renderer: renderer,
		input:    input,
		spinner:  sp,
		status:   "n: new question  enter: follow-up  s: sessions  q: quit",
	}

	// Layout notification hook: a display layer refits its viewport after
	// every auto-layout pass.
	engine.OnComplete(func(map[string]model.Position) {
		a.refit = true
	})

	a.rebuildOrder()
	return a, nil
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		detailHeight := a.detailHeight()
		if !a.ready {
			a.viewport = viewport.New(msg.Width, detailHeight)
			a.ready = true
		} else {
			a.viewport.Width = msg.Width
			a.viewport.Height = detailHeight
		}
		a.input.Width = msg.Width - 4
		a.refreshDetail()
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case answerMsg:
		return a.handleAnswer(msg)

	case ConfigReloadedMsg:
		a.engine.SetConfig(msg.Layout)
		a.engine.Apply(a.mgr.Tree())
		a.status = "layout settings reloaded"
		return a, nil

	case tea.KeyMsg:
		switch a.mode {
		case modeAsk:
			return a.updateAsk(msg)
		case modeSessions:
			return a.updateSessions(msg)
		case modeBusy:
			if msg.String() == "ctrl+c" {
				return a, tea.Quit
			}
			return a, nil
		default:
			return a.updateBrowse(msg)
		}
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

// -----------------------------------------------------------------------------
// Browse mode
// -----------------------------------------------------------------------------

func (a *App) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "up", "k":
		if a.selected > 0 {
			a.selected--
			a.branchSection = nil
			a.refreshDetail()
		}
		return a, nil

	case "down", "j":
		if a.selected < len(a.order)-1 {
			a.selected++
			a.branchSection = nil
			a.refreshDetail()
		}
		return a, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	case "n":
		// New root question: no branch point, no section.
		a.askParentID = ""
		a.branchSection = nil
		return a.enterAsk()

	case "enter":
		if id, ok := a.selectedID(); ok {
			a.askParentID = id
			return a.enterAsk()
		}
		a.askParentID = ""
		return a.enterAsk()

	case "d":
		if id, ok := a.selectedID(); ok {
			a.mgr.Tree().DeleteNode(id)
			a.engine.Apply(a.mgr.Tree())
			a.rebuildOrder()
			if a.selected >= len(a.order) {
				a.selected = len(a.order) - 1
			}
			if a.selected < 0 {
				a.selected = 0
			}
			a.refreshDetail()
			a.status = "deleted node and descendants"
		}
		return a, nil

	case " ", "c":
		if id, ok := a.selectedID(); ok {
			a.mgr.Tree().ToggleCollapse(id)
			a.rebuildOrder()
			if a.selected >= len(a.order) {
				a.selected = len(a.order) - 1
			}
			a.refreshDetail()
		}
		return a, nil

	case "r":
		a.engine.Apply(a.mgr.Tree())
		a.status = "layout recomputed"
		return a, nil

	case "0":
		a.branchSection = nil
		a.status = "branching from the full answer"
		return a, nil

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return a.pickSection(key)

	case "s":
		a.sessions = a.mgr.List()
		a.sessionIdx = 0
		a.mode = modeSessions
		return a, nil

	case "ctrl+n":
		a.mgr.CreateNewSession()
		a.selected = 0
		a.branchSection = nil
		a.rebuildOrder()
		a.refreshDetail()
		a.status = "new session"
		return a, nil
	}

	return a, nil
}

// pickSection marks one of the selected node's answer sections as the
// context source for the next branch.
func (a *App) pickSection(key string) (tea.Model, tea.Cmd) {
	id, ok := a.selectedID()
	if !ok {
		return a, nil
	}

	idx, err := strconv.Atoi(key)
	if err != nil {
		return a, nil
	}
	idx-- // keys are 1-based

	sections, err := a.mgr.Tree().EnsureSections(id, segment.Segment)
	if err != nil || idx >= len(sections) {
		a.status = "no such section"
		return a, nil
	}

	a.branchSection = &idx
	a.status = fmt.Sprintf("branching from section %d: %s", idx+1, sections[idx].Label)
	a.refreshDetail()
	return a, nil
}

// -----------------------------------------------------------------------------
// Ask mode
// -----------------------------------------------------------------------------

func (a *App) enterAsk() (tea.Model, tea.Cmd) {
	a.mode = modeAsk
	a.errMsg = ""
	a.input.SetValue("")
	return a, a.input.Focus()
}

func (a *App) updateAsk(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeBrowse
		a.input.Blur()
		return a, nil

	case "ctrl+c":
		return a, tea.Quit

	case "enter":
		question := a.input.Value()
		if question == "" {
			return a, nil
		}
		a.input.Blur()
		a.mode = modeBusy
		a.status = "waiting for " + a.client.Model()
		return a, a.askCmd(question)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// askCmd builds the prompt for the pending branch and fires the model call.
func (a *App) askCmd(question string) tea.Cmd {
	parentID := a.askParentID
	section := a.branchSection

	var chain []*model.Node
	if parentID != "" {
		chain = a.mgr.Tree().GetNodeChain(parentID)
	}
	contextText := prompt.BuildContext(chain, section, segment.Segment)
	fullPrompt := prompt.BuildPrompt(contextText, question)

	timeout := time.Duration(a.cfg.Ollama.TimeoutSecs) * time.Second
	client := a.client

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		answer, err := client.Generate(ctx, fullPrompt)
		return answerMsg{
			parentID: parentID,
			section:  section,
			question: question,
			answer:   answer,
			err:      err,
		}
	}
}

// handleAnswer inserts the completed exchange as a new node.
func (a *App) handleAnswer(msg answerMsg) (tea.Model, tea.Cmd) {
	a.mode = modeBrowse

	if msg.err != nil {
		a.errMsg = msg.err.Error()
		return a, nil
	}

	st := a.mgr.Tree()

	n := model.NewNode(st.GenerateNodeName(msg.parentID), msg.question, msg.answer)
	n.ParentID = msg.parentID
	n.SelectedSectionIndexFromParent = msg.section
	st.AddNode(n)
	_, _ = st.EnsureSections(n.ID, segment.Segment)

	a.engine.Apply(st)

	a.branchSection = nil
	a.errMsg = ""
	a.rebuildOrder()
	a.selectNode(n.ID)
	a.refreshDetail()
	a.status = "answered: " + n.Name
	return a, nil
}

// -----------------------------------------------------------------------------
// Sessions mode
// -----------------------------------------------------------------------------

func (a *App) updateSessions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "s":
		a.mode = modeBrowse
		return a, nil

	case "ctrl+c", "q":
		return a, tea.Quit

	case "up", "k":
		if a.sessionIdx > 0 {
			a.sessionIdx--
		}
		return a, nil

	case "down", "j":
		if a.sessionIdx < len(a.sessions)-1 {
			a.sessionIdx++
		}
		return a, nil

	case "enter":
		if a.sessionIdx < len(a.sessions) {
			if err := a.mgr.LoadSession(a.sessions[a.sessionIdx].ID); err != nil {
				a.errMsg = err.Error()
			} else {
				a.selected = 0
				a.branchSection = nil
				a.rebuildOrder()
				a.refreshDetail()
				a.status = "loaded " + a.mgr.ActiveName()
			}
		}
		a.mode = modeBrowse
		return a, nil

	case "d":
		if a.sessionIdx < len(a.sessions) {
			a.mgr.DeleteSession(a.sessions[a.sessionIdx].ID)
			a.sessions = a.mgr.List()
			if a.sessionIdx >= len(a.sessions) && a.sessionIdx > 0 {
				a.sessionIdx--
			}
			a.rebuildOrder()
			a.refreshDetail()
		}
		return a, nil

	case "n":
		a.mgr.CreateNewSession()
		a.sessions = a.mgr.List()
		a.selected = 0
		a.rebuildOrder()
		a.refreshDetail()
		a.mode = modeBrowse
		return a, nil
	}

	return a, nil
}

// =============================================================================
// TREE OUTLINE
// =============================================================================

// rebuildOrder flattens the tree into visible rows, depth-first from the
// root sequence, hiding the subtrees of collapsed nodes.
func (a *App) rebuildOrder() {
	st := a.mgr.Tree()
	nodes := st.Nodes()

	a.order = a.order[:0]

	rootIDs := st.RootIDs()
	var stack []entry
	for i := len(rootIDs) - 1; i >= 0; i-- {
		stack = append(stack, entry{rootIDs[i], 0})
	}

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, ok := nodes[e.id]
		if !ok {
			continue
		}
		a.order = append(a.order, e)

		if n.IsCollapsed {
			continue
		}
		for i := len(n.ChildrenIDs) - 1; i >= 0; i-- {
			stack = append(stack, entry{n.ChildrenIDs[i], e.depth + 1})
		}
	}
}

// selectedID returns the ID of the highlighted row.
func (a *App) selectedID() (string, bool) {
	if a.selected < 0 || a.selected >= len(a.order) {
		return "", false
	}
	return a.order[a.selected].id, true
}

// selectNode moves the highlight to the given node if visible.
func (a *App) selectNode(id string) {
	for i, e := range a.order {
		if e.id == id {
			a.selected = i
			return
		}
	}
}
