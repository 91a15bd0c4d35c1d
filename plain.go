// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/jeranaias/treeline/internal/config"
	"github.com/jeranaias/treeline/internal/layout"
	"github.com/jeranaias/treeline/internal/model"
	"github.com/jeranaias/treeline/internal/ollama"
	"github.com/jeranaias/treeline/internal/prompt"
	"github.com/jeranaias/treeline/internal/segment"
	"github.com/jeranaias/treeline/internal/session"
	"github.com/jeranaias/treeline/internal/util"
)

// plainCommands is the completion set for the line-mode REPL.
var plainCommands = []string{
	":tree", ":use", ":root", ":section", ":sessions", ":session",
	":new", ":delete", ":rename", ":export", ":import", ":help", ":quit",
}

// runPlain drives the conversation tree from a line-oriented REPL for
// terminals where the full-screen TUI is unwanted.
func runPlain(cfg *config.Config, mgr *session.Manager, engine *layout.Engine, client *ollama.Client) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		var out []string
		for _, cmd := range plainCommands {
			if strings.HasPrefix(cmd, input) {
				out = append(out, cmd)
			}
		}
		return out
	})

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	r := &repl{
		cfg:    cfg,
		mgr:    mgr,
		engine: engine,
		client: client,
		width:  width,
	}

	fmt.Printf("treeline %s (plain mode) — session: %s\n", Version, mgr.ActiveName())
	fmt.Println("Type a question, or :help for commands.")

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			// liner returns ErrPromptAborted on ctrl-c and io.EOF on ctrl-d
			fmt.Println()
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == ":quit" || input == ":q" {
			return nil
		}
		if strings.HasPrefix(input, ":") {
			r.command(input)
			continue
		}
		r.ask(input)
	}
}

// repl holds the plain-mode cursor state between commands.
type repl struct {
	cfg    *config.Config
	mgr    *session.Manager
	engine *layout.Engine
	client *ollama.Client
	width  int

	// order mirrors the last printed tree so :use can address rows by number.
	order []string

	currentID string // branch point for the next question; "" = new root
	sectionIx *int   // section of the branch point to carry as context
}

// command dispatches a :-prefixed REPL command.
func (r *repl) command(input string) {
	fields := strings.Fields(input)
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch fields[0] {
	case ":help", ":h":
		r.printHelp()
	case ":tree", ":t":
		r.printTree()
	case ":use", ":u":
		r.selectNode(arg)
	case ":root":
		r.currentID = ""
		r.sectionIx = nil
		fmt.Println("next question starts a new root")
	case ":section":
		r.selectSection(arg)
	case ":sessions":
		r.printSessions()
	case ":session":
		r.switchSession(arg)
	case ":new":
		r.mgr.CreateNewSession()
		r.currentID = ""
		r.sectionIx = nil
		fmt.Println("started session:", r.mgr.ActiveName())
	case ":delete", ":d":
		r.deleteNode(arg)
	case ":rename":
		r.mgr.RenameSession(r.mgr.ActiveID(), arg)
		fmt.Println("renamed session to:", arg)
	case ":export":
		r.export(arg)
	case ":import":
		r.importSession(arg)
	default:
		fmt.Println("unknown command; :help lists commands")
	}
}

func (r *repl) printHelp() {
	fmt.Print(`Commands:
  :tree                 print the conversation tree
  :use <n>              branch from tree row n
  :root                 next question starts a new root
  :section <k>          carry only section k of the branch point (0 = all)
  :sessions             list saved sessions
  :session <n>          switch to session n from the list
  :new                  start a fresh session
  :delete <n>           delete tree row n and its descendants
  :rename <name>        rename the active session
  :export <file>        export the active session to a JSON file
  :import <file>        import a session from a JSON file
  :quit                 exit
Anything else is asked as a question.
`)
}

// ask sends a question from the current branch point.
func (r *repl) ask(question string) {
	st := r.mgr.Tree()

	var chain []*model.Node
	if r.currentID != "" {
		chain = st.GetNodeChain(r.currentID)
	}
	contextText := prompt.BuildContext(chain, r.sectionIx, segment.Segment)
	fullPrompt := prompt.BuildPrompt(contextText, question)

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(r.cfg.Ollama.TimeoutSecs)*time.Second)
	defer cancel()

	fmt.Printf("[%s thinking...]\n", r.client.Model())
	answer, err := r.client.Generate(ctx, fullPrompt)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	n := model.NewNode(st.GenerateNodeName(r.currentID), question, answer)
	n.ParentID = r.currentID
	n.SelectedSectionIndexFromParent = r.sectionIx
	st.AddNode(n)
	sections, _ := st.EnsureSections(n.ID, segment.Segment)
	r.engine.Apply(st)

	r.currentID = n.ID
	r.sectionIx = nil

	fmt.Printf("\n%s\n%s\n", n.Name, answer)
	if len(sections) > 1 {
		fmt.Println("\nsections:")
		for _, s := range sections {
			fmt.Printf("  %d. %s\n", s.Index+1, util.TruncateWidth(s.Label, r.width-8))
		}
	}
}

// printTree writes a depth-indented outline and records the row order.
func (r *repl) printTree() {
	st := r.mgr.Tree()
	nodes := st.Nodes()
	r.order = r.order[:0]

	type row struct {
		id    string
		depth int
	}
	var stack []row
	rootIDs := st.RootIDs()
	for i := len(rootIDs) - 1; i >= 0; i-- {
		stack = append(stack, row{rootIDs[i], 0})
	}

	if len(stack) == 0 {
		fmt.Println("(empty tree)")
		return
	}

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := nodes[e.id]
		if !ok {
			continue
		}

		r.order = append(r.order, e.id)
		marker := " "
		if e.id == r.currentID {
			marker = "*"
		}
		line := fmt.Sprintf("%s%3d. %s%s: %s", marker, len(r.order),
			strings.Repeat("  ", e.depth), n.Name, util.FirstLine(n.Question))
		fmt.Println(util.TruncateWidth(line, r.width))

		for i := len(n.ChildrenIDs) - 1; i >= 0; i-- {
			stack = append(stack, row{n.ChildrenIDs[i], e.depth + 1})
		}
	}
}

// rowID resolves a 1-based row number from the last :tree printout.
func (r *repl) rowID(arg string) (string, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(r.order) {
		fmt.Println("run :tree first, then pass a row number")
		return "", false
	}
	return r.order[n-1], true
}

func (r *repl) selectNode(arg string) {
	id, ok := r.rowID(arg)
	if !ok {
		return
	}
	r.currentID = id
	r.sectionIx = nil
	if n, err := r.mgr.Tree().GetNode(id); err == nil {
		fmt.Println("branching from:", n.Name)
	}
}

func (r *repl) selectSection(arg string) {
	if r.currentID == "" {
		fmt.Println("select a branch point with :use first")
		return
	}
	k, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Println("usage: :section <number>")
		return
	}
	if k == 0 {
		r.sectionIx = nil
		fmt.Println("carrying the full answer")
		return
	}

	sections, err := r.mgr.Tree().EnsureSections(r.currentID, segment.Segment)
	if err != nil || k < 1 || k > len(sections) {
		fmt.Println("no such section")
		return
	}
	idx := k - 1
	r.sectionIx = &idx
	fmt.Printf("carrying section %d: %s\n", k, sections[idx].Label)
}

func (r *repl) deleteNode(arg string) {
	id, ok := r.rowID(arg)
	if !ok {
		return
	}
	r.mgr.Tree().DeleteNode(id)
	r.engine.Apply(r.mgr.Tree())
	if r.currentID == id {
		r.currentID = ""
		r.sectionIx = nil
	}
	fmt.Println("deleted node and descendants")
	r.printTree()
}

func (r *repl) printSessions() {
	for i, meta := range r.mgr.List() {
		marker := " "
		if meta.ID == r.mgr.ActiveID() {
			marker = "*"
		}
		fmt.Printf("%s%3d. %s  (%d nodes, updated %s)\n", marker, i+1,
			meta.Name, meta.NodeCount, meta.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

func (r *repl) switchSession(arg string) {
	n, err := strconv.Atoi(arg)
	metas := r.mgr.List()
	if err != nil || n < 1 || n > len(metas) {
		fmt.Println("usage: :session <number from :sessions>")
		return
	}
	if err := r.mgr.LoadSession(metas[n-1].ID); err != nil {
		fmt.Println("error:", err)
		return
	}
	r.currentID = ""
	r.sectionIx = nil
	r.order = r.order[:0]
	fmt.Println("switched to:", r.mgr.ActiveName())
}

func (r *repl) export(path string) {
	if path == "" {
		fmt.Println("usage: :export <file>")
		return
	}
	serialized, err := r.mgr.ExportSession(r.mgr.ActiveID())
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := os.WriteFile(path, []byte(serialized), 0o600); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("exported to", path)
}

func (r *repl) importSession(path string) {
	if path == "" {
		fmt.Println("usage: :import <file>")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	id, err := r.mgr.ImportSession(string(data))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := r.mgr.LoadSession(id); err != nil {
		fmt.Println("error:", err)
		return
	}
	r.currentID = ""
	r.sectionIx = nil
	fmt.Println("imported session:", r.mgr.ActiveName())
}
