package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
	"github.com/tianyehedashu/ai-agent-sub002/internal/service"
)

// Commands
const (
	cmdCancel  = "/cancel"
	cmdApprove = "/approve"
	cmdReject  = "/reject"
	cmdModify  = "/modify"
	cmdClear   = "/clear"
	cmdSession = "/session"
	cmdQuit    = "/quit"
)

type command struct {
	name string
	arg  string
}

// parseCommand splits a slash command from its argument. Plain text yields
// an empty name.
func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{arg: line}
	}
	name, arg, _ := strings.Cut(line, " ")
	return command{name: name, arg: strings.TrimSpace(arg)}
}

type repl struct {
	svc *service.Service
	out *printer
}

// handle runs one input line and reports whether to keep reading.
func (r *repl) handle(line string) bool {
	cmd := parseCommand(line)
	switch cmd.name {
	case "":
		if cmd.arg == "" {
			return true
		}
		if _, err := r.svc.SendMessage(cmd.arg); err != nil {
			r.out.printf("Send error: %v\n", err)
		}
	case cmdCancel:
		r.svc.CancelRequest()
		r.out.printf("Cancelled\n")
	case cmdApprove:
		r.resume(domain.ResumeActionApprove, nil)
	case cmdReject:
		r.resume(domain.ResumeActionReject, nil)
	case cmdModify:
		if !json.Valid([]byte(cmd.arg)) {
			r.out.printf("Usage: /modify {\"arg\": \"value\"}\n")
			return true
		}
		r.resume(domain.ResumeActionModify, json.RawMessage(cmd.arg))
	case cmdClear:
		r.svc.ClearMessages()
		r.out.printf("Conversation cleared\n")
	case cmdSession:
		if cmd.arg != "" {
			r.svc.SetSessionID(cmd.arg)
		}
		r.out.printf("Session: %s\n", r.svc.SessionID())
	case cmdQuit:
		r.out.printf("Bye!\n")
		return false
	default:
		r.out.printf("Unknown command: %s\n", cmd.name)
	}
	return true
}

func (r *repl) resume(action domain.ResumeAction, args json.RawMessage) {
	if err := r.svc.ResumeExecution(action, args); err != nil {
		r.out.printf("Resume error: %v\n", err)
	}
}

// printer renders engine callbacks. Writes are serialized because callbacks
// arrive from stream goroutines.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) hooks() service.Hooks {
	return service.Hooks{
		OnError: func(err error) {
			p.printf("\n[error] %v\n", err)
		},
		OnSessionRecreated: func(info domain.SessionRecreationInfo) {
			p.printf("\n[session] %s was recreated: %s\n", info.SessionID, info.Message)
		},
		OnEvent: p.event,
	}
}

func (p *printer) event(_ string, ev domain.Event) {
	switch e := ev.(type) {
	case domain.TextEvent:
		p.printf("%s", e.Content)
	case domain.ToolCallEvent:
		p.printf("\n[tool] %s %s\n", e.ToolName, string(e.Arguments))
	case domain.ToolResultEvent:
		status := "ok"
		if !e.Success {
			status = "failed: " + e.Error
		}
		p.printf("[tool] %s %s\n", e.ToolName, status)
	case domain.InterruptEvent:
		p.printf("\n[approval needed] %s\n%s\n/approve, /reject or /modify {json}\n", e.Reason, string(e.PendingAction))
	case domain.DoneEvent:
		p.printf("\n")
	case domain.SessionCreatedEvent:
		if e.SessionID != "" {
			p.printf("[session] %s\n", e.SessionID)
		}
	case domain.TitleUpdatedEvent:
		if e.Title != "" {
			p.printf("[title] %s\n", e.Title)
		}
	}
}
