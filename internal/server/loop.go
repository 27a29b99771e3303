// Package server runs the inbound update loop: long-poll for messages, map
// exact command tokens to command-service operations, and deliver the reply.
// Deliberately thin; all session semantics live in internal/command.
package server

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"groupwarden/internal/chat"
	"groupwarden/internal/command"
	sessiondomain "groupwarden/internal/session/domain"
)

// pollRetryDelay throttles re-polling after a failed GetUpdates so a platform
// outage does not become a tight retry loop.
const pollRetryDelay = 3 * time.Second

// UpdateSource is the inbound side of the chat transport.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]chat.Update, error)
}

// Loop polls for updates and dispatches them.
type Loop struct {
	source         UpdateSource
	transport      chat.Transport
	svc            *command.Service
	timeoutSeconds int
}

// NewLoop creates the update loop.
func NewLoop(source UpdateSource, transport chat.Transport, svc *command.Service, timeoutSeconds int) *Loop {
	return &Loop{source: source, transport: transport, svc: svc, timeoutSeconds: timeoutSeconds}
}

// Run polls until ctx is cancelled. Poll errors are logged and polling
// continues; a failed dispatch never stops the loop.
func (l *Loop) Run(ctx context.Context) {
	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := l.source.GetUpdates(ctx, offset, l.timeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("server: poll updates: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			l.dispatch(ctx, u.Message)
		}
	}
}

// dispatch maps one message to a command-service operation. Unrecognized
// messages are dropped silently.
func (l *Loop) dispatch(ctx context.Context, msg *chat.Message) {
	groupID := msg.ChatID()
	actor := actorFrom(msg)
	text := strings.TrimSpace(msg.Text)

	var (
		reply string
		err   error
	)
	if strings.HasPrefix(text, "/") {
		cmd, arg := splitCommand(text)
		switch cmd {
		case "/start":
			reply, err = l.svc.Start(ctx, groupID, actor)
		case "/close":
			reply, err = l.svc.Close(ctx, groupID, actor)
		case "/end":
			reply, err = l.svc.End(ctx, groupID, actor)
		case "/verify":
			reply, err = l.svc.EnableVerification(ctx, groupID, actor)
		case "/sd":
			reply, err = l.svc.SetDeadline(ctx, groupID, actor, arg)
		case "/cd":
			reply, err = l.svc.CancelDeadline(ctx, groupID, actor)
		case "/count":
			reply, err = l.svc.Count(ctx, groupID, actor)
		case "/list":
			reply, err = l.svc.List(ctx, groupID, actor)
		case "/unsafe":
			reply, err = l.svc.Unsafe(ctx, groupID, actor)
		case "/remind":
			reply, err = l.svc.Remind(ctx, groupID)
		case "/summary":
			reply, err = l.svc.Summary(ctx, groupID)
		case "/muteunsafe":
			reply, err = l.svc.MuteUnsafe(ctx, groupID, actor, arg)
		case "/ac":
			reply, err = l.svc.AddCompleted(ctx, groupID, actor, arg)
		case "/rc":
			reply, err = l.svc.RemoveCompleted(ctx, groupID, actor, arg)
		case "/refresh_admins":
			reply, err = l.svc.RefreshAdmins(ctx, groupID, actor)
		default:
			return
		}
	} else if sessiondomain.IsCompletionToken(text) {
		reply, err = l.svc.MarkComplete(ctx, groupID, actor)
	} else if link, ok := extractLink(text); ok {
		reply, err = l.svc.SubmitLink(ctx, groupID, actor, link)
	} else {
		return
	}

	if err != nil {
		log.Printf("server: dispatch %q in group %s: %v", text, groupID, err)
		reply = "Something went wrong. Please try again."
	}
	if reply == "" {
		return
	}
	if _, err := l.transport.SendMessage(ctx, groupID, reply); err != nil {
		log.Printf("server: reply to group %s: %v", groupID, err)
	}
}

func actorFrom(msg *chat.Message) command.Actor {
	return command.Actor{
		UserID:    strconv.FormatInt(msg.From.ID, 10),
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	}
}

// splitCommand lowercases the command token, strips a @botname suffix, and
// returns the remainder as the argument.
func splitCommand(text string) (string, string) {
	cmd, arg, _ := strings.Cut(text, " ")
	cmd = strings.ToLower(cmd)
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	return cmd, strings.TrimSpace(arg)
}

// extractLink returns the first http(s) token in the text, if any.
func extractLink(text string) (string, bool) {
	for _, f := range strings.Fields(text) {
		if strings.HasPrefix(f, "http://") || strings.HasPrefix(f, "https://") {
			return f, true
		}
	}
	return "", false
}
