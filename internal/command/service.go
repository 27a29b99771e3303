// Package command implements the session operations behind the chat command
// surface: lifecycle transitions, deadline arm/cancel, link and completion
// tracking, reporting, and bulk muting. Every operation returns a user-facing
// reply; only persistence and collaborator failures surface as errors.
package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	auditpkg "groupwarden/internal/audit"
	auditdomain "groupwarden/internal/audit/domain"
	"groupwarden/internal/authz"
	"groupwarden/internal/chat"
	deadlinerepo "groupwarden/internal/deadline/repository"
	"groupwarden/internal/deadline/scheduler"
	"groupwarden/internal/duration"
	"groupwarden/internal/events"
	eventdomain "groupwarden/internal/events/domain"
	"groupwarden/internal/moderation"
	"groupwarden/internal/platform/keylock"
	sessiondomain "groupwarden/internal/session/domain"
	sessionrepo "groupwarden/internal/session/repository"
	userdomain "groupwarden/internal/user/domain"
	userrepo "groupwarden/internal/user/repository"
)

// ErrNotVerifying is the distinguished signal that a read of the unsafe set
// was attempted while the session is not verifying. Callers must not confuse
// it with an empty unsafe set.
var ErrNotVerifying = errors.New("session is not in verifying phase")

// Actor identifies the chat user issuing a command, with enough profile to
// refresh the stored display identity.
type Actor struct {
	UserID    string
	Username  string
	FirstName string
	LastName  string
}

// Deps are the collaborators the service operates through.
type Deps struct {
	TenantID   string
	Sessions   sessionrepo.Repository
	Registry   deadlinerepo.Registry
	Scheduler  *scheduler.Scheduler
	Transport  chat.Transport
	Authorizer authz.Authorizer
	Enforcer   *moderation.Enforcer
	Users      userrepo.Repository
	Audit      auditpkg.AuditLogger
	Emitter    events.Emitter
	Locks      *keylock.KeyLock
}

// Service executes session commands for one tenant. All phase-mutating
// operations and the deadline expiry handler serialize per group through the
// shared key lock.
type Service struct {
	tenantID  string
	sessions  sessionrepo.Repository
	registry  deadlinerepo.Registry
	scheduler *scheduler.Scheduler
	transport chat.Transport
	authz     authz.Authorizer
	enforcer  *moderation.Enforcer
	users     userrepo.Repository
	audit     auditpkg.AuditLogger
	emitter   events.Emitter
	locks     *keylock.KeyLock
	nowF      func() time.Time
}

// NewService creates the command service.
func NewService(d Deps) *Service {
	if d.Audit == nil {
		d.Audit = auditpkg.NewLogger(nil)
	}
	return &Service{
		tenantID:  d.TenantID,
		sessions:  d.Sessions,
		registry:  d.Registry,
		scheduler: d.Scheduler,
		transport: d.Transport,
		authz:     d.Authorizer,
		enforcer:  d.Enforcer,
		users:     d.Users,
		audit:     d.Audit,
		emitter:   d.Emitter,
		locks:     d.Locks,
		nowF:      time.Now,
	}
}

func (s *Service) key(groupID string) string {
	return s.tenantID + ":" + groupID
}

// requireAdmin returns a denial reply when the actor is not an administrator
// of the group. An authorization lookup failure is a collaborator error.
func (s *Service) requireAdmin(ctx context.Context, groupID string, actor Actor) (string, error) {
	ok, err := s.authz.IsAdmin(ctx, groupID, actor.UserID)
	if err != nil {
		return "", fmt.Errorf("command: admin check for user %s: %w", actor.UserID, err)
	}
	if !ok {
		return "Only group admins can use this command.", nil
	}
	return "", nil
}

// persistFailure reports a store/registry failure to the alerting channel and
// wraps the error for the caller.
func (s *Service) persistFailure(ctx context.Context, groupID, op string, err error) error {
	s.emit(ctx, groupID, "", eventdomain.TypePersistenceFailure, fmt.Sprintf("%s: %v", op, err))
	return fmt.Errorf("command: %s: %w", op, err)
}

func (s *Service) emit(ctx context.Context, groupID, userID, eventType, message string) {
	events.EmitAsync(s.emitter, ctx, &eventdomain.Event{
		ID:        uuid.New().String(),
		TenantID:  s.tenantID,
		GroupID:   groupID,
		UserID:    userID,
		EventType: eventType,
		Source:    "command",
		Message:   message,
		CreatedAt: s.nowF().UTC(),
	})
}

// rememberActor refreshes the stored display identity. Best-effort.
func (s *Service) rememberActor(ctx context.Context, groupID string, actor Actor) {
	if s.users == nil || actor.UserID == "" {
		return
	}
	err := s.users.Upsert(ctx, &userdomain.Profile{
		TenantID:  s.tenantID,
		GroupID:   groupID,
		UserID:    actor.UserID,
		Username:  actor.Username,
		FirstName: actor.FirstName,
		LastName:  actor.LastName,
	})
	if err != nil {
		log.Printf("command: upsert profile for user %s: %v", actor.UserID, err)
	}
}

// Start begins a new tracking session, clearing any prior submissions and
// completions. Valid from Idle or Closed.
func (s *Service) Start(ctx context.Context, groupID string, actor Actor) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	key := s.key(groupID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	sess, err := s.sessions.Get(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "load session", err)
	}
	if !sessiondomain.CanStart(sess.Phase) {
		return "A session is already active. Use /close or /end first.", nil
	}
	if err := s.sessions.StartTracking(ctx, s.tenantID, groupID, s.nowF().UTC()); err != nil {
		return "", s.persistFailure(ctx, groupID, "start tracking", err)
	}
	s.audit.Record(ctx, s.tenantID, groupID, actor.UserID, auditdomain.ActionSessionStart, "session", "")
	return "Session started. Drop your links!", nil
}

// Close moves the session to Closed and cancels any pending deadline.
// Closing an already-closed session is a successful no-op.
func (s *Service) Close(ctx context.Context, groupID string, actor Actor) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	key := s.key(groupID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	sess, err := s.sessions.Get(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "load session", err)
	}
	if !sessiondomain.CanClose(sess.Phase) {
		return "No active session to close.", nil
	}
	if err := s.scheduler.Cancel(ctx, groupID); err != nil {
		return "", s.persistFailure(ctx, groupID, "cancel deadline", err)
	}
	if sess.Phase == sessiondomain.PhaseClosed {
		return "Session is already closed.", nil
	}
	if err := s.sessions.SetPhase(ctx, s.tenantID, groupID, sessiondomain.PhaseClosed); err != nil {
		return "", s.persistFailure(ctx, groupID, "close session", err)
	}
	s.audit.Record(ctx, s.tenantID, groupID, actor.UserID, auditdomain.ActionSessionClose, "session", "")
	return "Session closed.", nil
}

// End returns the group to Idle, clearing all submission and verification
// state and cancelling any pending deadline.
func (s *Service) End(ctx context.Context, groupID string, actor Actor) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	key := s.key(groupID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	sess, err := s.sessions.Get(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "load session", err)
	}
	if sess.Phase == sessiondomain.PhaseIdle {
		return "No session to end.", nil
	}
	if err := s.scheduler.Cancel(ctx, groupID); err != nil {
		return "", s.persistFailure(ctx, groupID, "cancel deadline", err)
	}
	if err := s.sessions.Reset(ctx, s.tenantID, groupID); err != nil {
		return "", s.persistFailure(ctx, groupID, "reset session", err)
	}
	s.audit.Record(ctx, s.tenantID, groupID, actor.UserID, auditdomain.ActionSessionEnd, "session", "")
	return "Session ended. All state cleared.", nil
}

// EnableVerification moves Tracking to Verifying and opens chat permissions
// so members can post their acknowledgements.
func (s *Service) EnableVerification(ctx context.Context, groupID string, actor Actor) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	key := s.key(groupID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	sess, err := s.sessions.Get(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "load session", err)
	}
	if !sessiondomain.CanEnableVerification(sess.Phase) {
		return "Verification can only be enabled while a session is tracking.", nil
	}
	if err := s.sessions.SetPhase(ctx, s.tenantID, groupID, sessiondomain.PhaseVerifying); err != nil {
		return "", s.persistFailure(ctx, groupID, "enable verification", err)
	}
	if err := s.transport.SetChatPermissions(ctx, groupID, chat.OpenPermissions()); err != nil {
		log.Printf("command: open chat permissions for group %s: %v", groupID, err)
	}
	s.audit.Record(ctx, s.tenantID, groupID, actor.UserID, auditdomain.ActionVerificationEnable, "session", "")
	return "Verification enabled. Reply \"all done\" when you have checked every link.", nil
}

// SetDeadline arms an auto-close deadline. Only valid while verifying. The
// registry write happens before the timer is armed (inside Schedule), so a
// crash in between is recoverable at the next startup.
func (s *Service) SetDeadline(ctx context.Context, groupID string, actor Actor, durationText string) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	d, err := duration.Parse(durationText)
	if err != nil {
		return "Could not read that duration. Try something like \"2h\" or \"1d 30m\".", nil
	}

	key := s.key(groupID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	sess, err := s.sessions.Get(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "load session", err)
	}
	if !sessiondomain.CanSetDeadline(sess.Phase) {
		return "Deadlines can only be set while verification is running.", nil
	}
	seconds := int64(d / time.Second)
	fireAt, err := s.scheduler.Schedule(ctx, groupID, seconds)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "schedule deadline", err)
	}
	if err := s.sessions.SetDeadlineSeconds(ctx, s.tenantID, groupID, seconds); err != nil {
		log.Printf("command: record deadline seconds for group %s: %v", groupID, err)
	}
	s.audit.Record(ctx, s.tenantID, groupID, actor.UserID, auditdomain.ActionDeadlineSet, "deadline", durationText)
	s.emit(ctx, groupID, actor.UserID, eventdomain.TypeDeadlineSet, fmt.Sprintf("deadline in %s", d))
	return fmt.Sprintf("Deadline set. The session closes automatically at %s.", fireAt.UTC().Format("15:04 MST, Jan 2")), nil
}

// CancelDeadline disarms a pending deadline. Cancelling when none is armed is
// a benign no-op.
func (s *Service) CancelDeadline(ctx context.Context, groupID string, actor Actor) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	key := s.key(groupID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	entry, err := s.registry.Get(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "load deadline", err)
	}
	if entry == nil {
		return "No deadline is set.", nil
	}
	if err := s.scheduler.Cancel(ctx, groupID); err != nil {
		return "", s.persistFailure(ctx, groupID, "cancel deadline", err)
	}
	s.audit.Record(ctx, s.tenantID, groupID, actor.UserID, auditdomain.ActionDeadlineCancel, "deadline", "")
	s.emit(ctx, groupID, actor.UserID, eventdomain.TypeDeadlineCancelled, "deadline cancelled")
	return "Deadline cancelled.", nil
}

// SubmitLink records one link for the member. At most one submission per user
// per session; the first link wins.
func (s *Service) SubmitLink(ctx context.Context, groupID string, member Actor, link string) (string, error) {
	key := s.key(groupID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	sess, err := s.sessions.Get(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "load session", err)
	}
	if !sessiondomain.CanSubmit(sess.Phase) {
		return "No session is collecting links right now.", nil
	}
	s.rememberActor(ctx, groupID, member)
	added, err := s.sessions.AddSubmission(ctx, s.tenantID, groupID, member.UserID, link, s.nowF().UTC())
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "record submission", err)
	}
	if !added {
		return "You already submitted a link this session; the first one counts.", nil
	}
	return "Link recorded.", nil
}

// MarkComplete records the member's "all done" acknowledgement. Only valid
// while verifying; idempotent per user.
func (s *Service) MarkComplete(ctx context.Context, groupID string, member Actor) (string, error) {
	key := s.key(groupID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	sess, err := s.sessions.Get(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "load session", err)
	}
	if sess.Phase != sessiondomain.PhaseVerifying {
		return "Verification is not running.", nil
	}
	s.rememberActor(ctx, groupID, member)
	if err := s.sessions.MarkComplete(ctx, s.tenantID, groupID, member.UserID, s.nowF().UTC()); err != nil {
		return "", s.persistFailure(ctx, groupID, "mark complete", err)
	}
	return "Marked as done. Thanks!", nil
}

// AddCompleted is the admin override that marks another user as done.
func (s *Service) AddCompleted(ctx context.Context, groupID string, actor Actor, targetUserID string) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	key := s.key(groupID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	sess, err := s.sessions.Get(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "load session", err)
	}
	if sess.Phase != sessiondomain.PhaseVerifying {
		return "Verification is not running.", nil
	}
	if err := s.sessions.MarkComplete(ctx, s.tenantID, groupID, targetUserID, s.nowF().UTC()); err != nil {
		return "", s.persistFailure(ctx, groupID, "mark complete", err)
	}
	s.audit.Record(ctx, s.tenantID, groupID, actor.UserID, auditdomain.ActionCompletionAdd, "completion", targetUserID)
	return "Marked as done.", nil
}

// RemoveCompleted is the admin override that withdraws a user's completion.
// Removing an absent completion is a benign no-op.
func (s *Service) RemoveCompleted(ctx context.Context, groupID string, actor Actor, targetUserID string) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	key := s.key(groupID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	if err := s.sessions.RemoveCompletion(ctx, s.tenantID, groupID, targetUserID); err != nil {
		return "", s.persistFailure(ctx, groupID, "remove completion", err)
	}
	s.audit.Record(ctx, s.tenantID, groupID, actor.UserID, auditdomain.ActionCompletionRemove, "completion", targetUserID)
	return "Completion removed.", nil
}

// Count reports how many links are recorded this session. Admin-only.
func (s *Service) Count(ctx context.Context, groupID string, actor Actor) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	n, err := s.sessions.CountSubmissions(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "count submissions", err)
	}
	if n == 1 {
		return "1 link recorded.", nil
	}
	return fmt.Sprintf("%d links recorded.", n), nil
}

// List renders the recorded submissions in submission order. Admin-only.
func (s *Service) List(ctx context.Context, groupID string, actor Actor) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	subs, err := s.sessions.ListSubmissions(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "list submissions", err)
	}
	if len(subs) == 0 {
		return "No links recorded yet.", nil
	}
	ids := make([]string, len(subs))
	for i, sub := range subs {
		ids[i] = sub.UserID
	}
	profiles := s.resolveProfiles(ctx, groupID, ids)
	var b strings.Builder
	for i, sub := range subs {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, profiles[sub.UserID].DisplayName(), sub.Link)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// UnsafeUsers returns the user IDs that submitted a link but have not marked
// complete. Returns ErrNotVerifying when the session is not verifying, which
// callers must treat as distinct from an empty set.
func (s *Service) UnsafeUsers(ctx context.Context, groupID string) ([]string, error) {
	sess, err := s.sessions.Get(ctx, s.tenantID, groupID)
	if err != nil {
		return nil, s.persistFailure(ctx, groupID, "load session", err)
	}
	if sess.Phase != sessiondomain.PhaseVerifying {
		return nil, ErrNotVerifying
	}
	subs, err := s.sessions.ListSubmissions(ctx, s.tenantID, groupID)
	if err != nil {
		return nil, s.persistFailure(ctx, groupID, "list submissions", err)
	}
	completed, err := s.sessions.ListCompleted(ctx, s.tenantID, groupID)
	if err != nil {
		return nil, s.persistFailure(ctx, groupID, "list completions", err)
	}
	done := make(map[string]struct{}, len(completed))
	for _, id := range completed {
		done[id] = struct{}{}
	}
	var unsafe []string
	for _, sub := range subs {
		if _, ok := done[sub.UserID]; !ok {
			unsafe = append(unsafe, sub.UserID)
		}
	}
	return unsafe, nil
}

// Unsafe renders the unsafe set for admins.
func (s *Service) Unsafe(ctx context.Context, groupID string, actor Actor) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	ids, err := s.UnsafeUsers(ctx, groupID)
	if errors.Is(err, ErrNotVerifying) {
		return "Verification is not running.", nil
	}
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "Everyone is done. Nice.", nil
	}
	profiles := s.resolveProfiles(ctx, groupID, ids)
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = profiles[id].DisplayName()
	}
	return "Still pending:\n" + strings.Join(names, "\n"), nil
}

// Remind nudges the unsafe users by mention.
func (s *Service) Remind(ctx context.Context, groupID string) (string, error) {
	ids, err := s.UnsafeUsers(ctx, groupID)
	if errors.Is(err, ErrNotVerifying) {
		return "Verification is not running.", nil
	}
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "Nothing to remind — everyone is done.", nil
	}
	profiles := s.resolveProfiles(ctx, groupID, ids)
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = profiles[id].Mention()
	}
	return strings.Join(mentions, " ") + " — please finish checking the links and reply \"all done\".", nil
}

// Summary reports submitted/completed/pending counts for the session.
func (s *Service) Summary(ctx context.Context, groupID string) (string, error) {
	sess, err := s.sessions.Get(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "load session", err)
	}
	submitted, err := s.sessions.CountSubmissions(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "count submissions", err)
	}
	completed, err := s.sessions.ListCompleted(ctx, s.tenantID, groupID)
	if err != nil {
		return "", s.persistFailure(ctx, groupID, "list completions", err)
	}
	return fmt.Sprintf("Phase: %s\nLinks: %d\nDone: %d\nPending: %d",
		sess.Phase, submitted, len(completed), max(submitted-len(completed), 0)), nil
}

// MuteUnsafe restricts every unsafe user for the given duration (default when
// durationText is empty). Per-user failures are reported, never retried.
func (s *Service) MuteUnsafe(ctx context.Context, groupID string, actor Actor, durationText string) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	muteFor := moderation.DefaultMuteDuration
	if strings.TrimSpace(durationText) != "" {
		d, err := duration.Parse(durationText)
		if err != nil {
			return "Could not read that duration. Try something like \"2h\" or \"1d 30m\".", nil
		}
		muteFor = d
	}

	ids, err := s.UnsafeUsers(ctx, groupID)
	if errors.Is(err, ErrNotVerifying) {
		return "Verification is not running.", nil
	}
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "No one to mute — everyone is done.", nil
	}

	profileMap := s.resolveProfiles(ctx, groupID, ids)
	profiles := make([]*userdomain.Profile, len(ids))
	for i, id := range ids {
		profiles[i] = profileMap[id]
	}
	result := s.enforcer.MuteAll(ctx, groupID, profiles, muteFor)

	s.audit.Record(ctx, s.tenantID, groupID, actor.UserID, auditdomain.ActionMuteBatch, "mute",
		fmt.Sprintf("muted=%d failed=%d", len(result.Muted), len(result.Failed)))
	s.emit(ctx, groupID, actor.UserID, eventdomain.TypeMuteBatch,
		fmt.Sprintf("muted %d, failed %d", len(result.Muted), len(result.Failed)))

	var b strings.Builder
	if len(result.Muted) > 0 {
		fmt.Fprintf(&b, "Muted for %s: %s", muteFor, strings.Join(result.Muted, " "))
	}
	if len(result.Failed) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Could not mute: %s", strings.Join(result.Failed, ", "))
	}
	return b.String(), nil
}

// RefreshAdmins drops the cached administrator list and reloads it.
func (s *Service) RefreshAdmins(ctx context.Context, groupID string, actor Actor) (string, error) {
	if reply, err := s.requireAdmin(ctx, groupID, actor); reply != "" || err != nil {
		return reply, err
	}
	if err := s.authz.Refresh(ctx, groupID); err != nil {
		return "", fmt.Errorf("command: refresh admins for group %s: %w", groupID, err)
	}
	return "Admin list refreshed.", nil
}

// expirySlack absorbs timer jitter when deciding whether the registry entry a
// callback observes is the one its timer was armed for.
const expirySlack = time.Second

// HandleDeadlineExpiry runs when an armed deadline elapses. Under the group's
// lock it re-checks the registry entry: absent means a cancel or close won the
// race, and a fire time still in the future means the deadline was re-set and
// a newer timer owns it; both abort silently. Otherwise the session closes
// (idempotent) and the entry is removed in the same critical section, then the
// group is notified. Implements scheduler.ExpiryHandler.
func (s *Service) HandleDeadlineExpiry(ctx context.Context, tenantID, groupID string) error {
	key := tenantID + ":" + groupID
	s.locks.Lock(key)

	entry, err := s.registry.Get(ctx, tenantID, groupID)
	if err != nil {
		s.locks.Unlock(key)
		return s.persistFailure(ctx, groupID, "load deadline at expiry", err)
	}
	if entry == nil {
		// Cancelled or already fired; nothing to do and no announcement.
		s.locks.Unlock(key)
		return nil
	}
	if entry.Remaining(s.nowF()) > expirySlack {
		// A newer deadline superseded the one this callback was armed for;
		// its own timer fires on schedule.
		s.locks.Unlock(key)
		return nil
	}
	sess, err := s.sessions.Get(ctx, tenantID, groupID)
	if err != nil {
		s.locks.Unlock(key)
		return s.persistFailure(ctx, groupID, "load session at expiry", err)
	}
	if sess.Phase != sessiondomain.PhaseClosed {
		if err := s.sessions.SetPhase(ctx, tenantID, groupID, sessiondomain.PhaseClosed); err != nil {
			s.locks.Unlock(key)
			return s.persistFailure(ctx, groupID, "close session at expiry", err)
		}
	}
	if err := s.registry.RemoveIfPresent(ctx, tenantID, groupID); err != nil {
		s.locks.Unlock(key)
		return s.persistFailure(ctx, groupID, "remove deadline at expiry", err)
	}
	s.locks.Unlock(key)

	s.audit.Record(ctx, tenantID, groupID, "", auditdomain.ActionSessionClose, "session", "deadline")
	s.emit(ctx, groupID, "", eventdomain.TypeSessionClosedDeadline, "session closed by deadline")
	if _, err := s.transport.SendMessage(ctx, groupID, "Time is up — the session is now closed."); err != nil {
		log.Printf("command: announce deadline close for group %s: %v", groupID, err)
	}
	return nil
}

// resolveProfiles maps user IDs to stored profiles, synthesizing an ID-only
// profile for users never seen.
func (s *Service) resolveProfiles(ctx context.Context, groupID string, ids []string) map[string]*userdomain.Profile {
	var known map[string]*userdomain.Profile
	if s.users != nil {
		var err error
		known, err = s.users.GetMany(ctx, s.tenantID, groupID, ids)
		if err != nil {
			log.Printf("command: resolve profiles for group %s: %v", groupID, err)
		}
	}
	result := make(map[string]*userdomain.Profile, len(ids))
	for _, id := range ids {
		if p, ok := known[id]; ok && p != nil {
			result[id] = p
			continue
		}
		result[id] = &userdomain.Profile{TenantID: s.tenantID, GroupID: groupID, UserID: id}
	}
	return result
}
