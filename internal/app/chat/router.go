/*
Package chat contains the session core of the chat server: the message router, the
broadcaster, the per-connection Client and the Manager that owns them.

This file defines the Router, which dispatches every decoded envelope of a session to
the credential store, presence registry and group store, and answers the sender.
*/
package chat

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"lanchat/internal/app/account"
	"lanchat/internal/app/group"
	"lanchat/internal/app/presence"
	"lanchat/internal/app/protocol"
	"lanchat/internal/pkg/errs"
	"lanchat/internal/pkg/logx"
	"lanchat/internal/pkg/metrics"
)

// Peer is the router's view of one connection.
type Peer interface {
	presence.Channel

	// AccountID is the account bound by a successful login, empty before.
	AccountID() string

	// Bind records the logged-in account. It is called at most once per connection.
	Bind(accountID string)
}

// Limits caps the size of inbound payloads.
type Limits struct {
	MaxContentBytes int
	MaxFileBytes    int64
}

// Router dispatches envelopes. Each connection calls Dispatch from its own read loop,
// so one session's envelopes are handled in arrival order.
type Router struct {
	accounts    *account.Store
	presence    *presence.Registry
	groups      *group.Store
	broadcaster *Broadcaster
	limits      Limits
	metrics     *metrics.Metrics
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewRouter wires a Router over the stores.
func NewRouter(
	accounts *account.Store,
	reg *presence.Registry,
	groups *group.Store,
	broadcaster *Broadcaster,
	limits Limits,
	m *metrics.Metrics,
) *Router {
	return &Router{
		accounts:    accounts,
		presence:    reg,
		groups:      groups,
		broadcaster: broadcaster,
		limits:      limits,
		metrics:     m,
		validate:    newValidator(),
		logger:      logx.Component("router"),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("label")
	})
	return v
}

type credentials struct {
	AccountID string `label:"Account" validate:"required"`
	Password  string `label:"Password" validate:"required"`
}

type accountRef struct {
	AccountID string `label:"Account" validate:"required"`
}

type target struct {
	Receiver string `label:"Receiver" validate:"required"`
}

type groupRef struct {
	GroupID string `label:"Group ID" validate:"required"`
}

type groupName struct {
	Name string `label:"Group name" validate:"required"`
}

// Dispatch handles one envelope received from p.
func (r *Router) Dispatch(ctx context.Context, p Peer, env protocol.Envelope) {
	label := string(env.Kind)
	if !env.Kind.IsRequest() {
		label = "unsupported"
	}
	r.metrics.Envelopes.WithLabelValues(label).Inc()

	if p.AccountID() == "" && !env.Kind.AllowedBeforeLogin() {
		r.reply(p, env.Kind, errs.NewError(errs.ErrUnauthenticated), "")
		return
	}

	switch env.Kind {
	case protocol.KindRegister:
		r.handleRegister(ctx, p, env)
	case protocol.KindLogin:
		r.handleLogin(ctx, p, env)
	case protocol.KindFindPassword:
		r.handleFindPassword(ctx, p, env)
	case protocol.KindResetPassword:
		r.handleResetPassword(ctx, p, env)

	case protocol.KindPrivateChat:
		r.handlePrivateChat(p, env)
	case protocol.KindGroupChat:
		r.handleGroupChat(p, env)
	case protocol.KindFilePrivate:
		r.handleFilePrivate(p, env)
	case protocol.KindFileGroup:
		r.handleFileGroup(p, env)
	case protocol.KindShake:
		r.handleShake(p, env)

	case protocol.KindCreateGroup:
		r.handleCreateGroup(p, env)
	case protocol.KindSearchGroup:
		r.handleSearchGroup(p, env)
	case protocol.KindJoinGroup:
		r.handleJoinGroup(p, env)
	case protocol.KindLeaveGroup:
		r.handleLeaveGroup(p, env)

	case protocol.KindGetOnlineUsers:
		r.deliver(p, r.broadcaster.OnlineUsers())
	case protocol.KindGetGroupList:
		r.deliver(p, r.broadcaster.GroupList())

	default:
		r.logger.Warn().Str("kind", string(env.Kind)).Str("session_id", p.ID()).Msg("Unsupported envelope kind.")
		r.reply(p, env.Kind, errs.NewError(errs.ErrUnsupportedKind, env.Kind), "")
	}
}

// Disconnect tears down the session state of p: presence, memberships and the
// announcements to the remaining users. Unauthenticated peers and peers whose presence
// entry belongs to another connection leave no trace to clean.
func (r *Router) Disconnect(p Peer) {
	accountID := p.AccountID()
	if accountID == "" {
		return
	}

	if ch, ok := r.presence.ChannelOf(accountID); !ok || ch.ID() != p.ID() {
		r.logger.Debug().Str("account_id", accountID).Str("session_id", p.ID()).Msg("Presence entry owned by another session, skipping teardown.")
		return
	}

	// Memberships go first: a new login of the account cannot pass TryAdd, and so
	// cannot join the default group, while this session still holds the entry.
	r.groups.RemoveMemberEverywhere(accountID)

	if !r.presence.RemoveIf(accountID, p) {
		return
	}
	r.metrics.OnlineSessions.Dec()

	r.broadcaster.OfflineNotify(accountID)
	r.broadcaster.PresenceChanged()

	r.logger.Info().Str("account_id", accountID).Str("session_id", p.ID()).Msg("User went offline.")
}

func (r *Router) handleRegister(ctx context.Context, p Peer, env protocol.Envelope) {
	if p.AccountID() != "" {
		r.logger.Debug().Str("session_id", p.ID()).Msg("Ignoring REGISTER from an authenticated session.")
		return
	}

	if cErr := r.check(credentials{AccountID: env.Sender, Password: env.Password}); cErr != nil {
		r.reply(p, env.Kind, cErr, "")
		return
	}

	err := r.accounts.Register(ctx, env.Sender, env.Password)
	switch {
	case err == nil:
		r.replyOK(p, protocol.KindRegisterResponse, "", "Registration successful. Please log in.")
	case errors.Is(err, account.ErrAlreadyExists):
		r.reply(p, env.Kind, errs.NewError(errs.ErrAccountExists), "")
	default:
		r.reply(p, env.Kind, r.internal(err, "register"), "")
	}
}

func (r *Router) handleLogin(ctx context.Context, p Peer, env protocol.Envelope) {
	if p.AccountID() != "" {
		r.logger.Debug().Str("session_id", p.ID()).Msg("Ignoring LOGIN from an authenticated session.")
		return
	}

	accountID := env.Sender
	if cErr := r.check(credentials{AccountID: accountID, Password: env.Password}); cErr != nil {
		r.reply(p, env.Kind, cErr, "")
		return
	}

	exists, err := r.accounts.Exists(ctx, accountID)
	if err != nil {
		r.reply(p, env.Kind, r.internal(err, "login"), "")
		return
	}
	if !exists {
		r.reply(p, env.Kind, errs.NewError(errs.ErrAccountNotFound), "")
		return
	}

	ok, err := r.accounts.Verify(ctx, accountID, env.Password)
	if err != nil {
		r.reply(p, env.Kind, r.internal(err, "login"), "")
		return
	}
	if !ok {
		r.reply(p, env.Kind, errs.NewError(errs.ErrWrongPassword), "")
		return
	}

	if !r.presence.TryAdd(accountID, p) {
		r.logger.Info().Str("account_id", accountID).Str("session_id", p.ID()).Msg("Duplicate login rejected.")
		r.reply(p, env.Kind, errs.NewError(errs.ErrAlreadyLoggedIn), "")
		return
	}
	p.Bind(accountID)
	r.metrics.OnlineSessions.Inc()

	r.groups.Join(r.groups.Default().ID, accountID)

	r.replyOK(p, protocol.KindLogin, accountID, "Login successful.")

	r.broadcaster.OnlineNotify(accountID)
	r.broadcaster.PresenceChanged()

	r.logger.Info().Str("account_id", accountID).Str("session_id", p.ID()).Msg("User logged in.")
}

func (r *Router) handleFindPassword(ctx context.Context, p Peer, env protocol.Envelope) {
	if cErr := r.check(accountRef{AccountID: env.Sender}); cErr != nil {
		r.reply(p, env.Kind, cErr, "")
		return
	}

	exists, err := r.accounts.Exists(ctx, env.Sender)
	switch {
	case err != nil:
		r.reply(p, env.Kind, r.internal(err, "find password"), "")
	case !exists:
		r.reply(p, env.Kind, errs.NewError(errs.ErrAccountNotFound), "")
	default:
		r.replyOK(p, protocol.KindFindPasswordResponse, "", "Account verified. Please enter a new password.")
	}
}

func (r *Router) handleResetPassword(ctx context.Context, p Peer, env protocol.Envelope) {
	if cErr := r.check(credentials{AccountID: env.Sender, Password: env.Password}); cErr != nil {
		r.reply(p, env.Kind, cErr, "")
		return
	}

	err := r.accounts.ResetPassword(ctx, env.Sender, env.Password)
	switch {
	case err == nil:
		r.replyOK(p, protocol.KindResetPasswordResponse, "", "Password reset. Please log in with the new password.")
	case errors.Is(err, account.ErrNotFound):
		r.reply(p, env.Kind, errs.NewError(errs.ErrAccountNotFound), "")
	default:
		r.reply(p, env.Kind, r.internal(err, "reset password"), "")
	}
}

func (r *Router) handlePrivateChat(p Peer, env protocol.Envelope) {
	if cErr := r.checkText(target{Receiver: env.Receiver}, env.Content); cErr != nil {
		r.reply(p, env.Kind, cErr, p.AccountID())
		return
	}

	r.relayToUser(p, protocol.Envelope{
		Kind:     protocol.KindPrivateChat,
		Sender:   p.AccountID(),
		Receiver: env.Receiver,
		Content:  env.Content,
	})
}

func (r *Router) handleGroupChat(p Peer, env protocol.Envelope) {
	if cErr := r.checkText(groupRef{GroupID: env.Receiver}, env.Content); cErr != nil {
		r.reply(p, env.Kind, cErr, p.AccountID())
		return
	}

	g, ok := r.groups.ByID(env.Receiver)
	if !ok {
		r.reply(p, env.Kind, errs.NewError(errs.ErrGroupNotFound, env.Receiver), p.AccountID())
		return
	}

	r.broadcaster.ToGroup(g, protocol.Envelope{
		Kind:     protocol.KindGroupChat,
		Sender:   p.AccountID(),
		Receiver: g.ID,
		Content:  env.Content,
	}, p.AccountID())
}

func (r *Router) handleFilePrivate(p Peer, env protocol.Envelope) {
	if cErr := r.checkFile(target{Receiver: env.Receiver}, env); cErr != nil {
		r.reply(p, env.Kind, cErr, p.AccountID())
		return
	}

	r.relayToUser(p, fileEnvelope(protocol.KindFilePrivate, p.AccountID(), env.Receiver, env))
}

func (r *Router) handleFileGroup(p Peer, env protocol.Envelope) {
	if cErr := r.checkFile(groupRef{GroupID: env.Receiver}, env); cErr != nil {
		r.reply(p, env.Kind, cErr, p.AccountID())
		return
	}

	g, ok := r.groups.ByID(env.Receiver)
	if !ok {
		g, ok = r.groups.ByName(env.Receiver)
	}
	if !ok {
		r.reply(p, env.Kind, errs.NewError(errs.ErrGroupNotFound, env.Receiver), p.AccountID())
		return
	}

	r.broadcaster.ToGroup(g, fileEnvelope(protocol.KindFileGroup, p.AccountID(), g.ID, env), p.AccountID())
}

func (r *Router) handleShake(p Peer, env protocol.Envelope) {
	if cErr := r.check(target{Receiver: env.Receiver}); cErr != nil {
		r.reply(p, env.Kind, cErr, p.AccountID())
		return
	}

	shake := protocol.Envelope{Kind: protocol.KindShake, Sender: p.AccountID(), Receiver: env.Receiver}

	if ch, ok := r.presence.ChannelOf(env.Receiver); ok {
		r.deliver(ch, shake)
		return
	}

	g, ok := r.groups.ByName(env.Receiver)
	if !ok {
		g, ok = r.groups.ByID(env.Receiver)
	}
	if !ok {
		r.reply(p, env.Kind, errs.NewError(errs.ErrTargetNotFound, env.Receiver), p.AccountID())
		return
	}

	shake.Receiver = g.ID
	r.broadcaster.ToGroup(g, shake, p.AccountID())
}

func (r *Router) handleCreateGroup(p Peer, env protocol.Envelope) {
	name := strings.TrimSpace(env.Content)
	if cErr := r.check(groupName{Name: name}); cErr != nil {
		r.reply(p, env.Kind, cErr, p.AccountID())
		return
	}

	g := r.groups.Create(name)
	r.groups.Join(g.ID, p.AccountID())
	if snap, ok := r.groups.ByID(g.ID); ok {
		g = snap
	}

	r.deliver(p, protocol.Envelope{
		Kind:      protocol.KindGroupChat,
		Sender:    protocol.ServerSender,
		Receiver:  p.AccountID(),
		Content:   fmt.Sprintf("Group [%s] created. Group ID: %s", g.Name, g.ID),
		GroupList: []protocol.GroupInfo{g.Info()},
	})

	r.broadcaster.ToAll(r.broadcaster.GroupList())
}

func (r *Router) handleSearchGroup(p Peer, env protocol.Envelope) {
	keyword := strings.TrimSpace(env.Content)
	matches := r.groups.Search(keyword)

	content := fmt.Sprintf("No group matches \"%s\".", keyword)
	if len(matches) > 0 {
		lines := lo.Map(matches, func(g group.Group, _ int) string {
			return fmt.Sprintf("%s (ID: %s, %d members)", g.Name, g.ID, len(g.Members))
		})
		content = fmt.Sprintf("Found %d group(s):\n%s", len(matches), strings.Join(lines, "\n"))
	}

	r.deliver(p, protocol.Envelope{
		Kind:     protocol.KindGroupChat,
		Sender:   protocol.ServerSender,
		Receiver: p.AccountID(),
		Content:  content,
		GroupList: lo.Map(matches, func(g group.Group, _ int) protocol.GroupInfo {
			return g.Info()
		}),
	})
}

func (r *Router) handleJoinGroup(p Peer, env protocol.Envelope) {
	groupID := strings.TrimSpace(env.Receiver)
	if cErr := r.check(groupRef{GroupID: groupID}); cErr != nil {
		r.reply(p, env.Kind, cErr, p.AccountID())
		return
	}

	result, ok := r.groups.Join(groupID, p.AccountID())
	if !ok {
		r.reply(p, env.Kind, errs.NewError(errs.ErrGroupNotFound, groupID), p.AccountID())
		return
	}

	g, _ := r.groups.ByID(groupID)
	if result == group.AlreadyMember {
		r.reply(p, env.Kind, errs.NewError(errs.ErrAlreadyMember, g.Name), p.AccountID())
		return
	}

	r.replyOK(p, protocol.KindGroupChat, p.AccountID(), fmt.Sprintf("Joined group [%s].", g.Name))
	r.broadcaster.ToAll(r.broadcaster.GroupList())
}

func (r *Router) handleLeaveGroup(p Peer, env protocol.Envelope) {
	groupID := strings.TrimSpace(env.Receiver)
	if cErr := r.check(groupRef{GroupID: groupID}); cErr != nil {
		r.reply(p, env.Kind, cErr, p.AccountID())
		return
	}

	if r.groups.IsDefault(groupID) {
		r.reply(p, env.Kind, errs.NewError(errs.ErrDefaultGroupLeave), p.AccountID())
		return
	}

	g, ok := r.groups.ByID(groupID)
	if !ok {
		r.reply(p, env.Kind, errs.NewError(errs.ErrGroupNotFound, groupID), p.AccountID())
		return
	}

	if !r.groups.Leave(groupID, p.AccountID()) {
		r.reply(p, env.Kind, errs.NewError(errs.ErrNotMember, g.Name), p.AccountID())
		return
	}

	r.replyOK(p, protocol.KindGroupChat, p.AccountID(), fmt.Sprintf("Left group [%s].", g.Name))
	r.broadcaster.ToAll(r.broadcaster.GroupList())
}

// relayToUser delivers env to its online receiver or tells the sender it is offline.
func (r *Router) relayToUser(p Peer, env protocol.Envelope) {
	ch, ok := r.presence.ChannelOf(env.Receiver)
	if !ok {
		r.reply(p, env.Kind, errs.NewError(errs.ErrReceiverOffline, env.Receiver), p.AccountID())
		return
	}
	r.deliver(ch, env)
}

func fileEnvelope(kind protocol.Kind, sender, receiver string, in protocol.Envelope) protocol.Envelope {
	return protocol.Envelope{
		Kind:     kind,
		Sender:   sender,
		Receiver: receiver,
		FileName: in.FileName,
		FileSize: in.FileSize,
		FileData: in.FileData,
	}
}

// check validates a request struct and turns missing fields into ErrInvalidParams.
func (r *Router) check(req any) *errs.CustomError {
	err := r.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return r.internal(err, "validate")
	}

	fields := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		return fe.Field()
	})
	return errs.NewError(errs.ErrInvalidParams, strings.Join(fields, " and "))
}

func (r *Router) checkText(req any, content string) *errs.CustomError {
	if cErr := r.check(req); cErr != nil {
		return cErr
	}
	if content == "" {
		return errs.NewError(errs.ErrInvalidParams, "Message")
	}
	if len(content) > r.limits.MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}
	return nil
}

func (r *Router) checkFile(req any, env protocol.Envelope) *errs.CustomError {
	if cErr := r.check(req); cErr != nil {
		return cErr
	}
	return ValidateFile(env, r.limits.MaxFileBytes)
}

func (r *Router) internal(err error, op string) *errs.CustomError {
	r.logger.Error().Err(err).Str("op", op).Msg("Request failed.")
	return errs.NewError(errs.ErrUnknown)
}

// reply answers a failed request of kind with the reply kind clients listen for.
func (r *Router) reply(p Peer, kind protocol.Kind, cErr *errs.CustomError, receiver string) {
	r.deliver(p, protocol.Notice(NoticeKind(kind), receiver, cErr.Message, cErr.Code))
}

func (r *Router) replyOK(p Peer, kind protocol.Kind, receiver, content string) {
	r.deliver(p, protocol.Notice(kind, receiver, content, errs.OK))
}

func (r *Router) deliver(ch presence.Channel, env protocol.Envelope) {
	// enqueue failures are logged and counted by the broadcaster
	_ = r.broadcaster.To(ch, env)
}

// NoticeKind maps a request kind to the kind of the server reply it gets.
func NoticeKind(kind protocol.Kind) protocol.Kind {
	switch kind {
	case protocol.KindLogin:
		return protocol.KindLogin
	case protocol.KindRegister:
		return protocol.KindRegisterResponse
	case protocol.KindFindPassword:
		return protocol.KindFindPasswordResponse
	case protocol.KindResetPassword:
		return protocol.KindResetPasswordResponse
	case protocol.KindGroupChat, protocol.KindFileGroup, protocol.KindCreateGroup,
		protocol.KindSearchGroup, protocol.KindJoinGroup, protocol.KindLeaveGroup,
		protocol.KindGetGroupList:
		return protocol.KindGroupChat
	default:
		return protocol.KindPrivateChat
	}
}
