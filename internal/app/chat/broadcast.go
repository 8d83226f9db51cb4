package chat

import (
	"github.com/rs/zerolog"

	"lanchat/internal/app/group"
	"lanchat/internal/app/presence"
	"lanchat/internal/app/protocol"
	"lanchat/internal/pkg/logx"
	"lanchat/internal/pkg/metrics"
)

// Broadcaster fans envelopes out to online sessions. Each envelope is encoded once;
// a failed enqueue is logged and skipped, never retried, and never stops the fan-out.
type Broadcaster struct {
	presence *presence.Registry
	groups   *group.Store
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewBroadcaster builds a Broadcaster over the presence registry and group store.
func NewBroadcaster(reg *presence.Registry, groups *group.Store, m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{
		presence: reg,
		groups:   groups,
		metrics:  m,
		logger:   logx.Component("broadcast"),
	}
}

// To sends env to a single channel.
func (b *Broadcaster) To(ch presence.Channel, env protocol.Envelope) error {
	frame, err := protocol.Encode(env)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to encode envelope.")
		return err
	}
	return b.deliver(ch, frame, env.Kind)
}

// ToAll sends env to every online session and returns how many accepted it.
func (b *Broadcaster) ToAll(env protocol.Envelope) int {
	frame, err := protocol.Encode(env)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to encode broadcast envelope.")
		return 0
	}

	delivered := 0
	for _, ch := range b.presence.AllChannels() {
		if b.deliver(ch, frame, env.Kind) == nil {
			delivered++
		}
	}
	return delivered
}

// ToGroup sends env to every online member of g except exceptAccountID.
// Offline members are skipped.
func (b *Broadcaster) ToGroup(g group.Group, env protocol.Envelope, exceptAccountID string) int {
	frame, err := protocol.Encode(env)
	if err != nil {
		b.logger.Error().Err(err).Str("group_id", g.ID).Msg("Failed to encode group envelope.")
		return 0
	}

	delivered := 0
	for _, member := range g.Members {
		if member == exceptAccountID {
			continue
		}

		ch, ok := b.presence.ChannelOf(member)
		if !ok {
			continue
		}

		if b.deliver(ch, frame, env.Kind) == nil {
			delivered++
		}
	}
	return delivered
}

// OnlineNotify announces that accountID came online.
func (b *Broadcaster) OnlineNotify(accountID string) {
	b.ToAll(protocol.Notice(protocol.KindOnlineNotify, "", accountID+" is online.", 0))
}

// OfflineNotify announces that accountID went offline.
func (b *Broadcaster) OfflineNotify(accountID string) {
	b.ToAll(protocol.Notice(protocol.KindOfflineNotify, "", accountID+" is offline.", 0))
}

// OnlineUsers returns the ONLINE_USERS snapshot envelope.
func (b *Broadcaster) OnlineUsers() protocol.Envelope {
	return protocol.Envelope{
		Kind:        protocol.KindOnlineUsers,
		Sender:      protocol.ServerSender,
		OnlineUsers: b.presence.OnlineAccountIDs(),
	}
}

// GroupList returns the GROUP_LIST snapshot envelope.
func (b *Broadcaster) GroupList() protocol.Envelope {
	return protocol.Envelope{
		Kind:      protocol.KindGroupList,
		Sender:    protocol.ServerSender,
		GroupList: b.groups.Infos(),
	}
}

// PresenceChanged pushes refreshed online-user and group lists to everyone.
func (b *Broadcaster) PresenceChanged() {
	b.ToAll(b.OnlineUsers())
	b.ToAll(b.GroupList())
}

func (b *Broadcaster) deliver(ch presence.Channel, frame []byte, kind protocol.Kind) error {
	if err := ch.Enqueue(frame); err != nil {
		b.metrics.Deliveries.WithLabelValues("dropped").Inc()
		b.logger.Warn().
			Err(err).
			Str("session_id", ch.ID()).
			Str("kind", string(kind)).
			Msg("Dropping envelope for unreachable session.")
		return err
	}

	b.metrics.Deliveries.WithLabelValues("queued").Inc()
	return nil
}
