// Package runtime contains the broadcast hub and its supporting workers.
// The hub loop is the single serialization point for presence mutation and
// for the append-then-fanout critical section; everything else hands
// commands to it over a channel.
package runtime

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"

	"lan-chat/contract"
	"lan-chat/domain"
	"lan-chat/domain/event"
	"lan-chat/errors"
	"lan-chat/moderation"
	"lan-chat/observability"
	"lan-chat/repositories"
)

// hubCommand wraps a domain command with the sink a join brings along.
type hubCommand struct {
	cmd  domain.Command
	sink contract.EventSink
}

// Hub owns room state. It implements contract.Worker; Run is the event loop
// that processes one command at a time, which is what guarantees that every
// session observes messages in the log's acceptance order.
type Hub struct {
	log          *slog.Logger
	registry     *Registry
	messages     repositories.IMessageRepository
	search       repositories.ISearchIndex
	moderator    *moderation.Moderator
	monitoring   *observability.MonitoringManager
	commands     chan hubCommand
	historyLimit int
}

func NewHub(
	log *slog.Logger,
	registry *Registry,
	messages repositories.IMessageRepository,
	search repositories.ISearchIndex,
	moderator *moderation.Moderator,
	monitoring *observability.MonitoringManager,
	bufferSize, historyLimit int,
) *Hub {
	return &Hub{
		log:          log,
		registry:     registry,
		messages:     messages,
		search:       search,
		moderator:    moderator,
		monitoring:   monitoring,
		commands:     make(chan hubCommand, bufferSize),
		historyLimit: historyLimit,
	}
}

// Join registers a connection and blocks until the hub accepted the command.
// History hydration and the presence snapshot arrive through the sink.
func (h *Hub) Join(ctx context.Context, connID domain.ConnectionID, identity domain.Identity, sink contract.EventSink) error {
	return h.dispatch(ctx, hubCommand{
		cmd:  domain.JoinCommand{ConnID: connID, Identity: identity},
		sink: sink,
	})
}

// Leave unregisters a connection. Safe to call for handles that never joined
// or already left.
func (h *Hub) Leave(ctx context.Context, connID domain.ConnectionID) error {
	return h.dispatch(ctx, hubCommand{cmd: domain.LeaveCommand{ConnID: connID}})
}

// Post submits one send attempt. Outcomes are reported through the sender's
// sink only; the fan-out on success reaches every session including the
// sender, in persisted order.
func (h *Hub) Post(ctx context.Context, cmd domain.PostMessageCommand) error {
	return h.dispatch(ctx, hubCommand{cmd: cmd})
}

// AnnounceFile fans out an upload notification without persisting it.
func (h *Hub) AnnounceFile(ctx context.Context, cmd domain.AnnounceFileCommand) error {
	return h.dispatch(ctx, hubCommand{cmd: cmd})
}

// dispatch blocks rather than drops: backpressure propagates to the caller's
// transport instead of silently losing a command.
func (h *Hub) dispatch(ctx context.Context, hc hubCommand) error {
	select {
	case h.commands <- hc:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the hub loop. One command at a time; no other goroutine mutates
// presence or touches the append path.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("Stopping hub loop")
			return ctx.Err()
		case hc, ok := <-h.commands:
			if !ok {
				return nil
			}
			h.log.Debug("Hub command accepted", "conn", hc.cmd.Connection())
			switch cmd := hc.cmd.(type) {
			case domain.JoinCommand:
				h.handleJoin(ctx, cmd, hc.sink)
			case domain.LeaveCommand:
				h.handleLeave(ctx, cmd)
			case domain.PostMessageCommand:
				h.handlePost(ctx, cmd)
			case domain.AnnounceFileCommand:
				h.handleAnnounce(ctx, cmd)
			}
		}
	}
}

func (h *Hub) handleJoin(ctx context.Context, cmd domain.JoinCommand, snk contract.EventSink) {
	h.registry.Subscribe(cmd.ConnID, cmd.Identity, snk)
	h.monitoring.SessionOpened()
	h.log.Info("Session joined", "name", cmd.Identity.Name, "conn", cmd.ConnID, "online", h.registry.Len())

	// Hydration runs inside the loop, so the snapshot can never miss an
	// append whose fan-out this session will observe.
	history, err := h.messages.ReadRecent(h.historyLimit)
	if err != nil {
		// Availability over completeness: the session connects with an
		// empty history instead of being refused.
		h.log.Warn("History hydration failed, replaying nothing", "err", err)
		history = nil
	}
	for _, msg := range history {
		h.deliver(ctx, snk, event.MessageBroadcast{
			ID:      msg.ID,
			Author:  msg.Author,
			Content: msg.Content,
			At:      msg.CreatedAt,
		})
	}

	h.fanout(ctx, event.UserJoined{Name: cmd.Identity.Name, At: time.Now().UTC()})
	h.fanout(ctx, event.PresenceUpdated{Online: h.registry.Snapshot(), At: time.Now().UTC()})
}

func (h *Hub) handleLeave(ctx context.Context, cmd domain.LeaveCommand) {
	identity, ok := h.registry.IdentityFor(cmd.ConnID)
	if !ok {
		return
	}
	h.registry.Unsubscribe(cmd.ConnID)
	h.monitoring.SessionClosed()
	h.log.Info("Session left", "conn", cmd.ConnID, "online", h.registry.Len())

	h.fanout(ctx, event.UserLeft{Name: identity.Name, At: time.Now().UTC()})
	h.fanout(ctx, event.PresenceUpdated{Online: h.registry.Snapshot(), At: time.Now().UTC()})
}

func (h *Hub) handlePost(ctx context.Context, cmd domain.PostMessageCommand) {
	body := strings.TrimSpace(cmd.Content)
	if body == "" {
		h.replyError(ctx, cmd.ConnID, errors.ErrEmptyMessage.Error())
		return
	}

	content := body
	if h.moderator != nil {
		censored, masked := h.moderator.Censor(body)
		if masked {
			h.log.Debug("Message censored", "author", cmd.Author)
		}
		content = censored
	}

	info := whatlanggo.Detect(content)

	persisted, err := h.messages.Append(domain.Message{
		Author:    cmd.Author,
		Content:   content,
		Lang:      info.Lang.Iso6391(),
		CreatedAt: cmd.CreatedAt,
	})
	if err != nil {
		// Durability precedes visibility: nothing is fanned out, only the
		// sender learns about the failure and may retry.
		h.monitoring.StorageError()
		h.log.Error("Append failed", "author", cmd.Author, "err", err)
		h.replyError(ctx, cmd.ConnID, "failed to send message")
		return
	}
	h.monitoring.MessagePersisted()

	if h.search != nil {
		if err := h.search.Index(persisted); err != nil {
			h.log.Warn("Search indexing failed", "id", persisted.ID, "err", err)
		}
	}

	h.fanout(ctx, event.MessageBroadcast{
		ID:      persisted.ID,
		Author:  persisted.Author,
		Content: persisted.Content,
		At:      persisted.CreatedAt,
	})
}

func (h *Hub) handleAnnounce(ctx context.Context, cmd domain.AnnounceFileCommand) {
	h.monitoring.FileShared()
	h.fanout(ctx, event.FileShared{
		Uploader: cmd.File.Uploader,
		Filename: cmd.File.Filename,
		At:       cmd.File.At,
	})
}

// fanout pushes one event to every live session. A slow consumer loses this
// event for itself only; the loop keeps going for everyone else.
func (h *Hub) fanout(ctx context.Context, e event.DomainEvent) {
	for _, snk := range h.registry.Sinks() {
		h.deliver(ctx, snk, e)
	}
}

func (h *Hub) deliver(ctx context.Context, snk contract.EventSink, e event.DomainEvent) {
	if err := snk.Consume(ctx, e); err != nil {
		h.monitoring.EventDropped()
		h.log.Debug("Event dropped for slow session", "err", err)
		return
	}
	h.monitoring.EventFanned()
}

// replyError reports a failure to one sender without touching anyone else.
func (h *Hub) replyError(ctx context.Context, connID domain.ConnectionID, reason string) {
	snk, ok := h.registry.SinkFor(connID)
	if !ok {
		// Sender already disconnected, nothing left to tell.
		return
	}
	h.deliver(ctx, snk, event.DeliveryError{Reason: reason, At: time.Now().UTC()})
}
