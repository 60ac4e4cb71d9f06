package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/domain"
	"github.com/Ezyrone/TP-Final-2/internal/repository"
	apperrors "github.com/Ezyrone/TP-Final-2/pkg/errors"
	"github.com/Ezyrone/TP-Final-2/pkg/protocol"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// handleFrame decodes one inbound frame and runs the matching command.
// Every failure ends as an error frame to the originating connection.
func (h *Hub) handleFrame(ctx context.Context, c *Client, data []byte) {
	start := time.Now()

	cmd, appErr := protocol.DecodeCommand(data)
	if appErr != nil {
		c.logger.Debug("Rejected frame", zap.String("code", appErr.Code))
		h.collector.Commands.WithLabelValues("invalid", outcome(appErr)).Inc()
		h.sendError(c, appErr.Message)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.commandTimeout)
	defer cancel()
	ctx, span := h.tracer.Start(ctx, "hub."+cmd.Type(),
		trace.WithAttributes(
			attribute.String("user.id", c.userID),
			attribute.String("connection.id", c.id),
		))
	defer span.End()

	err := cmd.Accept(&commandHandler{hub: h, client: c, ctx: ctx})

	h.collector.CommandDuration.WithLabelValues(cmd.Type()).Observe(time.Since(start).Seconds())
	if err == nil {
		h.collector.Commands.WithLabelValues(cmd.Type(), "ok").Inc()
		return
	}

	appErr = apperrors.Wrap(err)
	h.collector.Commands.WithLabelValues(cmd.Type(), outcome(appErr)).Inc()
	if appErr.Type == apperrors.ErrorTypeInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("Command failed", zap.String("type", cmd.Type()), zap.Error(err))
	} else {
		c.logger.Debug("Command rejected", zap.String("type", cmd.Type()), zap.String("reason", string(appErr.Type)))
	}
	h.sendError(c, appErr.Message)
}

func outcome(appErr *apperrors.AppError) string {
	switch appErr.Type {
	case apperrors.ErrorTypeRateLimit:
		return "rate_limited"
	case apperrors.ErrorTypeInternal:
		return "error"
	default:
		return "rejected"
	}
}

// commandHandler runs the item commands of one connection inside the hub
// loop. Mutations follow the same order: rate limit, validation, store,
// counters, item event, log entry.
type commandHandler struct {
	hub    *Hub
	client *Client
	ctx    context.Context
}

var _ protocol.CommandVisitor = (*commandHandler)(nil)

func (ch *commandHandler) allow() error {
	if !ch.hub.limiter.Allow(ch.client.userID) {
		ch.hub.collector.RateLimited.Inc()
		return apperrors.NewRateLimitError()
	}
	return nil
}

func (ch *commandHandler) VisitCreateItem(cmd protocol.CreateItem) error {
	if err := ch.allow(); err != nil {
		return err
	}
	content, err := domain.SanitizeContent(cmd.Content)
	if err != nil {
		return err
	}

	item := domain.NewItem(content, ch.client.userID, ch.client.pseudo, ch.hub.now().UTC())
	if err := ch.hub.store.Create(ch.ctx, item); err != nil {
		return apperrors.NewInternalError(fmt.Errorf("create item: %w", err))
	}

	ch.hub.recordMutation()
	ch.hub.fanout.Publish(protocol.ItemCreated{Item: item.ToWire()})
	ch.hub.pushLog(fmt.Sprintf("%s a ajouté un item", ch.client.pseudo))
	return nil
}

func (ch *commandHandler) VisitUpdateItem(cmd protocol.UpdateItem) error {
	if err := ch.allow(); err != nil {
		return err
	}
	if appErr := protocol.ValidateIDs(cmd); appErr != nil {
		return appErr
	}
	content, err := domain.SanitizeContent(cmd.Content)
	if err != nil {
		return err
	}

	item, err := ch.hub.store.Update(ch.ctx, cmd.ID, ch.client.userID, content, ch.hub.now().UTC())
	if err != nil {
		return storeError("update item", err)
	}

	ch.hub.recordMutation()
	ch.hub.fanout.Publish(protocol.ItemUpdated{Item: item.ToWire()})
	ch.hub.pushLog(fmt.Sprintf("%s a modifié un item", ch.client.pseudo))
	return nil
}

func (ch *commandHandler) VisitDeleteItem(cmd protocol.DeleteItem) error {
	if err := ch.allow(); err != nil {
		return err
	}
	if appErr := protocol.ValidateIDs(cmd); appErr != nil {
		return appErr
	}

	if err := ch.hub.store.SoftDelete(ch.ctx, cmd.ID, ch.client.userID, ch.hub.now().UTC()); err != nil {
		return storeError("delete item", err)
	}

	ch.hub.recordMutation()
	ch.hub.fanout.Publish(protocol.ItemDeleted{ID: cmd.ID})
	ch.hub.pushLog(fmt.Sprintf("%s a supprimé un item", ch.client.pseudo))
	return nil
}

// VisitPing answers on the same connection only. Pings are not rate limited
// and a ping without a numeric timestamp is ignored.
func (ch *commandHandler) VisitPing(cmd protocol.Ping) error {
	if !cmd.HasTimestamp() {
		return nil
	}
	ch.hub.fanout.SendTo(ch.client, protocol.Pong{
		EchoTimestamp:   cmd.Timestamp,
		ServerTimestamp: ch.hub.now().UnixMilli(),
	})
	return nil
}

func storeError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFoundOrForbidden) {
		return apperrors.NewNotFoundOrForbiddenError().WithCause(err)
	}
	return apperrors.NewInternalError(fmt.Errorf("%s: %w", op, err))
}
