package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mcoot/balltoss/internal/api/apierr"
	"github.com/mcoot/balltoss/internal/model"
)

// Controller is the set of match operations reachable over the socket
type Controller interface {
	Connect(ctx context.Context, id model.PlayerID) (*model.Player, error)
	Disconnect(ctx context.Context, id model.PlayerID) error
	SetName(ctx context.Context, id model.PlayerID, name string) error
	JoinMatch(ctx context.Context, id model.PlayerID, matchID model.MatchID) error
	LeaveMatch(ctx context.Context, id model.PlayerID) error
	EndMatch(ctx context.Context, id model.PlayerID) error
	ListMatches(ctx context.Context) ([]model.MatchSummary, error)
	BallThrown(ctx context.Context, id model.PlayerID) error
	BallLost(ctx context.Context, id model.PlayerID) error
	BallCrossed(ctx context.Context, id model.PlayerID, payload json.RawMessage) error
}

// Dispatcher maps inbound frames to controller calls
type Dispatcher struct {
	controller Controller
	logger     *slog.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(controller Controller, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		controller: controller,
		logger:     logger.With(slog.String("component", "dispatch")),
	}
}

// Dispatch handles one inbound frame from the given connection and returns
// the encoded reply, or nil for relay events that are never answered
func (d *Dispatcher) Dispatch(ctx context.Context, from model.PlayerID, data []byte) []byte {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		return d.refuse(from, nil, apierr.NewInvalidRequestError("Malformed message"))
	}

	if msg.Type.IsRelay() {
		if err := d.relay(ctx, from, msg); err != nil {
			d.logger.Error("relay failed",
				slog.String("sid", string(from)),
				slog.String("event", string(msg.Type)),
				slog.Any("error", err))
		}
		return nil
	}

	result, err := d.request(ctx, from, msg)
	if err != nil {
		return d.refuse(from, msg.ID, err)
	}
	frame, err := encodeReply(msg.ID, result)
	if err != nil {
		return d.refuse(from, msg.ID, err)
	}
	return frame
}

func (d *Dispatcher) relay(ctx context.Context, from model.PlayerID, msg Inbound) error {
	switch msg.Type {
	case model.EventBallThrown:
		return d.controller.BallThrown(ctx, from)
	case model.EventBallLost:
		return d.controller.BallLost(ctx, from)
	case model.EventBallCrossed:
		return d.controller.BallCrossed(ctx, from, msg.Payload)
	}
	return nil
}

func (d *Dispatcher) request(ctx context.Context, from model.PlayerID, msg Inbound) (any, error) {
	switch msg.Type {
	case model.EventJoinMatch:
		matchID, err := stringPayload(msg.Payload)
		if err != nil || matchID == "" {
			return nil, apierr.NewInvalidRequestError("Match id must be a non-empty string")
		}
		if err := d.controller.JoinMatch(ctx, from, model.MatchID(matchID)); err != nil {
			return nil, err
		}
		return model.AckReply, nil

	case model.EventSetName:
		name, err := stringPayload(msg.Payload)
		if err != nil {
			return nil, apierr.NewInvalidRequestError("Name must be a string")
		}
		if err := d.controller.SetName(ctx, from, name); err != nil {
			return nil, err
		}
		return model.AckReply, nil

	case model.EventGetMatches:
		return d.controller.ListMatches(ctx)

	case model.EventEndMatch:
		if err := d.controller.EndMatch(ctx, from); err != nil {
			return nil, err
		}
		return model.AckReply, nil

	case model.EventLeaveMatch:
		if err := d.controller.LeaveMatch(ctx, from); err != nil {
			return nil, err
		}
		return model.AckReply, nil

	default:
		return nil, apierr.NewUnknownEventError(string(msg.Type))
	}
}

// refuse logs unexpected failures and encodes an error frame
func (d *Dispatcher) refuse(from model.PlayerID, id *int64, err error) []byte {
	apiErr := apierr.ToAPIError(err)
	if apiErr.Code == apierr.CodeInternalError {
		d.logger.Error("request failed",
			slog.String("sid", string(from)),
			slog.Any("error", err))
	}
	frame, encErr := encodeError(id, err)
	if encErr != nil {
		d.logger.Error("failed to encode error", slog.Any("error", encErr))
		return nil
	}
	return frame
}

var errNotString = errors.New("payload is not a string")

func stringPayload(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errNotString
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errNotString
	}
	return s, nil
}
