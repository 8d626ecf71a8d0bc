package match

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mcoot/balltoss/internal/model"
	"github.com/mcoot/balltoss/internal/services/session"
	"github.com/mcoot/balltoss/internal/storage"
)

// Controller runs the match lifecycle and relays gameplay events between
// the two occupants of a match. It holds no state of its own: every
// operation is a sequence of reads and writes against the store.
type Controller struct {
	state    storage.State
	sessions *session.Resolver
	notifier Notifier
	logger   *slog.Logger
}

// NewController creates a new match Controller
func NewController(state storage.State, notifier Notifier, logger *slog.Logger) *Controller {
	return &Controller{
		state:    state,
		sessions: session.NewResolver(state),
		notifier: notifier,
		logger:   logger.With(slog.String("component", "match")),
	}
}

// Connect registers a fresh, unnamed player for a new connection
func (c *Controller) Connect(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	player, err := c.state.RegisterPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("player connected", slog.String("sid", string(id)))
	return player, nil
}

// SetName changes the player's display name. A seated player's record in
// their match is refreshed too.
func (c *Controller) SetName(ctx context.Context, id model.PlayerID, name string) error {
	player, err := c.sessions.CurrentPlayer(ctx, id)
	if err != nil || player == nil {
		return err
	}

	player.Name = name
	if _, err := c.state.UpdatePlayer(ctx, player); err != nil {
		return err
	}

	match, err := c.sessions.CurrentMatch(ctx, id)
	if err != nil || match == nil {
		return err
	}
	side, ok := match.SideOf(id)
	if !ok {
		return nil
	}
	if side == model.SideLeft {
		match.Left = player.Clone()
	} else {
		match.Right = player.Clone()
	}
	_, err = c.state.UpdateMatch(ctx, match)
	return err
}

// JoinMatch seats the player in the named match, creating it if needed.
// Rejoining the match the player already holds is a no-op. Joining another
// match leaves the current one first, unless the target is full.
func (c *Controller) JoinMatch(ctx context.Context, id model.PlayerID, matchID model.MatchID) error {
	player, err := c.sessions.CurrentPlayer(ctx, id)
	if err != nil || player == nil {
		return err
	}

	match, err := c.state.GetMatch(ctx, matchID)
	switch {
	case errors.Is(err, model.ErrMatchNotFound):
		match = model.NewMatch(matchID)
	case err != nil:
		return err
	}

	if _, seated := match.SideOf(id); seated {
		if player.MatchID() == matchID {
			return nil
		}
		// Seated without a reference: drop the orphaned slot and reseat
		match.Vacate(id)
	}

	if match.OccupantCount() == 2 {
		c.logger.Info("join refused, match full",
			slog.String("sid", string(id)),
			slog.String("match", string(matchID)),
		)
		return model.ErrMatchFull
	}

	if player.InMatch() {
		if err := c.leave(ctx, player); err != nil {
			return err
		}
	}

	player.JoinedMatch(matchID)
	side, err := match.Seat(player.Clone())
	if err != nil {
		return err
	}

	if _, err := c.state.UpdateMatch(ctx, match); err != nil {
		return err
	}
	if _, err := c.state.UpdatePlayer(ctx, player); err != nil {
		return err
	}

	c.logger.Info("player joined match",
		slog.String("sid", string(id)),
		slog.String("match", string(matchID)),
		slog.String("side", string(side)),
	)
	return c.broadcastPopulation(ctx, match)
}

// LeaveMatch vacates the player's slot and tells the remaining occupant
func (c *Controller) LeaveMatch(ctx context.Context, id model.PlayerID) error {
	player, err := c.sessions.CurrentPlayer(ctx, id)
	if err != nil || player == nil || !player.InMatch() {
		return err
	}
	return c.leave(ctx, player)
}

// EndMatch evicts both occupants and deletes the match. Nobody is notified.
func (c *Controller) EndMatch(ctx context.Context, id model.PlayerID) error {
	player, err := c.sessions.CurrentPlayer(ctx, id)
	if err != nil || player == nil || !player.InMatch() {
		return err
	}

	match, err := c.sessions.CurrentMatch(ctx, id)
	if err != nil {
		return err
	}
	if _, seated := sideOf(match, id); !seated {
		// Stale reference: the match is gone or no longer holds this player.
		// A match the caller is not seated in is left alone, not removed.
		player.LeftMatch()
		_, err := c.state.UpdatePlayer(ctx, player)
		return err
	}

	for _, occupant := range match.Occupants() {
		if err := c.clearReference(ctx, occupant.SID, match.ID); err != nil {
			return err
		}
	}

	if err := c.state.RemoveMatch(ctx, match.ID); err != nil {
		return err
	}

	c.logger.Info("match ended",
		slog.String("sid", string(id)),
		slog.String("match", string(match.ID)),
	)
	return nil
}

// Disconnect vacates the player's slot, if any, then forgets the player
func (c *Controller) Disconnect(ctx context.Context, id model.PlayerID) error {
	player, err := c.sessions.CurrentPlayer(ctx, id)
	if err != nil || player == nil {
		return err
	}

	if player.InMatch() {
		match, err := c.sessions.CurrentMatch(ctx, id)
		if err != nil {
			return err
		}
		if match != nil {
			if err := c.vacate(ctx, match, id); err != nil {
				return err
			}
		}
	}

	if err := c.state.RemovePlayer(ctx, id); err != nil {
		return err
	}
	c.logger.Debug("player disconnected", slog.String("sid", string(id)))
	return nil
}

// ListMatches returns a directory entry for every open match
func (c *Controller) ListMatches(ctx context.Context) ([]model.MatchSummary, error) {
	matches, err := c.state.ListMatches(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.MatchSummary, 0, len(matches))
	for _, m := range matches {
		summaries = append(summaries, m.Summary())
	}
	return summaries, nil
}

// BallThrown tells the peer the ball was thrown
func (c *Controller) BallThrown(ctx context.Context, id model.PlayerID) error {
	return c.relay(ctx, id, model.Notification{Type: model.EventBallThrown})
}

// BallLost tells the peer the ball was dropped
func (c *Controller) BallLost(ctx context.Context, id model.PlayerID) error {
	return c.relay(ctx, id, model.Notification{Type: model.EventBallLost})
}

// BallCrossed forwards the ball state to the peer unchanged
func (c *Controller) BallCrossed(ctx context.Context, id model.PlayerID, payload json.RawMessage) error {
	n := model.Notification{Type: model.EventBallCrossed}
	if len(payload) > 0 {
		n.Payload = payload
	}
	return c.relay(ctx, id, n)
}

func (c *Controller) relay(ctx context.Context, id model.PlayerID, n model.Notification) error {
	other, err := c.sessions.OtherOccupant(ctx, id)
	if err != nil {
		return err
	}
	if other == nil {
		c.logger.Debug("relay dropped, no peer",
			slog.String("sid", string(id)),
			slog.String("event", string(n.Type)),
		)
		return nil
	}
	c.notifier.Notify(ctx, other.SID, n)
	return nil
}

// leave clears the player's reference and vacates their slot in the
// referenced match, if it still exists
func (c *Controller) leave(ctx context.Context, player *model.Player) error {
	match, err := c.state.GetMatch(ctx, player.MatchID())
	switch {
	case errors.Is(err, model.ErrMatchNotFound):
		match = nil
	case err != nil:
		return err
	}

	player.LeftMatch()
	if _, err := c.state.UpdatePlayer(ctx, player); err != nil {
		return err
	}

	if match == nil {
		return nil
	}
	c.logger.Info("player left match",
		slog.String("sid", string(player.SID)),
		slog.String("match", string(match.ID)),
	)
	return c.vacate(ctx, match, player.SID)
}

// vacate removes the player from the match and announces the new population
func (c *Controller) vacate(ctx context.Context, match *model.Match, id model.PlayerID) error {
	if !match.Vacate(id) {
		return nil
	}
	if !match.IsEmpty() {
		if _, err := c.state.UpdateMatch(ctx, match); err != nil {
			return err
		}
	}
	return c.broadcastPopulation(ctx, match)
}

// broadcastPopulation sends every occupant a MATCH_UPDATE from their own
// side. An empty match is deleted instead.
func (c *Controller) broadcastPopulation(ctx context.Context, match *model.Match) error {
	if match.IsEmpty() {
		c.logger.Info("match emptied", slog.String("match", string(match.ID)))
		return c.state.RemoveMatch(ctx, match.ID)
	}

	players := match.OccupantCount()
	for _, occupant := range match.Occupants() {
		side, _ := match.SideOf(occupant.SID)
		update := model.MatchUpdatePayload{
			Position: side,
			Players:  players,
			MaxScore: match.MaxScore,
		}
		if peer := match.Other(occupant.SID); peer != nil {
			name, err := c.currentName(ctx, peer)
			if err != nil {
				return err
			}
			update.Other = &name
		}
		c.notifier.Notify(ctx, occupant.SID, model.Notification{
			Type:    model.EventMatchUpdate,
			Payload: update,
		})
	}
	return nil
}

// currentName prefers the player's own record over the copy embedded in the match
func (c *Controller) currentName(ctx context.Context, embedded *model.Player) (string, error) {
	player, err := c.sessions.CurrentPlayer(ctx, embedded.SID)
	if err != nil {
		return "", err
	}
	if player == nil {
		return embedded.Name, nil
	}
	return player.Name, nil
}

// clearReference drops a player's match reference if it still points at matchID
func (c *Controller) clearReference(ctx context.Context, id model.PlayerID, matchID model.MatchID) error {
	player, err := c.sessions.CurrentPlayer(ctx, id)
	if err != nil || player == nil || player.MatchID() != matchID {
		return err
	}
	player.LeftMatch()
	_, err = c.state.UpdatePlayer(ctx, player)
	return err
}

func sideOf(match *model.Match, id model.PlayerID) (model.Side, bool) {
	if match == nil {
		return "", false
	}
	return match.SideOf(id)
}
