// Package registry holds the roster and per-player mutable status.
//
// A Registry is not safe for concurrent use: the session that owns it is the
// single writer and serializes every call.
package registry

import (
	"fmt"

	"github.com/rocketscienceinc/buzzer-backend/internal/apperror"
	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
)

type Registry struct {
	players []*entity.Player
	index   map[int]*entity.Player
}

func New() *Registry {
	return &Registry{
		index: make(map[int]*entity.Player),
	}
}

// Register adds a player at the end of the registration order and returns its id.
func (that *Registry) Register(player entity.Player) (int, error) {
	if player.ID <= entity.NoPlayer {
		return entity.NoPlayer, fmt.Errorf("%w: id %d", apperror.ErrInvalidPlayer, player.ID)
	}

	if _, ok := that.index[player.ID]; ok {
		return entity.NoPlayer, fmt.Errorf("%w: id %d", apperror.ErrDuplicatePlayer, player.ID)
	}

	if player.State == "" {
		player.State = entity.PlayerIdle
	}

	if !player.State.IsValid() {
		return entity.NoPlayer, fmt.Errorf("%w: state %q", apperror.ErrInvalidPlayer, player.State)
	}

	if player.State.IsExclusive() {
		that.releaseHolder(player.State)
	}

	stored := player
	that.players = append(that.players, &stored)
	that.index[stored.ID] = &stored

	return stored.ID, nil
}

// SetState moves a player to a new state. QuestionChooser and Answering have a
// single holder: the previous holder, if any, is moved to Idle first.
func (that *Registry) SetState(id int, state entity.PlayerState) error {
	player, ok := that.index[id]
	if !ok {
		return fmt.Errorf("%w: id %d", apperror.ErrUnknownPlayer, id)
	}

	if !state.IsValid() {
		return fmt.Errorf("%w: state %q", apperror.ErrInvalidPlayer, state)
	}

	if state.IsExclusive() && player.State != state {
		that.releaseHolder(state)
	}

	player.State = state

	return nil
}

func (that *Registry) AdjustScore(id, delta int) error {
	player, ok := that.index[id]
	if !ok {
		return fmt.Errorf("%w: id %d", apperror.ErrUnknownPlayer, id)
	}

	player.Score += delta

	return nil
}

func (that *Registry) Get(id int) (entity.Player, error) {
	player, ok := that.index[id]
	if !ok {
		return entity.Player{}, fmt.Errorf("%w: id %d", apperror.ErrUnknownPlayer, id)
	}

	return *player, nil
}

func (that *Registry) Contains(id int) bool {
	_, ok := that.index[id]
	return ok
}

// HolderOf returns the id of the player holding the state, or entity.NoPlayer.
func (that *Registry) HolderOf(state entity.PlayerState) int {
	for _, player := range that.players {
		if player.State == state {
			return player.ID
		}
	}

	return entity.NoPlayer
}

// Snapshot returns a copy of the roster in registration order.
func (that *Registry) Snapshot() []entity.Player {
	snapshot := make([]entity.Player, len(that.players))
	for i, player := range that.players {
		snapshot[i] = *player
	}

	return snapshot
}

func (that *Registry) Len() int {
	return len(that.players)
}

// ResetProgress zeroes scores and returns everyone to Idle, keeping the roster.
func (that *Registry) ResetProgress() {
	for _, player := range that.players {
		player.Score = 0
		player.State = entity.PlayerIdle
	}
}

func (that *Registry) Clear() {
	that.players = nil
	that.index = make(map[int]*entity.Player)
}

func (that *Registry) releaseHolder(state entity.PlayerState) {
	for _, player := range that.players {
		if player.State == state {
			player.State = entity.PlayerIdle
		}
	}
}
