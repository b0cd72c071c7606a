package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/caseclash/backend/internal/battle"
)

// CreateGame inserts a new game row.
func (s *SQLiteDB) CreateGame(ctx context.Context, g *battle.Game) error {
	options, err := json.Marshal(g.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	boxes, err := json.Marshal(g.Boxes)
	if err != nil {
		return fmt.Errorf("marshal boxes: %w", err)
	}
	// Rounds are persisted as full box snapshots so a completed game stays
	// verifiable even after a box definition changes.
	rounds, err := json.Marshal(g.Rounds)
	if err != nil {
		return fmt.Errorf("marshal rounds: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (id, amount, entry_fee, player_count, mode, options, boxes, rounds,
			state, seed_server, seed_hash, seed_public, block_id, jackpot_ticket, fallback_used,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Amount.String(), g.EntryFee.String(), g.PlayerCount, string(g.Mode),
		string(options), string(boxes), string(rounds), string(g.State),
		g.Fair.SeedServer, g.Fair.Hash, g.Fair.SeedPublic, g.Fair.BlockID,
		g.Fair.JackpotTicket, boolInt(g.Fair.FallbackUsed), g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

// UpdateGame rewrites the mutable game fields from the in-memory state.
func (s *SQLiteDB) UpdateGame(ctx context.Context, g *battle.Game) error {
	snap := g.Snapshot()
	_, err := s.db.ExecContext(ctx, `
		UPDATE games SET state = ?, seed_public = ?, block_id = ?, jackpot_ticket = ?,
			fallback_used = ?, updated_at = ?
		WHERE id = ?`,
		string(snap.State), snap.Fair.SeedPublic, snap.Fair.BlockID,
		snap.Fair.JackpotTicket, boolInt(snap.Fair.FallbackUsed), snap.UpdatedAt, snap.ID)
	if err != nil {
		return fmt.Errorf("update game %s: %w", snap.ID, err)
	}
	return nil
}

// GetGame loads one game with its bets. Completed games stay fetchable here
// after they leave the in-memory history ring.
func (s *SQLiteDB) GetGame(ctx context.Context, id string) (*battle.Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, entry_fee, player_count, mode, options, boxes, rounds,
			state, seed_server, seed_hash, seed_public, block_id, jackpot_ticket, fallback_used,
			created_at, updated_at
		FROM games WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query game %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query game %s: %w", id, err)
		}
		return nil, battle.ErrGameNotFound
	}
	g, err := scanGame(rows)
	if err != nil {
		return nil, err
	}
	if g.Bets, err = s.BetsForGame(ctx, id); err != nil {
		return nil, err
	}
	return g, nil
}

// ListUnfinishedGames loads every game that has not reached completed or
// canceled, bets included. Used by restart recovery.
func (s *SQLiteDB) ListUnfinishedGames(ctx context.Context) ([]*battle.Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, entry_fee, player_count, mode, options, boxes, rounds,
			state, seed_server, seed_hash, seed_public, block_id, jackpot_ticket, fallback_used,
			created_at, updated_at
		FROM games WHERE state NOT IN ('completed', 'canceled')`)
	if err != nil {
		return nil, fmt.Errorf("query unfinished games: %w", err)
	}
	defer rows.Close()

	var games []*battle.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}

	for _, g := range games {
		bets, err := s.BetsForGame(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		g.Bets = bets
	}
	return games, nil
}

func scanGame(rows *sql.Rows) (*battle.Game, error) {
	var (
		g                              battle.Game
		amount, fee, options, boxes    string
		rounds, mode, state            string
		fallback                       int
	)
	err := rows.Scan(&g.ID, &amount, &fee, &g.PlayerCount, &mode, &options, &boxes, &rounds,
		&state, &g.Fair.SeedServer, &g.Fair.Hash, &g.Fair.SeedPublic, &g.Fair.BlockID,
		&g.Fair.JackpotTicket, &fallback, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan game: %w", err)
	}

	g.Mode = battle.Mode(mode)
	g.State = battle.State(state)
	g.Fair.FallbackUsed = fallback != 0
	if g.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse game amount: %w", err)
	}
	if g.EntryFee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("parse entry fee: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &g.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if err := json.Unmarshal([]byte(boxes), &g.Boxes); err != nil {
		return nil, fmt.Errorf("unmarshal boxes: %w", err)
	}
	if err := json.Unmarshal([]byte(rounds), &g.Rounds); err != nil {
		return nil, fmt.Errorf("unmarshal rounds: %w", err)
	}
	return &g, nil
}

// CreateBet inserts a new bet row.
func (s *SQLiteDB) CreateBet(ctx context.Context, b *battle.Bet) error {
	outcomes, err := json.Marshal(b.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bets (id, game_id, user_id, bot, slot, amount, outcomes, payout, multiplier,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.GameID, b.UserID, boolInt(b.Bot), b.Slot, b.Amount.String(),
		string(outcomes), b.Payout.String(), b.Multiplier, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	return nil
}

// UpdateBet rewrites a bet's outcome and payout state.
func (s *SQLiteDB) UpdateBet(ctx context.Context, b *battle.Bet) error {
	outcomes, err := json.Marshal(b.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE bets SET outcomes = ?, payout = ?, multiplier = ?, updated_at = ?
		WHERE id = ?`,
		string(outcomes), b.Payout.String(), b.Multiplier, b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("update bet %s: %w", b.ID, err)
	}
	return nil
}

// DeleteBet removes a bet row. Used to roll back a partially persisted bot
// fill.
func (s *SQLiteDB) DeleteBet(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete bet %s: %w", id, err)
	}
	return nil
}

// BetsForGame loads a game's bets ordered by slot.
func (s *SQLiteDB) BetsForGame(ctx context.Context, gameID string) ([]*battle.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, user_id, bot, slot, amount, outcomes, payout, multiplier,
			created_at, updated_at
		FROM bets WHERE game_id = ? ORDER BY slot`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query bets: %w", err)
	}
	defer rows.Close()

	var bets []*battle.Bet
	for rows.Next() {
		var (
			b                        battle.Bet
			bot                      int
			amount, outcomes, payout string
		)
		if err := rows.Scan(&b.ID, &b.GameID, &b.UserID, &bot, &b.Slot, &amount,
			&outcomes, &payout, &b.Multiplier, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		b.Bot = bot != 0
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse bet amount: %w", err)
		}
		if b.Payout, err = decimal.NewFromString(payout); err != nil {
			return nil, fmt.Errorf("parse bet payout: %w", err)
		}
		if err := json.Unmarshal([]byte(outcomes), &b.Outcomes); err != nil {
			return nil, fmt.Errorf("unmarshal outcomes: %w", err)
		}
		bets = append(bets, &b)
	}
	return bets, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
