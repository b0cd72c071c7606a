package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/caseclash/backend/internal/battle"
)

// ErrUserNotFound is returned when a user id has no row.
var ErrUserNotFound = errors.New("store: user not found")

// GetUser loads one user.
func (s *SQLiteDB) GetUser(ctx context.Context, id string) (*battle.User, error) {
	var (
		u       battle.User
		balance string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, level, balance, affiliate_of FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Level, &balance, &u.AffiliateOf)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user %s: %w", id, err)
	}
	if u.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a user row. Used by seeding and tests.
func (s *SQLiteDB) CreateUser(ctx context.Context, u *battle.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, level, balance, affiliate_of) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Level, u.Balance.String(), u.AffiliateOf)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Debit subtracts amount from a user's balance, failing if it would go
// negative. The single UPDATE keeps the check and the write atomic.
func (s *SQLiteDB) Debit(ctx context.Context, userID string, amount decimal.Decimal, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET balance = CAST(balance AS REAL) - CAST(? AS REAL)
		WHERE id = ? AND CAST(balance AS REAL) >= CAST(? AS REAL)`,
		amount.String(), userID, amount.String())
	if err != nil {
		return fmt.Errorf("debit %s (%s): %w", userID, reason, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit %s: %w", userID, err)
	}
	if n == 0 {
		return battle.ErrInsufficientBalance
	}
	return nil
}

// Credit adds amount to a user's balance.
func (s *SQLiteDB) Credit(ctx context.Context, userID string, amount decimal.Decimal, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET balance = CAST(balance AS REAL) + CAST(? AS REAL) WHERE id = ?`,
		amount.String(), userID)
	if err != nil {
		return fmt.Errorf("credit %s (%s): %w", userID, reason, err)
	}
	return nil
}

// ApplyWinnings credits a resolved bet's payout plus flat XP for the wager.
func (s *SQLiteDB) ApplyWinnings(ctx context.Context, bet *battle.Bet, amount decimal.Decimal) error {
	if bet.UserID == "" {
		return nil
	}
	if amount.IsPositive() {
		if err := s.Credit(ctx, bet.UserID, amount, "winnings:"+bet.ID); err != nil {
			return err
		}
	}
	// XP scales with the stake, win or lose; rakeback accrues a fixed cut
	// of the wager.
	xp := bet.Amount.IntPart()
	rakeback := bet.Amount.Mul(rakebackRate).Round(4)
	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET xp = xp + ?,
			rakeback = CAST(rakeback AS REAL) + CAST(? AS REAL)
		WHERE id = ?`, xp, rakeback.String(), bet.UserID); err != nil {
		return fmt.Errorf("apply xp to %s: %w", bet.UserID, err)
	}

	// The referrer, if any, earns a commission on the wager.
	commission := bet.Amount.Mul(affiliateRate).Round(4)
	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET balance = CAST(balance AS REAL) + CAST(? AS REAL)
		WHERE id = (SELECT affiliate_of FROM users WHERE id = ?) AND id != ''`,
		commission.String(), bet.UserID); err != nil {
		return fmt.Errorf("apply affiliate commission for %s: %w", bet.UserID, err)
	}
	return nil
}

var (
	// rakebackRate is the share of every wager returned as rakeback credit.
	rakebackRate = decimal.NewFromFloat(0.005)
	// affiliateRate is the referrer's commission on a referee's wager.
	affiliateRate = decimal.NewFromFloat(0.001)
)
