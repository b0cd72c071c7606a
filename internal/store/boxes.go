package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/caseclash/backend/internal/battle"
)

// ActiveBoxes loads every box currently openable, items in wheel order.
func (s *SQLiteDB) ActiveBoxes(ctx context.Context) ([]battle.Box, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, amount FROM boxes WHERE active = 1`)
	if err != nil {
		return nil, fmt.Errorf("query boxes: %w", err)
	}
	defer rows.Close()

	var boxes []battle.Box
	for rows.Next() {
		var (
			b      battle.Box
			amount string
		)
		if err := rows.Scan(&b.ID, &b.Name, &amount); err != nil {
			return nil, fmt.Errorf("scan box: %w", err)
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse box amount: %w", err)
		}
		boxes = append(boxes, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boxes: %w", err)
	}

	for i := range boxes {
		items, err := s.boxItems(ctx, boxes[i].ID)
		if err != nil {
			return nil, err
		}
		boxes[i].Items = items
	}
	return boxes, nil
}

func (s *SQLiteDB) boxItems(ctx context.Context, boxID string) ([]battle.BoxItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, image, amount_fixed, tickets
		FROM box_items WHERE box_id = ? ORDER BY position`, boxID)
	if err != nil {
		return nil, fmt.Errorf("query box items: %w", err)
	}
	defer rows.Close()

	var items []battle.BoxItem
	for rows.Next() {
		var (
			it     battle.BoxItem
			amount string
		)
		if err := rows.Scan(&it.Name, &it.Image, &amount, &it.Tickets); err != nil {
			return nil, fmt.Errorf("scan box item: %w", err)
		}
		if it.AmountFixed, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse item amount: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CreateBox inserts a box and its wheel. Used by seeding and tests.
func (s *SQLiteDB) CreateBox(ctx context.Context, box battle.Box) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO boxes (id, name, amount, active) VALUES (?, ?, ?, 1)`,
		box.ID, box.Name, box.Amount.String()); err != nil {
		return fmt.Errorf("insert box: %w", err)
	}
	for i, it := range box.Items {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO box_items (box_id, name, image, amount_fixed, tickets, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			box.ID, it.Name, it.Image, it.AmountFixed.String(), it.Tickets, i); err != nil {
			return fmt.Errorf("insert box item: %w", err)
		}
	}
	return nil
}
