package battle

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/caseclash/backend/internal/chain"
)

// Store is the persistence collaborator. Implementations must be safe for
// concurrent use; the engine never relies on them for locking.
type Store interface {
	CreateGame(ctx context.Context, g *Game) error
	UpdateGame(ctx context.Context, g *Game) error
	ListUnfinishedGames(ctx context.Context) ([]*Game, error)
	CreateBet(ctx context.Context, b *Bet) error
	UpdateBet(ctx context.Context, b *Bet) error
	DeleteBet(ctx context.Context, id string) error
	ActiveBoxes(ctx context.Context) ([]Box, error)
	GetUser(ctx context.Context, id string) (*User, error)
}

// Ledger applies real-money effects. ApplyWinnings is called exactly once per
// bet at completion.
type Ledger interface {
	Debit(ctx context.Context, userID string, amount decimal.Decimal, reason string) error
	Credit(ctx context.Context, userID string, amount decimal.Decimal, reason string) error
	ApplyWinnings(ctx context.Context, bet *Bet, amount decimal.Decimal) error
}

// Notifier pushes game snapshots and notices to subscribed clients. The hub
// decides delivery scope from the snapshot's Private flag and participants.
type Notifier interface {
	BroadcastGame(snap GameSnapshot, event string)
	NotifyUser(userID, event string, payload interface{})
}

// Randomness supplies the public seed. The concrete implementation wraps the
// block-indexer client; tests substitute a deterministic one.
type Randomness interface {
	TargetBlock(ctx context.Context) (height int64, fallback bool)
	AwaitReveal(ctx context.Context, target int64, gameID, seedServer string) chain.Reveal
}
