// Package battle implements the multiplayer case-battle engine: the fairness
// commit/reveal bound game lifecycle, the active-game registry, winner
// resolution and payout settlement.
package battle

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Mode selects the winner-determination algorithm for a game.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeTeam     Mode = "team"
	ModeGroup    Mode = "group"
)

// State is a game's position in the lifecycle.
type State string

const (
	StateCreated   State = "created"
	StatePending   State = "pending"
	StateCountdown State = "countdown"
	StateRolling   State = "rolling"
	StateCompleted State = "completed"
	StateCanceled  State = "canceled"
)

const (
	MinPlayers = 2
	MaxPlayers = 6
)

// Options are the per-game rule modifiers chosen at creation.
type Options struct {
	LevelMin      int  `json:"levelMin"`
	Funding       int  `json:"funding"` // percent of the entry fee the house subsidizes
	Private       bool `json:"private"`
	AffiliateOnly bool `json:"affiliateOnly"`
	Cursed        bool `json:"cursed"`   // lowest value wins
	Terminal      bool `json:"terminal"` // compare only the final round
	Jackpot       bool `json:"jackpot"`  // weighted-lottery payout
	BigSpin       bool `json:"bigSpin"`  // extended delay on high-value rounds
}

// BoxItem is one entry on a box's 100000-ticket wheel.
type BoxItem struct {
	Name        string          `json:"name"`
	Image       string          `json:"image"`
	AmountFixed decimal.Decimal `json:"amountFixed"`
	Tickets     uint32          `json:"tickets"`
}

// Box is an openable case: a price and a weighted list of items.
type Box struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Items  []BoxItem       `json:"items"`
}

// BoxSelection is one line of a game's box list as chosen by the creator.
type BoxSelection struct {
	BoxID string `json:"box"`
	Count int    `json:"count"`
}

// FairRecord is the commit/reveal state of one game. SeedServer is secret
// until SeedPublic has been revealed; after that the whole record is public so
// anyone can recompute every ticket.
type FairRecord struct {
	SeedServer    string `json:"seedServer,omitempty"`
	Hash          string `json:"hash"`
	SeedPublic    string `json:"seedPublic,omitempty"`
	BlockID       int64  `json:"blockId"`
	JackpotTicket uint32 `json:"jackpotTicket,omitempty"`
	FallbackUsed  bool   `json:"fallbackUsed"`
}

// User is the slice of the account model this engine needs.
type User struct {
	ID          string
	Name        string
	Level       int
	Balance     decimal.Decimal
	AffiliateOf string // user id of the referrer, if any
}

// Bet is one occupied slot. Outcomes and Payout are appended/accumulated by
// the lifecycle during rolling; Payout is overwritten exactly once with the
// resolved winnings at completion and is immutable after that.
type Bet struct {
	ID         string
	GameID     string
	UserID     string // empty when Bot
	Bot        bool
	Slot       int
	Amount     decimal.Decimal
	Outcomes   []uint32
	Payout     decimal.Decimal
	Multiplier int64 // payout/amount, fixed-point x100
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Game is one case battle. Rounds is the Boxes list expanded to one entry per
// opened box instance, order preserved.
type Game struct {
	ID          string
	Amount      decimal.Decimal // total stake across the completed board
	EntryFee    decimal.Decimal // stake charged per slot, after funding
	PlayerCount int
	Mode        Mode
	Options     Options
	Boxes       []BoxSelection
	Rounds      []Box
	Fair        FairRecord
	State       State
	Bets        []*Bet
	CreatedAt   time.Time
	UpdatedAt   time.Time

	mu sync.RWMutex
}

// betBySlot returns the bet occupying slot, or nil. Callers hold g.mu.
func (g *Game) betBySlot(slot int) *Bet {
	for _, b := range g.Bets {
		if b.Slot == slot {
			return b
		}
	}
	return nil
}

// betByUser returns the bet placed by userID, or nil. Callers hold g.mu.
func (g *Game) betByUser(userID string) *Bet {
	if userID == "" {
		return nil
	}
	for _, b := range g.Bets {
		if b.UserID == userID {
			return b
		}
	}
	return nil
}

// full reports whether every slot is occupied. Callers hold g.mu.
func (g *Game) full() bool {
	return len(g.Bets) == g.PlayerCount
}

// CreatorID returns the user id of the host (slot 0), or empty if the host
// bet is missing.
func (g *Game) CreatorID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if b := g.betBySlot(0); b != nil {
		return b.UserID
	}
	return ""
}

// ParticipantIDs returns the user ids of all non-bot bets.
func (g *Game) ParticipantIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.Bets))
	for _, b := range g.Bets {
		if !b.Bot && b.UserID != "" {
			ids = append(ids, b.UserID)
		}
	}
	return ids
}

// Snapshot returns a copy of the game safe to read while the lifecycle keeps
// mutating the original. Bets are copied; box definitions are shared because
// they are immutable once loaded.
func (g *Game) Snapshot() GameSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	bets := make([]Bet, len(g.Bets))
	for i, b := range g.Bets {
		bets[i] = *b
		bets[i].Outcomes = append([]uint32(nil), b.Outcomes...)
	}
	return GameSnapshot{
		ID:          g.ID,
		Amount:      g.Amount,
		EntryFee:    g.EntryFee,
		PlayerCount: g.PlayerCount,
		Mode:        g.Mode,
		Options:     g.Options,
		Boxes:       g.Boxes,
		Rounds:      g.Rounds,
		Fair:        g.Fair,
		State:       g.State,
		Bets:        bets,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// GameSnapshot is an immutable view of a game at one instant.
type GameSnapshot struct {
	ID          string
	Amount      decimal.Decimal
	EntryFee    decimal.Decimal
	PlayerCount int
	Mode        Mode
	Options     Options
	Boxes       []BoxSelection
	Rounds      []Box
	Fair        FairRecord
	State       State
	Bets        []Bet
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ExpandRounds turns the creator's box list into the ordered rounds sequence,
// one box reference per opened instance.
func ExpandRounds(selections []BoxSelection, byID map[string]Box) ([]Box, error) {
	var rounds []Box
	for _, sel := range selections {
		box, ok := byID[sel.BoxID]
		if !ok {
			return nil, ErrUnknownBox
		}
		if sel.Count < 1 {
			return nil, ErrBadBoxCount
		}
		for i := 0; i < sel.Count; i++ {
			rounds = append(rounds, box)
		}
	}
	if len(rounds) == 0 {
		return nil, ErrNoBoxes
	}
	return rounds, nil
}
