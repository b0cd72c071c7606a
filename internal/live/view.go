package live

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/caseclash/backend/internal/battle"
)

// Client-facing representations. These enforce the sanitization contract:
// the server seed is withheld until the public seed has been revealed, box
// item lists appear only in detail views, and bot bets never carry a user.

type UserRef struct {
	ID string `json:"id"`
}

type BetView struct {
	ID         string          `json:"id"`
	User       *UserRef        `json:"user,omitempty"`
	Bot        bool            `json:"bot"`
	Slot       int             `json:"slot"`
	Amount     decimal.Decimal `json:"amount"`
	Outcomes   []uint32        `json:"outcomes"`
	Payout     decimal.Decimal `json:"payout"`
	Multiplier int64           `json:"multiplier"`
}

type FairView struct {
	Hash          string `json:"hash"`
	SeedServer    string `json:"seedServer,omitempty"`
	SeedPublic    string `json:"seedPublic,omitempty"`
	BlockID       int64  `json:"blockId"`
	JackpotTicket uint32 `json:"jackpotTicket,omitempty"`
	FallbackUsed  bool   `json:"fallbackUsed"`
}

type BoxItemView struct {
	Name        string          `json:"name"`
	Image       string          `json:"image"`
	AmountFixed decimal.Decimal `json:"amountFixed"`
	Tickets     uint32          `json:"tickets"`
}

type BoxView struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Items  []BoxItemView   `json:"items,omitempty"`
}

type GameView struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	EntryFee    decimal.Decimal `json:"entryFee"`
	PlayerCount int             `json:"playerCount"`
	Mode        battle.Mode     `json:"mode"`
	Options     battle.Options  `json:"options"`
	Rounds      []BoxView       `json:"rounds"`
	Fair        FairView        `json:"fair"`
	State       battle.State    `json:"state"`
	Bets        []BetView       `json:"bets"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ViewGame builds the client view of a snapshot. detail controls whether box
// item lists are included (single-game views) or withheld (public listings).
func ViewGame(snap battle.GameSnapshot, detail bool) GameView {
	v := GameView{
		ID:          snap.ID,
		Amount:      snap.Amount,
		EntryFee:    snap.EntryFee,
		PlayerCount: snap.PlayerCount,
		Mode:        snap.Mode,
		Options:     snap.Options,
		Fair:        viewFair(snap),
		State:       snap.State,
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}
	for _, box := range snap.Rounds {
		v.Rounds = append(v.Rounds, viewBox(box, detail))
	}
	for _, b := range snap.Bets {
		bet := BetView{
			ID:         b.ID,
			Bot:        b.Bot,
			Slot:       b.Slot,
			Amount:     b.Amount,
			Outcomes:   b.Outcomes,
			Payout:     b.Payout,
			Multiplier: b.Multiplier,
		}
		if !b.Bot && b.UserID != "" {
			bet.User = &UserRef{ID: b.UserID}
		}
		v.Bets = append(v.Bets, bet)
	}
	return v
}

func viewFair(snap battle.GameSnapshot) FairView {
	f := FairView{
		Hash:          snap.Fair.Hash,
		BlockID:       snap.Fair.BlockID,
		JackpotTicket: snap.Fair.JackpotTicket,
		FallbackUsed:  snap.Fair.FallbackUsed,
	}
	// The commit stays sealed until the public seed exists; after that the
	// pair is what lets anyone verify the game.
	if snap.State != battle.StateCreated && snap.State != battle.StatePending {
		f.SeedServer = snap.Fair.SeedServer
		f.SeedPublic = snap.Fair.SeedPublic
	}
	return f
}

// ViewBox builds the client view of a box definition.
func ViewBox(box battle.Box, detail bool) BoxView {
	return viewBox(box, detail)
}

func viewBox(box battle.Box, detail bool) BoxView {
	v := BoxView{ID: box.ID, Name: box.Name, Amount: box.Amount}
	if detail {
		for _, it := range box.Items {
			v.Items = append(v.Items, BoxItemView{
				Name:        it.Name,
				Image:       it.Image,
				AmountFixed: it.AmountFixed,
				Tickets:     it.Tickets,
			})
		}
	}
	return v
}
