package battle

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/caseclash/backend/internal/fair"
)

// Resolution is the outcome of winner determination for one game.
type Resolution struct {
	Pot           decimal.Decimal
	WinningSlots  []int
	Payouts       map[int]decimal.Decimal // slot -> final payout
	JackpotTicket uint32                  // set only in jackpot mode
}

// Resolve computes the final payouts of a completed game from its recorded
// outcomes. It is a pure function of the game: per-round item values are
// re-derived from outcomes and the rounds sequence, so a replay from persisted
// state reaches the same result. The pot (sum of every drawn item's value) is
// only redistributed, never changed.
func Resolve(g *Game) Resolution {
	g.mu.RLock()
	defer g.mu.RUnlock()

	bets := append([]*Bet(nil), g.Bets...)
	sort.Slice(bets, func(i, j int) bool { return bets[i].Slot < bets[j].Slot })

	// values[i] are the per-round item values of bets[i], totals[i] their sum.
	values := make([][]decimal.Decimal, len(bets))
	totals := make([]decimal.Decimal, len(bets))
	pot := decimal.Zero
	for i, b := range bets {
		values[i] = make([]decimal.Decimal, len(b.Outcomes))
		totals[i] = decimal.Zero
		for r, ticket := range b.Outcomes {
			v := DrawItem(g.Rounds[r], ticket).AmountFixed
			values[i][r] = v
			totals[i] = totals[i].Add(v)
		}
		pot = pot.Add(totals[i])
	}

	if g.Options.Jackpot {
		return resolveJackpot(g, bets, totals, pot)
	}

	switch g.Mode {
	case ModeGroup:
		return resolveGroup(bets, totals, pot)
	case ModeTeam:
		return resolveTeam(g, bets, values, totals, pot)
	default:
		return resolveStandard(g, bets, values, totals, pot)
	}
}

// comparisonValue is a bet's score under the game's modifiers: the cumulative
// total, or only the final round's value in terminal mode.
func comparisonValue(g *Game, values []decimal.Decimal, total decimal.Decimal) decimal.Decimal {
	if g.Options.Terminal && len(values) > 0 {
		return values[len(values)-1]
	}
	return total
}

func resolveStandard(g *Game, bets []*Bet, values [][]decimal.Decimal, totals []decimal.Decimal, pot decimal.Decimal) Resolution {
	scores := make([]decimal.Decimal, len(bets))
	for i := range bets {
		scores[i] = comparisonValue(g, values[i], totals[i])
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if better(g, s, best) {
			best = s
		}
	}

	var winners []int
	for i, s := range scores {
		if s.Equal(best) {
			winners = append(winners, bets[i].Slot)
		}
	}
	return Resolution{Pot: pot, WinningSlots: winners, Payouts: splitPot(bets, winners, pot)}
}

func resolveTeam(g *Game, bets []*Bet, values [][]decimal.Decimal, totals []decimal.Decimal, pot decimal.Decimal) Resolution {
	half := teamSize(g.PlayerCount)
	teamScore := func(members []*Bet, offset int) decimal.Decimal {
		score := decimal.Zero
		for i := range members {
			score = score.Add(comparisonValue(g, values[offset+i], totals[offset+i]))
		}
		return score
	}

	first, second := bets[:half], bets[half:]
	a, b := teamScore(first, 0), teamScore(second, half)

	var winners []int
	switch {
	case a.Equal(b):
		winners = slotsOf(bets)
	case better(g, a, b):
		winners = slotsOf(first)
	default:
		winners = slotsOf(second)
	}
	return Resolution{Pot: pot, WinningSlots: winners, Payouts: splitPot(bets, winners, pot)}
}

func resolveGroup(bets []*Bet, totals []decimal.Decimal, pot decimal.Decimal) Resolution {
	payouts := make(map[int]decimal.Decimal, len(bets))
	winners := make([]int, len(bets))
	for i, b := range bets {
		payouts[b.Slot] = totals[i]
		winners[i] = b.Slot
	}
	return Resolution{Pot: pot, WinningSlots: winners, Payouts: payouts}
}

// resolveJackpot runs the weighted lottery: each bet (or each team in team
// mode) owns a ticket range proportional to the value it drew, and the single
// jackpot ticket picks the range that takes the whole pot. Cursed and
// terminal are ignored under jackpot.
func resolveJackpot(g *Game, bets []*Bet, totals []decimal.Decimal, pot decimal.Decimal) Resolution {
	ticket := fair.JackpotTicket(g.ID, g.Fair.SeedServer, g.Fair.SeedPublic)

	if pot.IsZero() {
		// Nothing was drawn; nobody is paid.
		return Resolution{Pot: pot, Payouts: map[int]decimal.Decimal{}, JackpotTicket: ticket}
	}

	if g.Mode == ModeTeam {
		half := teamSize(g.PlayerCount)
		teamTotal := func(offset, n int) decimal.Decimal {
			t := decimal.Zero
			for i := 0; i < n; i++ {
				t = t.Add(totals[offset+i])
			}
			return t
		}
		weights := []decimal.Decimal{teamTotal(0, half), teamTotal(half, len(bets)-half)}
		idx := lotteryPick(weights, pot, ticket)

		var winners []*Bet
		if idx == 0 {
			winners = bets[:half]
		} else {
			winners = bets[half:]
		}
		slots := slotsOf(winners)
		return Resolution{Pot: pot, WinningSlots: slots, Payouts: splitPot(bets, slots, pot), JackpotTicket: ticket}
	}

	idx := lotteryPick(totals, pot, ticket)
	slots := []int{bets[idx].Slot}
	return Resolution{Pot: pot, WinningSlots: slots, Payouts: splitPot(bets, slots, pot), JackpotTicket: ticket}
}

// lotteryPick walks weights in order, giving each a range of
// floor(weight/pot * 100000) tickets, and returns the index whose cumulative
// range contains the ticket. Rounding can leave a sliver of unassigned space
// at the top; a ticket landing there goes to the last weight.
func lotteryPick(weights []decimal.Decimal, pot decimal.Decimal, ticket uint32) int {
	space := decimal.NewFromInt(int64(fair.TicketSpace))
	var cum uint32
	for i, w := range weights {
		width := uint32(w.Div(pot).Mul(space).Floor().IntPart())
		cum += width
		if ticket < cum {
			return i
		}
	}
	return len(weights) - 1
}

// splitPot divides the pot evenly among the winning slots, with the last
// winner absorbing the rounding remainder so the pot is conserved exactly.
// Non-winning slots get an explicit zero payout.
func splitPot(bets []*Bet, winners []int, pot decimal.Decimal) map[int]decimal.Decimal {
	payouts := make(map[int]decimal.Decimal, len(bets))
	for _, b := range bets {
		payouts[b.Slot] = decimal.Zero
	}
	if len(winners) == 0 {
		return payouts
	}
	share := pot.Div(decimal.NewFromInt(int64(len(winners)))).RoundDown(2)
	paid := decimal.Zero
	for i, slot := range winners {
		if i == len(winners)-1 {
			payouts[slot] = pot.Sub(paid)
		} else {
			payouts[slot] = share
			paid = paid.Add(share)
		}
	}
	return payouts
}

// better reports whether a beats b under the game's comparison direction.
func better(g *Game, a, b decimal.Decimal) bool {
	if g.Options.Cursed {
		return a.LessThan(b)
	}
	return a.GreaterThan(b)
}

// teamSize returns the first team's size: 3v3 for six players, 2v2 otherwise.
func teamSize(playerCount int) int {
	return playerCount / 2
}

func slotsOf(bets []*Bet) []int {
	out := make([]int, len(bets))
	for i, b := range bets {
		out[i] = b.Slot
	}
	return out
}
