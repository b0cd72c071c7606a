package battle

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/caseclash/backend/internal/chain"
	"github.com/caseclash/backend/internal/fair"
)

// Timing holds the lifecycle delays. Production uses DefaultTiming; tests
// shrink everything to milliseconds.
type Timing struct {
	Countdown    time.Duration // countdown phase before rolling
	Round        time.Duration // delay before each revealed round
	BigSpinRound time.Duration // delay for rounds with a big-spin outcome
	RevealRetry  time.Duration // delay before re-running a failed validation
}

func DefaultTiming() Timing {
	return Timing{
		Countdown:    3 * time.Second,
		Round:        7500 * time.Millisecond,
		BigSpinRound: 17 * time.Second,
		RevealRetry:  15 * time.Second,
	}
}

// bigSpinRatio is the item-value to box-cost ratio at which a round gets the
// extended suspense delay.
var bigSpinRatio = decimal.NewFromFloat(2.4)

// Engine drives games through the lifecycle. Join, CallBots and Cancel are
// serialized per game id by the registry's intent sets; once a board fills,
// a single goroutine owns the game until completion.
type Engine struct {
	log    *zap.Logger
	store  Store
	ledger Ledger
	chain  Randomness
	notify Notifier
	reg    *Registry
	timing Timing

	newCommit func() (commitSeed, commitHash string, err error)
}

func NewEngine(log *zap.Logger, store Store, ledger Ledger, rnd Randomness, notify Notifier, timing Timing) *Engine {
	return &Engine{
		log:    log,
		store:  store,
		ledger: ledger,
		chain:  rnd,
		notify: notify,
		reg:    NewRegistry(),
		timing: timing,
	}
}

// Registry exposes the active-game collection to the API layer.
func (e *Engine) Registry() *Registry {
	return e.reg
}

// CreateParams is a game-creation request.
type CreateParams struct {
	CreatorID   string
	PlayerCount int
	Mode        Mode
	Options     Options
	Boxes       []BoxSelection
}

// CreateGame validates the request, charges the creator the entry fee and
// registers a new game with a fresh fairness commit. The creator occupies
// slot 0.
func (e *Engine) CreateGame(ctx context.Context, p CreateParams) (*Game, error) {
	if p.PlayerCount < MinPlayers || p.PlayerCount > MaxPlayers {
		return nil, ErrBadPlayerCount
	}
	switch p.Mode {
	case ModeStandard, ModeTeam, ModeGroup:
	default:
		return nil, ErrBadMode
	}
	if p.Mode == ModeTeam && p.PlayerCount%2 != 0 {
		return nil, ErrTeamPlayerCount
	}
	if p.Options.Jackpot && (p.Options.Cursed || p.Options.Terminal) {
		return nil, ErrJackpotModifier
	}

	boxes, err := e.store.ActiveBoxes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load boxes: %w", err)
	}
	byID := make(map[string]Box, len(boxes))
	for _, b := range boxes {
		byID[b.ID] = b
	}
	rounds, err := ExpandRounds(p.Boxes, byID)
	if err != nil {
		return nil, err
	}

	entry := decimal.Zero
	for _, box := range rounds {
		entry = entry.Add(box.Amount)
	}
	fee := entryFee(entry, p.Options.Funding)

	creator, err := e.store.GetUser(ctx, p.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("load creator: %w", err)
	}
	if creator.Balance.LessThan(fee) {
		return nil, ErrInsufficientBalance
	}

	seed, hash, err := e.commit()
	if err != nil {
		return nil, fmt.Errorf("fairness commit: %w", err)
	}

	now := time.Now().UTC()
	g := &Game{
		ID:          uuid.NewString(),
		Amount:      entry.Mul(decimal.NewFromInt(int64(p.PlayerCount))),
		EntryFee:    fee,
		PlayerCount: p.PlayerCount,
		Mode:        p.Mode,
		Options:     p.Options,
		Boxes:       p.Boxes,
		Rounds:      rounds,
		Fair:        FairRecord{SeedServer: seed, Hash: hash},
		State:       StateCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.ledger.Debit(ctx, creator.ID, fee, "battle:create:"+g.ID); err != nil {
		return nil, err
	}
	bet := newBet(g, creator.ID, false, 0, fee, now)
	g.Bets = append(g.Bets, bet)

	if err := e.store.CreateGame(ctx, g); err != nil {
		return nil, fmt.Errorf("persist game: %w", err)
	}
	if err := e.store.CreateBet(ctx, bet); err != nil {
		return nil, fmt.Errorf("persist host bet: %w", err)
	}

	e.reg.Insert(g)
	e.notify.BroadcastGame(g.Snapshot(), "game.created")
	e.log.Info("battle created",
		zap.String("game", g.ID),
		zap.String("mode", string(g.Mode)),
		zap.Int("players", g.PlayerCount),
		zap.Int("rounds", len(g.Rounds)))
	return g, nil
}

// Join places userID's bet on the given slot. When the last slot fills, the
// validation goroutine takes over the game.
func (e *Engine) Join(ctx context.Context, gameID, userID string, slot int) (*Game, error) {
	if err := e.reg.BeginJoin(gameID); err != nil {
		return nil, err
	}
	defer e.reg.EndJoin(gameID)

	g, err := e.reg.Get(gameID)
	if err != nil {
		return nil, err
	}

	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	g.mu.Lock()
	if err := joinPreconditions(g, user, slot); err != nil {
		g.mu.Unlock()
		return nil, err
	}
	fee := g.EntryFee
	g.mu.Unlock()

	if err := e.ledger.Debit(ctx, user.ID, fee, "battle:join:"+g.ID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	bet := newBet(g, user.ID, false, slot, fee, now)
	if err := e.store.CreateBet(ctx, bet); err != nil {
		// Undo the charge so the operation stays all-or-nothing.
		if cerr := e.ledger.Credit(ctx, user.ID, fee, "battle:join-revert:"+g.ID); cerr != nil {
			e.log.Error("join revert failed", zap.String("game", g.ID), zap.String("user", user.ID), zap.Error(cerr))
		}
		return nil, fmt.Errorf("persist bet: %w", err)
	}

	g.mu.Lock()
	g.Bets = append(g.Bets, bet)
	g.UpdatedAt = now
	filled := g.full()
	g.mu.Unlock()

	e.notify.BroadcastGame(g.Snapshot(), "game.joined")
	if filled {
		go e.run(g)
	}
	return g, nil
}

// joinPreconditions checks everything that can reject a join. Callers hold
// g.mu; nothing is mutated here.
func joinPreconditions(g *Game, user *User, slot int) error {
	if g.State != StateCreated {
		return ErrNotJoinable
	}
	if slot < 0 || slot >= g.PlayerCount {
		return ErrBadSlot
	}
	if g.betBySlot(slot) != nil {
		return ErrSlotTaken
	}
	if g.betByUser(user.ID) != nil {
		return ErrAlreadyJoined
	}
	if user.Level < g.Options.LevelMin {
		return ErrLevelTooLow
	}
	if g.Options.AffiliateOnly {
		host := g.betBySlot(0)
		if host == nil || user.AffiliateOf != host.UserID {
			return ErrAffiliateOnly
		}
	}
	if user.Balance.LessThan(g.EntryFee) {
		return ErrInsufficientBalance
	}
	return nil
}

// CallBots fills every free slot with a house-funded bot bet. Only the
// creator can call bots in.
func (e *Engine) CallBots(ctx context.Context, gameID, userID string) (*Game, error) {
	if err := e.reg.BeginMutate(gameID); err != nil {
		return nil, err
	}
	defer e.reg.EndMutate(gameID)

	g, err := e.reg.Get(gameID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	g.mu.Lock()
	if g.State != StateCreated {
		g.mu.Unlock()
		return nil, ErrNotJoinable
	}
	if host := g.betBySlot(0); host == nil || host.UserID != userID {
		g.mu.Unlock()
		return nil, ErrNotCreator
	}
	var bots []*Bet
	for slot := 0; slot < g.PlayerCount; slot++ {
		if g.betBySlot(slot) != nil {
			continue
		}
		bots = append(bots, newBet(g, "", true, slot, g.EntryFee, now))
	}
	g.mu.Unlock()

	// Persist before touching the board so a storage failure leaves the game
	// exactly as it was. The mutate intent keeps joins out in the meantime.
	for i, bot := range bots {
		if err := e.store.CreateBet(ctx, bot); err != nil {
			for _, p := range bots[:i] {
				if derr := e.store.DeleteBet(ctx, p.ID); derr != nil {
					e.log.Error("bot fill rollback failed",
						zap.String("game", g.ID), zap.String("bet", p.ID), zap.Error(derr))
				}
			}
			return nil, fmt.Errorf("persist bot bet: %w", err)
		}
	}

	g.mu.Lock()
	g.Bets = append(g.Bets, bots...)
	g.UpdatedAt = now
	filled := g.full()
	g.mu.Unlock()

	e.notify.BroadcastGame(g.Snapshot(), "game.joined")
	if filled {
		go e.run(g)
	}
	return g, nil
}

// Cancel tears down a game that is still accepting joins, refunding every
// charged stake. Only the creator may cancel. A full board already belongs to
// its run goroutine even while the state is still created, so fullness is
// checked alongside the state.
func (e *Engine) Cancel(ctx context.Context, gameID, userID string) error {
	if err := e.reg.BeginMutate(gameID); err != nil {
		return err
	}
	defer e.reg.EndMutate(gameID)

	g, err := e.reg.Get(gameID)
	if err != nil {
		return err
	}

	g.mu.Lock()
	if g.State != StateCreated || g.full() {
		g.mu.Unlock()
		return ErrNotCancelable
	}
	if host := g.betBySlot(0); host == nil || host.UserID != userID {
		g.mu.Unlock()
		return ErrNotCreator
	}
	g.State = StateCanceled
	g.UpdatedAt = time.Now().UTC()
	bets := append([]*Bet(nil), g.Bets...)
	g.mu.Unlock()

	for _, b := range bets {
		if b.Bot {
			continue
		}
		if err := e.ledger.Credit(ctx, b.UserID, b.Amount, "battle:refund:"+g.ID); err != nil {
			e.log.Error("cancel refund failed", zap.String("game", g.ID), zap.String("user", b.UserID), zap.Error(err))
		}
	}
	if err := e.store.UpdateGame(ctx, g); err != nil {
		e.log.Error("persist cancel failed", zap.String("game", g.ID), zap.Error(err))
	}

	e.reg.Remove(g.ID)
	e.notify.BroadcastGame(g.Snapshot(), "game.canceled")
	e.log.Info("battle canceled", zap.String("game", g.ID))
	return nil
}

// run owns a full board from the pending transition to completion. Reveal
// failures degrade to fallback randomness and a panic during reveal retries
// after a delay.
func (e *Engine) run(g *Game) {
	ctx := context.Background()
	e.setState(ctx, g, StatePending)
	e.validate(ctx, g)
}

// validate resolves the public seed, then rolls the board. Only the reveal
// phase retries after a panic; once outcomes exist, re-entering would append a
// second set, so roll failures are logged and the schedule carries on.
func (e *Engine) validate(ctx context.Context, g *Game) {
	plan, ok := e.reveal(ctx, g)
	if !ok {
		return
	}
	e.roll(ctx, g, plan)
}

func (e *Engine) reveal(ctx context.Context, g *Game) (plan []roundPlan, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("reveal panicked, retrying",
				zap.String("game", g.ID), zap.Any("panic", r))
			time.AfterFunc(e.timing.RevealRetry, func() { e.validate(ctx, g) })
		}
	}()

	target, degraded := e.chain.TargetBlock(ctx)
	var rev chain.Reveal
	if degraded {
		rev = chain.FallbackReveal(g.ID, g.Fair.SeedServer, time.Now())
	} else {
		rev = e.chain.AwaitReveal(ctx, target, g.ID, g.Fair.SeedServer)
	}

	g.mu.Lock()
	g.Fair.SeedPublic = rev.Seed
	g.Fair.BlockID = rev.BlockID
	g.Fair.FallbackUsed = rev.Fallback
	// Deterministic per-round resolution order from here on.
	sort.Slice(g.Bets, func(i, j int) bool { return g.Bets[i].Slot < g.Bets[j].Slot })
	g.mu.Unlock()

	if rev.Fallback {
		for _, uid := range g.ParticipantIDs() {
			e.notify.NotifyUser(uid, "fairness.fallback",
				"The randomness provider was unreachable; this battle uses fallback randomness. Verification data remains available.")
		}
		e.log.Warn("fallback randomness in use", zap.String("game", g.ID))
	}

	return e.plan(g), true
}

func (e *Engine) roll(ctx context.Context, g *Game, plan []roundPlan) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("roll panicked, game halted",
				zap.String("game", g.ID), zap.Any("panic", r))
		}
	}()

	e.setState(ctx, g, StateCountdown)
	time.Sleep(e.timing.Countdown)

	e.setState(ctx, g, StateRolling)
	for i := range plan {
		time.Sleep(plan[i].delay)
		e.applyRound(ctx, g, i, plan[i])
	}

	e.complete(ctx, g)
}

// roundPlan is one precomputed round: every slot's ticket, drawn item and
// value, plus the reveal delay. All randomness is fixed before the first
// round is shown, so the timing loop only schedules known results.
type roundPlan struct {
	delay  time.Duration
	ticket map[int]uint32
	item   map[int]BoxItem
	value  map[int]decimal.Decimal
}

func (e *Engine) plan(g *Game) []roundPlan {
	g.mu.RLock()
	defer g.mu.RUnlock()

	plan := make([]roundPlan, len(g.Rounds))
	for i, box := range g.Rounds {
		rp := roundPlan{
			delay:  e.timing.Round,
			ticket: make(map[int]uint32, len(g.Bets)),
			item:   make(map[int]BoxItem, len(g.Bets)),
			value:  make(map[int]decimal.Decimal, len(g.Bets)),
		}
		bigSpin := false
		for _, b := range g.Bets {
			t := ticketFor(g, i, b.Slot)
			item := DrawItem(box, t)
			rp.ticket[b.Slot] = t
			rp.item[b.Slot] = item
			rp.value[b.Slot] = item.AmountFixed
			if box.Amount.IsPositive() &&
				item.AmountFixed.Div(box.Amount).GreaterThanOrEqual(bigSpinRatio) {
				bigSpin = true
			}
		}
		// The extended delay applies per round, using the highest ratio
		// across that round's outcomes.
		if bigSpin && g.Options.BigSpin {
			rp.delay = e.timing.BigSpinRound
		}
		plan[i] = rp
	}
	return plan
}

func (e *Engine) applyRound(ctx context.Context, g *Game, round int, rp roundPlan) {
	now := time.Now().UTC()

	g.mu.Lock()
	for _, b := range g.Bets {
		b.Outcomes = append(b.Outcomes, rp.ticket[b.Slot])
		b.Payout = b.Payout.Add(rp.value[b.Slot])
		b.UpdatedAt = now
	}
	g.UpdatedAt = now
	bets := append([]*Bet(nil), g.Bets...)
	g.mu.Unlock()

	for _, b := range bets {
		if err := e.store.UpdateBet(ctx, b); err != nil {
			e.log.Error("persist round outcome failed",
				zap.String("game", g.ID), zap.Int("round", round), zap.Int("slot", b.Slot), zap.Error(err))
		}
	}
	e.notify.BroadcastGame(g.Snapshot(), "game.round")
}

func (e *Engine) complete(ctx context.Context, g *Game) {
	res := Resolve(g)
	now := time.Now().UTC()

	g.mu.Lock()
	g.State = StateCompleted
	g.UpdatedAt = now
	if g.Options.Jackpot {
		g.Fair.JackpotTicket = res.JackpotTicket
	}
	for _, b := range g.Bets {
		b.Payout = res.Payouts[b.Slot]
		b.Multiplier = multiplier(b.Payout, b.Amount)
		b.UpdatedAt = now
	}
	bets := append([]*Bet(nil), g.Bets...)
	g.mu.Unlock()

	for _, b := range bets {
		if !b.Bot {
			if err := e.ledger.ApplyWinnings(ctx, b, b.Payout); err != nil {
				e.log.Error("apply winnings failed",
					zap.String("game", g.ID), zap.String("bet", b.ID), zap.Error(err))
			}
		}
		if err := e.store.UpdateBet(ctx, b); err != nil {
			e.log.Error("persist final bet failed",
				zap.String("game", g.ID), zap.String("bet", b.ID), zap.Error(err))
		}
	}
	if err := e.store.UpdateGame(ctx, g); err != nil {
		e.log.Error("persist completed game failed", zap.String("game", g.ID), zap.Error(err))
	}

	e.reg.Archive(g)
	e.notify.BroadcastGame(g.Snapshot(), "game.completed")
	e.log.Info("battle completed",
		zap.String("game", g.ID),
		zap.Ints("winners", res.WinningSlots),
		zap.String("pot", res.Pot.String()),
		zap.Bool("fallback", g.Fair.FallbackUsed))
}

// Recover reattaches persisted games after a restart. A board that was
// already full when the process died has lost its in-flight timers; those
// games are refunded and canceled. Games still accepting joins go back into
// the registry untouched.
func (e *Engine) Recover(ctx context.Context) error {
	games, err := e.store.ListUnfinishedGames(ctx)
	if err != nil {
		return fmt.Errorf("list unfinished games: %w", err)
	}

	for _, g := range games {
		if g.State == StateCreated && !g.full() {
			e.reg.Insert(g)
			e.log.Info("battle reattached", zap.String("game", g.ID))
			continue
		}
		g.State = StateCanceled
		g.UpdatedAt = time.Now().UTC()
		for _, b := range g.Bets {
			if b.Bot {
				continue
			}
			if err := e.ledger.Credit(ctx, b.UserID, b.Amount, "battle:stale-refund:"+g.ID); err != nil {
				e.log.Error("stale refund failed",
					zap.String("game", g.ID), zap.String("user", b.UserID), zap.Error(err))
			}
		}
		if err := e.store.UpdateGame(ctx, g); err != nil {
			e.log.Error("persist stale cancel failed", zap.String("game", g.ID), zap.Error(err))
		}
		e.log.Warn("stale battle canceled on startup", zap.String("game", g.ID))
	}
	return nil
}

func (e *Engine) setState(ctx context.Context, g *Game, s State) {
	g.mu.Lock()
	g.State = s
	g.UpdatedAt = time.Now().UTC()
	g.mu.Unlock()

	if err := e.store.UpdateGame(ctx, g); err != nil {
		e.log.Error("persist state failed",
			zap.String("game", g.ID), zap.String("state", string(s)), zap.Error(err))
	}
	e.notify.BroadcastGame(g.Snapshot(), "game."+string(s))
}

// commit defaults to fair.NewCommit; tests substitute fixed seeds through
// the newCommit hook.
func (e *Engine) commit() (string, string, error) {
	if e.newCommit != nil {
		return e.newCommit()
	}
	c, err := fair.NewCommit()
	if err != nil {
		return "", "", err
	}
	return c.SeedServer, c.Hash, nil
}

func ticketFor(g *Game, round, slot int) uint32 {
	return fair.Ticket(g.ID, g.Fair.SeedServer, g.Fair.SeedPublic, round, slot)
}

func newBet(g *Game, userID string, bot bool, slot int, amount decimal.Decimal, now time.Time) *Bet {
	return &Bet{
		ID:        uuid.NewString(),
		GameID:    g.ID,
		UserID:    userID,
		Bot:       bot,
		Slot:      slot,
		Amount:    amount,
		Payout:    decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func entryFee(entry decimal.Decimal, funding int) decimal.Decimal {
	if funding <= 0 {
		return entry
	}
	if funding >= 100 {
		return decimal.Zero
	}
	return entry.Mul(decimal.NewFromInt(int64(100 - funding))).Div(decimal.NewFromInt(100)).RoundUp(2)
}

func multiplier(payout, amount decimal.Decimal) int64 {
	if amount.IsZero() {
		return 0
	}
	return payout.Div(amount).Mul(decimal.NewFromInt(100)).IntPart()
}
