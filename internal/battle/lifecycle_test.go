package battle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/caseclash/backend/internal/chain"
)

// ---- fakes ----

type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*User
	games   map[string]State
	bets    int
	boxes   []Box
	deleted []string

	failBetAt int // CreateBet fails when it would persist the Nth bet
}

func newFakeStore(boxes []Box, users ...*User) *fakeStore {
	s := &fakeStore{
		users: make(map[string]*User),
		games: make(map[string]State),
		boxes: boxes,
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeStore) CreateGame(ctx context.Context, g *Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g.State
	return nil
}

func (s *fakeStore) UpdateGame(ctx context.Context, g *Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g.State
	return nil
}

func (s *fakeStore) ListUnfinishedGames(ctx context.Context) ([]*Game, error) {
	return nil, nil
}

func (s *fakeStore) CreateBet(ctx context.Context, b *Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failBetAt > 0 && s.bets+1 == s.failBetAt {
		return errors.New("storage down")
	}
	s.bets++
	return nil
}

func (s *fakeStore) UpdateBet(ctx context.Context, b *Bet) error { return nil }

func (s *fakeStore) DeleteBet(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bets--
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) ActiveBoxes(ctx context.Context) ([]Box, error) {
	return s.boxes, nil
}

func (s *fakeStore) GetUser(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	copied := *u
	return &copied, nil
}

type fakeLedger struct {
	mu       sync.Mutex
	store    *fakeStore
	winnings map[string]int // bet id -> ApplyWinnings calls
}

func newFakeLedger(s *fakeStore) *fakeLedger {
	return &fakeLedger{store: s, winnings: make(map[string]int)}
}

func (l *fakeLedger) Debit(ctx context.Context, userID string, amount decimal.Decimal, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	u := l.store.users[userID]
	if u.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	u.Balance = u.Balance.Sub(amount)
	return nil
}

func (l *fakeLedger) Credit(ctx context.Context, userID string, amount decimal.Decimal, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store.users[userID].Balance = l.store.users[userID].Balance.Add(amount)
	return nil
}

func (l *fakeLedger) ApplyWinnings(ctx context.Context, bet *Bet, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.winnings[bet.ID]++
	l.store.users[bet.UserID].Balance = l.store.users[bet.UserID].Balance.Add(amount)
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	events    []string
	userNotes map[string][]string
	completed chan GameSnapshot
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		userNotes: make(map[string][]string),
		completed: make(chan GameSnapshot, 4),
	}
}

func (n *fakeNotifier) BroadcastGame(snap GameSnapshot, event string) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
	if event == "game.completed" {
		n.completed <- snap
	}
}

func (n *fakeNotifier) NotifyUser(userID, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.userNotes[userID] = append(n.userNotes[userID], event)
}

func (n *fakeNotifier) eventIndex(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, e := range n.events {
		if e == event {
			return i
		}
	}
	return -1
}

type fakeChain struct {
	fail bool
}

func (c *fakeChain) TargetBlock(ctx context.Context) (int64, bool) {
	if c.fail {
		return time.Now().Unix(), true
	}
	return 105, false
}

func (c *fakeChain) AwaitReveal(ctx context.Context, target int64, gameID, seedServer string) chain.Reveal {
	if c.fail {
		return chain.FallbackReveal(gameID, seedServer, time.Now())
	}
	return chain.Reveal{Seed: "block-hash-105", BlockID: target}
}

// ---- helpers ----

func fastTiming() Timing {
	return Timing{
		Countdown:    time.Millisecond,
		Round:        time.Millisecond,
		BigSpinRound: 2 * time.Millisecond,
		RevealRetry:  5 * time.Millisecond,
	}
}

func testUsers() []*User {
	mk := func(id string, level int) *User {
		return &User{ID: id, Name: id, Level: level, Balance: decimal.NewFromInt(1000)}
	}
	return []*User{mk("alice", 10), mk("bob", 10), mk("carol", 10), mk("dave", 1)}
}

func newTestEngine(t *testing.T, rnd Randomness) (*Engine, *fakeStore, *fakeLedger, *fakeNotifier) {
	t.Helper()
	store := newFakeStore([]Box{valueBox()}, testUsers()...)
	ledger := newFakeLedger(store)
	notify := newFakeNotifier()
	e := NewEngine(zap.NewNop(), store, ledger, rnd, notify, fastTiming())
	e.newCommit = func() (string, string, error) {
		return "fixed-server-seed", "fixed-hash", nil
	}
	return e, store, ledger, notify
}

func create(t *testing.T, e *Engine, p CreateParams) *Game {
	t.Helper()
	g, err := e.CreateGame(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateGame() error: %v", err)
	}
	return g
}

func waitCompleted(t *testing.T, n *fakeNotifier) GameSnapshot {
	t.Helper()
	select {
	case snap := <-n.completed:
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("game never completed")
		return GameSnapshot{}
	}
}

// ---- tests ----

func TestFullGameRunsToCompletion(t *testing.T) {
	e, _, ledger, notify := newTestEngine(t, &fakeChain{})
	g := create(t, e, CreateParams{
		CreatorID:   "alice",
		PlayerCount: 2,
		Mode:        ModeStandard,
		Boxes:       []BoxSelection{{BoxID: "box-1", Count: 3}},
	})

	if _, err := e.Join(context.Background(), g.ID, "bob", 1); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	snap := waitCompleted(t, notify)
	if snap.State != StateCompleted {
		t.Fatalf("final state = %s, want completed", snap.State)
	}
	if snap.Fair.FallbackUsed {
		t.Error("FallbackUsed = true with healthy chain")
	}
	if snap.Fair.SeedPublic != "block-hash-105" || snap.Fair.BlockID != 105 {
		t.Errorf("fair record = %+v, want revealed block 105", snap.Fair)
	}

	// Round completeness and payout conservation.
	pot := decimal.Zero
	paid := decimal.Zero
	for _, b := range snap.Bets {
		if len(b.Outcomes) != len(snap.Rounds) {
			t.Errorf("slot %d outcomes = %d, want %d", b.Slot, len(b.Outcomes), len(snap.Rounds))
		}
		for r, ticket := range b.Outcomes {
			pot = pot.Add(DrawItem(snap.Rounds[r], ticket).AmountFixed)
		}
		paid = paid.Add(b.Payout)
	}
	if !paid.Equal(pot) {
		t.Errorf("final payouts sum to %s, want pot %s", paid, pot)
	}

	// Ledger touched exactly once per bet.
	for id, calls := range ledger.winnings {
		if calls != 1 {
			t.Errorf("ApplyWinnings for bet %s called %d times", id, calls)
		}
	}
	if len(ledger.winnings) != 2 {
		t.Errorf("ApplyWinnings called for %d bets, want 2", len(ledger.winnings))
	}

	// Game left the active registry for the history ring.
	if _, err := e.Registry().Get(g.ID); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("completed game still active: %v", err)
	}
	if len(e.Registry().History()) != 1 {
		t.Errorf("history length = %d, want 1", len(e.Registry().History()))
	}
}

func TestFallbackStillCompletesAndWarns(t *testing.T) {
	e, _, _, notify := newTestEngine(t, &fakeChain{fail: true})
	g := create(t, e, CreateParams{
		CreatorID:   "alice",
		PlayerCount: 2,
		Mode:        ModeStandard,
		Boxes:       []BoxSelection{{BoxID: "box-1", Count: 2}},
	})
	if _, err := e.Join(context.Background(), g.ID, "bob", 1); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	snap := waitCompleted(t, notify)
	if !snap.Fair.FallbackUsed {
		t.Error("FallbackUsed = false, want true")
	}
	if snap.Fair.BlockID != 0 {
		t.Errorf("BlockID = %d, want 0 for fallback", snap.Fair.BlockID)
	}

	// The warning reached every participant before countdown started.
	notify.mu.Lock()
	aliceWarned := len(notify.userNotes["alice"]) > 0
	bobWarned := len(notify.userNotes["bob"]) > 0
	notify.mu.Unlock()
	if !aliceWarned || !bobWarned {
		t.Errorf("fallback warnings: alice=%v bob=%v, want both", aliceWarned, bobWarned)
	}
	if ci := notify.eventIndex("game.countdown"); ci < 0 {
		t.Error("no countdown broadcast recorded")
	}
}

func TestJoinPreconditions(t *testing.T) {
	e, _, _, _ := newTestEngine(t, &fakeChain{})
	g := create(t, e, CreateParams{
		CreatorID:   "alice",
		PlayerCount: 4,
		Mode:        ModeStandard,
		Options:     Options{LevelMin: 5},
		Boxes:       []BoxSelection{{BoxID: "box-1", Count: 1}},
	})
	ctx := context.Background()

	if _, err := e.Join(ctx, g.ID, "bob", 0); !errors.Is(err, ErrSlotTaken) {
		t.Errorf("join occupied slot error = %v, want ErrSlotTaken", err)
	}
	if _, err := e.Join(ctx, g.ID, "bob", 7); !errors.Is(err, ErrBadSlot) {
		t.Errorf("join out-of-range slot error = %v, want ErrBadSlot", err)
	}
	if _, err := e.Join(ctx, g.ID, "alice", 1); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("creator rejoining error = %v, want ErrAlreadyJoined", err)
	}
	if _, err := e.Join(ctx, g.ID, "dave", 1); !errors.Is(err, ErrLevelTooLow) {
		t.Errorf("low level join error = %v, want ErrLevelTooLow", err)
	}
	if _, err := e.Join(ctx, "nope", "bob", 1); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("unknown game error = %v, want ErrGameNotFound", err)
	}

	// None of the rejections may have mutated the board.
	snap := g.Snapshot()
	if len(snap.Bets) != 1 {
		t.Errorf("bets after rejected joins = %d, want 1", len(snap.Bets))
	}
}

func TestJoinRejectedWhileBusy(t *testing.T) {
	e, _, _, _ := newTestEngine(t, &fakeChain{})
	g := create(t, e, CreateParams{
		CreatorID:   "alice",
		PlayerCount: 3,
		Mode:        ModeStandard,
		Boxes:       []BoxSelection{{BoxID: "box-1", Count: 1}},
	})

	if err := e.Registry().BeginJoin(g.ID); err != nil {
		t.Fatalf("BeginJoin() error: %v", err)
	}
	defer e.Registry().EndJoin(g.ID)

	if _, err := e.Join(context.Background(), g.ID, "bob", 1); !errors.Is(err, ErrGameBusy) {
		t.Errorf("Join() while busy error = %v, want ErrGameBusy", err)
	}
	if _, err := e.CallBots(context.Background(), g.ID, "alice"); !errors.Is(err, ErrGameBusy) {
		t.Errorf("CallBots() while busy error = %v, want ErrGameBusy", err)
	}
	if err := e.Cancel(context.Background(), g.ID, "alice"); !errors.Is(err, ErrGameBusy) {
		t.Errorf("Cancel() while busy error = %v, want ErrGameBusy", err)
	}
}

func TestCallBotsFillsBoardAndRuns(t *testing.T) {
	e, _, _, notify := newTestEngine(t, &fakeChain{})
	g := create(t, e, CreateParams{
		CreatorID:   "alice",
		PlayerCount: 4,
		Mode:        ModeStandard,
		Boxes:       []BoxSelection{{BoxID: "box-1", Count: 2}},
	})

	if _, err := e.CallBots(context.Background(), g.ID, "bob"); !errors.Is(err, ErrNotCreator) {
		t.Errorf("CallBots() by non-creator error = %v, want ErrNotCreator", err)
	}
	if _, err := e.CallBots(context.Background(), g.ID, "alice"); err != nil {
		t.Fatalf("CallBots() error: %v", err)
	}

	snap := waitCompleted(t, notify)
	bots := 0
	slots := map[int]bool{}
	for _, b := range snap.Bets {
		if slots[b.Slot] {
			t.Errorf("slot %d occupied twice", b.Slot)
		}
		slots[b.Slot] = true
		if b.Bot {
			bots++
			if b.UserID != "" {
				t.Errorf("bot bet carries user id %q", b.UserID)
			}
		}
	}
	if bots != 3 {
		t.Errorf("bot bets = %d, want 3", bots)
	}
}

func TestCancelRefundsStakes(t *testing.T) {
	e, store, _, _ := newTestEngine(t, &fakeChain{})
	before := store.users["alice"].Balance.Add(store.users["bob"].Balance)

	g := create(t, e, CreateParams{
		CreatorID:   "alice",
		PlayerCount: 4,
		Mode:        ModeStandard,
		Boxes:       []BoxSelection{{BoxID: "box-1", Count: 2}},
	})
	if _, err := e.Join(context.Background(), g.ID, "bob", 2); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	if err := e.Cancel(context.Background(), g.ID, "bob"); !errors.Is(err, ErrNotCreator) {
		t.Errorf("Cancel() by joiner error = %v, want ErrNotCreator", err)
	}
	if err := e.Cancel(context.Background(), g.ID, "alice"); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	after := store.users["alice"].Balance.Add(store.users["bob"].Balance)
	if !after.Equal(before) {
		t.Errorf("balances after cancel = %s, want %s", after, before)
	}
	if _, err := e.Registry().Get(g.ID); !errors.Is(err, ErrGameNotFound) {
		t.Error("canceled game still in active registry")
	}
	if store.games[g.ID] != StateCanceled {
		t.Errorf("persisted state = %s, want canceled", store.games[g.ID])
	}
}

func TestCreateValidation(t *testing.T) {
	e, _, _, _ := newTestEngine(t, &fakeChain{})
	ctx := context.Background()
	boxes := []BoxSelection{{BoxID: "box-1", Count: 1}}

	tests := []struct {
		name string
		p    CreateParams
		want error
	}{
		{"too few players", CreateParams{CreatorID: "alice", PlayerCount: 1, Mode: ModeStandard, Boxes: boxes}, ErrBadPlayerCount},
		{"too many players", CreateParams{CreatorID: "alice", PlayerCount: 7, Mode: ModeStandard, Boxes: boxes}, ErrBadPlayerCount},
		{"bad mode", CreateParams{CreatorID: "alice", PlayerCount: 2, Mode: "royale", Boxes: boxes}, ErrBadMode},
		{"odd team", CreateParams{CreatorID: "alice", PlayerCount: 3, Mode: ModeTeam, Boxes: boxes}, ErrTeamPlayerCount},
		{"jackpot cursed", CreateParams{CreatorID: "alice", PlayerCount: 2, Mode: ModeStandard, Options: Options{Jackpot: true, Cursed: true}, Boxes: boxes}, ErrJackpotModifier},
		{"jackpot terminal", CreateParams{CreatorID: "alice", PlayerCount: 2, Mode: ModeStandard, Options: Options{Jackpot: true, Terminal: true}, Boxes: boxes}, ErrJackpotModifier},
		{"no boxes", CreateParams{CreatorID: "alice", PlayerCount: 2, Mode: ModeStandard}, ErrNoBoxes},
		{"unknown box", CreateParams{CreatorID: "alice", PlayerCount: 2, Mode: ModeStandard, Boxes: []BoxSelection{{BoxID: "nope", Count: 1}}}, ErrUnknownBox},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.CreateGame(ctx, tt.p); !errors.Is(err, tt.want) {
				t.Errorf("CreateGame() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCancelRejectedOnFullBoard(t *testing.T) {
	e, store, _, _ := newTestEngine(t, &fakeChain{})
	g := create(t, e, CreateParams{
		CreatorID:   "alice",
		PlayerCount: 2,
		Mode:        ModeStandard,
		Boxes:       []BoxSelection{{BoxID: "box-1", Count: 1}},
	})
	balanceAfterCreate := store.users["alice"].Balance

	// Occupy the last slot directly: the board is full but the run goroutine
	// has not flipped the state yet. Cancel must not slip into that window.
	g.mu.Lock()
	g.Bets = append(g.Bets, newBet(g, "bob", false, 1, g.EntryFee, time.Now().UTC()))
	g.mu.Unlock()

	if err := e.Cancel(context.Background(), g.ID, "alice"); !errors.Is(err, ErrNotCancelable) {
		t.Fatalf("Cancel() on full board error = %v, want ErrNotCancelable", err)
	}
	if snap := g.Snapshot(); snap.State != StateCreated {
		t.Errorf("state after rejected cancel = %s, want created", snap.State)
	}
	if !store.users["alice"].Balance.Equal(balanceAfterCreate) {
		t.Errorf("creator balance changed by rejected cancel: %s, want %s",
			store.users["alice"].Balance, balanceAfterCreate)
	}
	if _, err := e.Registry().Get(g.ID); err != nil {
		t.Errorf("game left the registry after rejected cancel: %v", err)
	}
}

func TestCallBotsStorageFailureLeavesBoardUntouched(t *testing.T) {
	e, store, _, notify := newTestEngine(t, &fakeChain{})
	g := create(t, e, CreateParams{
		CreatorID:   "alice",
		PlayerCount: 3,
		Mode:        ModeStandard,
		Boxes:       []BoxSelection{{BoxID: "box-1", Count: 1}},
	})

	// Host bet is the first row; fail the second bot insert.
	store.mu.Lock()
	store.failBetAt = 3
	store.mu.Unlock()

	if _, err := e.CallBots(context.Background(), g.ID, "alice"); err == nil {
		t.Fatal("CallBots() with failing storage returned nil error")
	}

	snap := g.Snapshot()
	if len(snap.Bets) != 1 {
		t.Errorf("board has %d bets after failed bot fill, want 1", len(snap.Bets))
	}
	if snap.State != StateCreated {
		t.Errorf("state after failed bot fill = %s, want created", snap.State)
	}
	store.mu.Lock()
	rolledBack := len(store.deleted)
	store.failBetAt = 0
	store.mu.Unlock()
	if rolledBack != 1 {
		t.Errorf("rolled-back bot rows = %d, want 1", rolledBack)
	}

	// The fill works once storage recovers.
	if _, err := e.CallBots(context.Background(), g.ID, "alice"); err != nil {
		t.Fatalf("CallBots() after recovery error: %v", err)
	}
	if snap := waitCompleted(t, notify); snap.State != StateCompleted {
		t.Errorf("final state = %s, want completed", snap.State)
	}
}

func TestBigSpinDelayAppliesPerRound(t *testing.T) {
	e, _, _, _ := newTestEngine(t, &fakeChain{})

	// Every item in the first box hits the value/cost threshold; none in the
	// second does, whatever the tickets land on.
	rich := Box{ID: "rich", Amount: decimal.NewFromInt(10), Items: []BoxItem{
		{Name: "jackpot", AmountFixed: decimal.NewFromInt(24), Tickets: 100000},
	}}
	poor := Box{ID: "poor", Amount: decimal.NewFromInt(10), Items: []BoxItem{
		{Name: "scrap", AmountFixed: decimal.NewFromInt(5), Tickets: 100000},
	}}
	g := &Game{
		ID:          "big-spin-game",
		PlayerCount: 2,
		Options:     Options{BigSpin: true},
		Rounds:      []Box{rich, poor},
		Fair:        FairRecord{SeedServer: "seed", SeedPublic: "public"},
		Bets:        []*Bet{{Slot: 0}, {Slot: 1}},
	}

	plan := e.plan(g)
	if plan[0].delay != e.timing.BigSpinRound {
		t.Errorf("qualifying round delay = %s, want %s", plan[0].delay, e.timing.BigSpinRound)
	}
	if plan[1].delay != e.timing.Round {
		t.Errorf("ordinary round delay = %s, want %s", plan[1].delay, e.timing.Round)
	}

	// Without the option the qualifying round keeps the normal pace.
	g.Options.BigSpin = false
	plan = e.plan(g)
	if plan[0].delay != e.timing.Round {
		t.Errorf("delay with bigSpin off = %s, want %s", plan[0].delay, e.timing.Round)
	}
}

// panickyNotifier blows up on the first round broadcast so the roll phase
// aborts mid-game.
type panickyNotifier struct {
	*fakeNotifier
	panicked bool
}

func (n *panickyNotifier) BroadcastGame(snap GameSnapshot, event string) {
	if event == "game.round" && !n.panicked {
		n.panicked = true
		panic("hub wedged")
	}
	n.fakeNotifier.BroadcastGame(snap, event)
}

func TestRoundPanicDoesNotReplayReveal(t *testing.T) {
	store := newFakeStore([]Box{valueBox()}, testUsers()...)
	ledger := newFakeLedger(store)
	notify := &panickyNotifier{fakeNotifier: newFakeNotifier()}
	e := NewEngine(zap.NewNop(), store, ledger, &fakeChain{}, notify, fastTiming())
	e.newCommit = func() (string, string, error) {
		return "fixed-server-seed", "fixed-hash", nil
	}

	g := create(t, e, CreateParams{
		CreatorID:   "alice",
		PlayerCount: 2,
		Mode:        ModeStandard,
		Boxes:       []BoxSelection{{BoxID: "box-1", Count: 2}},
	})
	if _, err := e.Join(context.Background(), g.ID, "bob", 1); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	// Give any (incorrect) reveal retry ample time to fire.
	time.Sleep(20 * fastTiming().RevealRetry)

	snap := g.Snapshot()
	if snap.State == StateCompleted {
		t.Errorf("game completed after a mid-roll panic")
	}
	for _, b := range snap.Bets {
		if len(b.Outcomes) > len(snap.Rounds) {
			t.Errorf("slot %d has %d outcomes for %d rounds, reveal was replayed",
				b.Slot, len(b.Outcomes), len(snap.Rounds))
		}
	}
	ledger.mu.Lock()
	paid := len(ledger.winnings)
	ledger.mu.Unlock()
	if paid != 0 {
		t.Errorf("ApplyWinnings ran %d times for an unfinished game", paid)
	}
}

func TestOutcomesReproducibleFromFairRecord(t *testing.T) {
	e, _, _, notify := newTestEngine(t, &fakeChain{})
	g := create(t, e, CreateParams{
		CreatorID:   "alice",
		PlayerCount: 2,
		Mode:        ModeStandard,
		Boxes:       []BoxSelection{{BoxID: "box-1", Count: 3}},
	})
	if _, err := e.Join(context.Background(), g.ID, "bob", 1); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	snap := waitCompleted(t, notify)

	// A third party holding the revealed record must be able to recompute
	// every outcome.
	for _, b := range snap.Bets {
		for r, got := range b.Outcomes {
			want := ticketFor(&Game{ID: snap.ID, Fair: snap.Fair}, r, b.Slot)
			if got != want {
				t.Errorf("slot %d round %d outcome = %d, recomputed %d", b.Slot, r, got, want)
			}
		}
	}
}
