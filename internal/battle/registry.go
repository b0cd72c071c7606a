package battle

import "sync"

// historySize bounds the completed-games ring kept for the recent list.
const historySize = 4

// Registry is the authoritative in-memory set of not-yet-completed games,
// plus the two intent sets that serialize slot-changing operations. A game id
// present in either set is mid-mutation; new join/bot/cancel requests for it
// are rejected with ErrGameBusy instead of queued, so slots can never be
// oversold and a cancel can never race a join.
type Registry struct {
	mu       sync.Mutex
	games    map[string]*Game
	joining  map[string]struct{}
	mutating map[string]struct{}
	history  []*Game // most recent first
}

func NewRegistry() *Registry {
	return &Registry{
		games:    make(map[string]*Game),
		joining:  make(map[string]struct{}),
		mutating: make(map[string]struct{}),
	}
}

// Insert adds a game to the active set.
func (r *Registry) Insert(g *Game) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.ID] = g
}

// Get returns the active game with the given id.
func (r *Registry) Get(id string) (*Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// Remove drops a game from the active set without archiving it (cancel path).
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, id)
}

// Active returns all games currently in the registry.
func (r *Registry) Active() []*Game {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g)
	}
	return out
}

// Archive moves a completed game out of the active set and into the bounded
// recent-history ring.
func (r *Registry) Archive(g *Game) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, g.ID)
	r.history = append([]*Game{g}, r.history...)
	if len(r.history) > historySize {
		r.history = r.history[:historySize]
	}
}

// History returns the recent completed games, newest first.
func (r *Registry) History() []*Game {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Game(nil), r.history...)
}

// BeginJoin marks a game as having a join in flight. It fails with
// ErrGameBusy if any slot-changing operation is already running for the id.
func (r *Registry) BeginJoin(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.joining[id]; ok {
		return ErrGameBusy
	}
	if _, ok := r.mutating[id]; ok {
		return ErrGameBusy
	}
	r.joining[id] = struct{}{}
	return nil
}

// EndJoin clears the join intent. Must run on success and failure paths both.
func (r *Registry) EndJoin(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.joining, id)
}

// BeginMutate marks a whole-game mutation (bot fill, cancel) in flight.
func (r *Registry) BeginMutate(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.joining[id]; ok {
		return ErrGameBusy
	}
	if _, ok := r.mutating[id]; ok {
		return ErrGameBusy
	}
	r.mutating[id] = struct{}{}
	return nil
}

// EndMutate clears the whole-game mutation intent.
func (r *Registry) EndMutate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mutating, id)
}
