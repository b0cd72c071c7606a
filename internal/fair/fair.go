package fair

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// TicketSpace is the size of the outcome wheel. Every derived ticket lands in
// [0, TicketSpace) and maps onto item weights that sum to the same space.
const TicketSpace = 100000

// jackpotDomain separates the jackpot draw from per-round tickets so the two
// can never collide for the same seeds.
const jackpotDomain = "jackpot"

// Commit is the public half of the commit-reveal protocol. Hash is published
// at game creation; SeedServer stays secret until the public seed is revealed.
type Commit struct {
	SeedServer string
	Hash       string
}

// NewCommit generates a fresh server seed (24 random bytes, hex encoded)
// together with its SHA-256 commitment.
func NewCommit() (Commit, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return Commit{}, fmt.Errorf("generate server seed: %w", err)
	}
	seed := hex.EncodeToString(buf)
	return Commit{SeedServer: seed, Hash: HashSeed(seed)}, nil
}

// HashSeed returns the hex SHA-256 of a server seed.
func HashSeed(seedServer string) string {
	sum := sha256.Sum256([]byte(seedServer))
	return hex.EncodeToString(sum[:])
}

// VerifyCommit reports whether a revealed server seed matches the hash that
// was published at creation time.
func VerifyCommit(seedServer, hash string) bool {
	return HashSeed(seedServer) == hash
}

// Ticket derives the outcome ticket for one round and one slot. The
// construction is HMAC-SHA256 keyed by the server seed over
// "<gameID>:<seedPublic>:<round>:<slot>", truncated to the first 4 bytes and
// reduced mod TicketSpace. Anyone holding the revealed seeds can recompute it.
func Ticket(gameID, seedServer, seedPublic string, round, slot int) uint32 {
	return digest(seedServer, fmt.Sprintf("%s:%s:%d:%d", gameID, seedPublic, round, slot))
}

// JackpotTicket derives the single lottery ticket used by jackpot-mode winner
// selection. Same construction as Ticket with a constant domain tag.
func JackpotTicket(gameID, seedServer, seedPublic string) uint32 {
	return digest(seedServer, fmt.Sprintf("%s:%s:%s", gameID, seedPublic, jackpotDomain))
}

func digest(key, message string) uint32 {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(message))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint32(sum[:4]) % TicketSpace
}
