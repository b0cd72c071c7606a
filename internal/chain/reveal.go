package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// Reveal is the public seed handed to the fairness protocol once a game's
// board is full. BlockID is 0 and Fallback is true when the indexer could not
// supply the target block and a house-derived seed was used instead.
type Reveal struct {
	Seed     string
	BlockID  int64
	Fallback bool
}

// TargetBlock picks the reveal block for a game being validated now:
// current height plus the configured lead. When the indexer is unreachable the
// returned height is a deterministic stand-in derived from wall-clock time and
// the second return is true; AwaitReveal on such a height will also fall back.
func (c *Client) TargetBlock(ctx context.Context) (int64, bool) {
	height, err := c.LatestHeight(ctx)
	if err != nil {
		return time.Now().Unix(), true
	}
	return height + c.config.Lead, false
}

// AwaitReveal polls for the target block with a bounded retry budget and fixed
// backoff. It never returns an error: on exhaustion it degrades to
// FallbackReveal so the game can proceed.
func (c *Client) AwaitReveal(ctx context.Context, target int64, gameID, seedServer string) Reveal {
	var block Block
	backoff := retry.WithMaxRetries(uint64(c.config.PollAttempts-1), retry.NewConstant(c.config.PollBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := c.Block(ctx, target)
		if err != nil {
			return retry.RetryableError(err)
		}
		block = b
		return nil
	})
	if err != nil {
		return FallbackReveal(gameID, seedServer, time.Now())
	}
	return Reveal{Seed: block.Hash, BlockID: target}
}

// FallbackReveal derives a public seed from the house-held server seed, the
// game id and the current time. Unpredictable to players until reveal, but no
// longer independent of the house; the Fallback flag makes that visible.
func FallbackReveal(gameID, seedServer string, now time.Time) Reveal {
	sum := sha256.Sum256([]byte(fmt.Sprintf("fallback:%s:%d:%s", gameID, now.UnixNano(), seedServer)))
	return Reveal{Seed: hex.EncodeToString(sum[:]), BlockID: 0, Fallback: true}
}
