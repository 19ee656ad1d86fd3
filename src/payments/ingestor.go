package payments

import (
	"context"
	"fmt"
	"log"
	"time"

	"stays/src/gateway"

	"github.com/redis/go-redis/v9"
)

// Ingestor is the webhook entry point: verify the signature through the
// gateway adapter, normalize, then hand off to the orchestrator. Redis only
// short-circuits replays of events the ledger already committed; the ledger
// remains the source of truth for dedupe.
type Ingestor struct {
	reg *gateway.Registry
	orc *Orchestrator
	rdb *redis.Client
}

func NewIngestor(reg *gateway.Registry, orc *Orchestrator, rdb *redis.Client) *Ingestor {
	return &Ingestor{reg: reg, orc: orc, rdb: rdb}
}

// Ingest processes one webhook delivery. It returns whether the event
// mutated anything; signature failures come back as *types.SignatureError
// with no state touched.
func (i *Ingestor) Ingest(ctx context.Context, corrID string, gatewayName string, payload []byte, signature string) (bool, error) {
	adapter, err := i.reg.Resolve(gatewayName)
	if err != nil {
		return false, err
	}
	evt, err := adapter.ParseWebhook(payload, signature)
	if err != nil {
		return false, err
	}
	if evt == nil {
		// Verified but not a type we track; acknowledge so the gateway
		// stops redelivering.
		return false, nil
	}

	key := fmt.Sprintf("webhook:%s:%s", adapter.Name(), evt.ID)
	if i.rdb != nil {
		exists, err := i.rdb.Exists(ctx, key).Result()
		if err != nil {
			log.Printf("[%s] redis dedupe check failed for %s: %s\n", corrID, key, err.Error())
		} else if exists > 0 {
			return false, nil
		}
	}

	applied, err := i.orc.ApplyEvent(ctx, corrID, adapter.Name(), evt)
	if err != nil {
		return false, err
	}
	if applied && i.rdb != nil {
		// Cache only after the ledger commit so a crash in between cannot
		// mask an unapplied event.
		if err := i.rdb.SetNX(ctx, key, 1, 24*time.Hour).Err(); err != nil {
			log.Printf("[%s] redis dedupe cache write failed for %s: %s\n", corrID, key, err.Error())
		}
	}
	return applied, nil
}
