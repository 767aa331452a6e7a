package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonesrussell/telemetry-storage/internal/elasticsearch"
	"github.com/jonesrussell/telemetry-storage/internal/logger"
)

// RegisterLockIndex is the logical index holding one lock record per
// inventory scope. Sequence allocation for inventory registration
// funnels through these records.
const RegisterLockIndex = "register_lock"

// ErrLockContention is returned when the versioned write loses the race
// more times than maxAllocateAttempts allows.
var ErrLockContention = errors.New("register lock contention")

const maxAllocateAttempts = 5

func registerLockMappings() elasticsearch.Mappings {
	return elasticsearch.Mappings{
		Properties: map[string]elasticsearch.Property{
			"sequence": {Type: "long"},
		},
	}
}

// lockRecord is the stored shape of one scope's lock.
type lockRecord struct {
	Sequence int64 `json:"sequence"`
}

// RegisterLockDAO allocates monotonically increasing sequence numbers
// per scope. Every write goes through the synchronous writer with
// refresh=true and an external version check, so two processes racing
// for the same sequence cannot both win: the loser sees a version
// conflict, re-reads, and tries again.
type RegisterLockDAO struct {
	client *elasticsearch.Client
	log    logger.Logger
}

func NewRegisterLockDAO(client *elasticsearch.Client, log logger.Logger) *RegisterLockDAO {
	return &RegisterLockDAO{client: client, log: log}
}

// Init seeds the lock record for a scope. Idempotent: an existing
// record is left alone.
func (d *RegisterLockDAO) Init(ctx context.Context, scope string) error {
	got, err := d.client.Get(ctx, RegisterLockIndex, scope)
	if err != nil {
		return fmt.Errorf("init register lock %s: %w", scope, err)
	}
	if got.Found {
		return nil
	}
	if err := d.client.ForceInsert(ctx, RegisterLockIndex, scope, map[string]any{"sequence": int64(0)}); err != nil {
		return fmt.Errorf("init register lock %s: %w", scope, err)
	}
	d.log.Info("register lock seeded", logger.String("scope", scope))
	return nil
}

// Current returns the stored sequence and its version for a scope.
func (d *RegisterLockDAO) Current(ctx context.Context, scope string) (sequence, version int64, err error) {
	got, err := d.client.Get(ctx, RegisterLockIndex, scope)
	if err != nil {
		return 0, 0, fmt.Errorf("read register lock %s: %w", scope, err)
	}
	if !got.Found {
		return 0, 0, fmt.Errorf("read register lock %s: record missing", scope)
	}
	var record lockRecord
	if err := json.Unmarshal(got.Source, &record); err != nil {
		return 0, 0, fmt.Errorf("read register lock %s: %w", scope, err)
	}
	return record.Sequence, got.Version, nil
}

// Allocate claims and returns the next sequence number for a scope.
// Each attempt reads the record, then writes sequence+1 at version+1
// with an external version check. A conflict means another allocator
// won that sequence; the loop re-reads and retries up to the attempt
// bound.
func (d *RegisterLockDAO) Allocate(ctx context.Context, scope string) (int64, error) {
	for attempt := 1; attempt <= maxAllocateAttempts; attempt++ {
		sequence, version, err := d.Current(ctx, scope)
		if err != nil {
			return 0, err
		}

		next := sequence + 1
		err = d.client.ForceUpdateVersioned(ctx, RegisterLockIndex, scope,
			map[string]any{"sequence": next}, version+1)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, elasticsearch.ErrVersionConflict) {
			return 0, fmt.Errorf("allocate sequence %s: %w", scope, err)
		}
		d.log.Debug("sequence allocation lost the race, retrying",
			logger.String("scope", scope),
			logger.Int("attempt", attempt),
		)
	}
	return 0, fmt.Errorf("allocate sequence %s after %d attempts: %w", scope, maxAllocateAttempts, ErrLockContention)
}
