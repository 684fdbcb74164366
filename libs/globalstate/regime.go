// Package globalstate shares the process-wide single_60hz_mode flag across
// every tracked object's disambiguator: once any object locks into 60 Hz
// single-lighthouse mode, sibling objects skip full-period discovery; the
// flag clears when the last 60 Hz-locked object demotes.
package globalstate

import "context"

// RegimeStore tracks which objects currently hold the 60 Hz regime lock.
// A mutex-guarded in-process implementation (MemoryStore) is the default;
// a Redis-backed one (RedisStore) lets multiple processes share the flag.
type RegimeStore interface {
	// IsSingle60Hz reports whether any object currently holds the 60 Hz
	// regime lock.
	IsSingle60Hz(ctx context.Context) (bool, error)
	// Acquire60Hz registers objectID as holding the 60 Hz regime lock.
	Acquire60Hz(ctx context.Context, objectID string) error
	// Release60Hz unregisters objectID. The flag clears once the last
	// holder releases.
	Release60Hz(ctx context.Context, objectID string) error
}
