package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/webflow/pkg/ports"
)

// DistributedLockerContractTest is a reusable test suite that verifies if an adapter complies with ports.DistributedLocker.
func DistributedLockerContractTest(t *testing.T, locker ports.DistributedLocker) {
	t.Helper()
	ctx := context.Background()

	t.Run("Lock_Unlock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "contract-a", time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))

		// Re-acquirable after release.
		unlock, err = locker.Lock(ctx, "contract-a", time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})

	t.Run("Mutual_Exclusion", func(t *testing.T) {
		var mu sync.Mutex
		holders, maxHolders := 0, 0
		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := locker.Lock(ctx, "contract-b", 5*time.Second)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				holders++
				if holders > maxHolders {
					maxHolders = holders
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				holders--
				mu.Unlock()
				assert.NoError(t, unlock(ctx))
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, maxHolders, "at most one holder at a time")
	})

	t.Run("Independent_Keys", func(t *testing.T) {
		unlockA, err := locker.Lock(ctx, "contract-c", time.Second)
		require.NoError(t, err)
		defer func() { _ = unlockA(ctx) }()

		lockCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		unlockB, err := locker.Lock(lockCtx, "contract-d", time.Second)
		require.NoError(t, err, "a different key must not block")
		require.NoError(t, unlockB(ctx))
	})

	t.Run("Canceled_Context", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "contract-e", 5*time.Second)
		require.NoError(t, err)
		defer func() { _ = unlock(ctx) }()

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, "contract-e", 5*time.Second)
		assert.Error(t, err, "waiting on a held lock must give up with the context")
	})
}
