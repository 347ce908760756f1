package metrics

import (
	"testing"
	"time"

	"github.com/cuemby/clanrelay/pkg/storage"
	"github.com/cuemby/clanrelay/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorUpdatesStoreGauges(t *testing.T) {
	resetHealth()

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ts := time.Date(2026, 3, 4, 19, 0, 0, 0, time.UTC)
	for i, text := range []string{"Bob added 1x Bone.", "Bob added 2x Bone.", "xyz"} {
		category := types.CategoryVaultDeposit
		if text == "xyz" {
			category = types.CategoryUnknown
		}
		_, err := store.InsertIfAbsent(&types.Event{
			Text:      text,
			Timestamp: ts.Add(time.Duration(i) * time.Second),
			Category:  category,
		})
		require.NoError(t, err)
	}
	require.NoError(t, store.MarkDelivered([]uint64{1}))

	NewCollector(store).Collect()

	assert.Equal(t, 2.0, testutil.ToFloat64(StoredEvents.WithLabelValues(string(types.CategoryVaultDeposit))))
	assert.Equal(t, 1.0, testutil.ToFloat64(StoredEvents.WithLabelValues(string(types.CategoryUnknown))))
	assert.Equal(t, 0.0, testutil.ToFloat64(StoredEvents.WithLabelValues(string(types.CategoryMemberJoined))))
	assert.Equal(t, 2.0, testutil.ToFloat64(UnsentEvents))
	assert.Equal(t, "ready", GetReadiness().Status)
}
