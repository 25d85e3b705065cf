package subgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func graphqlServer(t *testing.T, data any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func TestNewReturnsNilWithoutURL(t *testing.T) {
	assert.Nil(t, New("", time.Second, time.Second, zap.NewNop()))
}

func TestFetchAllPools(t *testing.T) {
	srv := graphqlServer(t, map[string]any{
		"poolCreateds": []map[string]any{
			{"poolId": "90", "poolName": "brunch", "depositAmountPerPerson": "15000000", "timestamp_": "1700000000"},
		},
		"sync_status": map[string]any{
			"latest_block": 100, "synced_block": 98, "lag_seconds": 24,
		},
	})
	defer srv.Close()

	c := New(srv.URL, time.Second, 30*time.Second, zap.NewNop())
	result, err := c.FetchAllPools(context.Background())

	require.NoError(t, err)
	require.Len(t, result.PoolCreateds, 1)
	assert.Equal(t, "90", result.PoolCreateds[0].PoolID)
	assert.Equal(t, "15000000", result.PoolCreateds[0].DepositAmountPerPerson)
	require.NotNil(t, result.Sync)
	assert.Equal(t, int64(24), result.Sync.LagSeconds)
}

func TestFetchUserPools(t *testing.T) {
	srv := graphqlServer(t, map[string]any{
		"poolCreateds": []map[string]any{},
		"deposits": []map[string]any{
			{"poolId": "7", "sender": "0xcc", "amount": "15000000", "timestamp_": "1700000100"},
		},
	})
	defer srv.Close()

	c := New(srv.URL, time.Second, 30*time.Second, zap.NewNop())
	result, err := c.FetchUserPools(context.Background(), "0xcc")

	require.NoError(t, err)
	require.Len(t, result.Deposits, 1)
	assert.Equal(t, "7", result.Deposits[0].PoolID)
}

func TestCheckUserParticipation(t *testing.T) {
	srv := graphqlServer(t, map[string]any{
		"deposits": []map[string]any{{"poolId": "7"}},
	})
	defer srv.Close()

	c := New(srv.URL, time.Second, 30*time.Second, zap.NewNop())
	joined, err := c.CheckUserParticipation(context.Background(), 7, "0xcc")

	require.NoError(t, err)
	assert.True(t, joined)
}

func TestFetchAllPoolsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 30*time.Second, zap.NewNop())
	_, err := c.FetchAllPools(context.Background())
	assert.Error(t, err)
}

func TestTimestampToTime(t *testing.T) {
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), TimestampToTime("1700000000"))
	assert.True(t, TimestampToTime("not-a-number").IsZero())
	assert.True(t, TimestampToTime("").IsZero())
}
