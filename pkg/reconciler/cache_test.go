package reconciler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestInvalidateDoesNotCrossChains(t *testing.T) {
	c := NewCache(time.Minute)
	c.put(listKey(1), emptyResult())
	c.put(listKey(11155111), emptyResult())
	c.put(userKey(1, walletAddress, "upcoming"), emptyResult())
	c.put(userKey(11155111, walletAddress, "upcoming"), emptyResult())

	r := &Reconciler{cache: c, logger: zap.NewNop(), now: time.Now}
	r.Invalidate(1, walletAddress)

	_, ok := c.get(listKey(1))
	assert.False(t, ok, "invalidated chain's list entry must be dropped")
	_, ok = c.get(userKey(1, walletAddress, "upcoming"))
	assert.False(t, ok, "invalidated chain's user entries must be dropped")

	// Chain ids sharing a decimal prefix keep their entries.
	_, ok = c.get(listKey(11155111))
	assert.True(t, ok)
	_, ok = c.get(userKey(11155111, walletAddress, "upcoming"))
	assert.True(t, ok)
}
