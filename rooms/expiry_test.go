package rooms

import (
	"testing"
	"time"

	"bira-buddy/backend/models"

	"github.com/stretchr/testify/assert"
)

func TestIsExpired(t *testing.T) {
	scheduledAt := time.Date(2025, 10, 1, 20, 0, 0, 0, time.UTC)

	// 24 小時整點還不算過期，超過一秒才算
	assert.False(t, IsExpired(scheduledAt, scheduledAt), "預定時間當下不應過期")
	assert.False(t, IsExpired(scheduledAt, scheduledAt.Add(ExpiryWindow)), "剛好 24 小時不應過期")
	assert.True(t, IsExpired(scheduledAt, scheduledAt.Add(ExpiryWindow+time.Second)), "超過 24 小時應過期")
	assert.False(t, IsExpired(scheduledAt, scheduledAt.Add(-time.Hour)), "預定時間之前不應過期")
}

func TestIsExpiredMonotonic(t *testing.T) {
	scheduledAt := time.Date(2025, 10, 1, 20, 0, 0, 0, time.UTC)

	// 一旦過期就不會再變回未過期
	expired := false
	for offset := time.Duration(0); offset <= 48*time.Hour; offset += 30 * time.Minute {
		now := scheduledAt.Add(offset)
		if IsExpired(scheduledAt, now) {
			expired = true
		} else {
			assert.False(t, expired, "過期狀態不應在 %v 回復", offset)
		}
	}
	assert.True(t, expired, "48 小時後必定過期")
}

func TestStatusAt(t *testing.T) {
	scheduledAt := time.Date(2025, 10, 1, 20, 0, 0, 0, time.UTC)
	liveWindow := 3 * time.Hour

	assert.Equal(t, models.RoomStatusUpcoming, StatusAt(scheduledAt, scheduledAt.Add(-time.Minute), liveWindow))
	assert.Equal(t, models.RoomStatusLive, StatusAt(scheduledAt, scheduledAt, liveWindow))
	assert.Equal(t, models.RoomStatusLive, StatusAt(scheduledAt, scheduledAt.Add(liveWindow), liveWindow))
	assert.Equal(t, models.RoomStatusEnded, StatusAt(scheduledAt, scheduledAt.Add(liveWindow+time.Minute), liveWindow))
	assert.Equal(t, models.RoomStatusEnded, StatusAt(scheduledAt, scheduledAt.Add(ExpiryWindow), liveWindow))
	assert.Equal(t, models.RoomStatusExpired, StatusAt(scheduledAt, scheduledAt.Add(ExpiryWindow+time.Second), liveWindow))
}
