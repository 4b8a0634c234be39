package rooms

import (
	"time"

	"bira-buddy/backend/models"
)

// ExpiryWindow 房間在預定時間過後多久視為過期
const ExpiryWindow = 24 * time.Hour

// IsExpired 判斷房間是否已過期 (now 嚴格大於 scheduledAt + 24h 才算過期)
func IsExpired(scheduledAt, now time.Time) bool {
	return now.After(scheduledAt.Add(ExpiryWindow))
}

// StatusAt 計算房間在指定時間點的階段。
// liveWindow 是「進行中」階段的長度，由配置決定，與 24 小時的過期窗口是兩回事。
func StatusAt(scheduledAt, now time.Time, liveWindow time.Duration) models.RoomStatus {
	if IsExpired(scheduledAt, now) {
		return models.RoomStatusExpired
	}
	if now.Before(scheduledAt) {
		return models.RoomStatusUpcoming
	}
	if !now.After(scheduledAt.Add(liveWindow)) {
		return models.RoomStatusLive
	}
	return models.RoomStatusEnded
}
