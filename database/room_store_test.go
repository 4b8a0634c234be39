package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"bira-buddy/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 整合測試：用 testcontainers 起一個真的 MongoDB，
// 驗證 PromoteRequest 的條件更新在資料庫端確實是原子的。
// 需要 Docker，-short 模式下跳過。
func TestRoomStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err, "failed to start mongodb container")
	defer func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	ConnectMongoDB(uri, "bira_buddy_test")
	defer DisconnectMongoDB()

	store := NewRoomStore()

	newRoom := func(capacity int, requestCount int) (primitive.ObjectID, []primitive.ObjectID) {
		creator := primitive.NewObjectID()
		requesters := make([]primitive.ObjectID, requestCount)
		requests := make([]models.JoinRequest, requestCount)
		for i := range requesters {
			requesters[i] = primitive.NewObjectID()
			requests[i] = models.JoinRequest{UserID: requesters[i], RequestedAt: time.Now()}
		}

		room := models.Room{
			Name:            "整合測試房間",
			BarName:         "測試酒吧",
			Neighborhood:    "測試區",
			ScheduledAt:     time.Now().Add(24 * time.Hour),
			MaxParticipants: capacity,
			CreatorID:       creator,
			Participants: []models.Participant{
				{UserID: creator, Nickname: "創建者", JoinedAt: time.Now()},
			},
			JoinRequests: requests,
			CreatedAt:    time.Now(),
		}
		id, err := store.InsertRoom(ctx, room)
		require.NoError(t, err)
		return id, requesters
	}

	t.Run("PromoteRequestRespectsCapacity", func(t *testing.T) {
		// 容量 2，創建者占一位，兩筆申請搶一個名額
		roomID, requesters := newRoom(2, 2)

		ok1, err := store.PromoteRequest(ctx, roomID, models.Participant{UserID: requesters[0], Nickname: "甲", JoinedAt: time.Now()})
		require.NoError(t, err)
		assert.True(t, ok1)

		ok2, err := store.PromoteRequest(ctx, roomID, models.Participant{UserID: requesters[1], Nickname: "乙", JoinedAt: time.Now()})
		require.NoError(t, err)
		assert.False(t, ok2, "滿員後的條件更新不得命中")

		room, err := store.FindRoomByID(ctx, roomID)
		require.NoError(t, err)
		require.NotNil(t, room)
		assert.Len(t, room.Participants, 2)
		assert.Len(t, room.JoinRequests, 1, "失敗方的申請保留")
	})

	t.Run("PromoteRequestConcurrent", func(t *testing.T) {
		roomID, requesters := newRoom(2, 2)

		var wg sync.WaitGroup
		results := make([]bool, 2)
		for i := range requesters {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ok, err := store.PromoteRequest(ctx, roomID, models.Participant{UserID: requesters[i], JoinedAt: time.Now()})
				assert.NoError(t, err)
				results[i] = ok
			}(i)
		}
		wg.Wait()

		success := 0
		for _, ok := range results {
			if ok {
				success++
			}
		}
		assert.Equal(t, 1, success, "並發批准恰好一個成功")

		room, err := store.FindRoomByID(ctx, roomID)
		require.NoError(t, err)
		require.NotNil(t, room)
		assert.Len(t, room.Participants, room.MaxParticipants, "成員數不得超過上限")
	})

	t.Run("PushJoinRequestDeduplicates", func(t *testing.T) {
		roomID, _ := newRoom(4, 0)
		uid := primitive.NewObjectID()
		req := models.JoinRequest{UserID: uid, RequestedAt: time.Now()}

		require.NoError(t, store.PushJoinRequest(ctx, roomID, req))
		require.NoError(t, store.PushJoinRequest(ctx, roomID, req))

		room, err := store.FindRoomByID(ctx, roomID)
		require.NoError(t, err)
		require.NotNil(t, room)
		assert.Len(t, room.JoinRequests, 1, "重複申請不會寫進兩筆")
	})

	t.Run("DeleteRoomIdempotent", func(t *testing.T) {
		roomID, _ := newRoom(4, 0)

		require.NoError(t, store.DeleteRoom(ctx, roomID))
		// 兩個客戶端同時清理同一個過期房間，後到的刪除也要成功
		require.NoError(t, store.DeleteRoom(ctx, roomID))

		room, err := store.FindRoomByID(ctx, roomID)
		require.NoError(t, err)
		assert.Nil(t, room)
	})
}
