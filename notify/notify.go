// Package notify 負責站內通知的持久化與即時推送。
// 通知先寫入 MongoDB，再透過 Redis Pub/Sub 發佈到收件人的頻道，
// 推送端 (例如行動裝置的推播服務) 訂閱這些頻道即可轉發。
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"bira-buddy/backend/database"
	"bira-buddy/backend/models"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RedisNotifier 實作 rooms.Notifier
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier 建立 Redis 連線並返回 Notifier。
// Redis 無法連上時仍可運作，只是少了即時推送 (通知仍會持久化)。
func NewRedisNotifier(addr string) *RedisNotifier {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis not reachable at %s, realtime notifications disabled: %v", addr, err)
	} else {
		log.Println("Connected to Redis successfully!")
	}
	return &RedisNotifier{client: client}
}

// channelFor 每個使用者一個頻道
func channelFor(uid primitive.ObjectID) string {
	return "notify:" + uid.Hex()
}

// Notify 持久化通知並發佈到收件人的頻道。
// 發佈失敗只記錄，因為通知是 fire-and-forget 的附帶效果，不能影響主要操作。
func (n *RedisNotifier) Notify(ctx context.Context, notification models.Notification) error {
	result, err := database.InsertNotification(notification)
	if err != nil {
		return err
	}
	notification.ID = result.InsertedID.(primitive.ObjectID)

	payload, err := json.Marshal(notification)
	if err != nil {
		log.Printf("Error marshalling notification: %v", err)
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := n.client.Publish(pubCtx, channelFor(notification.UserID), payload).Err(); err != nil {
		log.Printf("Error publishing notification to %s: %v", channelFor(notification.UserID), err)
	}
	return nil
}

// Close 關閉 Redis 連線
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
