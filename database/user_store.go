package database

import (
	"context"
	"log"
	"time"

	"bira-buddy/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// GetUserByID 依 ID 查找使用者，不存在時回傳 (nil, nil)
func GetUserByID(id primitive.ObjectID) (*models.User, error) {
	collection := GetCollection("users")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var user models.User
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		log.Printf("Error finding user %s: %v", id.Hex(), err)
		return nil, err
	}
	return &user, nil
}

// GetUsersByIDs 依 ID 列表批次查找使用者
func GetUsersByIDs(ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	collection := GetCollection("users")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		log.Printf("Error finding users by IDs: %v", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		log.Printf("Error decoding users: %v", err)
		return nil, err
	}
	return users, nil
}

// ProfileDirectory 實作 rooms.Profiles，用使用者資料裝飾成員與申請列表
type ProfileDirectory struct{}

// NewProfileDirectory 創建並返回一個新的 ProfileDirectory 實例
func NewProfileDirectory() *ProfileDirectory {
	return &ProfileDirectory{}
}

// Nickname 查詢使用者的顯示名稱。
// 使用者已被刪除或查詢失敗時回傳替代名稱，呼叫端不需要處理錯誤。
func (d *ProfileDirectory) Nickname(ctx context.Context, uid primitive.ObjectID) string {
	user, err := GetUserByID(uid)
	if err != nil || user == nil {
		return "未知使用者"
	}
	return user.Nickname
}

// DeleteUserCascade 刪除帳號並級聯清理：
//   - 該帳號創建的房間整個刪除 (含訊息與檢舉)
//   - 其他房間的 participants 與 joinRequests 中移除該帳號
//   - 該帳號的通知一併清除
func DeleteUserCascade(ctx context.Context, uid primitive.ObjectID, store *RoomStore) error {
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	roomsCollection := GetCollection("rooms")

	// 先刪除該帳號創建的房間：創建者不在了，房間在「只有創建者能刪」的規則下
	// 會變成永遠刪不掉的孤兒，所以選擇級聯刪除。
	cursor, err := roomsCollection.Find(opCtx, bson.M{"creatorId": uid})
	if err != nil {
		log.Printf("Error finding rooms created by %s: %v", uid.Hex(), err)
		return err
	}
	var ownRooms []models.Room
	if err = cursor.All(opCtx, &ownRooms); err != nil {
		cursor.Close(opCtx)
		return err
	}
	for _, room := range ownRooms {
		if err := store.DeleteRoom(ctx, room.ID); err != nil {
			return err
		}
	}

	// 從其餘房間移除該帳號的成員資格與申請
	pull := bson.M{"$pull": bson.M{
		"participants": bson.M{"userId": uid},
		"joinRequests": bson.M{"userId": uid},
	}}
	if _, err := roomsCollection.UpdateMany(opCtx, bson.M{}, pull); err != nil {
		log.Printf("Error pulling user %s from rooms: %v", uid.Hex(), err)
		return err
	}

	if _, err := GetCollection("notifications").DeleteMany(opCtx, bson.M{"userId": uid}); err != nil {
		log.Printf("Error deleting notifications of user %s: %v", uid.Hex(), err)
		return err
	}

	if _, err := GetCollection("users").DeleteOne(opCtx, bson.M{"_id": uid}); err != nil {
		log.Printf("Error deleting user %s: %v", uid.Hex(), err)
		return err
	}
	return nil
}
