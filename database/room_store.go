package database

import (
	"context"
	"log"
	"time"

	"bira-buddy/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoomStore 是房間持久層的 MongoDB 實作，實現 rooms.Store 介面。
// 所有修改都用相對的陣列操作 ($push/$pull) 表達，
// 讓不同客戶端對同一份文件的並發更新可以交換順序。
type RoomStore struct{}

// NewRoomStore 創建並返回一個新的 RoomStore 實例
func NewRoomStore() *RoomStore {
	return &RoomStore{}
}

func (s *RoomStore) collection() *mongo.Collection {
	return GetCollection("rooms")
}

// InsertRoom 建立新房間
func (s *RoomStore) InsertRoom(ctx context.Context, room models.Room) (primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := s.collection().InsertOne(ctx, room)
	if err != nil {
		log.Printf("Error inserting room: %v", err)
		return primitive.NilObjectID, err
	}
	return result.InsertedID.(primitive.ObjectID), nil
}

// FindRoomByID 查找房間，不存在時回傳 (nil, nil)
func (s *RoomStore) FindRoomByID(ctx context.Context, id primitive.ObjectID) (*models.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var room models.Room
	err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		log.Printf("Error finding room %s: %v", id.Hex(), err)
		return nil, err
	}
	return &room, nil
}

// ListRooms 回傳所有房間，依預定時間升序
func (s *RoomStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: 1}})
	cursor, err := s.collection().Find(ctx, bson.M{}, findOptions)
	if err != nil {
		log.Printf("Error listing rooms: %v", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var roomList []models.Room
	if err = cursor.All(ctx, &roomList); err != nil {
		log.Printf("Error decoding rooms: %v", err)
		return nil, err
	}
	return roomList, nil
}

// DeleteRoom 刪除房間及其附屬資料 (訊息、檢舉)。
// 房間不存在時視為成功，讓兩個客戶端同時清理同一個過期房間都能無誤完成。
func (s *RoomStore) DeleteRoom(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.collection().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		log.Printf("Error deleting room %s: %v", id.Hex(), err)
		return err
	}

	// 連同聊天記錄與檢舉一併清除 (完整級聯，不是軟刪除)
	if _, err := GetCollection("messages").DeleteMany(ctx, bson.M{"roomId": id.Hex()}); err != nil {
		log.Printf("Error deleting messages of room %s: %v", id.Hex(), err)
		return err
	}
	if _, err := GetCollection("reports").DeleteMany(ctx, bson.M{"roomId": id}); err != nil {
		log.Printf("Error deleting reports of room %s: %v", id.Hex(), err)
		return err
	}
	return nil
}

// PushJoinRequest 將一筆加入申請附加到房間
func (s *RoomStore) PushJoinRequest(ctx context.Context, roomID primitive.ObjectID, req models.JoinRequest) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// 條件帶上 userId 不存在的保護，重複申請不會寫進兩筆
	filter := bson.M{
		"_id":                 roomID,
		"joinRequests.userId": bson.M{"$ne": req.UserID},
		"participants.userId": bson.M{"$ne": req.UserID},
	}
	update := bson.M{"$push": bson.M{"joinRequests": req}}

	if _, err := s.collection().UpdateOne(ctx, filter, update); err != nil {
		log.Printf("Error pushing join request to room %s: %v", roomID.Hex(), err)
		return err
	}
	return nil
}

// PullJoinRequest 移除某使用者的加入申請，不存在時為 no-op
func (s *RoomStore) PullJoinRequest(ctx context.Context, roomID, uid primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$pull": bson.M{"joinRequests": bson.M{"userId": uid}}}
	if _, err := s.collection().UpdateOne(ctx, bson.M{"_id": roomID}, update); err != nil {
		log.Printf("Error pulling join request from room %s: %v", roomID.Hex(), err)
		return err
	}
	return nil
}

// PromoteRequest 以單一條件更新將申請者轉為成員。
// 過濾條件同時要求申請仍然存在且成員數小於上限，
// 兩個批准競爭最後一個名額時只有先提交的那筆會命中，後者回傳 matched == false。
func (s *RoomStore) PromoteRequest(ctx context.Context, roomID primitive.ObjectID, p models.Participant) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"_id":                 roomID,
		"joinRequests.userId": p.UserID,
		"$expr": bson.M{
			"$lt": bson.A{bson.M{"$size": "$participants"}, "$maxParticipants"},
		},
	}
	update := bson.M{
		"$pull": bson.M{"joinRequests": bson.M{"userId": p.UserID}},
		"$push": bson.M{"participants": p},
	}

	err := s.collection().FindOneAndUpdate(ctx, filter, update).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		log.Printf("Error promoting request in room %s: %v", roomID.Hex(), err)
		return false, err
	}
	return true, nil
}

// PullParticipant 將成員移出房間，不存在時為 no-op
func (s *RoomStore) PullParticipant(ctx context.Context, roomID, uid primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$pull": bson.M{"participants": bson.M{"userId": uid}}}
	if _, err := s.collection().UpdateOne(ctx, bson.M{"_id": roomID}, update); err != nil {
		log.Printf("Error pulling participant from room %s: %v", roomID.Hex(), err)
		return err
	}
	return nil
}
