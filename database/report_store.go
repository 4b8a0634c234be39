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

// InsertReport 寫入一筆檢舉 (append-only，後續由管理端人工審核)
func InsertReport(report models.Report) (*mongo.InsertOneResult, error) {
	collection := GetCollection("reports")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := collection.InsertOne(ctx, report)
	if err != nil {
		log.Printf("Error inserting report: %v", err)
		return nil, err
	}
	return result, nil
}

// GetNotifications 取得某使用者的通知，依時間降序
func GetNotifications(userID primitive.ObjectID) ([]models.Notification, error) {
	collection := GetCollection("notifications")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(100)
	cursor, err := collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		log.Printf("Error finding notifications for user %s: %v", userID.Hex(), err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		log.Printf("Error decoding notifications: %v", err)
		return nil, err
	}
	return notifications, nil
}

// InsertNotification 持久化一則通知
func InsertNotification(n models.Notification) (*mongo.InsertOneResult, error) {
	collection := GetCollection("notifications")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := collection.InsertOne(ctx, n)
	if err != nil {
		log.Printf("Error inserting notification: %v", err)
		return nil, err
	}
	return result, nil
}
