// internal/ledger/mongo.go
package ledger

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore ánh xạ đường dẫn ledger lên MongoDB: phân đoạn đầu của path
// là collection, phần còn lại là _id dạng chuỗi.
type MongoStore struct {
	DB *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{DB: db}
}

// splitPath tách "dsreqs/REQ-1" thành ("dsreqs", "REQ-1") và
// "notifications/u1/n1" thành ("notifications", "u1/n1").
func splitPath(path string) (string, string) {
	idx := strings.Index(path, "/")
	if idx < 0 {
		return path, ""
	}
	return path[:idx], path[idx+1:]
}

func (s *MongoStore) Get(ctx context.Context, path string, out interface{}) error {
	col, id := splitPath(path)
	err := s.DB.Collection(col).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

func (s *MongoStore) Set(ctx context.Context, path string, doc interface{}) error {
	col, id := splitPath(path)
	opts := options.Replace().SetUpsert(true)
	_, err := s.DB.Collection(col).ReplaceOne(ctx, bson.M{"_id": id}, doc, opts)
	return err
}

func (s *MongoStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	col, id := splitPath(path)
	opts := options.Update().SetUpsert(true)
	_, err := s.DB.Collection(col).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts)
	return err
}

func (s *MongoStore) UpdateIf(ctx context.Context, path string, fields map[string]interface{}, expect map[string]interface{}) (bool, error) {
	col, id := splitPath(path)
	filter := bson.M{"_id": id}
	for k, v := range expect {
		filter[k] = v
	}
	result, err := s.DB.Collection(col).UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return false, err
	}
	// MatchedCount = 0 nghĩa là ai đó đã ghi đè trước (xem ConfirmBid cũ).
	return result.MatchedCount > 0, nil
}

func (s *MongoStore) Push(ctx context.Context, dir string, doc interface{}) (string, error) {
	id := uuid.New().String()
	if err := s.Set(ctx, dir+"/"+id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MongoStore) Query(ctx context.Context, dir string, filter map[string]interface{}, out interface{}) error {
	col, prefix := splitPath(dir)
	mongoFilter := bson.M{}
	if prefix != "" {
		mongoFilter["_id"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix) + "/"}
	}
	for k, v := range filter {
		mongoFilter[k] = v
	}

	cursor, err := s.DB.Collection(col).Find(ctx, mongoFilter)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	return cursor.All(ctx, out)
}
