// internal/ledger/memory.go
package ledger

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore là một Store trong bộ nhớ, dùng cho test và chạy demo
// không cần MongoDB. Tài liệu được giữ dưới dạng bson đã marshal để
// ngữ nghĩa decode giống hệt adapter Mongo.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte // path đầy đủ -> bson
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, path string, out interface{}) error {
	s.mu.RLock()
	raw, ok := s.docs[path]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return bson.Unmarshal(raw, out)
}

func (s *MemoryStore) Set(ctx context.Context, path string, doc interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[path] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyFields(path, fields)
}

func (s *MemoryStore) UpdateIf(ctx context.Context, path string, fields map[string]interface{}, expect map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.docs[path]
	if !ok {
		return false, nil
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return false, err
	}
	for k, v := range expect {
		if !looselyEqual(lookupField(doc, k), v) {
			return false, nil
		}
	}
	if err := s.applyFields(path, fields); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Push(ctx context.Context, dir string, doc interface{}) (string, error) {
	id := uuid.New().String()
	if err := s.Set(ctx, dir+"/"+id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Query(ctx context.Context, dir string, filter map[string]interface{}, out interface{}) error {
	s.mu.RLock()
	var paths []string
	for p := range s.docs {
		if matchesDir(p, dir) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	raws := make([][]byte, 0, len(paths))
	for _, p := range paths {
		raws = append(raws, s.docs[p])
	}
	s.mu.RUnlock()

	slice := reflect.ValueOf(out).Elem()
	elemType := slice.Type().Elem()
	for _, raw := range raws {
		if len(filter) > 0 {
			var doc bson.M
			if err := bson.Unmarshal(raw, &doc); err != nil {
				return err
			}
			if !matchesFilter(doc, filter) {
				continue
			}
		}
		ev := reflect.New(elemType)
		if err := bson.Unmarshal(raw, ev.Interface()); err != nil {
			return err
		}
		slice.Set(reflect.Append(slice, ev.Elem()))
	}
	return nil
}

// applyFields ghi đè từng field một, tạo tài liệu nếu chưa có.
// Caller phải đang giữ lock.
func (s *MemoryStore) applyFields(path string, fields map[string]interface{}) error {
	doc := bson.M{}
	if raw, ok := s.docs[path]; ok {
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return err
		}
	}
	for k, v := range fields {
		doc[k] = normalize(v)
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	s.docs[path] = raw
	return nil
}

// matchesDir: tài liệu nằm dưới dir, ở bất kỳ độ sâu nào - khớp với
// ngữ nghĩa prefix của adapter Mongo ("notifications" lấy mọi
// notifications/{user}/{id}).
func matchesDir(path, dir string) bool {
	return strings.HasPrefix(path, dir+"/")
}

// matchesFilter hiểu khóa dạng "recipient.type" và đi sâu vào tài liệu
// con, giống cách Mongo xử lý dotted key trong filter.
func matchesFilter(doc bson.M, filter map[string]interface{}) bool {
	for k, v := range filter {
		if !looselyEqual(lookupField(doc, k), v) {
			return false
		}
	}
	return true
}

func lookupField(doc bson.M, key string) interface{} {
	var cur interface{} = doc
	for _, part := range strings.Split(key, ".") {
		switch m := cur.(type) {
		case bson.M:
			cur = m[part]
		case bson.D:
			cur = nil
			for _, e := range m {
				if e.Key == part {
					cur = e.Value
					break
				}
			}
		default:
			return nil
		}
	}
	return cur
}

// looselyEqual bỏ qua khác biệt độ rộng kiểu số sau vòng marshal bson
// (int64 với int32...), còn lại so sánh đúng kiểu.
func looselyEqual(a, b interface{}) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	return aok && bok && af == bf
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// normalize đưa struct về bson.M trước khi gộp vào tài liệu.
func normalize(v interface{}) interface{} {
	switch v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64:
		return v
	}
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return v
	}
	var wrapped bson.M
	if err := bson.Unmarshal(raw, &wrapped); err != nil {
		return v
	}
	return wrapped["v"]
}
