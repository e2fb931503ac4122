package eligibility

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// storedValue 是存储条目的落盘结构
type storedValue struct {
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitzero"`
}

// MemoryStore 是一个进程内的Store实现
// 它模拟cookie的行为：进程退出即消失，条目可以带过期时间
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]storedValue
}

// NewMemoryStore 创建一个空的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]storedValue)}
}

// Get 返回键对应的未过期值
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return "", false
	}
	if !v.Expires.IsZero() && time.Now().After(v.Expires) {
		delete(s.values, key)
		return "", false
	}
	return v.Value, true
}

// Set 写入一个值
func (s *MemoryStore) Set(key, value string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = storedValue{Value: value, Expires: expires}
	return nil
}

// Available 内存存储总是可用
func (s *MemoryStore) Available() bool {
	return true
}

// FileStore 是一个文件持久化的Store实现
// 它模拟浏览器的localStorage：内容在进程重启后仍然保留
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore 创建一个以指定文件为后端的存储
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// load 读取整个存储文件；文件不存在视为空存储
func (s *FileStore) load() (map[string]storedValue, error) {
	values := make(map[string]storedValue)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// save 将整个存储写回文件
func (s *FileStore) save(values map[string]storedValue) error {
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Get 返回键对应的未过期值
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false
	}
	v, ok := values[key]
	if !ok {
		return "", false
	}
	if !v.Expires.IsZero() && time.Now().After(v.Expires) {
		return "", false
	}
	return v.Value, true
}

// Set 写入一个值
func (s *FileStore) Set(key, value string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = storedValue{Value: value, Expires: expires}
	return s.save(values)
}

// Available 通过一次写入-删除探测存储是否真正可写
// 与前端的storageAvailable()探测行为保持一致
func (s *FileStore) Available() bool {
	const probeKey = "__storage_test__"
	if err := s.Set(probeKey, probeKey, time.Time{}); err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return false
	}
	delete(values, probeKey)
	return s.save(values) == nil
}
