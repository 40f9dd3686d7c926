package schema

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/hatlonely/entorm/cfg"
	"github.com/hatlonely/entorm/rdb"
)

// Source 按实体名加载表定义
type Source interface {
	Load(entity string) (*Table, error)
}

// MapSource 内存中的定义文档，适合嵌入和测试
type MapSource struct {
	mu   sync.RWMutex
	docs map[string]*cfg.Node
}

func NewMapSource() *MapSource {
	return &MapSource{docs: make(map[string]*cfg.Node)}
}

// Add 注册实体的定义文档，已存在时覆盖
func (s *MapSource) Add(entity string, doc *cfg.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[entity] = doc
}

// AddData 按指定格式解码后注册
func (s *MapSource) AddData(entity string, data []byte, format cfg.Format) error {
	doc, err := Decode(data, format)
	if err != nil {
		return errors.Wrapf(rdb.ErrSchema, "entity %s: %v", entity, err)
	}
	s.Add(entity, doc)
	return nil
}

func (s *MapSource) Load(entity string) (*Table, error) {
	s.mu.RLock()
	doc, ok := s.docs[entity]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(rdb.ErrSchemaNotFound, "entity %s", entity)
	}
	return Parse(entity, doc)
}
