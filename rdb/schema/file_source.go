package schema

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/hatlonely/entorm/cfg"
	"github.com/hatlonely/entorm/log"
	"github.com/hatlonely/entorm/log/logger"
	"github.com/hatlonely/entorm/rdb"
)

type FileSourceOptions struct {
	// 定义文件所在目录，文件名为 <实体名>.<扩展名>
	Dir string `cfg:"dir" validate:"required"`
	// 按顺序查找的扩展名
	Extensions []string `cfg:"extensions" def:".ini,.yaml,.yml,.toml,.json"`
	// 监听目录变化并清除对应实体的缓存
	Watch  bool         `cfg:"watch"`
	Logger *log.Options `cfg:"logger"`
}

// FileSource 从目录读取定义文件，解析结果会被缓存
type FileSource struct {
	dir        string
	extensions []string

	mu    sync.RWMutex
	cache map[string]*Table
	// generations 每次 Invalidate 递增，读取期间发生变化的结果不写入缓存
	generations map[string]uint64

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
	// root 由 Logger 配置创建，Close 时一并关闭
	root logger.Logger
}

func NewFileSourceWithOptions(options *FileSourceOptions) (*FileSource, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.Dir == "" {
		return nil, errors.New("dir is required")
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "create logger failed")
	}

	extensions := options.Extensions
	if len(extensions) == 0 {
		extensions = cfg.Extensions()
	}

	s := &FileSource{
		dir:        options.Dir,
		extensions: extensions,
		cache:       make(map[string]*Table),
		generations: make(map[string]uint64),
		logger:     l.WithGroup("fileSource").With("dir", options.Dir),
		root:       l,
	}

	if options.Watch {
		if err := s.watch(); err != nil {
			_ = log.Close(l)
			return nil, err
		}
	}

	return s, nil
}

// Load 返回实体的表定义，优先读取缓存
func (s *FileSource) Load(entity string) (*Table, error) {
	if !ValidIdentifier(entity) {
		return nil, errors.Wrapf(rdb.ErrSchemaNotFound, "invalid entity name %q", entity)
	}

	s.mu.RLock()
	table, ok := s.cache[entity]
	generation := s.generations[entity]
	s.mu.RUnlock()
	if ok {
		return table, nil
	}

	path, err := s.resolve(entity)
	if err != nil {
		return nil, err
	}
	doc, err := cfg.ReadFile(path, cfg.WithUntyped())
	if err != nil {
		return nil, errors.Wrapf(rdb.ErrSchema, "entity %s: %v", entity, err)
	}
	table, err = Parse(entity, doc)
	if err != nil {
		return nil, err
	}

	s.store(entity, table, generation)
	s.logger.Debug("schema loaded", "entity", entity, "path", path)
	return table, nil
}

// store 读取开始后实体被清除过缓存时放弃写入
func (s *FileSource) store(entity string, table *Table, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[entity] != generation {
		return false
	}
	s.cache[entity] = table
	return true
}

// Entities 列出目录中所有能识别的实体名
func (s *FileSource) Entities() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read dir %s failed", s.dir)
	}
	seen := map[string]bool{}
	var entities []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		entity, ok := s.entityOf(entry.Name())
		if !ok || seen[entity] {
			continue
		}
		seen[entity] = true
		entities = append(entities, entity)
	}
	return entities, nil
}

// Invalidate 清除实体的缓存
func (s *FileSource) Invalidate(entity string) {
	s.mu.Lock()
	delete(s.cache, entity)
	s.generations[entity]++
	s.mu.Unlock()
}

func (s *FileSource) resolve(entity string) (string, error) {
	for _, ext := range s.extensions {
		path := filepath.Join(s.dir, entity+ext)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "stat %s failed", path)
		}
	}
	return "", errors.Wrapf(rdb.ErrSchemaNotFound, "entity %s in %s", entity, s.dir)
}

func (s *FileSource) entityOf(filename string) (string, bool) {
	base := filepath.Base(filename)
	for _, ext := range s.extensions {
		if strings.HasSuffix(base, ext) {
			entity := strings.TrimSuffix(base, ext)
			return entity, ValidIdentifier(entity)
		}
	}
	return "", false
}

func (s *FileSource) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "fsnotify.NewWatcher failed")
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return errors.Wrap(err, "watcher.Add failed")
	}

	s.watcher = watcher
	s.done = make(chan struct{})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
					continue
				}
				entity, ok := s.entityOf(event.Name)
				if !ok {
					continue
				}
				s.Invalidate(entity)
				s.logger.Info("schema changed", "entity", entity, "op", event.Op.String())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watcher error", "error", err)
			case <-s.done:
				return
			}
		}
	}()

	return nil
}

// Close 停止监听并关闭日志输出
func (s *FileSource) Close() error {
	var err error
	if s.watcher != nil {
		close(s.done)
		s.wg.Wait()
		err = s.watcher.Close()
		s.watcher = nil
	}
	if closeErr := log.Close(s.root); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
