// Package archive 保存已结束会话的纯文本导出。
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/run-bigpig/tribunal/internal/logger"
)

var log = logger.New("Archive")

// TimestampLayout 导出文件名中的时间格式
const TimestampLayout = "20060102-150405"

const fileExt = ".txt"

// ErrEmptyExport 导出内容没有文件名
var ErrEmptyExport = errors.New("export has no filename")

// Export 会话导出产物
type Export struct {
	Subject   string
	Filename  string
	Content   []byte
	CreatedAt time.Time
}

// Entry 已保存导出的元信息
type Entry struct {
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// FileName 生成 <subject>_<YYYYMMDD-HHMMSS>.txt，主题中不能出现在文件名里的字符替换为下划线
func FileName(subject string, at time.Time) string {
	return safeName(subject) + "_" + at.Format(TimestampLayout) + fileExt
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "session"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		case unicode.IsSpace(r), unicode.IsControl(r):
			return '_'
		}
		return r
	}, s)
}

// Store 导出目录
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore 创建导出目录
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir 导出目录路径
func (s *Store) Dir() string {
	return s.dir
}

// Save 写入导出文件，返回完整路径
func (s *Store) Save(exp Export) (string, error) {
	if exp.Filename == "" {
		return "", ErrEmptyExport
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, filepath.Base(exp.Filename))
	if err := os.WriteFile(path, exp.Content, 0644); err != nil {
		return "", fmt.Errorf("write export %s: %w", exp.Filename, err)
	}
	log.Info("export saved: %s (%d bytes)", path, len(exp.Content))
	return path, nil
}

// Load 读取已保存的导出
func (s *Store) Load(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
}

// List 列出导出，按时间从新到旧
func (s *Store) List() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read export dir: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		subject, createdAt, ok := parseName(de.Name())
		if !ok {
			log.Debug("skip unrecognised file: %s", de.Name())
			continue
		}
		entries = append(entries, Entry{
			Name:      de.Name(),
			Subject:   subject,
			Path:      filepath.Join(s.dir, de.Name()),
			Size:      info.Size(),
			CreatedAt: createdAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// parseName 从文件名还原主题与时间
func parseName(name string) (string, time.Time, bool) {
	base := strings.TrimSuffix(name, fileExt)
	idx := strings.LastIndex(base, "_")
	if idx <= 0 {
		return "", time.Time{}, false
	}
	at, err := time.ParseInLocation(TimestampLayout, base[idx+1:], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return base[:idx], at, true
}
