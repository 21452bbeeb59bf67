package agent

import (
	"bytes"
	"fmt"
	"os"

	"github.com/run-bigpig/tribunal/internal/embed"
	"github.com/run-bigpig/tribunal/internal/models"

	"gopkg.in/yaml.v3"
)

// rosterFile 名单文件结构
type rosterFile struct {
	Participants []models.Participant `yaml:"participants"`
}

// ParseRoster 从 YAML 解析名单，未知字段视为错误
func ParseRoster(data []byte) (*Roster, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f rosterFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	return NewRoster(f.Participants)
}

// LoadRoster 从文件加载名单，path 为空时使用内置默认名单
func LoadRoster(path string) (*Roster, error) {
	if path == "" {
		return DefaultRoster()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	return ParseRoster(data)
}

// DefaultRoster 内置默认名单
func DefaultRoster() (*Roster, error) {
	return ParseRoster(embed.DefaultRosterYAML)
}
