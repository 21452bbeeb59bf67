package embed

import (
	_ "embed"
)

// DefaultRosterYAML 嵌入的默认辩论名单
// 编译时从 roster.yaml 嵌入到二进制文件中
//
//go:embed roster.yaml
var DefaultRosterYAML []byte
