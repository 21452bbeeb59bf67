package paths

import (
	"os"
	"path/filepath"
)

// HomeEnv 覆盖数据目录的环境变量
const HomeEnv = "TRIBUNAL_HOME"

// GetDataDir 获取应用数据目录
func GetDataDir() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	userConfigDir, err := os.UserConfigDir()
	if err != nil || userConfigDir == "" {
		return filepath.Join(".", "data")
	}
	return filepath.Join(userConfigDir, "tribunal")
}

// GetExportDir 获取会话导出目录
func GetExportDir() string {
	return filepath.Join(GetDataDir(), "exports")
}

// GetRecordingDir 获取录制帧目录（replay 使用）
func GetRecordingDir() string {
	return filepath.Join(GetDataDir(), "recordings")
}

// EnsureDir 确保目录存在并返回路径
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
