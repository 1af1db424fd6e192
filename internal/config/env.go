package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// EnvLoader .env 文件加载器
// 已存在的进程环境变量不会被 .env 覆盖
type EnvLoader struct {
	envFiles []string
}

// NewEnvLoader 创建环境变量加载器，默认读取当前目录的 .env
func NewEnvLoader(envFiles ...string) *EnvLoader {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	return &EnvLoader{envFiles: envFiles}
}

// Load 加载所有 .env 文件，文件不存在不算错误
func (e *EnvLoader) Load() error {
	for _, envFile := range e.envFiles {
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}
	return nil
}

// EnvString 读取字符串环境变量
func EnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
