package util

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv 按环境名加载 .env 文件
// 优先 .env.{env}，不存在时回退到 .env
func LoadEnv(env string) error {
	candidates := []string{fmt.Sprintf(".env.%s", env), ".env"}
	for _, f := range candidates {
		if _, err := os.Stat(f); err == nil {
			return godotenv.Load(f)
		}
	}
	return fmt.Errorf("no env file found for %q", env)
}

// GetEnv 读取环境变量
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvDefault 读取环境变量，缺省时返回默认值
func GetEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetIntEnv 读取整型环境变量，解析失败返回0
func GetIntEnv(key string) int64 {
	return cast.ToInt64(os.Getenv(key))
}

// GetBoolEnv 读取布尔环境变量
func GetBoolEnv(key string) bool {
	return cast.ToBool(os.Getenv(key))
}
