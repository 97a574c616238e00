package common

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// APIKeyEnv 唯一会被读取的密钥名
const APIKeyEnv = "GEMINI_API_KEY"

// ResolveSecret 按优先级解析密钥：
//  1. lookup 返回的非空环境变量；
//  2. files 中第一个包含非空 GEMINI_API_KEY 的文件（文件内取第一条匹配行）。
//
// 先找到的值不会被后面的值覆盖。函数不修改进程环境变量。
func ResolveSecret(lookup func(string) (string, bool), files ...[]byte) (string, bool) {
	if lookup != nil {
		if value, ok := lookup(APIKeyEnv); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
	}

	for _, content := range files {
		if value, ok := secretFromDotenv(content); ok {
			return value, true
		}
	}
	return "", false
}

// secretFromDotenv 只解析 GEMINI_API_KEY 所在的行，其余行（包括格式错误的行）全部忽略。
// 引号和转义交给 godotenv 处理。
func secretFromDotenv(content []byte) (string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, _, found := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !found || strings.TrimSpace(key) != APIKeyEnv {
			continue
		}

		values, err := godotenv.Unmarshal(line)
		if err != nil {
			Debugf("Skipping malformed %s line in dotenv file: %v", APIKeyEnv, err)
			continue
		}
		if value := strings.TrimSpace(values[APIKeyEnv]); value != "" {
			return value, true
		}
	}
	return "", false
}

// SecretFiles 返回按优先级排列的密钥文件路径
func SecretFiles(homeFallback bool) []string {
	paths := []string{".env"}
	if homeFallback {
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, ".env"))
		}
	}
	return paths
}

// LoadSecret 从进程环境和 .env 文件中解析密钥
func LoadSecret(homeFallback bool) (string, bool) {
	var files [][]byte
	for _, path := range SecretFiles(homeFallback) {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				WithError(err).WithField("path", path).Warn("Failed to read dotenv file")
			}
			continue
		}
		files = append(files, data)
	}
	return ResolveSecret(os.LookupEnv, files...)
}
