package gitstore

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// 后端 contents API 的传输编码是标准 base64，读取响应会把内容按 60 列折行.
// 编码作用在原始字节上，对任意字节序列（包括多字节 UTF-8 文本）都能无损往返:
// DecodeContent(EncodeContent(b)) == b.

// EncodeContent 将任意字节编码为传输用的 base64 字符串.
func EncodeContent(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeContent 将传输内容解码回原始字节. 容忍内容中嵌入的换行和空白.
func DecodeContent(content string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		}

		return r
	}, content)

	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}

	return data, nil
}
