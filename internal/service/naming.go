package service

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"time"
)

const base62Symbols = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// randMax 为 62^6,随机段最多 6 位 base62 字符
const randMax = 56800235584

// toBase62 把非负整数转为 base62 字符串，0 返回空串。
func toBase62(n int64) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, 0, 8)
	for n >= 1 {
		buf = append([]byte{base62Symbols[n%62]}, buf...)
		n /= 62
	}
	return string(buf)
}

// renameFile 按"当日毫秒数-随机数-日期"生成新文件名，保留原扩展名。
// 例如 a1B2-x9Yz-20260901.png。
func renameFile(original string, now time.Time) string {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sinceMidnight := now.UnixMilli() - midnight.UnixMilli()
	r := rand.Int63n(randMax)
	date := now.Format("20060102")
	return fmt.Sprintf("%s-%s-%s%s",
		toBase62(sinceMidnight), toBase62(r), date, filepath.Ext(original))
}
