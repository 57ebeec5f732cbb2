package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 回调签名格式：t=<unix秒>,v1=<hex hmac>
// 签名内容是 "<unix秒>.<原始请求体>"，所以请求体必须原样进验签，
// 任何中间层的 JSON 解析/重序列化都会让签名失效。

const SignatureHeader = "X-Webhook-Signature"

// DefaultTolerance 时间戳容差，防重放
const DefaultTolerance = 5 * time.Minute

var (
	ErrInvalidSignature   = errors.New("webhook signature verification failed")
	ErrSignatureTooOld    = errors.New("webhook timestamp outside tolerance")
	ErrMalformedSignature = errors.New("malformed webhook signature header")
)

// Sign 计算回调签名（发送方 / 测试用）
func Sign(secret []byte, t time.Time, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d.", t.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", t.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

// VerifySignature 校验回调签名
func VerifySignature(secret []byte, header string, payload []byte, tolerance time.Duration, now time.Time) error {
	var ts int64
	var sig []byte

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return ErrMalformedSignature
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return ErrMalformedSignature
			}
			ts = parsed
		case "v1":
			decoded, err := hex.DecodeString(value)
			if err != nil {
				return ErrMalformedSignature
			}
			sig = decoded
		}
	}

	if ts == 0 || len(sig) == 0 {
		return ErrMalformedSignature
	}

	sent := time.Unix(ts, 0)
	age := now.Sub(sent)
	if age > tolerance || age < -tolerance {
		return ErrSignatureTooOld
	}

	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)

	if !hmac.Equal(mac.Sum(nil), sig) {
		return ErrInvalidSignature
	}
	return nil
}
