package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// GenerateURLToken 生成 URL-safe 的随机 token, n 为原始随机字节数
func GenerateURLToken(n int) (string, error) {
	if n <= 0 {
		n = 24
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SignState 生成 OAuth state: nonce.signature
func SignState(secret string) (string, error) {
	nonce, err := GenerateURLToken(18)
	if err != nil {
		return "", err
	}
	return nonce + "." + stateMAC(secret, nonce), nil
}

// VerifyState 校验 SignState 生成的 state
func VerifyState(secret, state string) bool {
	nonce, sig, ok := strings.Cut(state, ".")
	if !ok || nonce == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(stateMAC(secret, nonce)))
}

func stateMAC(secret, nonce string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
