package model

import (
	"errors"
	"regexp"
	"strings"
)

// 客户端与服务端共用的凭据格式规则
var (
	ErrInvalidPin      = errors.New("PIN 必须为 4–8 位数字")
	ErrInvalidUsername = errors.New("用户名须为 3–32 位小写字母、数字或 . _ -")
)

var (
	pinPattern      = regexp.MustCompile(`^[0-9]{4,8}$`)
	usernamePattern = regexp.MustCompile(`^[a-z0-9._-]{3,32}$`)
)

// ValidatePin 校验 PIN 格式
func ValidatePin(pin string) error {
	if !pinPattern.MatchString(pin) {
		return ErrInvalidPin
	}
	return nil
}

// NormalizeUsername 去除空白并转为小写后校验
func NormalizeUsername(username string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(u) {
		return "", ErrInvalidUsername
	}
	return u, nil
}
