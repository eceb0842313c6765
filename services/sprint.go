package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedSprintName はスプリント名が期待する形式でないことを表します
var ErrMalformedSprintName = errors.New("スプリント名の形式が不正です")

// スプリントの期日はJSTの日付として解釈します
var jst = time.FixedZone("Asia/Tokyo", 9*60*60)

// ParseSprintDueDate はスプリント名から期日を導出します
// スプリント名は「<チーム>_<名前>_<yyMMdd>」の3セグメント形式で
// 末尾セグメントをJSTのその日の0時として解釈します
func ParseSprintDueDate(name string) (time.Time, error) {
	parts := strings.Split(name, "_")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMalformedSprintName, name)
	}

	due, err := time.ParseInLocation("060102", parts[2], jst)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMalformedSprintName, name)
	}

	return due, nil
}

// IsSprintActive はスプリントが期間内かどうかを判定します
// 名前が解析できないスプリントは期間外として扱います (エラーにしない)
// 一方マイルストーン作成時の期日導出では解析失敗は致命的エラーです
func IsSprintActive(name string, now time.Time) bool {
	due, err := ParseSprintDueDate(name)
	if err != nil {
		return false
	}
	return !now.After(due)
}
