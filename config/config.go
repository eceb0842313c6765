package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Notion API設定
	NotionAPIKey     string
	NotionDatabaseID string
	TeamName         string

	// GitHub API設定
	GitHubToken   string
	RepoOwner     string
	RepoName      string
	ProjectID     string // ProjectV2のノードID
	StatusFieldID string // ProjectV2のステータスフィールドID

	// ステータスマッピング (Notionステータスラベル → ProjectV2オプションID)
	StatusMapping   map[string]string
	DefaultStatusID string

	// 同期動作設定
	ThrottleMillis     int // 連続するリモート更新の間に挟む待機時間
	ChangedWindowHours int // 更新検知の対象とする編集時刻の遡り幅
}

// LoadConfig は環境変数から設定を読み込みます
func LoadConfig() (*Config, error) {
	// .envファイルを読み込む
	_ = godotenv.Load()

	todoID := os.Getenv("GITHUB_STATUS_TODO_ID")

	config := &Config{
		NotionAPIKey:     os.Getenv("NOTION_API_KEY"),
		NotionDatabaseID: os.Getenv("NOTION_DATABASE_ID"),
		TeamName:         os.Getenv("TEAM_NAME"),
		GitHubToken:      os.Getenv("GITHUB_TOKEN"),
		RepoOwner:        os.Getenv("REPO_OWNER"),
		RepoName:         os.Getenv("REPO_NAME"),
		ProjectID:        os.Getenv("GITHUB_PROJECT_ID"),
		StatusFieldID:    os.Getenv("GITHUB_PROJECT_STATUS_FIELD_ID"),
		StatusMapping: map[string]string{
			"保留":    todoID,
			"未着手":   todoID,
			"進行中":   os.Getenv("GITHUB_STATUS_IN_PROGRESS_ID"),
			"レビュー":  os.Getenv("GITHUB_STATUS_REVIEW_ID"),
			"完了":    os.Getenv("GITHUB_STATUS_DONE_ID"),
			"アーカイブ": os.Getenv("GITHUB_STATUS_DONE_ID"),
		},
		DefaultStatusID:    todoID,
		ThrottleMillis:     getEnvAsIntWithDefault("THROTTLE_MS", 500),
		ChangedWindowHours: getEnvAsIntWithDefault("CHANGED_WINDOW_HOURS", 24),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate は必須項目が設定されているか確認します
func (c *Config) validate() error {
	required := map[string]string{
		"NOTION_API_KEY":                 c.NotionAPIKey,
		"NOTION_DATABASE_ID":             c.NotionDatabaseID,
		"TEAM_NAME":                      c.TeamName,
		"GITHUB_TOKEN":                   c.GitHubToken,
		"REPO_OWNER":                     c.RepoOwner,
		"REPO_NAME":                      c.RepoName,
		"GITHUB_PROJECT_ID":              c.ProjectID,
		"GITHUB_PROJECT_STATUS_FIELD_ID": c.StatusFieldID,
	}

	for name, value := range required {
		if value == "" {
			return fmt.Errorf("環境変数 %s が設定されていません", name)
		}
	}

	return nil
}

// デフォルト値付きで環境変数を整数として取得
func getEnvAsIntWithDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
