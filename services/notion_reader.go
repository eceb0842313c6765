package services

import (
	"errors"
	"fmt"
	"time"

	"notiontogithub/api"
	"notiontogithub/config"
	"notiontogithub/models"
	"notiontogithub/utils"
)

// ErrSprintPageNotFound はSprintリレーション先のページを
// 取得できなかったことを表します
var ErrSprintPageNotFound = errors.New("Sprintページが見つかりません")

// ステータス未設定のタスクに割り当てるラベル
const defaultStatusLabel = "保留"

// notionAPI はNotionReaderが必要とするNotionクライアントの操作です
type notionAPI interface {
	QueryDatabase(databaseID string, filter map[string]interface{}, startCursor string) (*api.DatabaseQueryResponse, error)
	RetrievePageProperty(pageID, propertyID string) (*api.PropertyValue, error)
	RetrievePage(pageID string) (*api.Page, error)
	PageToMarkdown(pageID string) (string, error)
	UpdateIssueField(pageID string, issueNumber int, issueURL string) error
}

// NotionReader はNotionデータベースからタスクを読み出します
type NotionReader struct {
	config *config.Config
	notion notionAPI
}

// NewNotionReader は新しいNotionリーダーを作成します
func NewNotionReader(cfg *config.Config, notion notionAPI) *NotionReader {
	return &NotionReader{
		config: cfg,
		notion: notion,
	}
}

// FetchUnlinkedTasks はGitHub Issue未作成のタスクを取得します
// (チーム一致 かつ Issue番号が空)
func (r *NotionReader) FetchUnlinkedTasks() ([]models.Task, error) {
	filter := map[string]interface{}{
		"and": []interface{}{
			map[string]interface{}{
				"property": api.PropertyTeamName,
				"select": map[string]interface{}{
					"equals": r.config.TeamName,
				},
			},
			map[string]interface{}{
				"property": api.PropertyIssueNo,
				"number": map[string]interface{}{
					"is_empty": true,
				},
			},
		},
	}

	pages, err := r.queryAllPages(filter)
	if err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0, len(pages))
	for _, page := range pages {
		task, err := r.buildTask(page.ID)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	utils.LogInfo("未連携タスクを取得しました: %d 件", len(tasks))
	return tasks, nil
}

// FetchRecentlyChangedLinkedTasks はIssue連携済みで最近編集された
// タスクを取得します (チーム一致 かつ Issue番号あり かつ 編集時刻が対象期間内)
func (r *NotionReader) FetchRecentlyChangedLinkedTasks() ([]models.LinkedTask, error) {
	after := time.Now().Add(-time.Duration(r.config.ChangedWindowHours) * time.Hour)

	filter := map[string]interface{}{
		"and": []interface{}{
			map[string]interface{}{
				"property": api.PropertyTeamName,
				"select": map[string]interface{}{
					"equals": r.config.TeamName,
				},
			},
			map[string]interface{}{
				"property": api.PropertyIssueNo,
				"number": map[string]interface{}{
					"is_not_empty": true,
				},
			},
			map[string]interface{}{
				"timestamp": "last_edited_time",
				"last_edited_time": map[string]interface{}{
					"after": after.UTC().Format(time.RFC3339),
				},
			},
		},
	}

	pages, err := r.queryAllPages(filter)
	if err != nil {
		return nil, err
	}

	tasks := make([]models.LinkedTask, 0, len(pages))
	for _, page := range pages {
		task, err := r.buildTask(page.ID)
		if err != nil {
			return nil, err
		}

		issueNoProp, err := r.notion.RetrievePageProperty(page.ID, api.PropertyIssueNo)
		if err != nil {
			return nil, err
		}
		issueNumber, err := issueNoProp.NumberValue()
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, models.LinkedTask{
			Task:        *task,
			IssueNumber: issueNumber,
		})
	}

	utils.LogInfo("編集済みの連携タスクを取得しました: %d 件", len(tasks))
	return tasks, nil
}

// UpdateIssueField は作成したIssueの番号とURLをNotion側に書き戻します
func (r *NotionReader) UpdateIssueField(pageID string, issueNumber int, issueURL string) error {
	return r.notion.UpdateIssueField(pageID, issueNumber, issueURL)
}

// queryAllPages はカーソルを辿ってクエリ結果の全ページを取得します
func (r *NotionReader) queryAllPages(filter map[string]interface{}) ([]api.QueryPage, error) {
	var pages []api.QueryPage
	cursor := ""

	for {
		resp, err := r.notion.QueryDatabase(r.config.NotionDatabaseID, filter, cursor)
		if err != nil {
			return nil, fmt.Errorf("データベースクエリエラー: %w", err)
		}

		for _, page := range resp.Results {
			if page.Object != "page" {
				continue
			}
			pages = append(pages, page)
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return pages, nil
}

// buildTask は1件のページからタスクを組み立てます
func (r *NotionReader) buildTask(pageID string) (*models.Task, error) {
	titleProp, err := r.notion.RetrievePageProperty(pageID, api.PropertyTitle)
	if err != nil {
		return nil, err
	}
	title, err := titleProp.TitleText()
	if err != nil {
		return nil, fmt.Errorf("タイトル読み取りエラー: %w", err)
	}

	statusProp, err := r.notion.RetrievePageProperty(pageID, api.PropertyStatus)
	if err != nil {
		return nil, err
	}
	status, err := statusProp.SelectName()
	if err != nil {
		return nil, fmt.Errorf("ステータス読み取りエラー: %w", err)
	}
	if status == "" {
		status = defaultStatusLabel
	}

	content, err := r.notion.PageToMarkdown(pageID)
	if err != nil {
		return nil, fmt.Errorf("本文変換エラー: %w", err)
	}

	sprint, err := r.resolveSprint(pageID)
	if err != nil {
		return nil, err
	}

	return &models.Task{
		ID:      pageID,
		Title:   title,
		Sprint:  sprint,
		Status:  status,
		Content: content,
	}, nil
}

// resolveSprint はSprintリレーションを辿ってスプリント名を取得します
// リレーション先が取得できない場合はデータ不整合なので致命的エラーです
func (r *NotionReader) resolveSprint(pageID string) (string, error) {
	sprintProp, err := r.notion.RetrievePageProperty(pageID, api.PropertySprint)
	if err != nil {
		return "", err
	}
	relationID, err := sprintProp.RelationID()
	if err != nil {
		return "", fmt.Errorf("Sprintリレーション読み取りエラー: %w", err)
	}

	sprintPage, err := r.notion.RetrievePage(relationID)
	if err != nil || sprintPage.Object != "page" {
		utils.LogError("Sprintページの取得に失敗しました: %s", relationID)
		return "", fmt.Errorf("%w: %s", ErrSprintPageNotFound, relationID)
	}

	titleProp, err := r.notion.RetrievePageProperty(sprintPage.ID, api.PropertyTitle)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSprintPageNotFound, relationID)
	}
	title, err := titleProp.TitleText()
	if err != nil {
		return "", fmt.Errorf("Sprintタイトル読み取りエラー: %w", err)
	}

	return title, nil
}
