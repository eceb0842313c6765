package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"notiontogithub/config"
)

const (
	notionBaseURL = "https://api.notion.com"
	notionVersion = "2022-06-28"
)

// Notionデータベースのプロパティ名
const (
	PropertyTeamName = "チーム"
	PropertyTitle    = "title"
	PropertyStatus   = "ステータス"
	PropertySprint   = "Sprint"
	PropertyGitHub   = "Github Issue link"
	PropertyIssueNo  = "GitHub Issue No"
)

// NotionClient はNotion APIとのやり取りを処理します
type NotionClient struct {
	config  *config.Config
	client  *http.Client
	baseURL string
}

// NewNotionClient は新しいNotionクライアントを作成します
func NewNotionClient(cfg *config.Config) *NotionClient {
	return &NotionClient{
		config:  cfg,
		client:  &http.Client{},
		baseURL: notionBaseURL,
	}
}

// newRequest は認証ヘッダー付きのリクエストを作成します
func (n *NotionClient) newRequest(method, path string, payload interface{}) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("JSONエンコードエラー: %w", err)
		}
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequest(method, n.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成エラー: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+n.config.NotionAPIKey)
	req.Header.Set("Notion-Version", notionVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// QueryPage はデータベースクエリ結果の1ページ(レコード)を表します
type QueryPage struct {
	Object string `json:"object"`
	ID     string `json:"id"`
}

// DatabaseQueryResponse はデータベースクエリの1ページ分のレスポンスです
type DatabaseQueryResponse struct {
	Results    []QueryPage `json:"results"`
	HasMore    bool        `json:"has_more"`
	NextCursor string      `json:"next_cursor"`
}

// QueryDatabase はデータベースをフィルター付きでクエリします
// startCursorが空でない場合は続きのページを取得します
func (n *NotionClient) QueryDatabase(databaseID string, filter map[string]interface{}, startCursor string) (*DatabaseQueryResponse, error) {
	payload := map[string]interface{}{
		"filter": filter,
	}
	if startCursor != "" {
		payload["start_cursor"] = startCursor
	}

	req, err := n.newRequest("POST", fmt.Sprintf("/v1/databases/%s/query", databaseID), payload)
	if err != nil {
		return nil, err
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("データベースクエリ失敗: %s", string(body))
	}

	var result DatabaseQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	return &result, nil
}

// RichText はリッチテキスト断片のプレーンテキスト表現です
type RichText struct {
	PlainText string `json:"plain_text"`
}

// SelectOption はselect型プロパティの選択値です
type SelectOption struct {
	Name string `json:"name"`
}

// RelationRef はrelation型プロパティのリレーション先参照です
type RelationRef struct {
	ID string `json:"id"`
}

// PropertyValue はプロパティ取得APIのレスポンス形状です
// titleなどのページネーション対象プロパティはobject=listで届き
// Resultsに個々のproperty_itemが入ります
// 値の読み出しは型検証付きのアクセサで行います
type PropertyValue struct {
	Object   string          `json:"object"`
	Type     string          `json:"type"`
	Title    *RichText       `json:"title"`
	Select   *SelectOption   `json:"select"`
	Relation *RelationRef    `json:"relation"`
	Number   *float64        `json:"number"`
	Results  []PropertyValue `json:"results"`
}

// first はlist形式なら先頭のproperty_itemを、そうでなければ自身を返します
func (p *PropertyValue) first() (*PropertyValue, error) {
	if p.Object == "list" {
		if len(p.Results) == 0 {
			return nil, fmt.Errorf("プロパティ値が空です")
		}
		return &p.Results[0], nil
	}
	return p, nil
}

// TitleText はtitle型プロパティのプレーンテキストを返します
func (p *PropertyValue) TitleText() (string, error) {
	item, err := p.first()
	if err != nil {
		return "", err
	}
	if item.Type != "title" || item.Title == nil {
		return "", fmt.Errorf("title型プロパティではありません: type=%s", item.Type)
	}
	return item.Title.PlainText, nil
}

// SelectName はselect型プロパティの選択値名を返します (未設定の場合は空文字)
func (p *PropertyValue) SelectName() (string, error) {
	item, err := p.first()
	if err != nil {
		return "", err
	}
	if item.Type != "select" {
		return "", fmt.Errorf("select型プロパティではありません: type=%s", item.Type)
	}
	if item.Select == nil {
		return "", nil
	}
	return item.Select.Name, nil
}

// RelationID はrelation型プロパティのリレーション先ページIDを返します
func (p *PropertyValue) RelationID() (string, error) {
	item, err := p.first()
	if err != nil {
		return "", err
	}
	if item.Type != "relation" || item.Relation == nil {
		return "", fmt.Errorf("relation型プロパティではありません: type=%s", item.Type)
	}
	return item.Relation.ID, nil
}

// NumberValue はnumber型プロパティの値を返します (未設定の場合は0)
func (p *PropertyValue) NumberValue() (int, error) {
	item, err := p.first()
	if err != nil {
		return 0, err
	}
	if item.Type != "number" {
		return 0, fmt.Errorf("number型プロパティではありません: type=%s", item.Type)
	}
	if item.Number == nil {
		return 0, nil
	}
	return int(*item.Number), nil
}

// RetrievePageProperty はページのプロパティ値を取得します
func (n *NotionClient) RetrievePageProperty(pageID, propertyID string) (*PropertyValue, error) {
	path := fmt.Sprintf("/v1/pages/%s/properties/%s", pageID, url.PathEscape(propertyID))

	req, err := n.newRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("プロパティ取得失敗 '%s': %s", propertyID, string(body))
	}

	var value PropertyValue
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	return &value, nil
}

// Page はNotionページの基本情報を表します
type Page struct {
	Object string `json:"object"`
	ID     string `json:"id"`
}

// RetrievePage はページをIDで取得します
func (n *NotionClient) RetrievePage(pageID string) (*Page, error) {
	req, err := n.newRequest("GET", fmt.Sprintf("/v1/pages/%s", pageID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ページ取得失敗: %s", string(body))
	}

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	return &page, nil
}

// UpdateIssueField はページのIssue番号とIssueリンクのプロパティを更新します
func (n *NotionClient) UpdateIssueField(pageID string, issueNumber int, issueURL string) error {
	payload := map[string]interface{}{
		"properties": map[string]interface{}{
			PropertyIssueNo: map[string]interface{}{
				"number": issueNumber,
			},
			PropertyGitHub: map[string]interface{}{
				"url": issueURL,
			},
		},
	}

	req, err := n.newRequest("PATCH", fmt.Sprintf("/v1/pages/%s", pageID), payload)
	if err != nil {
		return err
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ページ更新失敗: %s", string(body))
	}

	return nil
}

// CheckAuth はNotion認証をチェックします
func (n *NotionClient) CheckAuth() error {
	req, err := n.newRequest("GET", "/v1/users/me", nil)
	if err != nil {
		return err
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("認証失敗: %s", string(body))
	}

	return nil
}
