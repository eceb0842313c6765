package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"notiontogithub/config"
	"notiontogithub/models"
)

const githubBaseURL = "https://api.github.com"

// GitHubClient はGitHub API (REST + GraphQL) とのやり取りを処理します
type GitHubClient struct {
	config  *config.Config
	client  *http.Client
	baseURL string
}

// NewGitHubClient は新しいGitHubクライアントを作成します
// トークンはoauth2トランスポートでリクエストに付与されます
func NewGitHubClient(cfg *config.Config) *GitHubClient {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
	return &GitHubClient{
		config:  cfg,
		client:  oauth2.NewClient(context.Background(), source),
		baseURL: githubBaseURL,
	}
}

// newRequest はAcceptヘッダー付きのリクエストを作成します
func (g *GitHubClient) newRequest(method, path string, payload interface{}) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("JSONエンコードエラー: %w", err)
		}
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequest(method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成エラー: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// CheckAuth はGitHub認証をチェックします
func (g *GitHubClient) CheckAuth() error {
	req, err := g.newRequest("GET", "/user", nil)
	if err != nil {
		return err
	}

	resp, err := g.client.Do(req)
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

// ListOpenMilestones はオープン状態のマイルストーンを一覧取得します
func (g *GitHubClient) ListOpenMilestones(owner, repo string) ([]models.Milestone, error) {
	path := fmt.Sprintf("/repos/%s/%s/milestones?state=open&per_page=100", owner, repo)

	req, err := g.newRequest("GET", path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("マイルストーン一覧取得失敗: %s", string(body))
	}

	var result []struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	milestones := make([]models.Milestone, 0, len(result))
	for _, m := range result {
		milestones = append(milestones, models.Milestone{Number: m.Number, Title: m.Title})
	}

	return milestones, nil
}

// CreateMilestone は期日付きのマイルストーンを作成します
func (g *GitHubClient) CreateMilestone(owner, repo, title string, dueOn time.Time) (*models.Milestone, error) {
	payload := map[string]interface{}{
		"title":  title,
		"due_on": dueOn.Format(time.RFC3339),
		"state":  "open",
	}

	req, err := g.newRequest("POST", fmt.Sprintf("/repos/%s/%s/milestones", owner, repo), payload)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("マイルストーン作成失敗: %s", string(body))
	}

	var result struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	return &models.Milestone{Number: result.Number, Title: result.Title}, nil
}

// CreateIssue はマイルストーン付きのIssueを作成します
func (g *GitHubClient) CreateIssue(owner, repo, title, body string, milestone int) (*models.Issue, error) {
	payload := map[string]interface{}{
		"title":     title,
		"body":      body,
		"milestone": milestone,
	}

	req, err := g.newRequest("POST", fmt.Sprintf("/repos/%s/%s/issues", owner, repo), payload)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Issue作成失敗: %s", string(respBody))
	}

	var result struct {
		ID      int64  `json:"id"`
		NodeID  string `json:"node_id"`
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	return &models.Issue{
		ID:      result.ID,
		NodeID:  result.NodeID,
		Number:  result.Number,
		HTMLURL: result.HTMLURL,
	}, nil
}

// UpdateIssue はIssueのタイトル・本文・状態を更新します
// stateには "open" または "closed" を指定します
func (g *GitHubClient) UpdateIssue(owner, repo string, number int, title, body, state string) error {
	payload := map[string]interface{}{
		"title": title,
		"body":  body,
		"state": state,
	}

	req, err := g.newRequest("PATCH", fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number), payload)
	if err != nil {
		return err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Issue更新失敗: %s", string(respBody))
	}

	return nil
}

// graphqlQuery はGraphQLエンドポイントにミューテーションを送信します
func (g *GitHubClient) graphqlQuery(query string, input map[string]interface{}, result interface{}) error {
	payload := map[string]interface{}{
		"query": query,
		"variables": map[string]interface{}{
			"input": input,
		},
	}

	req, err := g.newRequest("POST", "/graphql", payload)
	if err != nil {
		return err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GraphQLリクエスト失敗: %s", string(body))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	if len(envelope.Errors) > 0 {
		return fmt.Errorf("GraphQLエラー: %s", envelope.Errors[0].Message)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return fmt.Errorf("GraphQLデータ解析エラー: %w", err)
		}
	}

	return nil
}

// AddProjectItem はIssue (contentIDはノードID) をProjectV2に追加し
// ボードアイテムのIDを返します
func (g *GitHubClient) AddProjectItem(projectID, contentID string) (string, error) {
	query := `mutation($input: AddProjectV2ItemByIdInput!) {
		addProjectV2ItemById(input: $input) {
			item {
				id
			}
		}
	}`

	input := map[string]interface{}{
		"projectId": projectID,
		"contentId": contentID,
	}

	var result struct {
		AddProjectV2ItemByID struct {
			Item struct {
				ID string `json:"id"`
			} `json:"item"`
		} `json:"addProjectV2ItemById"`
	}
	if err := g.graphqlQuery(query, input, &result); err != nil {
		return "", fmt.Errorf("プロジェクトへの追加失敗: %w", err)
	}

	if result.AddProjectV2ItemByID.Item.ID == "" {
		return "", fmt.Errorf("ボードアイテムIDが見つかりません")
	}

	return result.AddProjectV2ItemByID.Item.ID, nil
}

// SetProjectItemStatus はボードアイテムのステータスフィールドを設定します
func (g *GitHubClient) SetProjectItemStatus(projectID, fieldID, itemID, optionID string) error {
	query := `mutation($input: UpdateProjectV2ItemFieldValueInput!) {
		updateProjectV2ItemFieldValue(input: $input) {
			projectV2Item {
				id
			}
		}
	}`

	input := map[string]interface{}{
		"projectId": projectID,
		"fieldId":   fieldID,
		"itemId":    itemID,
		"value": map[string]interface{}{
			"singleSelectOptionId": optionID,
		},
	}

	if err := g.graphqlQuery(query, input, nil); err != nil {
		return fmt.Errorf("ステータスフィールド更新失敗: %w", err)
	}

	return nil
}
