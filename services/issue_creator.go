package services

import (
	"fmt"
	"time"

	"notiontogithub/config"
	"notiontogithub/models"
	"notiontogithub/utils"
)

// githubAPI はIssue作成・更新が必要とするGitHubクライアントの操作です
type githubAPI interface {
	ListOpenMilestones(owner, repo string) ([]models.Milestone, error)
	CreateMilestone(owner, repo, title string, dueOn time.Time) (*models.Milestone, error)
	CreateIssue(owner, repo, title, body string, milestone int) (*models.Issue, error)
	UpdateIssue(owner, repo string, number int, title, body, state string) error
	AddProjectItem(projectID, contentID string) (string, error)
	SetProjectItemStatus(projectID, fieldID, itemID, optionID string) error
}

// PartialCreateError はIssueは作成されたがボード追加または
// ステータス設定に失敗したことを表します
// IssueNumberのIssueはボード未登録のまま残っているため手動対応が必要です
type PartialCreateError struct {
	IssueNumber int
	Err         error
}

func (e *PartialCreateError) Error() string {
	return fmt.Sprintf("Issue #%d は作成されましたが後続処理に失敗しました: %v", e.IssueNumber, e.Err)
}

func (e *PartialCreateError) Unwrap() error {
	return e.Err
}

// IssueCreator はタスクからGitHub Issueを作成します
type IssueCreator struct {
	config *config.Config
	github githubAPI
}

// NewIssueCreator は新しいIssue作成サービスを作成します
func NewIssueCreator(cfg *config.Config, github githubAPI) *IssueCreator {
	return &IssueCreator{
		config: cfg,
		github: github,
	}
}

// Create はマイルストーン解決 → Issue作成 → ボード追加 → ステータス設定を
// 順に実行します。各ステップは独立したリモート更新でトランザクションには
// なりません。Issue作成後のステップで失敗した場合は*PartialCreateErrorを
// 返します
func (c *IssueCreator) Create(owner, repo string, task models.Task, statusID string) (*models.Issue, error) {
	milestone, err := c.resolveMilestone(owner, repo, task.Sprint)
	if err != nil {
		return nil, err
	}

	issue, err := c.github.CreateIssue(owner, repo, task.Title, task.Content, milestone)
	if err != nil {
		return nil, fmt.Errorf("Issue作成エラー: %w", err)
	}
	utils.LogInfo("Issue #%d を作成しました: %s", issue.Number, task.Title)

	itemID, err := c.github.AddProjectItem(c.config.ProjectID, issue.NodeID)
	if err != nil {
		return nil, &PartialCreateError{IssueNumber: issue.Number, Err: err}
	}

	if err := c.github.SetProjectItemStatus(c.config.ProjectID, c.config.StatusFieldID, itemID, statusID); err != nil {
		return nil, &PartialCreateError{IssueNumber: issue.Number, Err: err}
	}

	return issue, nil
}

// resolveMilestone はスプリント名と同名のマイルストーンを探し
// なければ期日付きで新規作成します
// スプリント名から期日を導出できない場合は致命的エラーです
func (c *IssueCreator) resolveMilestone(owner, repo, sprint string) (int, error) {
	milestones, err := c.github.ListOpenMilestones(owner, repo)
	if err != nil {
		return 0, fmt.Errorf("マイルストーン一覧取得エラー: %w", err)
	}

	for _, m := range milestones {
		if m.Title == sprint {
			return m.Number, nil
		}
	}

	dueDate, err := ParseSprintDueDate(sprint)
	if err != nil {
		return 0, fmt.Errorf("マイルストーン期日導出エラー: %w", err)
	}

	created, err := c.github.CreateMilestone(owner, repo, sprint, dueDate)
	if err != nil {
		return 0, fmt.Errorf("マイルストーン作成エラー: %w", err)
	}

	utils.LogInfo("マイルストーン '%s' を作成しました (期日: %s)", sprint, dueDate.Format("2006-01-02"))
	return created.Number, nil
}
