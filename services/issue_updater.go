package services

import (
	"fmt"

	"notiontogithub/models"
	"notiontogithub/utils"
)

// IssueUpdater は連携済みタスクの内容をGitHub Issueに反映します
type IssueUpdater struct {
	github githubAPI
}

// NewIssueUpdater は新しいIssue更新サービスを作成します
func NewIssueUpdater(github githubAPI) *IssueUpdater {
	return &IssueUpdater{
		github: github,
	}
}

// Update はIssueのタイトルと本文をNotion側の内容で上書きし
// isDoneに応じてIssueをクローズまたは再オープンします
func (u *IssueUpdater) Update(owner, repo string, task models.LinkedTask, isDone bool) error {
	state := "open"
	if isDone {
		state = "closed"
	}

	if err := u.github.UpdateIssue(owner, repo, task.IssueNumber, task.Title, task.Content, state); err != nil {
		return fmt.Errorf("Issue更新エラー: %w", err)
	}

	utils.LogInfo("Issue #%d を更新しました (state: %s)", task.IssueNumber, state)
	return nil
}
