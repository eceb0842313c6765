package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"notiontogithub/config"
	"notiontogithub/models"
	"notiontogithub/utils"
)

// Issueをクローズ扱いにする終端ステータス
var terminalStatuses = map[string]bool{
	"完了":    true,
	"アーカイブ": true,
}

// taskSource は同期元 (Notion) の操作です
type taskSource interface {
	FetchUnlinkedTasks() ([]models.Task, error)
	FetchRecentlyChangedLinkedTasks() ([]models.LinkedTask, error)
	UpdateIssueField(pageID string, issueNumber int, issueURL string) error
}

// issueCreator はIssue作成パスが必要とする操作です
type issueCreator interface {
	Create(owner, repo string, task models.Task, statusID string) (*models.Issue, error)
}

// issueUpdater は状態反映パスが必要とする操作です
type issueUpdater interface {
	Update(owner, repo string, task models.LinkedTask, isDone bool) error
}

// SyncService はNotionとGitHub Issueの同期処理全体を実行します
type SyncService struct {
	config  *config.Config
	source  taskSource
	creator issueCreator
	updater issueUpdater
	mapper  *StatusMapper
	now     func() time.Time // テストで差し替えるため
}

// NewSyncService は新しい同期サービスを作成します
func NewSyncService(cfg *config.Config, source taskSource, creator issueCreator, updater issueUpdater, mapper *StatusMapper) *SyncService {
	return &SyncService{
		config:  cfg,
		source:  source,
		creator: creator,
		updater: updater,
		mapper:  mapper,
		now:     time.Now,
	}
}

// Run はIssue作成パスと状態反映パスを並行に実行します
// 2つのパスは独立した失敗単位で、一方の失敗は他方の実行を妨げません
// 両方の結果をまとめて報告します
func (s *SyncService) Run() error {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "同期処理全体")

	var wg sync.WaitGroup
	var createErr, propagateErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		createErr = s.RunCreatePass()
	}()
	go func() {
		defer wg.Done()
		propagateErr = s.RunPropagatePass()
	}()
	wg.Wait()

	if createErr != nil {
		utils.LogError("Issue作成パスが失敗しました: %v", createErr)
	}
	if propagateErr != nil {
		utils.LogError("状態反映パスが失敗しました: %v", propagateErr)
	}

	return errors.Join(createErr, propagateErr)
}

// RunCreatePass は未連携タスクからIssueを作成するパスです
// スプリント期間内のタスクのみを対象とし、作成したIssueの番号とURLを
// Notion側に書き戻します。書き戻しによって次回以降の実行では同じタスクが
// 取得対象から外れ、Issueの重複作成を防ぎます
func (s *SyncService) RunCreatePass() error {
	tasks, err := s.source.FetchUnlinkedTasks()
	if err != nil {
		return fmt.Errorf("未連携タスク取得エラー: %w", err)
	}

	now := s.now()
	created := 0

	for _, task := range tasks {
		// 期間外・名前が解析できないスプリントは対象外 (エラーにしない)
		if !IsSprintActive(task.Sprint, now) {
			utils.LogInfo("スプリント期間外のためスキップ: %s (Sprint: %s)", task.Title, task.Sprint)
			continue
		}

		statusID := s.mapper.Resolve(task.Status)

		issue, err := s.creator.Create(s.config.RepoOwner, s.config.RepoName, task, statusID)
		if err != nil {
			return fmt.Errorf("タスク '%s' のIssue作成に失敗: %w", task.Title, err)
		}

		if err := s.source.UpdateIssueField(task.ID, issue.Number, issue.HTMLURL); err != nil {
			return fmt.Errorf("タスク '%s' のIssue番号書き戻しに失敗: %w", task.Title, err)
		}

		created++
		s.throttle()
	}

	utils.LogInfo("Issue作成パスが完了しました: %d 件作成", created)
	return nil
}

// RunPropagatePass は編集済みの連携タスクの状態をIssueに反映するパスです
// 終端ステータス (完了・アーカイブ) のタスクはIssueをクローズし
// それ以外はオープンに保ちます
func (s *SyncService) RunPropagatePass() error {
	tasks, err := s.source.FetchRecentlyChangedLinkedTasks()
	if err != nil {
		return fmt.Errorf("連携タスク取得エラー: %w", err)
	}

	for _, task := range tasks {
		isDone := terminalStatuses[task.Status]

		if err := s.updater.Update(s.config.RepoOwner, s.config.RepoName, task, isDone); err != nil {
			return fmt.Errorf("Issue #%d の更新に失敗: %w", task.IssueNumber, err)
		}

		s.throttle()
	}

	utils.LogInfo("状態反映パスが完了しました: %d 件更新", len(tasks))
	return nil
}

// throttle はリモートAPIのレート制限を避けるための待機です
func (s *SyncService) throttle() {
	time.Sleep(time.Duration(s.config.ThrottleMillis) * time.Millisecond)
}
