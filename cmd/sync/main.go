package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"notiontogithub/api"
	"notiontogithub/config"
	"notiontogithub/services"
	"notiontogithub/utils"
)

func main() {
	// コマンドラインフラグの定義
	createOnly := flag.Bool("create-only", false, "Issue作成パスのみを実行する")
	updateOnly := flag.Bool("update-only", false, "状態反映パスのみを実行する")
	throttleMillis := flag.Int("throttle-ms", 0, "リモート更新間の待機時間ミリ秒（0の場合は設定値を使用）")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	// 開始時間の記録
	startTime := time.Now()

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	// 待機時間の上書き（指定された場合のみ）
	if *throttleMillis > 0 {
		cfg.ThrottleMillis = *throttleMillis
	}

	utils.LogInfo("Notion → GitHub Issue 同期ツール (v1.0.0)")
	utils.LogInfo("設定読み込み完了 (チーム: %s, リポジトリ: %s/%s)", cfg.TeamName, cfg.RepoOwner, cfg.RepoName)

	// 必要なサービスの初期化
	notionClient := api.NewNotionClient(cfg)
	githubClient := api.NewGitHubClient(cfg)
	reader := services.NewNotionReader(cfg, notionClient)
	creator := services.NewIssueCreator(cfg, githubClient)
	updater := services.NewIssueUpdater(githubClient)
	mapper := services.NewStatusMapper(cfg.StatusMapping, cfg.DefaultStatusID)
	syncService := services.NewSyncService(cfg, reader, creator, updater, mapper)

	// 同期の実行
	switch {
	case *createOnly:
		err = syncService.RunCreatePass()
	case *updateOnly:
		err = syncService.RunPropagatePass()
	default:
		err = syncService.Run()
	}
	if err != nil {
		utils.LogError("同期処理に失敗しました: %v", err)
		os.Exit(1)
	}

	// 合計実行時間の表示
	elapsed := time.Since(startTime)
	utils.LogInfo("同期処理が完了しました。合計実行時間: %s", elapsed)
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Notion → GitHub Issue 同期ツール

使用方法:
  %s [オプション]

オプション:
  -create-only        Issue作成パスのみを実行する
  -update-only        状態反映パスのみを実行する
  -throttle-ms=N      リモート更新間の待機時間をミリ秒で指定する
  -help               このヘルプを表示する

環境変数:
  NOTION_API_KEY                  Notion APIキー (必須)
  NOTION_DATABASE_ID              NotionタスクデータベースID (必須)
  TEAM_NAME                       対象チーム名 (必須)
  GITHUB_TOKEN                    GitHub APIトークン (必須)
  REPO_OWNER                      GitHubリポジトリのオーナー (必須)
  REPO_NAME                       GitHubリポジトリ名 (必須)
  GITHUB_PROJECT_ID               ProjectV2のノードID (必須)
  GITHUB_PROJECT_STATUS_FIELD_ID  ProjectV2のステータスフィールドID (必須)
  GITHUB_STATUS_TODO_ID           TodoステータスのオプションID
  GITHUB_STATUS_IN_PROGRESS_ID    In ProgressステータスのオプションID
  GITHUB_STATUS_REVIEW_ID         ReviewステータスのオプションID
  GITHUB_STATUS_DONE_ID           DoneステータスのオプションID
  THROTTLE_MS                     リモート更新間の待機時間ミリ秒 (デフォルト: 500)
  CHANGED_WINDOW_HOURS            更新検知の遡り時間 (デフォルト: 24)

例:
  # すべての処理を実行
  %s

  # Issue作成パスのみを実行
  %s -create-only

  # 状態反映パスのみを実行
  %s -update-only
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}
