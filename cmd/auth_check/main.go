package main

import (
	"flag"
	"fmt"
	"os"

	"notiontogithub/api"
	"notiontogithub/config"
	"notiontogithub/utils"
)

func main() {
	// ヘルプフラグの定義
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	utils.LogInfo("API認証確認ツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	// Notion認証チェック
	notionClient := api.NewNotionClient(cfg)
	utils.LogInfo("Notion APIの認証を確認しています...")
	if err := notionClient.CheckAuth(); err != nil {
		utils.LogError("Notion認証エラー: %v", err)
		utils.LogError("NOTION_API_KEY を確認してください。")
		os.Exit(1)
	}
	utils.LogInfo("Notion認証成功！")

	// GitHub認証チェック
	githubClient := api.NewGitHubClient(cfg)
	utils.LogInfo("GitHub APIの認証を確認しています...")
	if err := githubClient.CheckAuth(); err != nil {
		utils.LogError("GitHub認証エラー: %v", err)
		utils.LogError("GITHUB_TOKEN を確認してください。")
		os.Exit(1)
	}
	utils.LogInfo("GitHub認証成功！")

	utils.LogInfo("両APIの認証情報は正常です。")
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
API認証確認ツール

使用方法:
  %s [オプション]

オプション:
  -help               このヘルプを表示する

環境変数:
  NOTION_API_KEY      Notion APIキー (必須)
  GITHUB_TOKEN        GitHub APIトークン (必須)

説明:
  このツールはNotionとGitHubのAPI認証情報が正しく設定されているかを
  確認します。認証が成功すれば、同期ツールも正常に動作する可能性が高いです。
`, os.Args[0])
}
