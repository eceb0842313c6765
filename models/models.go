package models

// Task はGitHub Issue未作成のNotionタスクを表します
type Task struct {
	ID      string // NotionページID
	Title   string
	Sprint  string // Sprintリレーション先ページのタイトル
	Status  string // Notion側のステータスラベル
	Content string // ページ本文 (Markdown)
}

// LinkedTask はGitHub Issue作成済みのNotionタスクを表します
type LinkedTask struct {
	Task
	IssueNumber int // 紐付け済みのGitHub Issue番号
}

// Issue は作成されたGitHub Issueへの参照を表します
type Issue struct {
	ID      int64  // REST APIの数値ID
	NodeID  string // GraphQL用のノードID (ProjectV2への追加に使用)
	Number  int    // Issue番号
	HTMLURL string
}

// Milestone はGitHubマイルストーンを表します
type Milestone struct {
	Number int
	Title  string
}
