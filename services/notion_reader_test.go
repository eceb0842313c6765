package services

import (
	"errors"
	"fmt"
	"testing"

	"notiontogithub/api"
	"notiontogithub/config"
)

// プロパティ値のテスト用ビルダー
func titleValue(text string) *api.PropertyValue {
	return &api.PropertyValue{
		Object: "list",
		Results: []api.PropertyValue{
			{Object: "property_item", Type: "title", Title: &api.RichText{PlainText: text}},
		},
	}
}

func selectValue(name string) *api.PropertyValue {
	value := &api.PropertyValue{Object: "property_item", Type: "select"}
	if name != "" {
		value.Select = &api.SelectOption{Name: name}
	}
	return value
}

func relationValue(id string) *api.PropertyValue {
	return &api.PropertyValue{
		Object: "list",
		Results: []api.PropertyValue{
			{Object: "property_item", Type: "relation", Relation: &api.RelationRef{ID: id}},
		},
	}
}

func numberValue(n float64) *api.PropertyValue {
	return &api.PropertyValue{Object: "property_item", Type: "number", Number: &n}
}

type updateCall struct {
	pageID      string
	issueNumber int
	issueURL    string
}

type fakeNotion struct {
	queryResponses []*api.DatabaseQueryResponse
	queryFilters   []map[string]interface{}
	queryCursors   []string
	properties     map[string]map[string]*api.PropertyValue
	pages          map[string]*api.Page
	markdown       map[string]string
	updated        []updateCall
}

func (f *fakeNotion) QueryDatabase(databaseID string, filter map[string]interface{}, startCursor string) (*api.DatabaseQueryResponse, error) {
	f.queryFilters = append(f.queryFilters, filter)
	f.queryCursors = append(f.queryCursors, startCursor)
	if len(f.queryResponses) == 0 {
		return &api.DatabaseQueryResponse{}, nil
	}
	resp := f.queryResponses[0]
	f.queryResponses = f.queryResponses[1:]
	return resp, nil
}

func (f *fakeNotion) RetrievePageProperty(pageID, propertyID string) (*api.PropertyValue, error) {
	props, ok := f.properties[pageID]
	if !ok {
		return nil, fmt.Errorf("ページが見つかりません: %s", pageID)
	}
	value, ok := props[propertyID]
	if !ok {
		return nil, fmt.Errorf("プロパティが見つかりません: %s", propertyID)
	}
	return value, nil
}

func (f *fakeNotion) RetrievePage(pageID string) (*api.Page, error) {
	page, ok := f.pages[pageID]
	if !ok {
		return nil, fmt.Errorf("ページ取得失敗: %s", pageID)
	}
	return page, nil
}

func (f *fakeNotion) PageToMarkdown(pageID string) (string, error) {
	return f.markdown[pageID], nil
}

func (f *fakeNotion) UpdateIssueField(pageID string, issueNumber int, issueURL string) error {
	f.updated = append(f.updated, updateCall{pageID, issueNumber, issueURL})
	return nil
}

func readerConfig() *config.Config {
	return &config.Config{
		NotionDatabaseID:   "db-1",
		TeamName:           "alpha",
		ChangedWindowHours: 24,
	}
}

// taskProperties はタスクページ1件分のプロパティ一式を作ります
func taskProperties(title, status, sprintRelID string) map[string]*api.PropertyValue {
	return map[string]*api.PropertyValue{
		api.PropertyTitle:  titleValue(title),
		api.PropertyStatus: selectValue(status),
		api.PropertySprint: relationValue(sprintRelID),
	}
}

func TestFetchUnlinkedTasksPagination(t *testing.T) {
	notion := &fakeNotion{
		queryResponses: []*api.DatabaseQueryResponse{
			{
				Results:    []api.QueryPage{{Object: "page", ID: "page-1"}},
				HasMore:    true,
				NextCursor: "cursor-1",
			},
			{
				Results: []api.QueryPage{{Object: "page", ID: "page-2"}},
				HasMore: false,
			},
		},
		properties: map[string]map[string]*api.PropertyValue{
			"page-1":   taskProperties("タスク1", "未着手", "sprint-1"),
			"page-2":   taskProperties("タスク2", "進行中", "sprint-1"),
			"sprint-1": {api.PropertyTitle: titleValue("TEAM_X_251231")},
		},
		pages: map[string]*api.Page{
			"sprint-1": {Object: "page", ID: "sprint-1"},
		},
		markdown: map[string]string{
			"page-1": "本文1",
			"page-2": "本文2",
		},
	}

	reader := NewNotionReader(readerConfig(), notion)
	tasks, err := reader.FetchUnlinkedTasks()
	if err != nil {
		t.Fatalf("FetchUnlinkedTasks failed: %v", err)
	}

	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "page-1" || tasks[1].ID != "page-2" {
		t.Errorf("Unexpected task order: %s, %s", tasks[0].ID, tasks[1].ID)
	}
	if tasks[0].Title != "タスク1" {
		t.Errorf("Expected title タスク1, got %s", tasks[0].Title)
	}
	if tasks[0].Sprint != "TEAM_X_251231" {
		t.Errorf("Expected sprint TEAM_X_251231, got %s", tasks[0].Sprint)
	}
	if tasks[0].Content != "本文1" {
		t.Errorf("Expected content 本文1, got %s", tasks[0].Content)
	}

	// 2回目のクエリには続きのカーソルが渡される
	if len(notion.queryCursors) != 2 || notion.queryCursors[0] != "" || notion.queryCursors[1] != "cursor-1" {
		t.Errorf("Unexpected cursors: %v", notion.queryCursors)
	}
}

func TestFetchUnlinkedTasksFilter(t *testing.T) {
	notion := &fakeNotion{}

	reader := NewNotionReader(readerConfig(), notion)
	if _, err := reader.FetchUnlinkedTasks(); err != nil {
		t.Fatalf("FetchUnlinkedTasks failed: %v", err)
	}

	if len(notion.queryFilters) != 1 {
		t.Fatalf("Expected 1 query, got %d", len(notion.queryFilters))
	}

	// Issue番号が空のレコードに限定するフィルター
	// (連携済みタスクを除外することでIssueの重複作成を防ぐ)
	conditions := notion.queryFilters[0]["and"].([]interface{})
	if len(conditions) != 2 {
		t.Fatalf("Expected 2 filter conditions, got %d", len(conditions))
	}

	team := conditions[0].(map[string]interface{})
	if team["property"] != api.PropertyTeamName {
		t.Errorf("Expected team filter, got %v", team)
	}
	if team["select"].(map[string]interface{})["equals"] != "alpha" {
		t.Errorf("Expected team equals alpha, got %v", team)
	}

	issueNo := conditions[1].(map[string]interface{})
	if issueNo["property"] != api.PropertyIssueNo {
		t.Errorf("Expected issue-no filter, got %v", issueNo)
	}
	if issueNo["number"].(map[string]interface{})["is_empty"] != true {
		t.Errorf("Expected is_empty filter, got %v", issueNo)
	}
}

func TestFetchUnlinkedTasksStatusDefault(t *testing.T) {
	notion := &fakeNotion{
		queryResponses: []*api.DatabaseQueryResponse{
			{Results: []api.QueryPage{{Object: "page", ID: "page-1"}}},
		},
		properties: map[string]map[string]*api.PropertyValue{
			"page-1":   taskProperties("タスク1", "", "sprint-1"),
			"sprint-1": {api.PropertyTitle: titleValue("TEAM_X_251231")},
		},
		pages: map[string]*api.Page{
			"sprint-1": {Object: "page", ID: "sprint-1"},
		},
	}

	reader := NewNotionReader(readerConfig(), notion)
	tasks, err := reader.FetchUnlinkedTasks()
	if err != nil {
		t.Fatalf("FetchUnlinkedTasks failed: %v", err)
	}

	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Status != "保留" {
		t.Errorf("Expected default status 保留, got %s", tasks[0].Status)
	}
}

func TestFetchUnlinkedTasksSprintPageMissing(t *testing.T) {
	notion := &fakeNotion{
		queryResponses: []*api.DatabaseQueryResponse{
			{Results: []api.QueryPage{{Object: "page", ID: "page-1"}}},
		},
		properties: map[string]map[string]*api.PropertyValue{
			"page-1": taskProperties("タスク1", "未着手", "sprint-missing"),
		},
		// sprint-missingはpagesに存在しない
	}

	reader := NewNotionReader(readerConfig(), notion)
	_, err := reader.FetchUnlinkedTasks()
	if err == nil {
		t.Fatal("Expected error for missing sprint page, got nil")
	}
	if !errors.Is(err, ErrSprintPageNotFound) {
		t.Errorf("Expected ErrSprintPageNotFound, got %v", err)
	}
}

func TestFetchRecentlyChangedLinkedTasks(t *testing.T) {
	props := taskProperties("タスク1", "完了", "sprint-1")
	props[api.PropertyIssueNo] = numberValue(42)

	notion := &fakeNotion{
		queryResponses: []*api.DatabaseQueryResponse{
			{Results: []api.QueryPage{{Object: "page", ID: "page-1"}}},
		},
		properties: map[string]map[string]*api.PropertyValue{
			"page-1":   props,
			"sprint-1": {api.PropertyTitle: titleValue("TEAM_X_251231")},
		},
		pages: map[string]*api.Page{
			"sprint-1": {Object: "page", ID: "sprint-1"},
		},
	}

	reader := NewNotionReader(readerConfig(), notion)
	tasks, err := reader.FetchRecentlyChangedLinkedTasks()
	if err != nil {
		t.Fatalf("FetchRecentlyChangedLinkedTasks failed: %v", err)
	}

	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}
	if tasks[0].IssueNumber != 42 {
		t.Errorf("Expected issue number 42, got %d", tasks[0].IssueNumber)
	}
	if tasks[0].Status != "完了" {
		t.Errorf("Expected status 完了, got %s", tasks[0].Status)
	}

	// フィルター条件: チーム一致 + Issue番号あり + 編集時刻
	conditions := notion.queryFilters[0]["and"].([]interface{})
	if len(conditions) != 3 {
		t.Fatalf("Expected 3 filter conditions, got %d", len(conditions))
	}

	issueNo := conditions[1].(map[string]interface{})
	if issueNo["number"].(map[string]interface{})["is_not_empty"] != true {
		t.Errorf("Expected is_not_empty filter, got %v", issueNo)
	}

	edited := conditions[2].(map[string]interface{})
	if edited["timestamp"] != "last_edited_time" {
		t.Errorf("Expected last_edited_time filter, got %v", edited)
	}
	lastEdited := edited["last_edited_time"].(map[string]interface{})
	if lastEdited["after"] == "" {
		t.Error("Expected after timestamp to be set")
	}
}

func TestQueryAllPagesSkipsNonPageResults(t *testing.T) {
	notion := &fakeNotion{
		queryResponses: []*api.DatabaseQueryResponse{
			{Results: []api.QueryPage{
				{Object: "database", ID: "db-child"},
				{Object: "page", ID: "page-1"},
			}},
		},
		properties: map[string]map[string]*api.PropertyValue{
			"page-1":   taskProperties("タスク1", "未着手", "sprint-1"),
			"sprint-1": {api.PropertyTitle: titleValue("TEAM_X_251231")},
		},
		pages: map[string]*api.Page{
			"sprint-1": {Object: "page", ID: "sprint-1"},
		},
	}

	reader := NewNotionReader(readerConfig(), notion)
	tasks, err := reader.FetchUnlinkedTasks()
	if err != nil {
		t.Fatalf("FetchUnlinkedTasks failed: %v", err)
	}

	if len(tasks) != 1 || tasks[0].ID != "page-1" {
		t.Errorf("Expected only page-1, got %v", tasks)
	}
}
