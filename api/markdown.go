package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// blockContent はリッチテキストを持つブロックの共通形状です
type blockContent struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
	Language string     `json:"language"`
}

// block はNotionブロックを表します (変換対象の型のみ)
type block struct {
	Type             string        `json:"type"`
	Paragraph        *blockContent `json:"paragraph"`
	Heading1         *blockContent `json:"heading_1"`
	Heading2         *blockContent `json:"heading_2"`
	Heading3         *blockContent `json:"heading_3"`
	BulletedListItem *blockContent `json:"bulleted_list_item"`
	NumberedListItem *blockContent `json:"numbered_list_item"`
	ToDo             *blockContent `json:"to_do"`
	Quote            *blockContent `json:"quote"`
	Code             *blockContent `json:"code"`
}

type blockChildrenResponse struct {
	Results    []block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor string  `json:"next_cursor"`
}

// PageToMarkdown はページ本文のブロックを取得しMarkdownに変換します
func (n *NotionClient) PageToMarkdown(pageID string) (string, error) {
	var blocks []block
	cursor := ""

	for {
		path := fmt.Sprintf("/v1/blocks/%s/children?page_size=100", pageID)
		if cursor != "" {
			path += "&start_cursor=" + cursor
		}

		req, err := n.newRequest("GET", path, nil)
		if err != nil {
			return "", err
		}

		resp, err := n.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("リクエスト送信エラー: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return "", fmt.Errorf("ブロック取得失敗: %s", string(body))
		}

		var page blockChildrenResponse
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return "", fmt.Errorf("レスポンス解析エラー: %w", err)
		}
		resp.Body.Close()

		blocks = append(blocks, page.Results...)

		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return renderMarkdown(blocks), nil
}

// renderMarkdown はブロック列をMarkdown文字列に変換します
func renderMarkdown(blocks []block) string {
	var lines []string

	for _, b := range blocks {
		switch b.Type {
		case "paragraph":
			lines = append(lines, plainText(b.Paragraph))
		case "heading_1":
			lines = append(lines, "# "+plainText(b.Heading1))
		case "heading_2":
			lines = append(lines, "## "+plainText(b.Heading2))
		case "heading_3":
			lines = append(lines, "### "+plainText(b.Heading3))
		case "bulleted_list_item":
			lines = append(lines, "- "+plainText(b.BulletedListItem))
		case "numbered_list_item":
			lines = append(lines, "1. "+plainText(b.NumberedListItem))
		case "to_do":
			mark := "[ ]"
			if b.ToDo != nil && b.ToDo.Checked {
				mark = "[x]"
			}
			lines = append(lines, "- "+mark+" "+plainText(b.ToDo))
		case "quote":
			lines = append(lines, "> "+plainText(b.Quote))
		case "code":
			lang := ""
			if b.Code != nil {
				lang = b.Code.Language
			}
			lines = append(lines, "```"+lang+"\n"+plainText(b.Code)+"\n```")
		default:
			// 未対応のブロック型はスキップ
		}
	}

	return strings.Join(lines, "\n\n")
}

// plainText はブロック内のリッチテキストを連結します
func plainText(content *blockContent) string {
	if content == nil {
		return ""
	}

	var sb strings.Builder
	for _, rt := range content.RichText {
		sb.WriteString(rt.PlainText)
	}
	return sb.String()
}
