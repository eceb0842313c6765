package services

// StatusMapper はNotionのステータスラベルをProjectV2の
// ステータスオプションIDに変換します
type StatusMapper struct {
	mapping   map[string]string
	defaultID string
}

// NewStatusMapper は新しいステータスマッパーを作成します
// mappingにないラベルはすべてdefaultIDに解決されます
func NewStatusMapper(mapping map[string]string, defaultID string) *StatusMapper {
	return &StatusMapper{
		mapping:   mapping,
		defaultID: defaultID,
	}
}

// Resolve はステータスラベルをオプションIDに解決します (常に成功します)
func (s *StatusMapper) Resolve(status string) string {
	if id, ok := s.mapping[status]; ok && id != "" {
		return id
	}
	return s.defaultID
}
