package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"selfx-go/internal/selfx"
)

// firstOfList returns the first object of a JSON array.
func firstOfList(body json.RawMessage) (json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decoding commits list: %w", err)
	}
	if len(list) == 0 {
		return nil, selfx.ErrNoCommits
	}
	return list[0], nil
}

func decodeCommentList(body json.RawMessage, decode func(json.RawMessage) (selfx.Comment, error)) ([]selfx.Comment, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, err
	}
	items := make([]selfx.Comment, 0, len(list))
	for _, doc := range list {
		c, err := decode(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, nil
}

// rawID renders a numeric or string id as text.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	return strings.Trim(string(raw), `"`)
}
