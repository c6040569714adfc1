package extract

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/user/extraction-pipeline/internal/entity"
)

// JSONProfile declares how records sit inside a JSON API payload.
type JSONProfile struct {
	// RecordsPath walks from the payload root to the array of record objects.
	RecordsPath []string
	Fields      []Field
	// NextTokenPath walks to the continuation token; absent or empty token
	// means the source gave no next-page signal.
	NextTokenPath []string
	// NextURL builds the next page URL from the current cursor and token.
	// Nil disables URL-based continuation; the token alone is carried.
	NextURL func(cur entity.PageCursor, token string) string
}

// JSONExtractor extracts records from JSON payloads.
type JSONExtractor struct {
	profile JSONProfile
}

// NewJSONExtractor builds an extractor over an API profile.
func NewJSONExtractor(profile JSONProfile) *JSONExtractor {
	return &JSONExtractor{profile: profile}
}

// Extract unmarshals the payload and walks the configured paths. A payload
// that fails to decode, or whose records path leads nowhere, yields no
// records and no next-page signal.
func (x *JSONExtractor) Extract(body []byte, cur entity.PageCursor) ([]entity.RawRecord, *entity.PageCursor) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		slog.Debug("JSON parse failed", "page_url", cur.URL, "error", err)
		return nil, nil
	}

	items, ok := walkPath(root, x.profile.RecordsPath).([]any)
	if !ok {
		return nil, x.nextCursor(root, cur)
	}

	var records []entity.RawRecord
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fields := make(map[string]string, len(x.profile.Fields))
		for _, f := range x.profile.Fields {
			for _, s := range f.Strategies {
				if value := stringify(walkPath(obj, s.Path)); value != "" {
					fields[f.Name] = value
					break
				}
			}
		}
		if len(fields) == 0 {
			continue
		}
		records = append(records, entity.RawRecord{
			Fields: fields,
			Source: entity.Provenance{PageURL: cur.URL, Page: cur.Page},
		})
	}

	return records, x.nextCursor(root, cur)
}

func (x *JSONExtractor) nextCursor(root any, cur entity.PageCursor) *entity.PageCursor {
	token := stringify(walkPath(root, x.profile.NextTokenPath))
	if token == "" || token == cur.Token {
		return nil
	}
	next := &entity.PageCursor{Token: token, Page: cur.Page + 1}
	if x.profile.NextURL != nil {
		next.URL = x.profile.NextURL(cur, token)
	}
	return next
}

// walkPath descends nested objects key by key. An empty path returns nil so a
// profile without the optional paths stays inert.
func walkPath(node any, path []string) any {
	if len(path) == 0 {
		return nil
	}
	for _, key := range path {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = obj[key]
	}
	return node
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
