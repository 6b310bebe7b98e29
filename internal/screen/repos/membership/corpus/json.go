package corpus

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	logpkg "github.com/haukened/phishscreen/internal/screen/common/log"
)

// ParseJSONList parses a JSON array of URL strings, the urls.json format.
//
// The document must be an array; any other shape is an error. Elements that
// are not strings, or are blank, are skipped and logged at debug level.
func ParseJSONList(r io.Reader, source string, logger logpkg.Logger) ([]string, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}

	out := make([]string, 0, len(raw))
	for i, msg := range raw {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			logger.Debug(map[string]any{"source": source, "index": i}, "skip_non_string")
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			logger.Debug(map[string]any{"source": source, "index": i}, "skip_blank")
			continue
		}
		out = append(out, s)
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_json_list_done")
	return out, nil
}
