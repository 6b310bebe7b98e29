package corpus

import (
	"bufio"
	"io"
	"strings"

	logpkg "github.com/haukened/phishscreen/internal/screen/common/log"
)

// maxLineBytes bounds a single corpus line.
const maxLineBytes = 1 << 20

// ParsePlainList parses a newline-delimited list of URLs.
//
// Behavior:
// - Skips blank lines and whole-line '#' comments
// - Strips " # ..." inline comments but keeps URL fragments ("a.com/#x")
// - Strips a leading BOM and surrounding whitespace
// - Entries are returned raw; canonicalization happens at insert time
func ParsePlainList(r io.Reader, source string, logger logpkg.Logger) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	out := make([]string, 0, 256)
	logger.Debug(map[string]any{"source": source}, "parse_plain_list_start")

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())

		if isEmpty, isComment := classifyLine(line); isEmpty || isComment {
			continue
		}

		entry := strings.TrimSpace(stripInlineComment(line))
		if entry == "" {
			logger.Debug(map[string]any{"source": source, "line": lineNum}, "skip_empty_after_comment")
			continue
		}
		out = append(out, entry)
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "line": lineNum, "error": err}, "parse_plain_list_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_plain_list_done")
	return out, nil
}
