package util

import (
	"bytes"
	"fmt"
	"strings"
)

// GetLineAndColumn converts a byte offset into 1-based line and column
// numbers.
func GetLineAndColumn(src string, pos int) (line int, column int) {
	line = 1
	column = 1
	for i, char := range src {
		if i == pos {
			break
		}
		if char == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return
}

// GetContextLines renders the two lines leading up to an error plus the
// error line itself, with a caret under the offending column.
func GetContextLines(src string, errorLine, errorCol int) string {
	lines := strings.Split(src, "\n")

	startLine := errorLine - 2
	if startLine < 1 {
		startLine = 1
	}

	var result bytes.Buffer
	for i := startLine; i <= errorLine && i <= len(lines); i++ {
		content := lines[i-1]
		if i != errorLine {
			result.WriteString(fmt.Sprintf("     %3d | %s\n", i, content))
			continue
		}

		margin := fmt.Sprintf("  >  %3d | ", i)
		result.WriteString(margin + content + "\n")

		col := errorCol - 1
		if col > len(content) {
			col = len(content)
		}
		result.WriteString(replaceVisibleWithSpaces(margin+content[:col]) + "^ unexpected here")
	}
	return result.String()
}

// replaceVisibleWithSpaces blanks out every character except tabs, so the
// caret line stays aligned with tab-indented source.
func replaceVisibleWithSpaces(s string) string {
	var buf bytes.Buffer
	for _, c := range s {
		if c == '\t' {
			buf.WriteRune('\t')
		} else {
			buf.WriteRune(' ')
		}
	}
	return buf.String()
}
