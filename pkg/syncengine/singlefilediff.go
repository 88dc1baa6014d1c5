package syncengine

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/dhive/dhive/pkg/dherrors"
	"github.com/dhive/dhive/pkg/fsutil"
)

// singleFileSizeCap is the size limit above which SingleFileDiff refuses a
// file with ErrSourceTooLarge.
const singleFileSizeCap = 100 * 1024

// binaryExtensions is the name-heuristic first pass before falling back to
// content sniffing.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".ico": true, ".zip": true, ".gz": true, ".tar": true, ".pdf": true,
	".woff": true, ".woff2": true, ".ttf": true, ".mp3": true, ".mp4": true,
	".mov": true, ".wasm": true, ".exe": true, ".so": true, ".dylib": true,
}

// LineDiff is a single line's contribution to a file-level diff.
type LineDiff struct {
	Kind ChangeLineKind
	Text string
}

// ChangeLineKind identifies whether a LineDiff entry was added, removed, or
// unchanged context.
type ChangeLineKind int

const (
	LineContext ChangeLineKind = iota
	LineAdded
	LineRemoved
)

// SingleFileDiff computes a line-level diff between the content of path in
// left and right. It refuses binary content (by extension, then by
// content-sniffing the first bytes) and files above singleFileSizeCap.
func (e *Engine) SingleFileDiff(ctx context.Context, left, right fsutil.FS, filePath string) ([]LineDiff, error) {
	leftData, leftErr := left.ReadFile(ctx, filePath)
	rightData, rightErr := right.ReadFile(ctx, filePath)
	if leftErr != nil {
		leftData = nil
	}
	if rightErr != nil {
		rightData = nil
	}

	if looksBinary(filePath, leftData) || looksBinary(filePath, rightData) {
		return nil, dherrors.ErrInvalidEncoding
	}
	if len(leftData) > singleFileSizeCap || len(rightData) > singleFileSizeCap {
		return nil, dherrors.ErrSourceTooLarge
	}

	return diffLines(string(leftData), string(rightData)), nil
}

func looksBinary(filePath string, data []byte) bool {
	if binaryExtensions[strings.ToLower(path.Ext(filePath))] {
		return true
	}
	if len(data) == 0 {
		return false
	}
	sniffLen := 512
	if len(data) < sniffLen {
		sniffLen = len(data)
	}
	return bytes.IndexByte(data[:sniffLen], 0) >= 0
}

// diffLines produces a minimal line diff via a classic longest-common-
// subsequence backtrace over lines instead of tree entries.
func diffLines(left, right string) []LineDiff {
	leftLines := splitLines(left)
	rightLines := splitLines(right)

	n, m := len(leftLines), len(rightLines)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if leftLines[i] == rightLines[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var result []LineDiff
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case leftLines[i] == rightLines[j]:
			result = append(result, LineDiff{Kind: LineContext, Text: leftLines[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			result = append(result, LineDiff{Kind: LineRemoved, Text: leftLines[i]})
			i++
		default:
			result = append(result, LineDiff{Kind: LineAdded, Text: rightLines[j]})
			j++
		}
	}
	for ; i < n; i++ {
		result = append(result, LineDiff{Kind: LineRemoved, Text: leftLines[i]})
	}
	for ; j < m; j++ {
		result = append(result, LineDiff{Kind: LineAdded, Text: rightLines[j]})
	}
	return result
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
