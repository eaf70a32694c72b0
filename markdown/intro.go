package markdown

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
	tldrRe       = regexp.MustCompile(`(?i)\btl;?\s*dr\b`)
	setextH1Line = regexp.MustCompile(`^ {0,3}=+[ \t]*$`)
)

var md = goldmark.New()

// NormalizeIntro 는 첫 H1 과 다음 하위 제목 사이에 도입 문단이 정확히 하나 있도록
// 그 자리를 교체한다. TL;DR 제목이 있으면 그 앞까지가 자리다. H1 이 없으면
// 문서가 이미 도입 문단으로 시작하지 않는 한 앞에 붙인다. 연속된 빈 줄은 하나로
// 줄인다. 두 번 적용해도 결과가 같다.
func NormalizeIntro(content, intro string) string {
	src := strings.ReplaceAll(content, "\r\n", "\n")
	intro = collapse(strings.TrimSpace(strings.ReplaceAll(intro, "\r\n", "\n")))
	if intro == "" {
		return collapse(src)
	}

	doc := md.Parser().Parse(text.NewReader([]byte(src)))
	h1, anchor := locateSlot(doc, []byte(src))
	if h1 == nil {
		if strings.HasPrefix(strings.TrimLeft(src, " \t\n"), intro) {
			return collapse(src)
		}
		return collapse(intro + "\n\n" + strings.TrimLeft(src, "\n"))
	}

	head := src[:headingEnd(src, h1)]
	rest := src[len(head):]
	if anchor != nil {
		rest = src[lineStart(src, anchor.Lines().At(0).Start):]
	} else if strings.HasPrefix(strings.TrimLeft(rest, " \t\n"), intro) {
		return collapse(src)
	}
	rest = strings.TrimLeft(rest, "\n")

	var b strings.Builder
	b.WriteString(strings.TrimRight(head, "\n"))
	b.WriteString("\n\n")
	b.WriteString(intro)
	if rest != "" {
		b.WriteString("\n\n")
		b.WriteString(rest)
	} else {
		b.WriteString("\n")
	}
	return collapse(b.String())
}

// locateSlot 은 문서 최상위 자식 중 첫 H1 과 도입 자리를 닫는 하위 제목을 돌려준다.
func locateSlot(doc ast.Node, src []byte) (h1, anchor *ast.Heading) {
	var first *ast.Heading
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		if h1 == nil {
			if h.Level == 1 {
				h1 = h
			}
			continue
		}
		if h.Level < 2 {
			continue
		}
		if first == nil {
			first = h
		}
		if tldrRe.Match(headingText(h, src)) {
			return h1, h
		}
	}
	return h1, first
}

func headingText(h *ast.Heading, src []byte) []byte {
	var out []byte
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, seg.Value(src)...)
	}
	return out
}

// headingEnd 는 setext 밑줄을 포함해 제목 마지막 줄 바로 뒤의 위치를 돌려준다.
func headingEnd(src string, h *ast.Heading) int {
	last := h.Lines().At(h.Lines().Len() - 1)
	end := lineEnd(src, last.Stop)
	if end < len(src) {
		next := len(src)
		if i := strings.IndexByte(src[end+1:], '\n'); i >= 0 {
			next = end + 1 + i
		}
		if setextH1Line.MatchString(src[end+1 : next]) {
			return next
		}
	}
	return end
}

func lineStart(src string, pos int) int {
	if pos > len(src) {
		pos = len(src)
	}
	return strings.LastIndexByte(src[:pos], '\n') + 1
}

// lineEnd 는 pos 가 속한 줄을 끝내는 개행 위치를, 없으면 len(src) 를 돌려준다.
func lineEnd(src string, pos int) int {
	if pos >= len(src) {
		return len(src)
	}
	// 세그먼트 끝이 이미 개행 위에 있을 수 있다
	if pos > 0 && src[pos-1] == '\n' {
		pos--
	}
	if i := strings.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(src)
}

func collapse(s string) string {
	return blankRunRe.ReplaceAllString(s, "\n\n")
}
