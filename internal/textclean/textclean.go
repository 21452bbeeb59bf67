// Package textclean 去除发言文本中的 Markdown / HTML 标记
package textclean

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	boldRe    = regexp.MustCompile(`\*\*|__`)
	headingRe = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	tagRe     = regexp.MustCompile(`(?i)</?(?:b|strong|em|i|u|p|br|h[1-6]|span|div)(?:\s+[a-z-]+="[^"<>]*")*\s*/?>`)
	entityRe  = regexp.MustCompile(`(?i)&(?:#[0-9]+|#x[0-9a-f]+|[a-z][a-z0-9]*);`)
	breakRe   = regexp.MustCompile(`(?i)<br\s*/?>|</p>`)
	blankRe   = regexp.MustCompile(`\n{3,}`)
)

// StripMarkdown 去掉加粗/下划线标记和标题符号
func StripMarkdown(s string) string {
	s = boldRe.ReplaceAllString(s, "")
	s = headingRe.ReplaceAllString(s, "")
	return s
}

// StripHTML 去掉常见的格式标签并解码实体；其余的尖括号原样保留
func StripHTML(s string) string {
	if !tagRe.MatchString(s) && !entityRe.MatchString(s) {
		return s
	}
	s = breakRe.ReplaceAllString(s, "\n")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(escapeLoose(s)))
	if err != nil {
		return tagRe.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(doc.Text())
}

// escapeLoose 转义不属于白名单标签的尖括号，避免被解析器当作标签吞掉
func escapeLoose(s string) string {
	var sb strings.Builder
	last := 0
	for _, loc := range tagRe.FindAllStringIndex(s, -1) {
		sb.WriteString(angleReplacer.Replace(s[last:loc[0]]))
		sb.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	sb.WriteString(angleReplacer.Replace(s[last:]))
	return sb.String()
}

var angleReplacer = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// Clean 规范化文本：去标记、统一换行、去首尾空白
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = StripHTML(s)
	s = StripMarkdown(s)
	s = blankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
