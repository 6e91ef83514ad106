package polish

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("^```(?:markdown|md)?[ \t]*\n?")
	trailingFence = regexp.MustCompile("\n?```\\s*$")
)

// DisplayMeta describes the episode a transcript belongs to.
type DisplayMeta struct {
	Title    string
	Podcast  string
	AudioURL string
}

// FormatForDisplay wraps a polished transcript for the static site: code
// fences left by the model are stripped, YAML front matter and a header are
// prepended, and a heading is added when the body has none.
func FormatForDisplay(polished string, meta DisplayMeta) string {
	content := strings.TrimSpace(polished)
	content = leadingFence.ReplaceAllString(content, "")
	content = trailingFence.ReplaceAllString(content, "")

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", meta.Title+" - 逐字稿")
	fmt.Fprintf(&b, "podcast: %q\n", meta.Podcast)
	fmt.Fprintf(&b, "audioUrl: %q\n", meta.AudioURL)
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# 📝 %s\n\n", meta.Title)
	if meta.Podcast != "" {
		fmt.Fprintf(&b, "> 📻 節目：%s\n\n", meta.Podcast)
	}
	b.WriteString("---\n\n")

	if !strings.HasPrefix(content, "#") {
		b.WriteString("## 完整逐字稿\n\n")
	}
	b.WriteString(content)
	return b.String()
}
