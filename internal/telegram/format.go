package telegram

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type span struct {
	start, end  int
	open, close string
}

// EntitiesToHTML renders a message's text with its formatting entities as
// Telegram HTML, so the relayed copy keeps the sender's formatting. Entity
// offsets are UTF-16 code units, hence the encode/decode round trip.
func EntitiesToHTML(text string, entities []tgbotapi.MessageEntity) string {
	if text == "" {
		return ""
	}
	u16 := utf16.Encode([]rune(text))

	var spans []span
	for _, e := range entities {
		open, cl, ok := entityTags(e)
		if !ok {
			continue
		}
		start, end := e.Offset, e.Offset+e.Length
		if start < 0 || end > len(u16) || start >= end {
			continue
		}
		spans = append(spans, span{start: start, end: end, open: open, close: cl})
	}
	if len(spans) == 0 {
		return html.EscapeString(text)
	}
	spans = splitCrossing(spans)

	// Outer entities open first and close last.
	opens := make(map[int][]span)
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})
	for _, s := range spans {
		opens[s.start] = append(opens[s.start], s)
	}
	closes := make(map[int][]span)
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].end != spans[j].end {
			return spans[i].end < spans[j].end
		}
		return spans[i].start > spans[j].start
	})
	for _, s := range spans {
		closes[s.end] = append(closes[s.end], s)
	}

	var b strings.Builder
	flushed := 0
	flush := func(upto int) {
		if upto > flushed {
			b.WriteString(html.EscapeString(string(utf16.Decode(u16[flushed:upto]))))
			flushed = upto
		}
	}
	for pos := 0; pos <= len(u16); pos++ {
		cs, hasClose := closes[pos]
		os, hasOpen := opens[pos]
		if !hasClose && !hasOpen {
			continue
		}
		flush(pos)
		for _, s := range cs {
			b.WriteString(s.close)
		}
		for _, s := range os {
			b.WriteString(s.open)
		}
	}
	flush(len(u16))
	return b.String()
}

// splitCrossing cuts spans that partially overlap an earlier one, so the
// emitted tags always nest properly. Telegram's HTML parser rejects crossing
// tags outright.
func splitCrossing(spans []span) []span {
	for changed := true; changed; {
		changed = false
		for i := 0; i < len(spans) && !changed; i++ {
			for j := 0; j < len(spans) && !changed; j++ {
				a, b := spans[i], spans[j]
				if a.start < b.start && b.start < a.end && a.end < b.end {
					spans[j] = span{start: b.start, end: a.end, open: b.open, close: b.close}
					spans = append(spans, span{start: a.end, end: b.end, open: b.open, close: b.close})
					changed = true
				}
			}
		}
	}
	return spans
}

func entityTags(e tgbotapi.MessageEntity) (string, string, bool) {
	switch e.Type {
	case "bold":
		return "<b>", "</b>", true
	case "italic":
		return "<i>", "</i>", true
	case "underline":
		return "<u>", "</u>", true
	case "strikethrough":
		return "<s>", "</s>", true
	case "spoiler":
		return `<span class="tg-spoiler">`, "</span>", true
	case "code":
		return "<code>", "</code>", true
	case "pre":
		if e.Language != "" {
			return fmt.Sprintf(`<pre><code class="language-%s">`, e.Language), "</code></pre>", true
		}
		return "<pre>", "</pre>", true
	case "text_link":
		return fmt.Sprintf(`<a href="%s">`, html.EscapeString(e.URL)), "</a>", true
	case "text_mention":
		if e.User != nil {
			return fmt.Sprintf(`<a href="tg://user?id=%d">`, e.User.ID), "</a>", true
		}
		return "", "", false
	default:
		// mention, hashtag, url, bot_command etc. render fine as plain text
		return "", "", false
	}
}
