package memo

import (
	"regexp"

	"github.com/tidwall/gjson"
)

var (
	fenceRe = regexp.MustCompile("(?is)```(?:json)?\\n(.*?)```")
	braceRe = regexp.MustCompile(`\{[\s\S]*?\}`)
)

// ExtractDraft parses one AI reply into a normalized memo draft. The reply
// is expected to be a JSON object, but may be an array, wrapped in a fenced
// code block, or buried in prose. Returns false when no object with
// isMemo=true and a non-empty content is found; malformed JSON is never an
// error, it just means "no memo here".
func ExtractDraft(text string) (Draft, bool) {
	if d, ok := tryDecode(text); ok {
		return d, true
	}
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		if d, ok := tryDecode(m[1]); ok {
			return d, true
		}
	}
	for _, chunk := range braceRe.FindAllString(text, -1) {
		if d, ok := tryDecode(chunk); ok {
			return d, true
		}
	}
	return Draft{}, false
}

// tryDecode accepts a single JSON object with isMemo=true, or the first
// such element of a JSON array.
func tryDecode(s string) (Draft, bool) {
	if !gjson.Valid(s) {
		return Draft{}, false
	}
	v := gjson.Parse(s)
	switch {
	case v.IsArray():
		for _, el := range v.Array() {
			if el.Get("isMemo").Type == gjson.True {
				return normalizeDraft(el)
			}
		}
	case v.IsObject():
		if v.Get("isMemo").Type == gjson.True {
			return normalizeDraft(v)
		}
	}
	return Draft{}, false
}

func normalizeDraft(v gjson.Result) (Draft, bool) {
	content := v.Get("content").String()
	if content == "" {
		content = v.Get("title").String()
	}
	if content == "" {
		return Draft{}, false
	}

	var due *string
	if d := v.Get("dueDate"); d.Type == gjson.String && d.Str != "" {
		s := d.Str
		due = &s
	}

	return Draft{
		Content:  content,
		DueDate:  due,
		Priority: NormalizePriority(v.Get("priority").String()),
		Category: NormalizeCategory(v.Get("category").String()),
	}, true
}
