package moderation

import "github.com/abadojack/whatlanggo"

// DetectLanguage returns the ISO 639-1 code of the content's most likely
// language, or "" when detection is unreliable. Stored on the message for
// client-side rendering hints; never blocks or fails a send.
func DetectLanguage(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
