package transcript

// previewRunes bounds the transcript excerpt shown in notifications.
const previewRunes = 50

// Preview returns a notification-sized excerpt of the transcript.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
