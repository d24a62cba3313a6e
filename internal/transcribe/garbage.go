// Package transcribe turns finalized audio artifacts into text, falling back
// across compute devices and models until one attempt produces usable output.
package transcribe

import "unicode"

// looksGarbage reports whether a decode is punctuation soup rather than
// speech. Whisper models under memory pressure emit long runs of periods and
// commas; treating those as failures lets the fallback chain try a cheaper
// configuration instead of pasting junk.
func looksGarbage(text string) bool {
	var letters, punct int
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			letters++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			punct++
		}
	}

	if letters == 0 {
		return punct > 3
	}
	return float64(punct)/float64(punct+letters) > 0.8
}
