// Package transcript post-processes recognized text: spoken punctuation
// commands and notification previews.
package transcript

import (
	"regexp"
	"strings"
)

// spokenCommand maps a spoken phrase to the mark it stands for. Order
// matters: multi-word phrases must precede their single-word prefixes.
type spokenCommand struct {
	phrase string
	mark   string
}

var spokenCommands = []spokenCommand{
	// end punctuation
	{"period", "."},
	{"full stop", "."},
	{"dot", "."},
	{"comma", ","},
	{"exclamation point", "!"},
	{"exclamation mark", "!"},
	{"question mark", "?"},
	{"semicolon", ";"},
	{"colon", ":"},
	{"ellipsis", "..."},

	// quotes and brackets
	{"open quote", `"`},
	{"close quote", `"`},
	{"quote", `"`},
	{"quotation mark", `"`},
	{"double quote", `"`},
	{"open paren", "("},
	{"close paren", ")"},
	{"open parenthesis", "("},
	{"close parenthesis", ")"},
	{"open bracket", "["},
	{"close bracket", "]"},
	{"open brace", "{"},
	{"close brace", "}"},

	// other marks
	{"hyphen", "-"},
	{"dash", "—"},
	{"underscore", "_"},
	{"apostrophe", "'"},
	{"at sign", "@"},
	{"hashtag", "#"},
	{"hash", "#"},
	{"ampersand", "&"},
	{"asterisk", "*"},
	{"percent", "%"},
	{"dollar sign", "$"},
	{"plus sign", "+"},
	{"equals sign", "="},
	{"slash", "/"},
	{"backslash", `\`},

	// formatting
	{"new line", "\n"},
	{"newline", "\n"},
	{"line break", "\n"},
	{"new paragraph", "\n\n"},
	{"tab", "\t"},
}

type compiledCommand struct {
	pattern     *regexp.Regexp
	replacement string
}

var compiledCommands = compileCommands()

var (
	multiSpace       = regexp.MustCompile(` {2,}`)
	spaceBeforeMark  = regexp.MustCompile(` ([.,!?;:])`)
	spaceAroundBreak = regexp.MustCompile(`[ \t]*\n[ \t]*`)
)

func compileCommands() []compiledCommand {
	out := make([]compiledCommand, 0, len(spokenCommands))
	for _, cmd := range spokenCommands {
		pattern := regexp.MustCompile(`(?i)\s*\b` + regexp.QuoteMeta(cmd.phrase) + `\b\s*`)
		out = append(out, compiledCommand{
			pattern:     pattern,
			replacement: spacedReplacement(cmd.mark),
		})
	}
	return out
}

// spacedReplacement decides where the surrounding space goes for each mark
// class: end punctuation hugs the preceding word, opening brackets hug the
// following one.
func spacedReplacement(mark string) string {
	switch mark {
	case ".", ",", "!", "?", ";", ":", "...":
		return mark + " "
	case "(", "[", "{", `"`:
		return " " + mark
	case ")", "]", "}":
		return mark + " "
	default:
		return mark
	}
}

// ApplyCommands rewrites spoken punctuation in recognized text, so
// "hello comma world period" becomes "hello, world.".
func ApplyCommands(text string) string {
	result := text
	for _, cmd := range compiledCommands {
		result = cmd.pattern.ReplaceAllString(result, cmd.replacement)
	}

	result = multiSpace.ReplaceAllString(result, " ")
	result = spaceBeforeMark.ReplaceAllString(result, "$1")
	result = spaceAroundBreak.ReplaceAllString(result, "\n")

	// Trim horizontal whitespace only; explicit line breaks stay.
	return strings.Trim(result, " \t")
}

// IsCommand reports whether a single word is a recognized spoken command.
func IsCommand(word string) bool {
	lower := strings.ToLower(word)
	for _, cmd := range spokenCommands {
		if cmd.phrase == lower {
			return true
		}
	}
	return false
}
