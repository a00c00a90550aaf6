package util

import "strings"

// SecondWord extracts the second space-delimited word of a free-text size
// description ("32 34W" -> "34W"). One partner encodes the vendor size in
// that position. Empty when there is no second word.
func SecondWord(input string) string {
	fields := strings.Fields(input)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// FirstLetterOfLastWord extracts the leading character of the last
// space-delimited word ("CUT 30 Regular" -> "R"). Used for one partner's
// cut-code notation.
func FirstLetterOfLastWord(input string) string {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return ""
	}
	last := []rune(fields[len(fields)-1])
	if len(last) == 0 {
		return ""
	}
	return strings.ToUpper(string(last[0]))
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
