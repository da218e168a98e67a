// Package cardreader decodes the raw line a magnetic badge reader types when
// a card is swiped at the login prompt. Readers emit the badge tracks as
// keyboard input, so the "username" the operator submits may actually be a
// reader frame carrying a six-digit ID.
package cardreader

// Badge is a decoded swipe.
type Badge struct {
	// ID is the six-character identifier read off the card.
	ID string

	// Direction describes the swipe direction when the frame format
	// carries one; empty otherwise.
	Direction string
}

// Frame delimiters vary by reader firmware. Older readers bracket the frame
// with a start sentinel and a direction-dependent terminator; newer ones
// embed the ID after a delimiter followed by four zeros.
const (
	oldStartAccented = "ò"
	oldStartColon    = ";"
	newIDMarker      = "0000"
)

// DecodeBadge reports whether text looks like a badge-reader frame and, if
// so, the ID it carries. Plain usernames never match.
func DecodeBadge(text string) (Badge, bool) {
	runes := []rune(text)
	if len(runes) == 0 {
		return Badge{}, false
	}

	if direction, ok := oldFormatDirection(runes); ok {
		if len(runes) < 15 {
			return Badge{}, false
		}
		return Badge{ID: string(runes[9:15]), Direction: direction}, true
	}

	if id, ok := scanForID(runes, []rune(oldStartAccented)[0]); ok {
		return Badge{ID: id}, true
	}
	if id, ok := scanForID(runes, []rune(oldStartColon)[0]); ok {
		return Badge{ID: id}, true
	}
	return Badge{}, false
}

func oldFormatDirection(runes []rune) (string, bool) {
	first := string(runes[0])
	last := string(runes[len(runes)-1])
	switch {
	case first == oldStartAccented && last == "-",
		first == oldStartColon && last == "/":
		return "top to bottom", true
	case first == oldStartAccented && last == "_",
		first == oldStartColon && last == "?":
		return "bottom to top", true
	}
	return "", false
}

// scanForID walks every occurrence of delimiter looking for the new-format
// shape: delimiter, four zeros, then the ID six runes further in.
func scanForID(runes []rune, delimiter rune) (string, bool) {
	for i := 0; i < len(runes); i++ {
		if runes[i] != delimiter {
			continue
		}
		if i+15 >= len(runes) {
			continue
		}
		if string(runes[i+1:i+5]) != newIDMarker {
			continue
		}
		return string(runes[i+9 : i+15]), true
	}
	return "", false
}
