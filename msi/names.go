package msi

import "strings"

// Stream names inside the container pack pairs of characters from a 64 symbol
// alphabet into single code points. Table streams carry an extra marker rune.
const (
	tableMarker    = 0x4840
	pairedRunes    = 0x3800
	singleRunes    = 0x4800
	encodedRunsEnd = 0x4840
)

func decodeStreamName(encoded string) (name string, table bool) {
	runes := []rune(encoded)
	if len(runes) > 0 && runes[0] == tableMarker {
		table = true
		runes = runes[1:]
	}
	var builder strings.Builder
	for _, r := range runes {
		switch {
		case r >= singleRunes && r < encodedRunsEnd:
			builder.WriteByte(fromSymbol(int(r - singleRunes)))
		case r >= pairedRunes && r < singleRunes:
			value := int(r - pairedRunes)
			builder.WriteByte(fromSymbol(value & 0x3f))
			builder.WriteByte(fromSymbol((value >> 6) & 0x3f))
		default:
			builder.WriteRune(r)
		}
	}
	return builder.String(), table
}

func fromSymbol(symbol int) byte {
	switch {
	case symbol < 10:
		return byte('0' + symbol)
	case symbol < 36:
		return byte('A' + symbol - 10)
	case symbol < 62:
		return byte('a' + symbol - 36)
	case symbol == 62:
		return '.'
	default:
		return '_'
	}
}
