// Package sms implements GSM 03.38 character-set classification and
// segment arithmetic for SMS message bodies.
package sms

// Encoding identifies the air-interface alphabet a message body requires.
type Encoding string

const (
	EncodingGSM7 Encoding = "gsm7"
	EncodingUCS2 Encoding = "ucs2"
)

// gsm7Basic is the GSM 03.38 default alphabet. Each member occupies one
// septet on the wire.
var gsm7Basic = map[rune]bool{
	'@': true, '£': true, '$': true, '¥': true, 'è': true, 'é': true,
	'ù': true, 'ì': true, 'ò': true, 'Ç': true, '\n': true, 'Ø': true,
	'ø': true, '\r': true, 'Å': true, 'å': true, 'Δ': true, '_': true,
	'Φ': true, 'Γ': true, 'Λ': true, 'Ω': true, 'Π': true, 'Ψ': true,
	'Σ': true, 'Θ': true, 'Ξ': true, 'Æ': true, 'æ': true, 'ß': true,
	'É': true, ' ': true, '!': true, '"': true, '#': true, '¤': true,
	'%': true, '&': true, '\'': true, '(': true, ')': true, '*': true,
	'+': true, ',': true, '-': true, '.': true, '/': true, '0': true,
	'1': true, '2': true, '3': true, '4': true, '5': true, '6': true,
	'7': true, '8': true, '9': true, ':': true, ';': true, '<': true,
	'=': true, '>': true, '?': true, '¡': true, 'A': true, 'B': true,
	'C': true, 'D': true, 'E': true, 'F': true, 'G': true, 'H': true,
	'I': true, 'J': true, 'K': true, 'L': true, 'M': true, 'N': true,
	'O': true, 'P': true, 'Q': true, 'R': true, 'S': true, 'T': true,
	'U': true, 'V': true, 'W': true, 'X': true, 'Y': true, 'Z': true,
	'Ä': true, 'Ö': true, 'Ñ': true, 'Ü': true, '§': true, '¿': true,
	'a': true, 'b': true, 'c': true, 'd': true, 'e': true, 'f': true,
	'g': true, 'h': true, 'i': true, 'j': true, 'k': true, 'l': true,
	'm': true, 'n': true, 'o': true, 'p': true, 'q': true, 'r': true,
	's': true, 't': true, 'u': true, 'v': true, 'w': true, 'x': true,
	'y': true, 'z': true, 'ä': true, 'ö': true, 'ñ': true, 'ü': true,
	'à': true,
}

// gsm7Extended is the GSM 03.38 extension table. Each member is sent as
// an escape septet followed by the extension septet, so it costs two
// character units toward segment capacity.
var gsm7Extended = map[rune]bool{
	'^': true, '{': true, '}': true, '\\': true, '[': true, '~': true,
	']': true, '|': true, '€': true, '\f': true,
}

// Classify reports the encoding required to carry text. The result is
// total: any Unicode input maps to exactly one encoding, and the empty
// string classifies as GSM-7.
func Classify(text string) Encoding {
	for _, r := range text {
		if !gsm7Basic[r] && !gsm7Extended[r] {
			return EncodingUCS2
		}
	}
	return EncodingGSM7
}
