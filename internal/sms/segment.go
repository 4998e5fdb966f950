package sms

import (
	"unicode/utf8"
)

// Capacities holds the effective-unit budget of a single segment for each
// encoding. First-segment capacities apply when the whole message fits in
// one part; once concatenation headers are needed every segment, including
// the first, drops to the continuation capacity.
type Capacities struct {
	GSM7Single       int
	GSM7Continuation int
	UCS2Single       int
	UCS2Continuation int
}

// DefaultCapacities returns the standard carrier framing budgets.
func DefaultCapacities() Capacities {
	return Capacities{
		GSM7Single:       160,
		GSM7Continuation: 153,
		UCS2Single:       70,
		UCS2Continuation: 67,
	}
}

// Profile is the transmission footprint of a message body.
type Profile struct {
	Encoding       Encoding
	CharacterCount int // Unicode code points
	Units          int // effective character units toward capacity
	Parts          int
}

// EffectiveUnits counts how many character units text consumes under enc.
// GSM-7 extension-table characters cost two units (escape + extension
// septet). UCS-2 counts UTF-16 code units, so code points above the Basic
// Multilingual Plane cost two units each.
func EffectiveUnits(text string, enc Encoding) int {
	units := 0
	for _, r := range text {
		switch {
		case enc == EncodingGSM7 && gsm7Extended[r]:
			units += 2
		case enc == EncodingUCS2 && r > 0xFFFF:
			units += 2
		default:
			units++
		}
	}
	return units
}

// Segments computes the number of transmission parts for units effective
// characters under enc. Zero units means zero parts; the caller decides
// whether an empty message is an error.
//
// Once a message exceeds the single-segment budget, the whole body is
// divided by the continuation capacity: concatenation headers shrink the
// first segment too, so 200 GSM-7 units yield ceil(200/153) = 2 parts.
func Segments(enc Encoding, units int, caps Capacities) int {
	if units <= 0 {
		return 0
	}

	single, continuation := caps.GSM7Single, caps.GSM7Continuation
	if enc == EncodingUCS2 {
		single, continuation = caps.UCS2Single, caps.UCS2Continuation
	}

	if units <= single {
		return 1
	}
	return (units + continuation - 1) / continuation
}

// Inspect classifies text and computes its full transmission profile
// under the supplied capacities.
func Inspect(text string, caps Capacities) Profile {
	enc := Classify(text)
	units := EffectiveUnits(text, enc)
	return Profile{
		Encoding:       enc,
		CharacterCount: utf8.RuneCountInString(text),
		Units:          units,
		Parts:          Segments(enc, units, caps),
	}
}
