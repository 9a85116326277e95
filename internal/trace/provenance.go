package trace

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// ProvenanceHash computes the sha256 digest (64 hex characters) over the
// canonical encoding of the trace's event sequence at call time. Two traces
// with identical event sequences produce identical hashes; any change to any
// encoded field changes the hash. Hashing does not freeze the trace: later
// appends produce a different hash on the next call.
func (t *Trace) ProvenanceHash() string {
	sum := sha256.Sum256(t.canonicalBytes())
	return hex.EncodeToString(sum[:])
}

// canonicalBytes serializes the event sequence into a stable byte string.
//
// Encoding rules:
//   - Events are written in sequence order, one record per event.
//   - Field order is fixed: sequence, stage, agent, input, output, language,
//     serendipity, confidence, alignment_score, translation_quality.
//   - Strings are quoted with strconv.Quote so field separators cannot be
//     forged by event content.
//   - Floats are encoded as fixed 6-decimal strings, never via locale- or
//     shortest-representation formatting.
//   - Timestamps are excluded: they are runtime-dependent and identical
//     event sequences must hash identically regardless of when they were
//     recorded.
//
// The field names and ordering are part of the provenance contract; do not
// reorder or rename.
func (t *Trace) canonicalBytes() []byte {
	var buf bytes.Buffer
	for _, e := range t.events {
		buf.WriteString("event|")
		buf.WriteString(strconv.Itoa(e.Sequence))
		buf.WriteByte('|')
		buf.WriteString(e.Stage.String())
		buf.WriteByte('|')
		buf.WriteString(e.Agent.String())
		buf.WriteByte('|')
		buf.WriteString(strconv.Quote(e.Input))
		buf.WriteByte('|')
		buf.WriteString(strconv.Quote(e.Output))
		buf.WriteByte('|')
		buf.WriteString(strconv.Quote(e.Language))
		buf.WriteByte('|')
		buf.WriteString(canonicalFloat(e.Serendipity))
		buf.WriteByte('|')
		buf.WriteString(canonicalFloat(e.Confidence))
		buf.WriteByte('|')
		buf.WriteString(canonicalOptFloat(e.AlignmentScore))
		buf.WriteByte('|')
		buf.WriteString(canonicalOptFloat(e.TranslationQuality))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func canonicalFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// canonicalOptFloat distinguishes an absent measurement from a zero one.
func canonicalOptFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return canonicalFloat(*v)
}
