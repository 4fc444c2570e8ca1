package record

import (
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Key is the canonical form of a record. Two records with equal keys are
// duplicates. Keys are compared, never persisted.
type Key string

// Canonicalize returns the canonical key of v. Map key order does not
// affect the result, and numbers that denote the same value (1, 1.0, 1e0)
// produce the same key. Booleans never collide with numbers.
func Canonicalize(v Value) Key {
	var b strings.Builder
	writeCanonical(&b, v)
	return Key(b.String())
}

func writeCanonical(b *strings.Builder, v Value) {
	switch val := v.(type) {
	case nil, Null:
		b.WriteByte('n')
	case Bool:
		if val {
			b.WriteByte('t')
		} else {
			b.WriteByte('f')
		}
	case Number:
		b.WriteByte('#')
		b.WriteString(canonicalNumber(string(val)))
		b.WriteByte(';')
	case String:
		b.WriteByte('s')
		b.WriteString(strconv.Quote(string(val)))
	case Seq:
		b.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, elem)
		}
		b.WriteByte(']')
	case Map:
		fields := collapse(val)
		sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
		b.WriteByte('{')
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(f.Key))
			b.WriteByte(':')
			writeCanonical(b, f.Value)
		}
		b.WriteByte('}')
	}
}

// collapse drops earlier duplicates of a key, keeping the last value.
func collapse(m Map) []Field {
	index := make(map[string]int, len(m))
	out := make([]Field, 0, len(m))
	for _, f := range m {
		if i, ok := index[f.Key]; ok {
			out[i].Value = f.Value
			continue
		}
		index[f.Key] = len(out)
		out = append(out, f)
	}
	return out
}

// canonicalNumber reduces a JSON number literal to its exact rational value.
// Literals outside float64 range keep their lowercased text.
func canonicalNumber(lit string) string {
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if _, err := strconv.ParseFloat(lit, 64); err != nil {
		return strings.ToLower(lit)
	}
	r, ok := new(big.Rat).SetString(lit)
	if !ok {
		return strings.ToLower(lit)
	}
	return r.RatString()
}
