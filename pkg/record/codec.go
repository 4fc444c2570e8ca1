package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// EncodingError reports a string that cannot be written as UTF-8.
type EncodingError struct {
	Path string
	Text string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("invalid UTF-8 in string at %s: %q", e.Path, e.Text)
}

// ErrTrailingData is returned when a line holds more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after record")

// Decode parses exactly one JSON value, keeping object keys in wire order
// and numbers as their literal text.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return nil, ErrTrailingData
		}
		return nil, err
	}
	return v, nil
}

// DecodeRecords parses an API response body. An array yields its elements,
// an object yields itself; anything else is rejected.
func DecodeRecords(data []byte) ([]Value, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case Seq:
		return []Value(val), nil
	case Map:
		return []Value{val}, nil
	case Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("response is a bare %s, not a record or list of records", kindName(v))
	}
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return valueFromToken(dec, tok)
}

func valueFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			seq := Seq{}
			for dec.More() {
				child, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				seq = append(seq, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return seq, nil
		case '{':
			m := Map{}
			index := map[string]int{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				child, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				// Repeated keys collapse onto the first position.
				if i, seen := index[key]; seen {
					m[i].Value = child
					continue
				}
				index[key] = len(m)
				m = append(m, Field{Key: key, Value: child})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// Encode writes v as compact JSON without HTML escaping. It fails with
// *EncodingError when any string holds invalid UTF-8.
func Encode(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, "$", false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeLossy is Encode with ill-formed UTF-8 replaced by U+FFFD. It only
// fails on values that have no JSON form at all, such as a NaN Number.
func EncodeLossy(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, "$", true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v Value, path string, lossy bool) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		if !json.Valid([]byte(val)) {
			return fmt.Errorf("invalid number literal %q at %s", string(val), path)
		}
		buf.WriteString(string(val))
	case String:
		return encodeString(buf, string(val), path, lossy)
	case Seq:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, elem, fmt.Sprintf("%s[%d]", path, i), lossy); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Map:
		buf.WriteByte('{')
		for i, f := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			fieldPath := fmt.Sprintf("%s.%s", path, f.Key)
			if err := encodeString(buf, f.Key, fieldPath, lossy); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encodeValue(buf, f.Value, fieldPath, lossy); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported record type %T at %s", v, path)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s, path string, lossy bool) error {
	if !utf8.ValidString(s) {
		if !lossy {
			return &EncodingError{Path: path, Text: s}
		}
		s, _, _ = transform.String(runes.ReplaceIllFormed(), s)
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(out.Bytes(), []byte("\n")))
	return nil
}

func kindName(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Seq:
		return "array"
	case Map:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
