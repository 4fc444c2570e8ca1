package record

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// Value is one node of a record. Only the types in this file implement it.
type Value interface {
	recordValue()
}

// Null is the JSON null.
type Null struct{}

// Bool is a JSON boolean.
type Bool bool

// Number holds the literal text of a JSON number so that nothing is lost
// between the wire and the file.
type Number string

// String is a JSON string. It may hold invalid UTF-8 when built from Go
// values; the strict encoder rejects that.
type String string

// Seq is an ordered sequence. Set-like collections are represented as Seq.
type Seq []Value

// Field is one key/value pair of a Map.
type Field struct {
	Key   string
	Value Value
}

// Map is a JSON object in wire order.
type Map []Field

func (Null) recordValue()   {}
func (Bool) recordValue()   {}
func (Number) recordValue() {}
func (String) recordValue() {}
func (Seq) recordValue()    {}
func (Map) recordValue()    {}

// Get returns the value stored under key. When a key appears more than
// once the last occurrence wins.
func (m Map) Get(key string) (Value, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].Key == key {
			return m[i].Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in wire order.
func (m Map) Keys() []string {
	keys := make([]string, len(m))
	for i, f := range m {
		keys[i] = f.Key
	}
	return keys
}

// F is shorthand for building a Field.
func F(key string, v Value) Field {
	return Field{Key: key, Value: v}
}

// Int builds a Number from an integer.
func Int(n int64) Number {
	return Number(strconv.FormatInt(n, 10))
}

// FromGo converts a decoded Go value into a Value. Go maps carry no order,
// so their keys are emitted sorted.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return Number(val.String()), nil
	case int:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case uint:
		return Number(strconv.FormatUint(uint64(val), 10)), nil
	case uint64:
		return Number(strconv.FormatUint(val, 10)), nil
	case float32:
		return Number(strconv.FormatFloat(float64(val), 'g', -1, 32)), nil
	case float64:
		return Number(strconv.FormatFloat(val, 'g', -1, 64)), nil
	case []any:
		seq := make(Seq, len(val))
		for i, elem := range val {
			child, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			seq[i] = child
		}
		return seq, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := make(Map, 0, len(val))
		for _, k := range keys {
			child, err := FromGo(val[k])
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			m = append(m, Field{Key: k, Value: child})
		}
		return m, nil
	}

	// Typed slices and sets (map[T]struct{}) fall through to reflection.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		seq := make(Seq, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			child, err := FromGo(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			seq[i] = child
		}
		return seq, nil
	case reflect.Map:
		if rv.Type().Elem().Size() == 0 {
			seq := make(Seq, 0, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				child, err := FromGo(iter.Key().Interface())
				if err != nil {
					return nil, err
				}
				seq = append(seq, child)
			}
			// Sets have no order; sort by key so equal sets convert equally.
			sort.Slice(seq, func(i, j int) bool {
				return Canonicalize(seq[i]) < Canonicalize(seq[j])
			})
			return seq, nil
		}
	}

	return nil, fmt.Errorf("unsupported record type %T", v)
}

// MustFromGo is FromGo for literals in tests and fixtures.
func MustFromGo(v any) Value {
	out, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return out
}
