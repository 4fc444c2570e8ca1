package record

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, s string) Value {
	t.Helper()
	v, err := Decode([]byte(s))
	require.NoError(t, err)
	return v
}

func TestCanonicalizeIgnoresKeyOrder(t *testing.T) {
	a := mustDecode(t, `{"id":7,"author":{"name":"x","company":"y"},"body":"hi"}`)
	b := mustDecode(t, `{"body":"hi","author":{"company":"y","name":"x"},"id":7}`)

	assert.Equal(t, Canonicalize(a), Canonicalize(b))
}

func TestCanonicalizeSetEqualsList(t *testing.T) {
	set := map[string]struct{}{"b": {}, "a": {}, "c": {}}
	fromSet, err := FromGo(map[string]any{"tags": set})
	require.NoError(t, err)

	list := mustDecode(t, `{"tags":["a","b","c"]}`)
	assert.Equal(t, Canonicalize(list), Canonicalize(fromSet))
}

func TestCanonicalizeDistinguishes(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"different values", `{"id":1}`, `{"id":2}`},
		{"string vs number", `{"id":"1"}`, `{"id":1}`},
		{"bool vs number", `{"ok":true}`, `{"ok":1}`},
		{"null vs missing", `{"a":null}`, `{}`},
		{"sequence order", `[1,2]`, `[2,1]`},
		{"nesting", `[[1],2]`, `[1,[2]]`},
		{"extra key", `{"a":1}`, `{"a":1,"b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, Canonicalize(mustDecode(t, tt.a)), Canonicalize(mustDecode(t, tt.b)))
		})
	}
}

func TestCanonicalizeNumbers(t *testing.T) {
	same := [][]string{
		{"1", "1.0", "1e0", "10e-1"},
		{"0", "-0", "0.0"},
		{"0.5", "5e-1", "0.50"},
		{"12345678901234567890", "1.2345678901234567890e19"},
	}
	for _, group := range same {
		want := Canonicalize(Number(group[0]))
		for _, lit := range group[1:] {
			assert.Equal(t, want, Canonicalize(Number(lit)), "%s vs %s", group[0], lit)
		}
	}

	assert.NotEqual(t, Canonicalize(Number("1")), Canonicalize(Number("1.000001")))
}

func TestCanonicalizeDeepNesting(t *testing.T) {
	var v Value = Int(1)
	for i := 0; i < 2000; i++ {
		v = Map{F("next", Seq{v})}
	}
	assert.NotPanics(t, func() { _ = Canonicalize(v) })
}

func TestCanonicalizeRepeatedMapKeys(t *testing.T) {
	built := Map{F("a", Int(1)), F("a", Int(2))}
	assert.Equal(t, Canonicalize(mustDecode(t, `{"a":2}`)), Canonicalize(built))
}

func TestDecodeKeepsOrderAndLiterals(t *testing.T) {
	v := mustDecode(t, `{"z":1.50,"a":[true,null,"s"]}`)
	m, ok := v.(Map)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a"}, m.Keys())

	z, ok := m.Get("z")
	require.True(t, ok)
	assert.Equal(t, Number("1.50"), z)

	a, _ := m.Get("a")
	assert.Equal(t, Seq{Bool(true), Null{}, String("s")}, a)
}

func TestDecodeDuplicateKeysLastWins(t *testing.T) {
	v := mustDecode(t, `{"a":1,"b":2,"a":3}`)
	assert.Equal(t, Map{F("a", Number("3")), F("b", Number("2"))}, v)
}

func TestDecodeRejects(t *testing.T) {
	inputs := []string{
		``,
		`   `,
		`{'id': 1}`,
		`{"id":1}{"id":2}`,
		`{"id":1`,
		`[1,]`,
		`None`,
	}
	for _, in := range inputs {
		_, err := Decode([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestDecodeRecords(t *testing.T) {
	recs, err := DecodeRecords([]byte(`[{"id":1},{"id":2}]`))
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = DecodeRecords([]byte(`{"id":1}`))
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	recs, err = DecodeRecords([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = DecodeRecords([]byte(`"hello"`))
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	in := `{"id":1,"body":"<b>hi</b> & bye","meta":{"n":2.50,"tags":[]}}`
	v := mustDecode(t, in)
	out, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestEncodeInvalidUTF8(t *testing.T) {
	v := Map{F("body", String("bad\xffbyte"))}

	_, err := Encode(v)
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "$.body", encErr.Path)

	lossy, err := EncodeLossy(v)
	require.NoError(t, err)
	assert.Equal(t, "{\"body\":\"bad�byte\"}", string(lossy))

	_, err = EncodeLossy(Seq{Number("NaN")})
	assert.Error(t, err)
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{"b": 2, "a": []any{"x", 1.5, nil, true}})
	require.NoError(t, err)
	assert.Equal(t, Map{
		F("a", Seq{String("x"), Number("1.5"), Null{}, Bool(true)}),
		F("b", Number("2")),
	}, v)

	_, err = FromGo(struct{}{})
	assert.Error(t, err)
}

func TestEncodeGolden(t *testing.T) {
	values := []Value{
		mustDecode(t, `{"id":1,"name":"Ann <b>&","tags":["a","b"],"nested":{"ok":true,"none":null}}`),
		Map{F("text", String("line\n\"quoted\" 日本")), F("n", Number("1.50"))},
		Seq{Int(-3), String(""), Map{}},
	}

	var buf bytes.Buffer
	for _, v := range values {
		line, err := Encode(v)
		require.NoError(t, err)
		buf.Write(line)
		buf.WriteByte('\n')
	}

	g := goldie.New(t)
	g.Assert(t, "encoded_records", buf.Bytes())
}
