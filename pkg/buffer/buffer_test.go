package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"simcollect/pkg/record"
)

func rec(id int64) record.Value {
	return record.Map{record.F("id", record.Int(id))}
}

func TestBufferAppendDrain(t *testing.T) {
	var b Buffer
	assert.True(t, b.IsEmpty())

	b.Append(rec(1))
	b.AppendAll([]record.Value{rec(1), rec(2)})
	assert.Equal(t, 3, b.Len())

	got := b.Drain()
	assert.Equal(t, []record.Value{rec(1), rec(1), rec(2)}, got)
	assert.True(t, b.IsEmpty())
	assert.Empty(t, b.Drain())
}

func TestBufferDrainIsDetached(t *testing.T) {
	var b Buffer
	b.Append(rec(1))
	got := b.Drain()
	b.Append(rec(9))
	assert.Equal(t, []record.Value{rec(1)}, got)
}

func TestBufferRequeue(t *testing.T) {
	var b Buffer
	b.AppendAll([]record.Value{rec(1), rec(2)})
	batch := b.Drain()
	b.Append(rec(3))

	b.Requeue(batch)
	assert.Equal(t, []record.Value{rec(1), rec(2), rec(3)}, b.Drain())

	b.Requeue(nil)
	assert.True(t, b.IsEmpty())
}

func TestSet(t *testing.T) {
	s := NewSet([]string{"ZH", "EN", "ZH", "R2_H"})
	assert.Equal(t, []string{"ZH", "EN", "R2_H"}, s.Endpoints())
	assert.Nil(t, s.Get("R2_X"))

	require.NotNil(t, s.Get("R2_H"))
	s.Get("R2_H").Append(rec(1))
	s.Get("ZH").AppendAll([]record.Value{rec(1), rec(2)})

	assert.Equal(t, []string{"ZH", "R2_H"}, s.NonEmpty())
	assert.Equal(t, 3, s.Pending())
}
