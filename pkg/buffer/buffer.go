// Package buffer holds records fetched since the last flush, one buffer per
// endpoint. Buffers do not deduplicate; that happens once, when a batch is
// merged into its destination file.
package buffer

import "simcollect/pkg/record"

// Buffer is the ordered, in-memory batch for one endpoint.
type Buffer struct {
	records []record.Value
}

// Append adds one record.
func (b *Buffer) Append(v record.Value) {
	b.records = append(b.records, v)
}

// AppendAll adds records in order.
func (b *Buffer) AppendAll(vs []record.Value) {
	b.records = append(b.records, vs...)
}

// Drain returns the buffered records and leaves the buffer empty.
func (b *Buffer) Drain() []record.Value {
	out := b.records
	b.records = nil
	return out
}

// Requeue puts a batch that failed to persist back in front of anything
// appended since it was drained.
func (b *Buffer) Requeue(vs []record.Value) {
	if len(vs) == 0 {
		return
	}
	merged := make([]record.Value, 0, len(vs)+len(b.records))
	merged = append(merged, vs...)
	merged = append(merged, b.records...)
	b.records = merged
}

func (b *Buffer) IsEmpty() bool { return len(b.records) == 0 }

func (b *Buffer) Len() int { return len(b.records) }

// Set keeps one Buffer per endpoint in a fixed order.
type Set struct {
	order   []string
	buffers map[string]*Buffer
}

// NewSet creates empty buffers for the given endpoints. Duplicate ids are
// ignored after their first appearance.
func NewSet(endpoints []string) *Set {
	s := &Set{buffers: make(map[string]*Buffer, len(endpoints))}
	for _, id := range endpoints {
		if _, ok := s.buffers[id]; ok {
			continue
		}
		s.order = append(s.order, id)
		s.buffers[id] = &Buffer{}
	}
	return s
}

// Get returns the buffer for an endpoint, or nil if the endpoint is unknown.
func (s *Set) Get(endpoint string) *Buffer {
	return s.buffers[endpoint]
}

// Endpoints returns endpoint ids in set order.
func (s *Set) Endpoints() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// NonEmpty returns, in set order, the endpoints with buffered records.
func (s *Set) NonEmpty() []string {
	var out []string
	for _, id := range s.order {
		if !s.buffers[id].IsEmpty() {
			out = append(out, id)
		}
	}
	return out
}

// Pending returns the total number of buffered records.
func (s *Set) Pending() int {
	n := 0
	for _, b := range s.buffers {
		n += b.Len()
	}
	return n
}
