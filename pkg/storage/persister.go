package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	errs "simcollect/pkg/errors"
	"simcollect/pkg/logger"
	"simcollect/pkg/record"
)

// FlushReason tells the persister why a batch is being written.
type FlushReason int

const (
	// FlushPeriodic is the regular flush every save interval.
	FlushPeriodic FlushReason = iota
	// FlushFinal is the flush performed while the session shuts down.
	FlushFinal
)

func (r FlushReason) String() string {
	if r == FlushFinal {
		return "final"
	}
	return "periodic"
}

// FlushRequest is one endpoint's batch and its destination.
type FlushRequest struct {
	Endpoint string
	Records  []record.Value
	Path     string
	Reason   FlushReason
}

// FlushResult reports what a flush wrote.
type FlushResult struct {
	Path     string
	Existing int
	Incoming int
	Written  int
	Degraded bool
}

// Persister merges batches into destination files.
type Persister struct {
	log    *ActionLog
	logger logger.Logger
}

// NewPersister creates a persister recording its writes in actionLog.
func NewPersister(actionLog *ActionLog, log logger.Logger) *Persister {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Persister{log: actionLog, logger: log}
}

// Flush merges req.Records into req.Path. Existing lines come first, then
// the new batch; records with the same canonical key collapse onto the
// first position with the last value. The file is rewritten atomically.
//
// A read or parse failure of the existing file, or a write failure, is
// returned and nothing is logged as saved. The caller still owns the batch.
func (p *Persister) Flush(req FlushRequest) (*FlushResult, error) {
	existing, err := ReadRecords(req.Path)
	if err != nil {
		var typed *errs.Error
		if errors.As(err, &typed) {
			typed.Endpoint = req.Endpoint
			return nil, typed
		}
		return nil, &errs.Error{Type: errs.ErrorTypeStorage, Endpoint: req.Endpoint, Message: "failed to read " + req.Path, Err: err}
	}

	all := make([]record.Value, 0, len(existing)+len(req.Records))
	all = append(all, existing...)
	all = append(all, req.Records...)
	unique := Dedupe(all)

	data, degraded, err := encodeLines(unique)
	if err != nil {
		return nil, &errs.Error{Type: errs.ErrorTypeFormat, Endpoint: req.Endpoint, Message: "batch holds a value with no JSON form", Err: err}
	}
	if err := writeAtomic(req.Path, data); err != nil {
		return nil, &errs.Error{Type: errs.ErrorTypeStorage, Endpoint: req.Endpoint, Message: "failed to write " + req.Path, Err: err}
	}

	result := &FlushResult{
		Path:     req.Path,
		Existing: len(existing),
		Incoming: len(req.Records),
		Written:  len(unique),
		Degraded: degraded,
	}

	fields := map[string]interface{}{
		"endpoint": req.Endpoint,
		"path":     req.Path,
		"existing": result.Existing,
		"incoming": result.Incoming,
		"written":  result.Written,
		"reason":   req.Reason.String(),
	}
	if degraded {
		p.logger.WarnWithFields("Degraded write: invalid characters replaced", fields)
		p.appendLog(fmt.Sprintf("degraded write to %s, invalid characters replaced", req.Path))
	} else {
		p.logger.DebugWithFields("Batch merged", fields)
	}

	if req.Reason == FlushFinal {
		p.appendLog(fmt.Sprintf("saved data to %s before shutdown", req.Path))
	} else {
		p.appendLog(fmt.Sprintf("saved data to %s", req.Path))
	}

	return result, nil
}

// appendLog records an event. The batch is already durable at this point,
// so a failure here is reported but does not fail the flush.
func (p *Persister) appendLog(message string) {
	if p.log == nil {
		return
	}
	if err := p.log.Append(message); err != nil {
		p.logger.WithError(err).Error("Failed to append action log")
	}
}

// ReadRecords loads a batch file. A missing file is empty history. Any line
// that is not exactly one JSON value, blank lines included, is a format error.
func ReadRecords(path string) ([]record.Value, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []record.Value
	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, readErr := r.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, readErr
		}
		if readErr == io.EOF && len(line) == 0 {
			break
		}

		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		v, err := record.Decode(line)
		if err != nil {
			return nil, &errs.Error{
				Type:    errs.ErrorTypeFormat,
				Message: fmt.Sprintf("%s line %d is not a valid record", path, lineNo),
				Err:     err,
			}
		}
		out = append(out, v)

		if readErr == io.EOF {
			break
		}
	}
	return out, nil
}

// Dedupe collapses records with equal canonical keys. The surviving value is
// the last one seen, kept at the position of the first.
func Dedupe(records []record.Value) []record.Value {
	index := make(map[record.Key]int, len(records))
	out := make([]record.Value, 0, len(records))
	for _, v := range records {
		key := record.Canonicalize(v)
		if i, ok := index[key]; ok {
			out[i] = v
			continue
		}
		index[key] = len(out)
		out = append(out, v)
	}
	return out
}

// encodeLines renders one record per line with a final newline. If any
// string cannot be encoded strictly, every line is re-encoded lossily.
func encodeLines(records []record.Value) ([]byte, bool, error) {
	var buf bytes.Buffer
	for _, v := range records {
		line, err := record.Encode(v)
		var encErr *record.EncodingError
		if errors.As(err, &encErr) {
			data, err := encodeLinesLossy(records)
			return data, true, err
		}
		if err != nil {
			return nil, false, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), false, nil
}

func encodeLinesLossy(records []record.Value) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range records {
		line, err := record.EncodeLossy(v)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
