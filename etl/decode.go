package etl

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// ReadRecords decodes a JSON array of objects from r into a Frame.
//
// Keys become columns in first-appearance order. A key absent from a record
// yields a nil cell. When a key repeats inside one record the last value
// wins. An empty array yields an empty Frame with no columns.
func ReadRecords(r io.Reader) (*Frame, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err == io.EOF {
		return nil, errors.NewValueError("ReadRecords", "empty input, expected a JSON array of records")
	}
	if err != nil {
		return nil, decodeError(err, dec)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, errors.NewValueError("ReadRecords", fmt.Sprintf("expected a JSON array of records, got %v", tok))
	}

	b := newFrameBuilder()
	for row := 0; dec.More(); row++ {
		tok, err := dec.Token()
		if err != nil {
			return nil, decodeError(err, dec)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, errors.NewValueError("ReadRecords", fmt.Sprintf("record %d is not a JSON object", row))
		}
		b.startRow()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, decodeError(err, dec)
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, errors.NewValueError("ReadRecords", fmt.Sprintf("record %d: unexpected token %v", row, keyTok))
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, decodeError(err, dec)
			}
			cell, err := normalize(v)
			if err != nil {
				return nil, errors.Wrapf(err, "record %d field %q", row, key)
			}
			b.set(key, cell)
		}
		// closing '}'
		if _, err := dec.Token(); err != nil {
			return nil, decodeError(err, dec)
		}
	}
	// closing ']'
	if _, err := dec.Token(); err != nil {
		return nil, decodeError(err, dec)
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, decodeError(err, dec)
		}
		return nil, errors.NewValueError("ReadRecords", fmt.Sprintf("unexpected trailing data %v after records", tok))
	}
	return b.frame(), nil
}

// normalize converts json.Number to float64, recursing into nested values.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, errors.Wrapf(err, "number %s", x.String())
		}
		return f, nil
	case map[string]any:
		for k, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			x[k] = n
		}
		return x, nil
	case []any:
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			x[i] = n
		}
		return x, nil
	default:
		return v, nil
	}
}

func decodeError(err error, dec *json.Decoder) error {
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return errors.Wrapf(io.ErrUnexpectedEOF, "decode records: truncated input at offset %d", dec.InputOffset())
	}
	return errors.Wrapf(err, "decode records at offset %d", dec.InputOffset())
}
