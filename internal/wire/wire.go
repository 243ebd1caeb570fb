// Package wire carries the five-call session service contract over gRPC.
//
// The messages are small and fixed, so they are hand-encoded with the
// protobuf wire format rather than generated: each type knows how to
// marshal itself and how to skip fields it does not recognize.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every request/response type in this package.
type Message interface {
	MarshalWire() ([]byte, error)
	UnmarshalWire(data []byte) error
}

// Result is the status envelope every response carries.
// Code 0 means success; Msg is only meaningful on failure.
type Result struct {
	Code int32
	Msg  string
}

func (r *Result) MarshalWire() ([]byte, error) {
	var b []byte
	if r.Code != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(r.Code)))
	}
	if r.Msg != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, r.Msg)
	}
	return b, nil
}

func (r *Result) UnmarshalWire(data []byte) error {
	*r = Result{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(field)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			r.Code = int32(v)
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(field)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			r.Msg = s
			return n, nil
		}
		return skipField(num, typ, field)
	})
}

// PingRequest and Pong are both empty on the wire.
type PingRequest struct{}

func (*PingRequest) MarshalWire() ([]byte, error) { return nil, nil }
func (*PingRequest) UnmarshalWire([]byte) error   { return nil }

type Pong struct{}

func (*Pong) MarshalWire() ([]byte, error) { return nil, nil }
func (*Pong) UnmarshalWire([]byte) error   { return nil }

// SetRequest asks the service to create (or attach) a session for a uid.
type SetRequest struct {
	UID int64
}

func (m *SetRequest) MarshalWire() ([]byte, error) {
	var b []byte
	if m.UID != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.UID))
	}
	return b, nil
}

func (m *SetRequest) UnmarshalWire(data []byte) error {
	*m = SetRequest{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num == 1 && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(field)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.UID = int64(v)
			return n, nil
		}
		return skipField(num, typ, field)
	})
}

type SetResponse struct {
	Result  Result
	Session string
}

func (m *SetResponse) MarshalWire() ([]byte, error) {
	b, err := appendResult(nil, &m.Result)
	if err != nil {
		return nil, err
	}
	if m.Session != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, m.Session)
	}
	return b, nil
}

func (m *SetResponse) UnmarshalWire(data []byte) error {
	*m = SetResponse{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeResult(field, &m.Result)
		case num == 2 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(field)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Session = s
			return n, nil
		}
		return skipField(num, typ, field)
	})
}

type GetRequest struct {
	Session string
}

func (m *GetRequest) MarshalWire() ([]byte, error) {
	var b []byte
	if m.Session != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, m.Session)
	}
	return b, nil
}

func (m *GetRequest) UnmarshalWire(data []byte) error {
	*m = GetRequest{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			s, n := protowire.ConsumeString(field)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Session = s
			return n, nil
		}
		return skipField(num, typ, field)
	})
}

type GetResponse struct {
	Result Result
	UID    int64
}

func (m *GetResponse) MarshalWire() ([]byte, error) {
	b, err := appendResult(nil, &m.Result)
	if err != nil {
		return nil, err
	}
	if m.UID != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.UID))
	}
	return b, nil
}

func (m *GetResponse) UnmarshalWire(data []byte) error {
	*m = GetResponse{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeResult(field, &m.Result)
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(field)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.UID = int64(v)
			return n, nil
		}
		return skipField(num, typ, field)
	})
}

type DelRequest struct {
	Session string
}

func (m *DelRequest) MarshalWire() ([]byte, error) {
	var b []byte
	if m.Session != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, m.Session)
	}
	return b, nil
}

func (m *DelRequest) UnmarshalWire(data []byte) error {
	*m = DelRequest{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			s, n := protowire.ConsumeString(field)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Session = s
			return n, nil
		}
		return skipField(num, typ, field)
	})
}

type DelResponse struct {
	Result Result
}

func (m *DelResponse) MarshalWire() ([]byte, error) {
	return appendResult(nil, &m.Result)
}

func (m *DelResponse) UnmarshalWire(data []byte) error {
	*m = DelResponse{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			return consumeResult(field, &m.Result)
		}
		return skipField(num, typ, field)
	})
}

type ReloadRequest struct{}

func (*ReloadRequest) MarshalWire() ([]byte, error) { return nil, nil }
func (*ReloadRequest) UnmarshalWire([]byte) error   { return nil }

type ReloadResponse struct {
	Result Result
}

func (m *ReloadResponse) MarshalWire() ([]byte, error) {
	return appendResult(nil, &m.Result)
}

func (m *ReloadResponse) UnmarshalWire(data []byte) error {
	*m = ReloadResponse{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			return consumeResult(field, &m.Result)
		}
		return skipField(num, typ, field)
	})
}

// appendResult writes a Result as length-delimited field 1.
// The field is always emitted so a zero Code still round-trips explicitly.
func appendResult(b []byte, r *Result) ([]byte, error) {
	inner, err := r.MarshalWire()
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)
	return b, nil
}

func consumeResult(field []byte, r *Result) (int, error) {
	raw, n := protowire.ConsumeBytes(field)
	if n < 0 {
		return n, protowire.ParseError(n)
	}
	if err := r.UnmarshalWire(raw); err != nil {
		return n, err
	}
	return n, nil
}

// walkFields iterates over the top-level fields of a wire buffer, handing
// each one to fn. fn reports how many bytes of the field body it consumed.
func walkFields(data []byte, fn func(num protowire.Number, typ protowire.Type, field []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		m, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		data = data[m:]
	}
	return nil
}

// skipField consumes an unknown field so old and new message revisions
// can coexist on the wire.
func skipField(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, field)
	if n < 0 {
		return n, fmt.Errorf("wire: malformed field %d: %w", num, protowire.ParseError(n))
	}
	return n, nil
}
