package sle

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ugorji/go/codec"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrowd/internal/types"
)

var (
	// ErrShortEntry is returned for data too short to carry an entry header
	ErrShortEntry = errors.New("ledger entry too short")

	// ErrWrongEntryType is returned when data holds a different entry type than requested
	ErrWrongEntryType = errors.New("unexpected ledger entry type")

	// ErrUnknownEntryType is returned when the header names no known type
	ErrUnknownEntryType = errors.New("unknown ledger entry type")
)

// Entry is implemented by every ledger entry.
type Entry interface {
	EntryType() entry.Type

	// SetPreviousTxnID threads the entry to the transaction that last touched it.
	SetPreviousTxnID(txHash types.Hash)

	// Fields returns the entry as a flat field map for metadata and RPC output.
	Fields() map[string]any
}

var msgpackHandle = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.Canonical = true
	h.WriteExt = true
	return h
}()

// Serialize encodes an entry as a 2-byte big-endian type header followed
// by its msgpack body.
func Serialize(e Entry) ([]byte, error) {
	var body []byte
	if err := codec.NewEncoderBytes(&body, msgpackHandle).Encode(e); err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.EntryType(), err)
	}

	out := make([]byte, 2, 2+len(body))
	binary.BigEndian.PutUint16(out, uint16(e.EntryType()))
	return append(out, body...), nil
}

// EntryTypeOf reads the type header of serialized entry data.
func EntryTypeOf(data []byte) (entry.Type, error) {
	if len(data) < 2 {
		return 0, ErrShortEntry
	}
	return entry.Type(binary.BigEndian.Uint16(data[:2])), nil
}

// Decode parses serialized entry data into the concrete entry type named
// by its header.
func Decode(data []byte) (Entry, error) {
	t, err := EntryTypeOf(data)
	if err != nil {
		return nil, err
	}

	var e Entry
	switch t {
	case entry.TypeAccountRoot:
		e = &AccountRoot{}
	case entry.TypeAsset:
		e = &Asset{}
	case entry.TypeHolding, entry.TypeVault:
		e = &Holding{}
	case entry.TypeEscrow:
		e = &Escrow{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntryType, t)
	}

	if err := decodeBody(data, e); err != nil {
		return nil, err
	}
	return e, nil
}

func decodeInto(data []byte, want entry.Type, e Entry) error {
	t, err := EntryTypeOf(data)
	if err != nil {
		return err
	}
	if t != want {
		return fmt.Errorf("%w: want %s, got %s", ErrWrongEntryType, want, t)
	}
	return decodeBody(data, e)
}

func decodeBody(data []byte, e Entry) error {
	dec := codec.NewDecoderBytes(data[2:], msgpackHandle)
	if err := dec.Decode(e); err != nil {
		return fmt.Errorf("decode %s: %w", e.EntryType(), err)
	}
	return nil
}

// ThreadEntry sets PreviousTxnID on serialized entry data and returns the
// re-encoded entry.
func ThreadEntry(data []byte, txHash types.Hash) ([]byte, error) {
	e, err := Decode(data)
	if err != nil {
		return nil, err
	}
	e.SetPreviousTxnID(txHash)
	return Serialize(e)
}

// FieldsOf decodes entry data into its field map.
func FieldsOf(data []byte) (entry.Type, map[string]any, error) {
	e, err := Decode(data)
	if err != nil {
		return 0, nil, err
	}
	return e.EntryType(), e.Fields(), nil
}
