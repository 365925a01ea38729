package checkpoint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/rmsprop/internal/tensor"
)

// Validation limits for decoded records.
const (
	MaxTensorNameLen = 4096
	MaxRank          = 32
)

// Codec errors.
var (
	ErrChecksumMismatch = errors.New("checksum mismatch: record may be corrupted")
	ErrInvalidRecord    = errors.New("invalid tensor record")
)

// Record is the stored form of one tensor.
type Record struct {
	Name     string
	DType    string
	Shape    string // JSON array
	Checksum []byte // SHA-256 of Payload
	Payload  []byte // little-endian elements
}

// EncodeTensor converts t into a Record.
func EncodeTensor(name string, t *tensor.RawTensor) (Record, error) {
	if name == "" || len(name) > MaxTensorNameLen {
		return Record{}, errors.Wrapf(ErrInvalidRecord, "tensor name length %d", len(name))
	}
	shape, err := json.Marshal([]int(t.Shape()))
	if err != nil {
		return Record{}, errors.Wrapf(err, "encode shape of %q", name)
	}

	var payload []byte
	switch t.DType() {
	case tensor.Float32:
		payload = make([]byte, 0, 4*t.NumElements())
		for _, v := range t.AsFloat32() {
			payload = binary.LittleEndian.AppendUint32(payload, math.Float32bits(v))
		}
	case tensor.Float64:
		payload = make([]byte, 0, 8*t.NumElements())
		for _, v := range t.AsFloat64() {
			payload = binary.LittleEndian.AppendUint64(payload, math.Float64bits(v))
		}
	default:
		return Record{}, errors.Wrapf(ErrInvalidRecord, "unsupported dtype %s for %q", t.DType(), name)
	}

	sum := sha256.Sum256(payload)
	return Record{
		Name:     name,
		DType:    t.DType().String(),
		Shape:    string(shape),
		Checksum: sum[:],
		Payload:  payload,
	}, nil
}

// DecodeTensor rebuilds a tensor from rec using alloc.
// The caller owns the result.
func DecodeTensor(alloc tensor.Allocator, rec Record) (*tensor.RawTensor, error) {
	dtype, ok := tensor.ParseDataType(rec.DType)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidRecord, "%q: unknown dtype %q", rec.Name, rec.DType)
	}

	var shape tensor.Shape
	if err := json.Unmarshal([]byte(rec.Shape), &shape); err != nil {
		return nil, errors.Wrapf(ErrInvalidRecord, "%q: shape: %v", rec.Name, err)
	}
	if len(shape) > MaxRank {
		return nil, errors.Wrapf(ErrInvalidRecord, "%q: rank %d exceeds %d", rec.Name, len(shape), MaxRank)
	}
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrapf(ErrInvalidRecord, "%q: %v", rec.Name, err)
	}
	if want := shape.NumElements() * dtype.Size(); want != len(rec.Payload) {
		return nil, errors.Wrapf(ErrInvalidRecord, "%q: payload is %d bytes, want %d", rec.Name, len(rec.Payload), want)
	}

	sum := sha256.Sum256(rec.Payload)
	if string(sum[:]) != string(rec.Checksum) {
		return nil, errors.Wrapf(ErrChecksumMismatch, "%q", rec.Name)
	}

	t, err := alloc.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %q", rec.Name)
	}
	switch dtype {
	case tensor.Float32:
		dst := t.AsFloat32()
		for i := range dst {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(rec.Payload[4*i:]))
		}
	case tensor.Float64:
		dst := t.AsFloat64()
		for i := range dst {
			dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(rec.Payload[8*i:]))
		}
	default:
		t.Release()
		return nil, errors.Wrapf(ErrInvalidRecord, "%q: unsupported dtype %s", rec.Name, dtype)
	}
	return t, nil
}

func (r Record) String() string {
	return fmt.Sprintf("%s[%s]%s (%d bytes)", r.Name, r.DType, r.Shape, len(r.Payload))
}
