package graph

import (
	"github.com/born-ml/rmsprop/internal/tensor"
)

// TensorArrayMap maps symbolic tensors to concrete values.
//
// Set stores a handle without releasing what it replaces; the caller decides
// the fate of the previous value. Dispose releases every stored value.
type TensorArrayMap struct {
	dict  map[*SymbolicTensor]*tensor.RawTensor
	order []*SymbolicTensor
}

// NewTensorArrayMap creates an empty map.
func NewTensorArrayMap() *TensorArrayMap {
	return &TensorArrayMap{dict: make(map[*SymbolicTensor]*tensor.RawTensor)}
}

// Set stores value for t.
func (m *TensorArrayMap) Set(t *SymbolicTensor, value *tensor.RawTensor) {
	if _, ok := m.dict[t]; !ok {
		m.order = append(m.order, t)
	}
	m.dict[t] = value
}

// Get returns the value stored for t, or nil.
func (m *TensorArrayMap) Get(t *SymbolicTensor) *tensor.RawTensor {
	return m.dict[t]
}

// Has reports whether t has a value.
func (m *TensorArrayMap) Has(t *SymbolicTensor) bool {
	_, ok := m.dict[t]
	return ok
}

// Delete removes t without releasing its value.
func (m *TensorArrayMap) Delete(t *SymbolicTensor) {
	if _, ok := m.dict[t]; !ok {
		return
	}
	delete(m.dict, t)
	for i, k := range m.order {
		if k == t {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Size returns the number of entries.
func (m *TensorArrayMap) Size() int {
	return len(m.dict)
}

// Keys returns the keys in insertion order.
func (m *TensorArrayMap) Keys() []*SymbolicTensor {
	return append([]*SymbolicTensor(nil), m.order...)
}

// Dispose releases every value and empties the map.
func (m *TensorArrayMap) Dispose() {
	for _, t := range m.order {
		if v := m.dict[t]; v != nil {
			v.Release()
		}
	}
	m.dict = make(map[*SymbolicTensor]*tensor.RawTensor)
	m.order = nil
}

// SummedTensorArrayMap accumulates gradients per symbolic tensor.
type SummedTensorArrayMap struct {
	TensorArrayMap
}

// NewSummedTensorArrayMap creates an empty map.
func NewSummedTensorArrayMap() *SummedTensorArrayMap {
	return &SummedTensorArrayMap{TensorArrayMap: *NewTensorArrayMap()}
}

// Add accumulates value into the entry for t using math.
//
// The map takes ownership of value. When an entry already exists the sum
// replaces it and both operands are released.
func (m *SummedTensorArrayMap) Add(math tensor.Backend, t *SymbolicTensor, value *tensor.RawTensor) {
	prev := m.Get(t)
	if prev == nil {
		m.Set(t, value)
		return
	}
	sum := math.Add(prev, value)
	m.Set(t, sum)
	prev.Release()
	value.Release()
}
