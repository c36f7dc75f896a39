/*package particles contains the particle-data store that the neighbor list
reads from: positions, types, tags, and rigid-body ids, along with the
tag-to-index table and the change notifications that tell consumers when that
table has been invalidated.*/
package particles

/* This file contains the typed per-particle fields used by Data. */

import (
	"fmt"
)

// Field is a generic interface around a per-particle array.
type Field interface {
	// Name returns the name of the field.
	Name() string
	// Len returns the length of the underlying array.
	Len() int
	// Data returns the underlying array as an interface{}.
	Data() interface{}
	// Transfer copies the elements at the indices 'from' to the indices 'to'
	// in dest. These indices are passed as arrays to amortize the cost of
	// error handling and type conversion.
	Transfer(dest Field, from, to []int) error
	// CreateDestination creates an empty field with the same name and type
	// and with length n.
	CreateDestination(n int) Field
}

// Type assertions
var (
	_ Field = &Uint32{}
	_ Field = &Int32{}
	_ Field = &Vec64{}
)

func checkTransfer(name string, from, to []int, srcLen, destLen int) error {
	if len(from) != len(to) {
		return fmt.Errorf("'from' index array has length %d, but 'to' has length %d.", len(from), len(to))
	}
	for i := range from {
		if from[i] < 0 || from[i] >= srcLen {
			return fmt.Errorf("Field '%s' has length %d, but 'from' contains index %d.", name, srcLen, from[i])
		} else if to[i] < 0 || to[i] >= destLen {
			return fmt.Errorf("Destination of field '%s' has length %d, but 'to' contains index %d.", name, destLen, to[i])
		}
	}
	return nil
}

// Uint32 implements the Field interface for []uint32 data. See the Field
// interface for documentation of this struct's methods.
type Uint32 struct {
	name string
	data []uint32
}

// NewUint32 creates a field with a given name assoicated with a given array.
func NewUint32(name string, x []uint32) *Uint32 {
	return &Uint32{name, x}
}

func (x *Uint32) Name() string      { return x.name }
func (x *Uint32) Len() int          { return len(x.data) }
func (x *Uint32) Data() interface{} { return x.data }

func (x *Uint32) CreateDestination(n int) Field {
	return NewUint32(x.name, make([]uint32, n))
}

func (x *Uint32) Transfer(dest Field, from, to []int) error {
	destData, ok := dest.Data().([]uint32)
	if !ok {
		return fmt.Errorf("Field '%s' in destination does not have []uint32 type, as expected.", x.name)
	}
	if err := checkTransfer(x.name, from, to, len(x.data), len(destData)); err != nil {
		return err
	}

	for i := range from {
		destData[to[i]] = x.data[from[i]]
	}
	return nil
}

// Int32 implements the Field interface for []int32 data. See the Field
// interface for documentation of this struct's methods.
type Int32 struct {
	name string
	data []int32
}

// NewInt32 creates a field with a given name assoicated with a given array.
func NewInt32(name string, x []int32) *Int32 {
	return &Int32{name, x}
}

func (x *Int32) Name() string      { return x.name }
func (x *Int32) Len() int          { return len(x.data) }
func (x *Int32) Data() interface{} { return x.data }

func (x *Int32) CreateDestination(n int) Field {
	return NewInt32(x.name, make([]int32, n))
}

func (x *Int32) Transfer(dest Field, from, to []int) error {
	destData, ok := dest.Data().([]int32)
	if !ok {
		return fmt.Errorf("Field '%s' in destination does not have []int32 type, as expected.", x.name)
	}
	if err := checkTransfer(x.name, from, to, len(x.data), len(destData)); err != nil {
		return err
	}

	for i := range from {
		destData[to[i]] = x.data[from[i]]
	}
	return nil
}

// Vec64 implements the Field interface for [][3]float64 data. See the Field
// interface for documentation of this struct's methods.
type Vec64 struct {
	name string
	data [][3]float64
}

// NewVec64 creates a field with a given name assoicated with a given array.
func NewVec64(name string, x [][3]float64) *Vec64 {
	return &Vec64{name, x}
}

func (x *Vec64) Name() string      { return x.name }
func (x *Vec64) Len() int          { return len(x.data) }
func (x *Vec64) Data() interface{} { return x.data }

func (x *Vec64) CreateDestination(n int) Field {
	return NewVec64(x.name, make([][3]float64, n))
}

func (x *Vec64) Transfer(dest Field, from, to []int) error {
	destData, ok := dest.Data().([][3]float64)
	if !ok {
		return fmt.Errorf("Field '%s' in destination does not have [][3]float64 type, as expected.", x.name)
	}
	if err := checkTransfer(x.name, from, to, len(x.data), len(destData)); err != nil {
		return err
	}

	for i := range from {
		destData[to[i]] = x.data[from[i]]
	}
	return nil
}
