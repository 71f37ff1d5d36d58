package domain

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

var (
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	ErrZeroQuantity     = errors.New("quantity must be positive")
)

// Quantity represents a non-negative stock count
type Quantity struct {
	value int
}

// NewQuantity creates a Quantity, rejecting negative values
func NewQuantity(value int) (Quantity, error) {
	if value < 0 {
		return Quantity{}, ErrNegativeQuantity
	}
	return Quantity{value: value}, nil
}

// NewPositiveQuantity creates a Quantity that must be strictly positive,
// used for reservation amounts
func NewPositiveQuantity(value int) (Quantity, error) {
	if value <= 0 {
		return Quantity{}, ErrZeroQuantity
	}
	return Quantity{value: value}, nil
}

// ZeroQuantity creates a zero quantity
func ZeroQuantity() Quantity {
	return Quantity{value: 0}
}

// Value returns the underlying count
func (q Quantity) Value() int {
	return q.value
}

// IsZero returns true if the quantity is zero
func (q Quantity) IsZero() bool {
	return q.value == 0
}

// Add adds two quantities
func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{value: q.value + other.value}
}

// Subtract subtracts other from this quantity, failing rather than going negative
func (q Quantity) Subtract(other Quantity) (Quantity, error) {
	if q.value < other.value {
		return Quantity{}, ErrNegativeQuantity
	}
	return Quantity{value: q.value - other.value}, nil
}

// GreaterOrEqual checks if this quantity covers other
func (q Quantity) GreaterOrEqual(other Quantity) bool {
	return q.value >= other.value
}

// String returns a string representation of the quantity
func (q Quantity) String() string {
	return fmt.Sprintf("%d", q.value)
}

// MarshalBSONValue implements bson.ValueMarshaler, persisting as a plain int
func (q Quantity) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(int32(q.value))
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler
func (q *Quantity) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var raw int32
	if err := bson.UnmarshalValue(t, data, &raw); err != nil {
		// Older documents may carry int64 counters
		var wide int64
		if err64 := bson.UnmarshalValue(t, data, &wide); err64 != nil {
			return err
		}
		q.value = int(wide)
		return nil
	}
	q.value = int(raw)
	return nil
}
