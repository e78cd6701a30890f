// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package math provides overflow-checked integer arithmetic.
package math

import (
	"errors"

	"github.com/holiman/uint256"
)

// BasisPointsDenominator is the number of basis points in one whole.
const BasisPointsDenominator = 10_000

// Unsigned is a constraint that permits any unsigned integer type.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

var (
	ErrOverflow     = errors.New("overflow")
	ErrUnderflow    = errors.New("underflow")
	ErrDivideByZero = errors.New("divide by zero")
)

// MaxUint returns the maximum value of an unsigned integer of type T.
func MaxUint[T Unsigned]() T {
	return ^T(0)
}

// Add returns a + b, or ErrOverflow.
func Add[T Unsigned](a, b T) (T, error) {
	if a > MaxUint[T]()-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Sub returns a - b, or ErrUnderflow.
func Sub[T Unsigned](a, b T) (T, error) {
	if a < b {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// Mul returns a * b, or ErrOverflow.
func Mul[T Unsigned](a, b T) (T, error) {
	if b != 0 && a > MaxUint[T]()/b {
		return 0, ErrOverflow
	}
	return a * b, nil
}

// SaturatingAdd returns a + b, or the maximum value of T on overflow.
func SaturatingAdd[T Unsigned](a, b T) T {
	sum, err := Add(a, b)
	if err != nil {
		return MaxUint[T]()
	}
	return sum
}

// SaturatingSub returns a - b, or 0 on underflow.
func SaturatingSub[T Unsigned](a, b T) T {
	return a - min(a, b)
}

// SaturatingMul returns a * b, or the maximum value of T on overflow.
func SaturatingMul[T Unsigned](a, b T) T {
	product, err := Mul(a, b)
	if err != nil {
		return MaxUint[T]()
	}
	return product
}

// MulDiv returns floor(a * b / d). The product is computed at 256 bits so
// only the quotient has to fit in a uint64.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivideByZero
	}
	var r uint256.Int
	r.Mul(uint256.NewInt(a), uint256.NewInt(b))
	r.Div(&r, uint256.NewInt(d))
	return ToUint64(&r)
}

// BasisPoints returns floor(amount * bps / 10000).
func BasisPoints(amount, bps uint64) (uint64, error) {
	return MulDiv(amount, bps, BasisPointsDenominator)
}

// ToUint64 narrows x, failing with ErrOverflow if it does not fit.
func ToUint64(x *uint256.Int) (uint64, error) {
	if !x.IsUint64() {
		return 0, ErrOverflow
	}
	return x.Uint64(), nil
}

// MulShift returns (a * b) >> shift where a is a plain integer and b a
// fixed-point value.
func MulShift(a uint64, b *uint256.Int, shift uint) (*uint256.Int, error) {
	r, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(a), b)
	if overflow {
		return nil, ErrOverflow
	}
	return r.Rsh(r, shift), nil
}

// AddInt256 returns a + b, or ErrOverflow.
func AddInt256(a, b *uint256.Int) (*uint256.Int, error) {
	r, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return r, nil
}

// SubInt256 returns a - b, or ErrUnderflow.
func SubInt256(a, b *uint256.Int) (*uint256.Int, error) {
	r, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrUnderflow
	}
	return r, nil
}
