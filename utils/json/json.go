// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package json provides JSON encodings for API numeric types.
package json

import "strconv"

const Null = "null"

// Uint64 is a uint64 that is JSON marshaled as a string so that clients
// without 64-bit integers do not lose precision.
type Uint64 uint64

func (u Uint64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(u), 10))), nil
}

func (u *Uint64) UnmarshalJSON(b []byte) error {
	str, ok := unquote(b)
	if !ok {
		return nil
	}
	val, err := strconv.ParseUint(str, 10, 64)
	*u = Uint64(val)
	return err
}

// Uint8 is a uint8 marshaled as a plain JSON number.
type Uint8 uint8

func (u Uint8) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(u), 10)), nil
}

func (u *Uint8) UnmarshalJSON(b []byte) error {
	str, ok := unquote(b)
	if !ok {
		return nil
	}
	val, err := strconv.ParseUint(str, 10, 8)
	*u = Uint8(val)
	return err
}

// unquote strips optional surrounding quotes. It returns false for null.
func unquote(b []byte) (string, bool) {
	str := string(b)
	if str == Null {
		return "", false
	}
	if n := len(str); n >= 2 && str[0] == '"' && str[n-1] == '"' {
		str = str[1 : n-1]
	}
	return str, true
}
