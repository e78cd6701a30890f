// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hashing derives fixed-size digests and addresses.
package hashing

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // address format is fixed

	"github.com/luxfi/ids"
)

const (
	HashLen = sha256.Size
	AddrLen = ripemd160.Size
)

// ComputeHash256Array returns the sha256 digest of buf.
func ComputeHash256Array(buf []byte) [HashLen]byte {
	return sha256.Sum256(buf)
}

// ComputeHash160Array returns the ripemd160 digest of buf.
func ComputeHash160Array(buf []byte) [AddrLen]byte {
	h := ripemd160.New()
	_, _ = h.Write(buf)
	var out [AddrLen]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveID returns a deterministic id for seed under parent.
func DeriveID(seed []byte, parent ids.ID) ids.ID {
	buf := make([]byte, 0, len(seed)+len(parent))
	buf = append(buf, seed...)
	buf = append(buf, parent[:]...)
	return ComputeHash256Array(buf)
}

// DeriveAddress returns a deterministic program-owned address for seed under
// parent. No key exists for it.
func DeriveAddress(seed []byte, parent ids.ID) ids.ShortID {
	digest := ComputeHash256Array(append(append([]byte{}, seed...), parent[:]...))
	return ComputeHash160Array(digest[:])
}
