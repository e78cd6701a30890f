// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

// Status is where a tx is in its lifecycle.
type Status string

const (
	Unknown    Status = "Unknown"
	Processing Status = "Processing"
	Accepted   Status = "Accepted"
	Rejected   Status = "Rejected"
)
