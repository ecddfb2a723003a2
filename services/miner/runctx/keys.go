// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runctx

// Contract keys shared by the miner stages. Keys owned by a single
// package (mined paths, pattern stats) are declared next to their types.
var (
	// KeyDataset is the active dataset identifier. Required.
	KeyDataset = NewKey[string]("miner.dataset")

	// KeyMaxDepth bounds neighborhood isolation and path distance.
	KeyMaxDepth = NewKey[int]("miner.path.maxDepth")

	// KeyRounds bounds the number of path-variant search rounds.
	KeyRounds = NewKey[int]("miner.path.rounds")
)
