// Copyright 2021 Compass Systems
// SPDX-License-Identifier: LGPL-3.0-only

package msg

import "strconv"

type ChainId uint64

func (c ChainId) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// ParseChainId parses a decimal chain id as it appears in config files and query strings
func ParseChainId(s string) (ChainId, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ChainId(id), nil
}
