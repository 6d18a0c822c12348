// Copyright (C) The StrandLabs Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	strandlabs "github.com/zacksiegfried/StrandLabs"
)

func main() {
	strandlabs.Main()
}
