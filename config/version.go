// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

// Set at link time:
//
//	go build -ldflags "-X github.com/u-root/u-ddr/config.gitVersion=$(git describe)"
var (
	gitVersion = "dev"
	gitHash    = ""
)
