// Copyright 2024 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package banks

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/u-root/u-root/pkg/dt"
)

func cells(n *dt.Node, name string, def uint32) (uint32, error) {
	p, ok := n.LookProperty(name)
	if !ok {
		return def, nil
	}
	return p.AsU32()
}

func readCells(b []byte, n uint32) uint64 {
	var v uint64
	for i := uint32(0); i < n; i++ {
		v = v<<32 | uint64(binary.BigEndian.Uint32(b[4*i:]))
	}
	return v
}

func isMemory(n *dt.Node) bool {
	if p, ok := n.LookProperty("device_type"); ok {
		return strings.TrimRight(string(p.Value), "\x00") == "memory"
	}
	return n.Name == "memory" || strings.HasPrefix(n.Name, "memory@")
}

// DeclaredSizeFDT sums the reg ranges of every memory node directly under
// the root. It returns zero when the tree declares no memory.
func DeclaredSizeFDT(fdt *dt.FDT) (uint64, error) {
	root := fdt.RootNode
	if root == nil {
		return 0, nil
	}
	ac, err := cells(root, "#address-cells", 2)
	if err != nil {
		return 0, err
	}
	sc, err := cells(root, "#size-cells", 1)
	if err != nil {
		return 0, err
	}
	if ac > 2 || sc > 2 || sc == 0 {
		return 0, fmt.Errorf("unsupported cell sizes %d/%d", ac, sc)
	}
	entry := int(4 * (ac + sc))

	var total uint64
	for _, n := range root.Children {
		if !isMemory(n) {
			continue
		}
		reg, ok := n.LookProperty("reg")
		if !ok {
			continue
		}
		if len(reg.Value)%entry != 0 {
			return 0, fmt.Errorf("%s: reg is %d bytes, not a multiple of %d", n.Name, len(reg.Value), entry)
		}
		for b := reg.Value; len(b) > 0; b = b[entry:] {
			start := readCells(b, ac)
			size := readCells(b[4*ac:], sc)
			log.Debugf("DDR: %s declares %#x+%#x", n.Name, start, size)
			total += size
		}
	}
	return total, nil
}

// DeclaredSize reads a flattened device tree and returns the memory size
// it declares.
func DeclaredSize(r io.ReadSeeker) (uint64, error) {
	fdt, err := dt.ReadFDT(r)
	if err != nil {
		return 0, fmt.Errorf("reading device tree: %w", err)
	}
	return DeclaredSizeFDT(fdt)
}
