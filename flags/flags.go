// Package flags maps fsevents flag bitmasks to human-readable names.
//
// Two vocabularies are maintained: the primary one used by FSEParser-style
// tooling and the alternate one used by the mac_apt convention. Renderings are
// memoized in a process-lifetime concurrent cache, so the per-bitmask string
// build cost is paid once per distinct bitmask ever observed.
package flags

import (
	"fmt"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// Separator joins flag names in rendered text.
const Separator = " | "

type entry struct {
	name string
	bits uint32
}

// Primary vocabulary. Rendering order is declaration order, not bit order.
var table = [...]entry{
	{"FolderEvent", 0x0000_0001},
	{"Mount", 0x0000_0002},
	{"Unmount", 0x0000_0004},
	{"EndOfTransaction", 0x0000_0020},
	{"LastHardLinkRemoved", 0x0000_0800},
	{"HardLink", 0x0000_1000},
	{"SymbolicLink", 0x0000_4000},
	{"FileEvent", 0x0000_8000},
	{"PermissionChange", 0x0001_0000},
	{"ExtendedAttrModified", 0x0002_0000},
	{"ExtendedAttrRemoved", 0x0004_0000},
	{"DocumentRevisioning", 0x0010_0000},
	{"ItemCloned", 0x0040_0000},
	{"Created", 0x0100_0000},
	{"Removed", 0x0200_0000},
	{"InodeMetaMod", 0x0400_0000},
	{"Renamed", 0x0800_0000},
	{"Modified", 0x1000_0000},
	{"Exchange", 0x2000_0000},
	{"FinderInfoMod", 0x4000_0000},
	{"FolderCreated", 0x8000_0000},
}

// Alternate vocabulary (mac_apt bit assignments).
var altTable = [...]entry{
	{"Created", 0x0000_0001},
	{"Removed", 0x0000_0002},
	{"InodeMetaMod", 0x0000_0004},
	{"RenamedOrMoved", 0x0000_0008},
	{"Modified", 0x0000_0010},
	{"Exchange", 0x0000_0020},
	{"FinderInfoMod", 0x0000_0040},
	{"FolderCreated", 0x0000_0080},
	{"PermissionChange", 0x0000_0100},
	{"XAttrModified", 0x0000_0200},
	{"XAttrRemoved", 0x0000_0400},
	{"0x00000800", 0x0000_0800},
	{"DocumentRevision", 0x0000_1000},
	{"ItemCloned", 0x0000_4000},
	{"LastHardLinkRemoved", 0x0008_0000},
	{"HardLink", 0x0010_0000},
	{"SymbolicLink", 0x0040_0000},
	{"FileEvent", 0x0080_0000},
	{"FolderEvent", 0x0100_0000},
	{"Mount", 0x0200_0000},
	{"Unmount", 0x0400_0000},
	{"EndOfTransaction", 0x2000_0000},
}

// Strings holds the canonical renderings for one bitmask. Values returned by
// Render are shared and must not be mutated.
type Strings struct {
	Norm string
	Alt  string
}

var cache = xsync.NewMapOf[uint32, *Strings]()

// Render returns the rendered flag text for bits, in both vocabularies.
// Repeated calls for the same bitmask return the identical *Strings, so
// callers may compare by pointer. Safe for concurrent use.
func Render(bits uint32) *Strings {
	if s, ok := cache.Load(bits); ok {
		return s
	}
	s, _ := cache.LoadOrCompute(bits, func() *Strings {
		return build(bits)
	})
	return s
}

func build(bits uint32) *Strings {
	var norm, alt strings.Builder

	for _, e := range table {
		if bits&e.bits == e.bits {
			if norm.Len() > 0 {
				norm.WriteString(Separator)
			}
			norm.WriteString(e.name)
		}
	}
	for _, e := range altTable {
		if bits&e.bits == e.bits {
			if alt.Len() > 0 {
				alt.WriteString(Separator)
			}
			alt.WriteString(e.name)
		}
	}

	return &Strings{Norm: norm.String(), Alt: alt.String()}
}

// BitsFor looks up a flag's bit value by name, case-insensitively, in the
// primary vocabulary.
func BitsFor(name string) (uint32, bool) {
	for _, e := range table {
		if strings.EqualFold(e.name, name) {
			return e.bits, true
		}
	}
	return 0, false
}

// Mask resolves a set of flag names to their combined bitmask. An unknown
// name is a configuration error.
func Mask(names []string) (uint32, error) {
	var mask uint32
	for _, name := range names {
		bits, ok := BitsFor(name)
		if !ok {
			return 0, fmt.Errorf("unknown flag name %q", name)
		}
		mask |= bits
	}
	return mask, nil
}

// Names returns the primary vocabulary's flag names in declaration order.
func Names() []string {
	out := make([]string, len(table))
	for i, e := range table {
		out[i] = e.name
	}
	return out
}
