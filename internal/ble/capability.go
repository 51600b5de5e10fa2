package ble

import "strings"

// Capability is the set of operations a characteristic supports.
type Capability uint8

const (
	CapRead Capability = 1 << iota
	CapWrite
	CapWriteNoResponse
	CapNotify
)

// Has reports whether every bit in want is set.
func (c Capability) Has(want Capability) bool {
	return want != 0 && c&want == want
}

// Writable reports whether the characteristic accepts any kind of write.
func (c Capability) Writable() bool {
	return c&(CapWrite|CapWriteNoResponse) != 0
}

// WriteMode picks the write operation to use, preferring acknowledged writes.
// ok is false if the characteristic is not writable.
func (c Capability) WriteMode() (mode WriteMode, ok bool) {
	switch {
	case c.Has(CapWrite):
		return WriteWithResponse, true
	case c.Has(CapWriteNoResponse):
		return WriteWithoutResponse, true
	default:
		return 0, false
	}
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var names []string
	if c.Has(CapRead) {
		names = append(names, "read")
	}
	if c.Has(CapWrite) {
		names = append(names, "write")
	}
	if c.Has(CapWriteNoResponse) {
		names = append(names, "write-without-response")
	}
	if c.Has(CapNotify) {
		names = append(names, "notify")
	}
	return strings.Join(names, "|")
}

// CapabilityFromFlags converts BlueZ GattCharacteristic1 flag strings to a
// Capability. Unknown flags are ignored; "indicate" counts as notify.
func CapabilityFromFlags(flags []string) Capability {
	var c Capability
	for _, f := range flags {
		switch f {
		case "read":
			c |= CapRead
		case "write":
			c |= CapWrite
		case "write-without-response":
			c |= CapWriteNoResponse
		case "notify", "indicate":
			c |= CapNotify
		}
	}
	return c
}
