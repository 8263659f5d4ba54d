// Package driver defines the boundary between the control core and the
// piezo controller hardware.
//
// The Manager interface models the vendor's device discovery layer and the
// Device interface models a single single-channel piezo controller (KPZ101
// class hardware). The rest of the system depends only on these interfaces,
// never on a vendor SDK, so the core can run against the in-memory Simulator
// in tests and in environments without hardware attached.
//
// Simulator reproduces the externally observable behaviour of the real
// controllers, including the firmware quirk where a disabled output drops to
// zero volts but the controller remembers its last commanded target and jogs
// relative to that target after re-enabling.
package driver
