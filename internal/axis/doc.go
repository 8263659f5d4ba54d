// Package axis implements the per-device control core: serial number
// validation, device registry checks and the Controller state machine that
// owns a single piezo controller channel.
//
// A Controller moves through a fixed lifecycle (disconnected, connecting,
// connected with output disabled or enabled, stopped) and gates every
// operator command on that lifecycle plus a non-blocking settle window.
// The firmware needs a short quiet period after each command before it will
// accept the next one; instead of sleeping, the Controller records a settle
// deadline and rejects commands that arrive before it with a typed
// CommandRejectedError so callers can surface the reason.
//
// Controllers are safe for concurrent use. All hardware access goes through
// the driver package interfaces, never a vendor SDK directly.
package axis
