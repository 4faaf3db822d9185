// Package mpegps inspects the first bytes of an MPEG program stream.
//
// The recorder overwrites its container files in a circle, so an index entry
// can point at bytes that now belong to a newer recording.  A genuine
// recording start is an MPEG-2 pack header followed shortly by a system
// header; anything else is treated as a stale slot.
package mpegps

import (
	"encoding/binary"
	"fmt"
)

// Wire format constants.  These describe the stream as the recorder writes
// it; they are not tunables.
const (
	PackStartCode         uint32 = 0x000001BA
	SystemHeaderStartCode uint32 = 0x000001BB

	// The two most significant bits of the byte after the pack start code
	// are '01' for MPEG-2.
	MPEG2MarkerMask byte = 0xC0
	MPEG2MarkerBits byte = 0x40

	// SystemHeaderSearchLimit is how far past the pack start code the system
	// header may begin.
	//
	// Some valid recordings might not carry a system header this early; those
	// are rejected.
	SystemHeaderSearchLimit = 2048
)

// WindowSize is the number of bytes that callers should read at a segment's
// start offset.
const WindowSize = 4096

// Result is the outcome of `Validate`.
type Result struct {
	Valid   bool
	Reason  string
	Details map[string]string
}

// Validate decides whether the window is the start of a genuine recording.
func Validate(window []byte) Result {
	details := map[string]string{}

	if len(window) < 4 {
		return Result{
			Valid:   false,
			Reason:  fmt.Sprintf("window is too short for a pack start code (%d bytes)", len(window)),
			Details: details,
		}
	}

	packStartCode := binary.BigEndian.Uint32(window[0:4])
	details["packStartCode"] = fmt.Sprintf("0x%08X", packStartCode)
	if packStartCode != PackStartCode {
		return Result{
			Valid:   false,
			Reason:  "invalid or missing pack start code",
			Details: details,
		}
	}

	if len(window) < 5 {
		return Result{
			Valid:   false,
			Reason:  "window is too short for the MPEG-2 marker",
			Details: details,
		}
	}

	marker := window[4]
	details["mpeg2MarkerByte"] = fmt.Sprintf("0x%02X", marker)
	if marker&MPEG2MarkerMask != MPEG2MarkerBits {
		return Result{
			Valid:   false,
			Reason:  "the MPEG-2 marker bits ('01') were not found after the pack start code",
			Details: details,
		}
	}

	position := findSystemHeader(window)
	if position < 0 {
		return Result{
			Valid:   false,
			Reason:  fmt.Sprintf("no system header start code within the first %d bytes", SystemHeaderSearchLimit),
			Details: details,
		}
	}
	details["systemHeaderFoundAt"] = fmt.Sprintf("byte %d", position)

	return Result{
		Valid:   true,
		Reason:  "valid MPEG-PS start",
		Details: details,
	}
}

// findSystemHeader returns the position of the system header start code in
// the `SystemHeaderSearchLimit` bytes following the pack start code, or -1.
func findSystemHeader(window []byte) int {
	limit := SystemHeaderSearchLimit
	if limit > len(window)-4 {
		limit = len(window) - 4
	}
	for i := 4; i <= limit; i++ {
		if binary.BigEndian.Uint32(window[i:i+4]) == SystemHeaderStartCode {
			return i
		}
	}
	return -1
}
