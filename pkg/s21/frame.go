// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the s21ctl authors

package s21

// Checksum computes the S21 frame checksum: the modulo-256 sum of the
// command and payload bytes. The value actually placed on the wire may be
// escaped, see wireChecksum.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// wireChecksum applies the escape rule to a raw checksum: a sum equal to
// STX would look like a new frame start mid-message, so ENQ is transmitted
// in its place.
func wireChecksum(sum byte) byte {
	if sum == STX {
		return ENQ
	}
	return sum
}

// checksumMatches reports whether a received checksum byte is acceptable
// for the given raw sum. Mirrors the transmit-side escape: when the sum
// collides with STX the peer sends ENQ instead, and either form is valid.
func checksumMatches(sum, received byte) bool {
	return received == sum || (sum == STX && received == ENQ)
}

// EncodeFrame builds the complete wire form of a frame:
//
//	STX <command> [<payload>] <checksum> ETX
//
// The caller is responsible for command and payload length limits; Send
// validates them before encoding.
func EncodeFrame(command string, payload []byte) []byte {
	frame := make([]byte, 0, 1+len(command)+len(payload)+2)
	frame = append(frame, STX)
	frame = append(frame, command...)
	frame = append(frame, payload...)
	frame = append(frame, wireChecksum(Checksum(frame[1:])))
	frame = append(frame, ETX)
	return frame
}
