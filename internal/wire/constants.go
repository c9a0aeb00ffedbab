package wire

// MaxFrameSize bounds the length prefix of a single frame. A target that
// claims a larger frame is protocol-violating, not merely slow; the codec
// refuses the read rather than allocate an attacker/bug-controlled buffer.
const MaxFrameSize = 16 * 1024 * 1024 // 16 MiB

// initialBufferSize is the starting capacity of a Codec's reusable frame
// buffer (spec.md §4.1: "starting at roughly 1KiB, grown as needed").
const initialBufferSize = 1024
