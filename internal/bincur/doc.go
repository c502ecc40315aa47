// Package bincur implements the binary cursor shared by the container
// decoder and the save decoder: a bounds-checked reader over an in-memory
// byte buffer with typed little-endian primitive decoding. Every failure
// carries the exact offset at which it occurred so partially understood
// files can be reported byte range by byte range.
package bincur
