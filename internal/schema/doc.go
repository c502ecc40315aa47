// Package schema holds the format schema registry: the mapping from record
// type tags observed in .gin byte streams to known field layouts. The
// registry is assembled once at startup (a compiled-in table of
// accumulated reverse-engineering knowledge, optionally refined by
// user-supplied HCL schema files) and sealed before any decoding begins.
// Immutability after sealing is the invariant that lets every concurrent
// decode worker share the registry without locking.
package schema
