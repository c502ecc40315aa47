// Package writer serializes decoded containers to ordered JSON
// artifacts on disk, in flat or in-game-path structure layout.
package writer
