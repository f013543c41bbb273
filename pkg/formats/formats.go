// Package formats reads and writes the files that carry a probe network from
// the offline build to the runtime: the probe file (SHP) with every probe's
// static data and neighbor links, and the per-vertex probe-ID stream (PID).
//
// Both formats are little-endian and start with a 4-byte magic followed by a
// Major.Minor version.
package formats
