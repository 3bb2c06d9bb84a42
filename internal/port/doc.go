// Package port derives browsable URLs from container port mappings and
// checks local port availability for the coredeck CLI.
//
// The resolver is a pure function of (containers, frontend guess, backend
// guess):
//
//	guessed subdir  → preferred ports in order → its first mapping
//	every container → preferred ports in order → first usable mapping
//
// Frontends prefer 3000 then 5173; backends prefer 8088 then 3001. The
// Scanner probes the OS via net.Listen so the start action can report a
// host port conflict before the backend tries to publish it; the
// Allocator adds a free alternative for each conflicting port.
package port
