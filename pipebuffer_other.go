/*
© 2026–present Northrend Labs
ISC License
*/

//go:build !linux

package subproc

// setPipeBufferSize is a documented no-op on non-Linux platforms
// (spec.md §4.3, Non-goals: "no persistent pipe size inspection APIs
// beyond the setter")
//   - grounded on the GOOS-split convention of punix/processor.go,
//     the "//go:build !darwin && !linux" catch-all counterpart to
//     punix/processor-linux.go
func setPipeBufferSize(writeFD int, bytes int) (err error) { return nil }
