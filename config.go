/*
© 2026–present Northrend Labs
ISC License
*/

package subproc

// StdinConfig describes how the child's standard input is provisioned
// (spec.md §6).
type StdinConfig struct {
	kind stdinKind
	// fd is the caller-owned descriptor for StdinFile
	fd int
	// closeAfterSpawn requests the parent-side close of fd after spawn
	closeAfterSpawn bool
	// bufferSize is an optional pipe-buffer size hint for StdinPipe
	bufferSize int
}

type stdinKind uint8

const (
	stdinNone stdinKind = iota
	stdinPipe
	stdinFile
)

// StdinNone redirects the child's stdin from /dev/null
func StdinNone() StdinConfig { return StdinConfig{kind: stdinNone} }

// StdinPipe exposes the child's stdin as an Input the parent writes to.
// bufferSize, if non-zero, is a pipe-buffer size hint (Linux only)
func StdinPipe(bufferSize ...int) StdinConfig {
	var c = StdinConfig{kind: stdinPipe}
	if len(bufferSize) > 0 {
		c.bufferSize = bufferSize[0]
	}
	return c
}

// StdinFile makes the child inherit fd, a caller-owned descriptor, as
// its stdin. If closeAfterSpawn, the parent closes fd once the child has
// been started
func StdinFile(fd int, closeAfterSpawn bool) StdinConfig {
	return StdinConfig{kind: stdinFile, fd: fd, closeAfterSpawn: closeAfterSpawn}
}

// StreamConfig describes how the child's stdout or stderr is
// provisioned (spec.md §6)
type StreamConfig struct {
	kind streamKind
	fd   int
	closeAfterSpawn bool
	bufferSize      int
}

type streamKind uint8

const (
	streamDiscard streamKind = iota
	streamPipe
	streamFile
)

// StreamDiscard redirects the child's stream to /dev/null
func StreamDiscard() StreamConfig { return StreamConfig{kind: streamDiscard} }

// StreamPipe exposes the child's stream as an Output the parent reads
// from. bufferSize, if non-zero, is a pipe-buffer size hint (Linux only)
func StreamPipe(bufferSize ...int) StreamConfig {
	var c = StreamConfig{kind: streamPipe}
	if len(bufferSize) > 0 {
		c.bufferSize = bufferSize[0]
	}
	return c
}

// StreamFile makes the child write to fd, a caller-owned descriptor. If
// closeAfterSpawn, the parent closes fd once the child has been started
func StreamFile(fd int, closeAfterSpawn bool) StreamConfig {
	return StreamConfig{kind: streamFile, fd: fd, closeAfterSpawn: closeAfterSpawn}
}

// ArgValue is one argument: a UTF-8 string or a raw byte string. Bare
// executable arguments are rarely anything but valid UTF-8, but the
// source protocol allows raw bytes, so subproc preserves that as a sum
// type rather than forcing a lossy string conversion
type ArgValue struct {
	str     string
	bytes   []byte
	isBytes bool
}

// Arg wraps a UTF-8 string argument
func Arg(s string) ArgValue { return ArgValue{str: s} }

// ArgBytes wraps a raw byte-string argument
func ArgBytes(b []byte) ArgValue { return ArgValue{bytes: b, isBytes: true} }

// asBytes returns the byte representation of the argument
func (a ArgValue) asBytes() []byte {
	if a.isBytes {
		return a.bytes
	}
	return []byte(a.str)
}

// Arguments is the child's argv, with an optional distinct argv[0]
type Arguments struct {
	// Argv0 overrides argv[0]; if empty, the executable path is used
	Argv0 string
	// Args are argv[1:]
	Args []ArgValue
}

// EnvEntry is one KEY=VALUE environment pair, key and value as raw
// bytes to allow non-UTF-8 values; Env builds the common string case
type EnvEntry struct {
	Key   []byte
	Value []byte
}

// Env builds an EnvEntry from UTF-8 strings
func Env(key, value string) EnvEntry {
	return EnvEntry{Key: []byte(key), Value: []byte(value)}
}

// Environment selects how the child's environment is built (spec.md
// §4.2 step 2).
//   - Inherit: start from the parent's environment, remove any key
//     present in Overrides that has a valid UTF-8 form (non-UTF-8 keys
//     are, verbatim per spec.md's open question, never matched against
//     and so never removed), then append every override followed by
//     the remaining inherited pairs
//   - Custom: emit only Entries
type Environment struct {
	kind      envKind
	Overrides []EnvEntry
	Entries   []EnvEntry
}

type envKind uint8

const (
	envInherit envKind = iota
	envCustom
)

// InheritEnv builds an Environment that starts from the parent's
// environment and applies overrides
func InheritEnv(overrides ...EnvEntry) Environment {
	return Environment{kind: envInherit, Overrides: overrides}
}

// CustomEnv builds an Environment consisting only of entries
func CustomEnv(entries ...EnvEntry) Environment {
	return Environment{kind: envCustom, Entries: entries}
}

// Params are the parameters to Start (spec.md §6)
type Params struct {
	// ExecutablePath is absolute or relative; no PATH search is
	// performed
	ExecutablePath string
	Arguments      Arguments
	Environment    Environment
	Stdin          StdinConfig
	Stdout         StreamConfig
	Stderr         StreamConfig
}
