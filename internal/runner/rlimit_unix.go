package runner

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// setRlimit installs a resource limit pair, matching the CPU/address-space/
// core-dump limits machetli/tools.py installs via Python's resource module.
// Like that module, this is POSIX-only; there is no Windows equivalent of
// RLIMIT_CPU or RLIMIT_AS, so the trampoline (and therefore this whole
// package) is unix-only by design.
func setRlimit(resource int, soft, hard uint64) {
	if err := unix.Setrlimit(resource, &unix.Rlimit{Cur: soft, Max: hard}); err != nil {
		fmt.Fprintf(os.Stderr, "runner trampoline: setrlimit(%d, %d, %d): %v\n", resource, soft, hard, err)
		os.Exit(127)
	}
}
