// Package constants holds shared default values for the resource
// manager and interrupt dispatch core.
package constants

import "math"

// AddrMax is the maximum value of the address space the resource
// manager operates over (spec's ADDR_MAX), modeled as the full range
// of a platform-sized unsigned integer.
const AddrMax uint64 = math.MaxUint64

// DefaultDeferredQueueCapacity is the initial backing-slice capacity
// for the shared deferred-handler queue. The queue grows past this
// under load; it is a hint, not a limit.
const DefaultDeferredQueueCapacity = 32

// DefaultWorkerNiceDelta is the nice value the interrupt worker
// goroutine's OS thread is given via golang.org/x/sys/unix.Setpriority.
// It is set as an absolute value, not added to the current one. Best
// effort: failures to apply it (e.g. missing CAP_SYS_NICE) are logged,
// not fatal.
const DefaultWorkerNiceDelta = -5
