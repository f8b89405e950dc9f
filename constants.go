package kresource

import "github.com/go-kresource/kresource/internal/constants"

// Re-export package-level defaults for the public API.
const (
	AddrMax                      = constants.AddrMax
	DefaultDeferredQueueCapacity = constants.DefaultDeferredQueueCapacity
	DefaultWorkerNiceDelta       = constants.DefaultWorkerNiceDelta
)
