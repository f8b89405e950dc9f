// Package kresource implements the core of an operating-system kernel's
// hardware-resource-management subsystem: a Resource Manager for
// linear address-range allocation (MMIO windows, port I/O, DMA
// channels, IRQ numbers) and an Interrupt Dispatch Engine, a two-stage
// interrupt framework with in-context filter handlers and
// worker-deferred service handlers.
//
// The package is a thin public facade; the algorithms live in
// internal/rman (resource placement, split, coalesce) and internal/intr
// (event dispatch, masking, the deferred-service worker). Callers
// outside this module only ever see the types in this package.
package kresource
