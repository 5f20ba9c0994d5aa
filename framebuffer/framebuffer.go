// Package framebuffer drives legacy /dev/fb mapped-framebuffer devices.
// It is the simpler sibling of the KMS scanout engine: one always-visible
// buffer written in place, with no vertical-blank synchronization and
// therefore no tear-free guarantee.
//
// This requires framebuffer device support in the operating system. The
// device is opened with the [Open] call and exposes its mapped pixel
// memory through Surface, in the same shape the scanout painters consume.
package framebuffer
