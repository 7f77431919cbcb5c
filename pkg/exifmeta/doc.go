// Package exifmeta reads the few EXIF fields the stamping pipeline cares
// about: the capture timestamp (DateTimeOriginal) and the orientation tag.
//
// Missing or unreadable EXIF blocks are reported as ErrNoExif so callers can
// treat them as absent metadata rather than a failure.
package exifmeta
