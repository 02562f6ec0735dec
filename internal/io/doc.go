// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Atomic file writing
//   - Filename sanitization for cross-platform compatibility
//   - Directory creation and cross-process directory locks
//   - Background image loading, cover scaling and PNG encoding
//
// # File Operations
//
//	// Write data to file (parents are created)
//	err := ioutils.WriteFile(ctx, "/exports/file.png", data)
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("/path/to/new/directory")
//
//	// Keep two exports from writing into the same directory
//	lock, err := ioutils.LockDir("/exports")
//	defer lock.Unlock()
//
// # Filename Sanitization
//
// Use SanitizeFileName to remove invalid characters from filenames:
//
//	safe := ioutils.SanitizeFileName("Brand: Spring/Summer") // Returns "Brand_ Spring_Summer"
//
// # Image Processing
//
// The ImageService handles slide background images and PNG output:
//
//	svc := ioutils.NewImageService(postDir)
//	bg, _ := svc.Load("campus.jpg")
//	cover := svc.Cover(bg, 1080, 1920)
//	data, _ := svc.EncodePNG(ctx, cover)
package ioutils
