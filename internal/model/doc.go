// Package model defines the core data structures used throughout
// the post-exporter.
//
// # Formats
//
// FormatDescriptor describes a platform target (label, aspect, pixel size):
//
//	f := catalog.MustDescribe("instagram_feed")
//	fmt.Println(f.Resolution()) // "1080x1080"
//
// # Posts and Slides
//
// A Post is an ordered list of SlideContent produced by the editor. Posts
// with more than one slide are carousels:
//
//	post, err := model.LoadPost("post.json")
//	for _, slide := range post.OrderedSlides() {
//	    fmt.Println(slide.Headline)
//	}
//
// # Jobs and Progress
//
// ExportJob is one export request; ExportRecord is the recorder's
// acknowledgement per format. ProgressState tracks a percentage per selected
// format, from which a Status is derived:
//
//	pending < recording < rendering < packaging < done
package model
