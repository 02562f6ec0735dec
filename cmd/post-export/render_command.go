package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/handiism/post-exporter/internal/archive"
	"github.com/handiism/post-exporter/internal/catalog"
	ioutils "github.com/handiism/post-exporter/internal/io"
	"github.com/handiism/post-exporter/internal/model"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var (
		formatKey string
		slideNum  int
		output    string
	)

	cmd := &cobra.Command{
		Use:   "render <post.json>",
		Short: "Render a single slide for one format as a PNG preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			f, err := catalog.Describe(formatKey)
			if err != nil {
				return err
			}
			post, err := model.LoadPost(args[0])
			if err != nil {
				return err
			}
			slides := post.OrderedSlides()
			if slideNum < 1 || slideNum > len(slides) {
				return fmt.Errorf("slide %d out of range (post has %d)", slideNum, len(slides))
			}

			renderer, images, err := newRenderer(settings, filepath.Dir(args[0]))
			if err != nil {
				return err
			}
			img, err := renderer.Render(slides[slideNum-1], f.Width, f.Height)
			if err != nil {
				return fmt.Errorf("render slide %d: %w", slideNum, err)
			}
			data, err := images.EncodePNG(cmd.Context(), img)
			if err != nil {
				return err
			}

			if output == "" {
				brand := post.Brand
				if brand == "" {
					brand = settings.Brand
				}
				output = archive.SingleFileName(brand, f, time.Now())
			}
			if err := ioutils.WriteFile(cmd.Context(), output, data); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %s)\n", output, f.Resolution(), humanize.Bytes(uint64(len(data))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatKey, "format", "f", "instagram_feed", "Format key")
	cmd.Flags().IntVarP(&slideNum, "slide", "s", 1, "Slide number, starting at 1")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output PNG path (default: derived file name)")

	return cmd
}
