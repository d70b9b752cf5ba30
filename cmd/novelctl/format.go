// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/taibuivan/truyen/internal/core/formatting"
	"github.com/taibuivan/truyen/pkg/chapterparse"
	"github.com/taibuivan/truyen/pkg/textformat"
)

const (
	flagOutput           = "output"
	flagKeepWatermarks   = "keep-watermarks"
	flagKeepSpecialChars = "keep-special-chars"
	flagKeepEmptyLines   = "keep-empty-lines"
	flagKeepPunctuation  = "keep-punctuation"
	flagWatermark        = "watermark"
)

type formatFlags struct {
	output           string
	keepWatermarks   bool
	keepSpecialChars bool
	keepEmptyLines   bool
	keepPunctuation  bool
	watermarks       []string
}

func newFormatCommand() *cobra.Command {
	flags := &formatFlags{}
	cmd := &cobra.Command{
		Use:   "format <file.txt>",
		Short: "Clean up a TXT novel the same way the format-file jobs do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := flags.options()
			if err != nil {
				return err
			}

			output := flags.output
			if output == "" {
				output = filepath.Join(filepath.Dir(args[0]), formatting.OutputName(filepath.Base(args[0])))
			}

			stats, err := formatFile(args[0], output, options)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d lines in, %d lines out, %d watermark lines removed\n",
				output, stats.LinesIn, stats.LinesOut, stats.WatermarkLines)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.output, flagOutput, "o", "", "output path (default <name>_formatted.txt next to the input)")
	cmd.Flags().BoolVar(&flags.keepWatermarks, flagKeepWatermarks, false, "keep lines matching watermark patterns")
	cmd.Flags().BoolVar(&flags.keepSpecialChars, flagKeepSpecialChars, false, "keep bullets and decorative characters")
	cmd.Flags().BoolVar(&flags.keepEmptyLines, flagKeepEmptyLines, false, "keep runs of empty lines")
	cmd.Flags().BoolVar(&flags.keepPunctuation, flagKeepPunctuation, false, "leave punctuation spacing untouched")
	cmd.Flags().StringSliceVar(&flags.watermarks, flagWatermark, nil, "extra watermark pattern (repeatable)")
	return cmd
}

func (flags *formatFlags) options() (textformat.Options, error) {
	extra, err := textformat.CompileWatermarks(flags.watermarks)
	if err != nil {
		return textformat.Options{}, fmt.Errorf("invalid --%s: %w", flagWatermark, err)
	}

	return textformat.Options{
		RemoveWatermark:    !flags.keepWatermarks,
		RemoveSpecialChars: !flags.keepSpecialChars,
		MergeEmptyLines:    !flags.keepEmptyLines,
		FormatPunctuation:  !flags.keepPunctuation,
		Watermarks:         append(textformat.DefaultWatermarks(), extra...),
	}, nil
}

// formatFile streams input through the formatter into output. The output is
// removed if anything fails.
func formatFile(inputPath, outputPath string, options textformat.Options) (textformat.Stats, error) {
	input, err := os.Open(inputPath)
	if err != nil {
		return textformat.Stats{}, err
	}
	defer input.Close()

	output, err := os.Create(outputPath)
	if err != nil {
		return textformat.Stats{}, err
	}

	formatter := textformat.NewFormatter(options)
	err = errors.Join(writeFormatted(output, input, formatter), output.Close())
	if err != nil {
		_ = os.Remove(outputPath)
		return textformat.Stats{}, err
	}
	return formatter.Stats(), nil
}

func writeFormatted(writer io.Writer, reader io.Reader, formatter *textformat.Formatter) error {
	output := bufio.NewWriter(writer)

	var readErr error
	written := 0
	for line := range chapterparse.Lines(reader, &readErr) {
		formatted, keep := formatter.Line(line)
		if !keep {
			continue
		}
		if written > 0 {
			if err := output.WriteByte('\n'); err != nil {
				return err
			}
		}
		if _, err := output.WriteString(formatted); err != nil {
			return err
		}
		written++
	}

	if readErr != nil {
		return readErr
	}
	return output.Flush()
}
