// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/scafiti/diskdigler/internal/disk"
	"github.com/scafiti/diskdigler/internal/logger"
	"github.com/scafiti/diskdigler/internal/pipeline"
	"github.com/spf13/cobra"
)

func DefineDecodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "decode <image> <output>",
		Short:        "Decode an MBR-partitioned disk image into a self-describing document",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunDecode,
	}

	cmd.Flags().Int("max-partitions", 4, "maximum number of MBR partition entries to inspect")
	cmd.Flags().String("log-level", "INFO", "minimum log level (DEBUG, INFO, WARN, ERROR)")

	return cmd
}

func RunDecode(cmd *cobra.Command, args []string) error {
	imagePath := disk.NormalizeVolumePath(args[0])
	outPath := args[1]

	maxPartitions, _ := cmd.Flags().GetInt("max-partitions")
	logLevel, _ := cmd.Flags().GetString("log-level")

	opts := pipeline.Options{
		MaxPartitions: maxPartitions,
		Log:           logger.New(os.Stderr, logger.ParseLevel(logLevel)),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return pipeline.Run(ctx, imagePath, outPath, opts)
}
