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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/scafiti/diskdigler/internal/document"
	"github.com/spf13/cobra"
)

func DefineInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "inspect <document>",
		Short:        "Pretty-print a document produced by decode",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunInspect,
	}
	return cmd
}

func RunInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	fields, _, err := document.Decode(data)
	if err != nil {
		return err
	}

	printFields(cmd.OutOrStdout(), fields, 0)
	return nil
}

func printFields(w io.Writer, fields []*document.Field, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range fields {
		switch v := f.Value.(type) {
		case []*document.Field:
			fmt.Fprintf(w, "%s%s:\n", indent, f.Key)
			printFields(w, v, depth+1)
		case *document.Binary:
			fmt.Fprintf(w, "%s%s: <%d bytes, subtype 0x%02x>\n", indent, f.Key, len(v.Data), v.Subtype)
		default:
			fmt.Fprintf(w, "%s%s: %v\n", indent, f.Key, v)
		}
	}
}
