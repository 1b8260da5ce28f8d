/*
Copyright 2025 The Crossplane Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
// Package status implements the command for checking and converting status
// text as it is recorded in result files.
package status

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/crossplane-contrib/xconform/internal/engine"
)

// Cmd arguments and flags for converting status text.
type Cmd struct {
	// Arguments.
	Texts []string `arg:"" help:"Status texts such as 'Failed. exit code 1'. If none are given, one text per line is read from stdin." optional:""`

	// Flags.
	Encode bool `help:"Print the status in its recorded, ASCII-only form instead of its parts." xor:"mode"`
	Decode bool `help:"Read the texts in their recorded form and print them decoded."          xor:"mode"`

	in io.Reader
}

// Help returns help message for the status command.
func (c *Cmd) Help() string {
	return `
Parse status texts, report their type and normalized reason, and convert
them to and from the ASCII-only form used in result files.

Examples:

  # Show the parts of a status
  xconform-helpers status 'Failed.   exit code 1'

  # Encode a reason with non-ASCII characters
  xconform-helpers status --encode 'Error. café unreachable'

  # Decode the status lines of recorded results
  grep -h '^status:' results/*.yaml | cut -d' ' -f2- | xconform-helpers status --decode
`
}

// AfterApply implements kong.AfterApply.
func (c *Cmd) AfterApply() error {
	c.in = os.Stdin
	return nil
}

// Run runs the status command.
func (c *Cmd) Run(k *kong.Context) error {
	return c.run(k.Stdout)
}

func (c *Cmd) run(out io.Writer) error {
	texts := c.Texts
	if len(texts) == 0 && c.in != nil {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				texts = append(texts, line)
			}
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read status texts: %w", err)
		}
	}

	w := bufio.NewWriter(out)

	var invalid []string

	for _, text := range texts {
		if c.Decode {
			text = engine.DecodeReason(text)
		}

		status, err := engine.ParseStatus(text)
		if err != nil {
			invalid = append(invalid, err.Error())
			continue
		}

		switch {
		case c.Encode:
			fmt.Fprintf(w, "%s\n", engine.EncodeReason(status.String())) //nolint:errcheck // flushed below
		case c.Decode:
			fmt.Fprintf(w, "%s\n", status) //nolint:errcheck // flushed below
		default:
			fmt.Fprintf(w, "%s\t%s\t%q\n", status.Short(), status.Type, status.Reason) //nolint:errcheck // flushed below
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if len(invalid) > 0 {
		return fmt.Errorf("%s", strings.Join(invalid, "\n"))
	}

	return nil
}
