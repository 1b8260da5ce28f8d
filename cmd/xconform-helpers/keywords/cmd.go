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
// Package keywords implements the command for trying a keyword selection
// against the tests of a corpus file.
package keywords

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/crossplane-contrib/xconform/internal/api"
	"github.com/crossplane-contrib/xconform/internal/filter"
	kw "github.com/crossplane-contrib/xconform/internal/keywords"
	"github.com/crossplane-contrib/xconform/internal/testexecution/processor"
	"github.com/spf13/afero"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Cmd arguments and flags for evaluating a keyword selection.
type Cmd struct {
	// Arguments.
	Text       string `arg:"" help:"The keyword text to evaluate."`
	CorpusFile string `arg:"" help:"The corpus file whose tests are matched." predictor:"file" type:"path"`

	// Flags.
	Type         string   `default:"expr"                                                           help:"How the text is read: 'all of', 'any of' or 'expr'."`
	Valid        []string `help:"Restrict the keywords the text may use."                         sep:","`
	AllowNumeric bool     `help:"Allow expression keywords that start with a digit."            name:"allow-numeric"`
	All          bool     `help:"Also list the tests that are not selected, with their keywords." short:"a"`

	fs afero.Fs
}

// Help returns help message for the keywords command.
func (c *Cmd) Help() string {
	return `
Evaluate a keyword selection against the tests of a corpus file and list the
tests it selects.

Examples:

  # List the interactive tests that do not need a display
  xconform-helpers keywords 'interactive & !headful' tests/net_xconform.yaml

  # List tests declaring any of the given keywords, and show the others too
  xconform-helpers keywords --type 'any of' 'printer scanner' tests/xconform.yaml -a
`
}

// AfterApply implements kong.AfterApply.
func (c *Cmd) AfterApply() error {
	c.fs = afero.NewOsFs()
	return nil
}

// Run runs the keywords command.
func (c *Cmd) Run(k *kong.Context) error {
	return c.run(k.Stdout)
}

func (c *Cmd) run(out io.Writer) error {
	kind, err := kw.ParseKind(c.Type)
	if err != nil {
		return err
	}

	opts := []kw.Option{kw.WithNumericKeywords(c.AllowNumeric)}
	if len(c.Valid) > 0 {
		opts = append(opts, kw.WithValidKeywords(c.Valid...))
	}

	predicate, err := kw.Parse(kind, c.Text, opts...)
	if err != nil {
		return err
	}

	tds, err := processor.LoadTests(c.fs, c.CorpusFile)
	if err != nil {
		return fmt.Errorf("failed to load corpus file %s: %w", c.CorpusFile, err)
	}

	f := filter.NewKeywords(predicate)
	w := bufio.NewWriter(out)

	var selected int

	for _, td := range tds {
		ok, err := f.Accepts(td)
		if err != nil {
			return err
		}

		switch {
		case ok:
			selected++

			fmt.Fprintf(w, "+ %s\n", td.URL) //nolint:errcheck // flushed below
		case c.All:
			fmt.Fprintf(w, "- %s [%s]\n", td.URL, keywordList(td)) //nolint:errcheck // flushed below
		}
	}

	fmt.Fprintf(w, "%s: %d of %d tests selected\n", f.Description(), selected, len(tds)) //nolint:errcheck // flushed below

	return w.Flush()
}

func keywordList(td *api.TestDescription) string {
	return strings.Join(sets.List(td.Keywords), " ")
}
