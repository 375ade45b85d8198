// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/walteh/sb3fetch/cmd/sb3fetch/opts"
	"github.com/walteh/sb3fetch/pkg/provider/catalog"
)

// NewProvidersCmd lists the supported platforms in selection order
func NewProvidersCmd(o *opts.RootOpts) *cobra.Command {
	var patterns bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List the supported platforms",
		Long: `List every platform sb3fetch can download from, in the order locators are
matched against them. The name column is what provider blocks in the config refer to.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)

			header := table.Row{"Name", "Platform", "Costumes", "Sounds"}
			if patterns {
				header = append(header, "Pattern")
			}
			tw.AppendHeader(header)

			for _, p := range catalog.Platforms() {
				d := p.Descriptor
				row := table.Row{d.Name, d.DisplayName, d.Assets.Costumes, d.Assets.Sounds}
				if patterns {
					row = append(row, p.Pattern)
				}
				tw.AppendRow(row)
			}

			fmt.Fprintln(o.Stdout, tw.Render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&patterns, "patterns", false, "also show the locator patterns")
	return cmd
}
