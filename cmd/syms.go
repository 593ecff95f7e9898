/*
Copyright © 2020 hit.zhangjie@gmail.com

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
package cmd

import (
	"iter"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hitzhangjie/procdbg/pkg/module"
	"github.com/hitzhangjie/procdbg/pkg/symbol"
)

var symsOpts struct {
	all     bool
	dynamic bool
	prefix  string
}

type symbolRow struct {
	Name    string `yaml:"name"`
	Display string `yaml:"display,omitempty"`
	Addr    uint64 `yaml:"addr"`
	Size    uint64 `yaml:"size"`
	Bind    string `yaml:"bind"`
	Kind    string `yaml:"kind"`
}

// symsCmd represents the syms command
var symsCmd = &cobra.Command{
	Use:   "syms <file>",
	Short: "查看ELF文件的符号",
	Long: `默认列出导出符号。

--dynamic 列出.dynsym中的所有符号
--all     列出.symtab中的所有符号

value为0的符号不会被列出。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := symbol.Open(args[0])
		if err != nil {
			return err
		}

		var seq iter.Seq[symbol.ImageSymbol]
		switch {
		case symsOpts.all:
			seq = img.AllSymbols()
		case symsOpts.dynamic:
			seq = img.DynamicSymbols()
		default:
			seq = img.Exports()
		}

		var syms []module.Symbol
		for s := range seq {
			if !strings.HasPrefix(s.Name, symsOpts.prefix) {
				continue
			}
			syms = append(syms, module.Symbol{
				ImageSymbol: s,
				Display:     symbol.DisplayName(s.Name, sess.Config.DemangleFlags),
			})
		}
		return renderSymbols(cmd, symbolRows(syms, 0))
	},
}

// symbolRows base非0时符号地址加上模块基址
func symbolRows(syms []module.Symbol, base uint64) []symbolRow {
	rows := make([]symbolRow, 0, len(syms))
	for _, s := range syms {
		row := symbolRow{
			Name: s.Name,
			Addr: base + s.Value,
			Size: s.Size,
			Bind: strings.TrimPrefix(s.Bind.String(), "STB_"),
			Kind: strings.TrimPrefix(s.Kind.String(), "STT_"),
		}
		if s.Display != s.Name {
			row.Display = s.Display
		}
		rows = append(rows, row)
	}
	return rows
}

func renderSymbols(cmd *cobra.Command, rows []symbolRow) error {
	return render(cmd.OutOrStdout(), rows, func(t *tablewriter.Table) {
		t.SetHeader([]string{"addr", "size", "bind", "kind", "name"})
		for _, row := range rows {
			name := row.Name
			if row.Display != "" {
				name = row.Display
			}
			t.Append([]string{hexStr(row.Addr), hexStr(row.Size), row.Bind, row.Kind, name})
		}
	})
}

func init() {
	symsCmd.Flags().BoolVar(&symsOpts.all, "all", false, "list the static symbol table")
	symsCmd.Flags().BoolVar(&symsOpts.dynamic, "dynamic", false, "list the dynamic symbol table")
	symsCmd.Flags().StringVar(&symsOpts.prefix, "prefix", "", "only list symbols starting with prefix")
	rootCmd.AddCommand(symsCmd)
}
