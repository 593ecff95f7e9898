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
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hitzhangjie/procdbg/pkg/module"
)

var modulesOpts struct {
	symbols bool
	find    string
	prefix  string
}

type moduleRow struct {
	Base    uint64 `yaml:"base"`
	Size    uint64 `yaml:"size"`
	Usage   string `yaml:"usage"`
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Status  string `yaml:"status,omitempty"`
	Arch    string `yaml:"arch,omitempty"`
	Exports int    `yaml:"exports,omitempty"`
}

// modulesCmd represents the modules command
var modulesCmd = &cobra.Command{
	Use:   "modules <pid>",
	Short: "查看进程加载的模块",
	Long: `将进程的内存映射归并为模块。

--symbols 解析每个模块的符号并输出导出符号的数量；
--find    只输出第一个名字匹配的模块，配合--prefix列出该模块中以prefix开头的导出符号。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := processArg(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		cat := module.NewCatalog(sess, p)
		if modulesOpts.find != "" {
			m, ok := cat.FindByName(modulesOpts.find)
			if !ok {
				return errors.Errorf("module %q not found", modulesOpts.find)
			}
			if cmd.Flags().Changed("prefix") {
				return printExports(cmd, m, modulesOpts.prefix)
			}
			return printModules(cmd, []*module.Module{m})
		}

		mods, err := cat.Modules()
		if err != nil {
			return err
		}
		return printModules(cmd, mods)
	},
}

func printModules(cmd *cobra.Command, mods []*module.Module) error {
	rows := make([]moduleRow, 0, len(mods))
	for _, m := range mods {
		row := moduleRow{Base: m.Base, Size: m.Size, Usage: m.Usage, Name: m.Name, Path: m.Path}
		if modulesOpts.symbols {
			d := m.Symbols()
			row.Status = d.Status.String()
			row.Arch = d.Arch
			row.Exports = len(d.Exports)
		}
		rows = append(rows, row)
	}

	return render(cmd.OutOrStdout(), rows, func(t *tablewriter.Table) {
		header := []string{"base", "size", "usage", "name", "path"}
		if modulesOpts.symbols {
			header = append(header, "status", "arch", "exports")
		}
		t.SetHeader(header)
		for _, row := range rows {
			line := []string{hexStr(row.Base), hexStr(row.Size), row.Usage, row.Name, row.Path}
			if modulesOpts.symbols {
				line = append(line, row.Status, row.Arch, strconv.Itoa(row.Exports))
			}
			t.Append(line)
		}
	})
}

func printExports(cmd *cobra.Command, m *module.Module, prefix string) error {
	d := m.Symbols()
	if d.Status != module.Loaded {
		return errors.Errorf("symbols of %s not loaded", m.Path)
	}
	rows := symbolRows(d.ExportsWithPrefix(prefix), m.Base)
	return renderSymbols(cmd, rows)
}

func init() {
	modulesCmd.Flags().BoolVar(&modulesOpts.symbols, "symbols", false, "load symbols of every module")
	modulesCmd.Flags().StringVar(&modulesOpts.find, "find", "", "show the first module with this name")
	modulesCmd.Flags().StringVar(&modulesOpts.prefix, "prefix", "", "with --find, list exports starting with prefix")
	rootCmd.AddCommand(modulesCmd)
}
