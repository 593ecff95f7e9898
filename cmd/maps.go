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
	"github.com/spf13/cobra"

	"github.com/hitzhangjie/procdbg/pkg/target"
)

// mapsCmd represents the maps command
var mapsCmd = &cobra.Command{
	Use:   "maps <pid>",
	Short: "查看进程的内存映射",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := processArg(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		seq, err := p.MemoryRegions()
		if err != nil {
			return err
		}
		var regions []target.MemoryRegion
		for r := range seq {
			regions = append(regions, r)
		}

		return render(cmd.OutOrStdout(), regions, func(t *tablewriter.Table) {
			t.SetHeader([]string{"start", "end", "perms", "offset", "dev", "inode", "path"})
			for _, r := range regions {
				t.Append([]string{
					hexStr(r.Start),
					hexStr(r.End),
					r.Perms,
					hexStr(r.Offset),
					r.Dev,
					strconv.FormatUint(r.Inode, 10),
					r.Path,
				})
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(mapsCmd)
}
