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
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hitzhangjie/procdbg/pkg/target"
)

var psOpts struct {
	name  string
	argv0 string
}

// psCmd represents the ps command
var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "列出进程",
	Long: `列出procfs中的所有进程。

--name和--argv0只返回第一个匹配的进程，多个进程匹配时返回哪一个取决于procfs的
目录顺序。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := procFS()

		var infos []target.Info
		switch {
		case psOpts.name != "":
			p, ok := fs.FromName(psOpts.name)
			if !ok {
				return errors.Errorf("no process named %q", psOpts.name)
			}
			infos = append(infos, p.Info())
		case psOpts.argv0 != "":
			p, ok := fs.FromArgv0(psOpts.argv0)
			if !ok {
				return errors.Errorf("no process with argv[0] %q", psOpts.argv0)
			}
			infos = append(infos, p.Info())
		default:
			for pid := range fs.Pids() {
				p, ok := fs.FromPid(pid)
				if !ok {
					continue
				}
				infos = append(infos, p.Info())
			}
			sort.Slice(infos, func(i, j int) bool { return infos[i].Pid < infos[j].Pid })
		}

		return render(cmd.OutOrStdout(), infos, func(t *tablewriter.Table) {
			t.SetHeader([]string{"pid", "name", "path", "cmdline"})
			for _, info := range infos {
				t.Append([]string{
					strconv.Itoa(info.Pid),
					info.Name,
					info.Path,
					strings.Join(info.Cmdline, " "),
				})
			}
		})
	},
}

func init() {
	psCmd.Flags().StringVar(&psOpts.name, "name", "", "find the first process whose comm equals name")
	psCmd.Flags().StringVar(&psOpts.argv0, "argv0", "", "find the first process whose argv[0] equals argv0")
	rootCmd.AddCommand(psCmd)
}
