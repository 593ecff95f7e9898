/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

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
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hitzhangjie/procdbg/pkg/target"
)

type fdInfo struct {
	FD     int    `yaml:"fd"`
	Kind   string `yaml:"kind"`
	Target string `yaml:"target"`
}

type processDetail struct {
	target.Info `yaml:",inline"`
	Env         map[string]string `yaml:"env"`
	Threads     []int             `yaml:"threads"`
	FDs         []fdInfo          `yaml:"fds"`
}

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <pid>",
	Short: "查看进程详情",
	Long:  `查看进程的名字、可执行文件、启动参数、环境变量、线程和打开的文件描述符`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := processArg(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		d := processDetail{
			Info: p.Info(),
			Env:  p.Environment(),
		}
		for tid := range p.Threads() {
			d.Threads = append(d.Threads, tid)
		}
		sort.Ints(d.Threads)
		for fd, link := range p.FileDescriptors() {
			d.FDs = append(d.FDs, fdInfo{FD: fd, Kind: target.FDKind(link), Target: link})
		}
		sort.Slice(d.FDs, func(i, j int) bool { return d.FDs[i].FD < d.FDs[j].FD })

		return render(cmd.OutOrStdout(), d, func(t *tablewriter.Table) {
			t.SetHeader([]string{"item", "value"})
			t.Append([]string{"pid", strconv.Itoa(d.Pid)})
			t.Append([]string{"name", d.Name})
			t.Append([]string{"path", d.Path})
			t.Append([]string{"cmdline", strings.Join(d.Cmdline, " ")})

			names := make([]string, 0, len(d.Env))
			for name := range d.Env {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				t.Append([]string{"env", name + "=" + d.Env[name]})
			}
			for _, tid := range d.Threads {
				t.Append([]string{"thread", strconv.Itoa(tid)})
			}
			for _, fd := range d.FDs {
				t.Append([]string{"fd", fmt.Sprintf("%d %s %s", fd.FD, fd.Kind, fd.Target)})
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
