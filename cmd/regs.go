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
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var regsOpts struct {
	tid   int
	setPC string
	setSP string
}

// regsCmd represents the regs command
var regsCmd = &cobra.Command{
	Use:   "regs <pid>",
	Short: "查看或修改线程寄存器",
	Long: `attach到进程，读取线程的寄存器后detach。

--tid    指定线程，默认为主线程
--set-pc 修改指令指针
--set-sp 修改栈指针`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		p, err := processArg(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		tid := regsOpts.tid
		if tid == 0 {
			tid = p.Pid()
		}

		if err = p.Attach(); err != nil {
			return err
		}
		defer func() {
			if derr := p.Detach(); derr != nil && err == nil {
				err = derr
			}
		}()

		snap, ok := p.Registers(tid)
		if !ok {
			return errors.Errorf("failed to read registers of thread %d", tid)
		}

		if regsOpts.setPC != "" {
			v, err := strconv.ParseUint(regsOpts.setPC, 0, 64)
			if err != nil {
				return fmt.Errorf("invalid value format: %s", regsOpts.setPC)
			}
			snap.SetPC(v)
		}
		if regsOpts.setSP != "" {
			v, err := strconv.ParseUint(regsOpts.setSP, 0, 64)
			if err != nil {
				return fmt.Errorf("invalid value format: %s", regsOpts.setSP)
			}
			snap.SetSP(v)
		}
		if snap.Dirty() {
			if err = p.SetRegisters(tid, snap); err != nil {
				return err
			}
			snap.Clean()
		}

		list := snap.Slice()
		return render(cmd.OutOrStdout(), list, func(t *tablewriter.Table) {
			t.SetHeader([]string{snap.Arch().String(), "value"})
			for _, r := range list {
				t.Append([]string{r.Name, hexStr(r.Value)})
			}
		})
	},
}

func init() {
	regsCmd.Flags().IntVar(&regsOpts.tid, "tid", 0, "thread id")
	regsCmd.Flags().StringVar(&regsOpts.setPC, "set-pc", "", "new program counter")
	regsCmd.Flags().StringVar(&regsOpts.setSP, "set-sp", "", "new stack pointer")
	rootCmd.AddCommand(regsCmd)
}
