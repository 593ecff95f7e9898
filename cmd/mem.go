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
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var memOpts struct {
	length int
	write  string
}

// memCmd represents the mem command
var memCmd = &cobra.Command{
	Use:   "mem <pid> <addr>",
	Short: "读写进程内存",
	Long: `读取进程地址addr处的内存并以hexdump格式输出。

--write 先将十六进制字节串写入addr，再读取并输出。`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := processArg(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		addr, err := strconv.ParseUint(args[1], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid address format: %s", args[1])
		}

		if memOpts.write != "" {
			data, err := hex.DecodeString(memOpts.write)
			if err != nil {
				return errors.Wrapf(err, "invalid bytes %q", memOpts.write)
			}
			n, ok := p.Write(addr, data)
			if !ok {
				return errors.Errorf("failed to write memory at address %#x", addr)
			}
			if n != len(data) {
				fmt.Fprintf(cmd.ErrOrStderr(), "only %d of %d bytes written\n", n, len(data))
			}
		}

		if memOpts.length <= 0 {
			return errors.Errorf("invalid length %d", memOpts.length)
		}
		buf, ok := p.Read(addr, make([]byte, memOpts.length))
		if !ok {
			return errors.Errorf("failed to read memory at address %#x", addr)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%#x:\n%s", addr, hex.Dump(buf))
		return nil
	},
}

func init() {
	memCmd.Flags().IntVar(&memOpts.length, "len", 64, "number of bytes to read")
	memCmd.Flags().StringVar(&memOpts.write, "write", "", "hex encoded bytes to write before reading")
	rootCmd.AddCommand(memCmd)
}
