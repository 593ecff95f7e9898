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
	"io"
	"syscall"

	"github.com/cosiner/argv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hitzhangjie/procdbg/pkg/target"
	"github.com/hitzhangjie/procdbg/pkg/trace"
)

var traceOpts struct {
	exec       string
	suppress   bool
	stopOnTrap bool
}

// traceCmd represents the trace command
var traceCmd = &cobra.Command{
	Use:   "trace <pid> | --exec <cmdline>",
	Short: "跟踪进程的调试事件",
	Long: `attach到运行中的进程，或者启动一个新进程，输出它的调试事件直到进程退出。

Ctrl+C结束跟踪：attach的进程会被detach，--exec启动的进程会被杀死。`,
	Args: func(cmd *cobra.Command, args []string) error {
		if traceOpts.exec == "" && len(args) != 1 {
			return errors.New("need a pid or --exec")
		}
		if traceOpts.exec != "" && len(args) != 0 {
			return errors.New("pid and --exec are exclusive")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			p        *target.Process
			launched bool
			err      error
		)
		if traceOpts.exec != "" {
			cmdline, err := splitCmdline(traceOpts.exec)
			if err != nil {
				return err
			}
			if p, err = procFS().Launch(cmdline); err != nil {
				return err
			}
			launched = true
		} else {
			if p, err = processArg(args[0]); err != nil {
				return err
			}
			if err = p.Attach(); err != nil {
				return err
			}
		}
		defer p.Close()

		h := trace.NewPtraceHandler(sess, p)
		if err := h.Start(); err != nil {
			return err
		}

		tc := trace.NewContext(p)
		err = trace.Run(cmd.Context(), h, tc, printEvent(cmd.OutOrStdout()),
			trace.WithLogger(sess.Logs.TraceLogger()))
		if tc.Event.Kind.Terminal() {
			return err
		}

		// interrupted or stopped by the callback, the tracee is still alive
		if launched {
			syscall.Kill(p.Pid(), syscall.SIGKILL)
			return err
		}
		if derr := p.Detach(); derr != nil && err == nil {
			err = derr
		}
		return err
	},
}

// splitCmdline 按shell规则切分命令行，不支持管道和反引号
func splitCmdline(s string) ([]string, error) {
	v, err := argv.Argv(s,
		func(s string) (string, error) {
			return "", fmt.Errorf("backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return nil, errors.Wrapf(err, "parse command line %q", s)
	}
	if len(v) != 1 || len(v[0]) == 0 {
		return nil, errors.Errorf("illegal command line %q", s)
	}
	return v[0], nil
}

func printEvent(w io.Writer) trace.Callback {
	return func(tc *trace.Context, ev trace.Event) trace.Reply {
		line := ev.String()
		if tc.Regs != nil {
			line += fmt.Sprintf(" pc=%#x sp=%#x", tc.Regs.PC(), tc.Regs.SP())
		}
		if tc.HasSigInfo && tc.SigInfo.Fault() && ev.Kind == trace.Stopped {
			line += " " + tc.SigInfo.String()
		}
		fmt.Fprintln(w, line)

		switch {
		case ev.Kind == trace.Breakpoint && traceOpts.stopOnTrap:
			return trace.ReplyStop
		case ev.Kind == trace.Stopped && traceOpts.suppress:
			return trace.ReplySuppress
		default:
			return trace.ReplyRun
		}
	}
}

func init() {
	traceCmd.Flags().StringVar(&traceOpts.exec, "exec", "", "launch and trace this command line")
	traceCmd.Flags().BoolVar(&traceOpts.suppress, "suppress", false, "do not deliver signals to the tracee")
	traceCmd.Flags().BoolVar(&traceOpts.stopOnTrap, "stop-on-trap", false, "stop tracing at the first SIGTRAP")
	rootCmd.AddCommand(traceCmd)
}
