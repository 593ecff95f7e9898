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
	"context"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hitzhangjie/procdbg/pkg/config"
	"github.com/hitzhangjie/procdbg/pkg/logflags"
	"github.com/hitzhangjie/procdbg/pkg/session"
	"github.com/hitzhangjie/procdbg/pkg/target"
)

var (
	cfgFile string

	// sess 由PersistentPreRunE根据配置文件和命令行参数创建
	sess *session.Session
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "procdbg",
	Short: "procdbg 查看和跟踪Linux进程",
	Long: `procdbg 基于procfs和ptrace查看和跟踪Linux进程：

- 进程、线程、文件描述符、内存映射
- 模块及其导出符号
- 跟踪进程的信号、断点、线程创建与退出`,
	SilenceUsage:      true,
	PersistentPreRunE: initSession,
}

// Execute 执行命令行，ctx取消时正在运行的命令应尽快返回
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.procdbg.yaml)")
	flags.String("proc-root", target.DefaultRoot, "procfs mount point")
	flags.StringP("output", "o", config.OutputText, "output format, text or yaml")
	flags.Bool("log", false, "enable logging")
	flags.String("log-output", "", "comma separated list of layers to log: symbol,target,module,trace")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
}

// flagKeys 命令行参数与配置项的对应关系
var flagKeys = map[string]string{
	"proc-root":  "proc_root",
	"output":     "output",
	"log":        "log.enabled",
	"log-output": "log.layers",
	"log-level":  "log.level",
}

func initSession(cmd *cobra.Command, args []string) error {
	v := viper.New()
	config.SetDefaults(v)
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return errors.Wrapf(err, "bind flag --%s", flag)
		}
	}
	if err := config.ReadInConfig(v, cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logs, err := logflags.Setup(cfg.Log.Enabled, cfg.Log.Layers, cfg.Log.Level, os.Stderr)
	if err != nil {
		return err
	}
	sess = session.New(cfg, logs)
	return nil
}

func procFS() target.FS {
	return target.NewFS(sess.Config.ProcRoot, sess.Logs.TargetLogger())
}

// processArg 解析pid参数并确认进程存在
func processArg(arg string) (*target.Process, error) {
	pid, err := strconv.Atoi(arg)
	if err != nil {
		return nil, errors.Errorf("invalid pid %q", arg)
	}
	p, ok := procFS().FromPid(pid)
	if !ok {
		return nil, errors.Errorf("process %d not found", pid)
	}
	return p, nil
}
