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
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hitzhangjie/procdbg/cmd"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	go processSignals(cancel)

	if err := cmd.Execute(ctx); err != nil {
		os.Exit(1)
	}
}

// processSignals 第一次收到信号时取消正在执行的命令，第二次直接退出
func processSignals(cancel context.CancelFunc) {
	ch := make(chan os.Signal, 16)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	cancelled := false
	for range ch {
		if cancelled {
			os.Exit(1)
		}
		cancelled = true
		cancel()
	}
}
