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
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/hitzhangjie/procdbg/pkg/config"
)

// render 按配置的输出格式输出v，文本格式时由fill填充表格
func render(w io.Writer, v interface{}, fill func(t *tablewriter.Table)) error {
	if sess.Config.Output == config.OutputYAML {
		b, err := yaml.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "marshal yaml")
		}
		_, err = w.Write(b)
		return err
	}
	t := defaultTable(w)
	fill(t)
	t.Render()
	return nil
}

func defaultTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	table.SetCenterSeparator(" ")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetColWidth(120)
	return table
}

func hexStr(v uint64) string {
	return fmt.Sprintf("%#x", v)
}
