package options

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OutputOptions 定义结果输出的通用参数
type OutputOptions struct {
	OutputTxt  string // --ot, --outputTxt
	OutputCsv  string // --oc, --outputCsv
	OutputJson string // --oj, --outputJson
	OutputYaml string // --oy, --outputYaml
	Quiet      bool   // 不打印表格，只写文件
}

// Validate 校验文件后缀
func (o *OutputOptions) Validate() error {
	checks := []struct {
		path string
		exts []string
	}{
		{o.OutputTxt, []string{".txt"}},
		{o.OutputCsv, []string{".csv"}},
		{o.OutputJson, []string{".json"}},
		{o.OutputYaml, []string{".yaml", ".yml"}},
	}
	for _, c := range checks {
		if c.path == "" {
			continue
		}
		ext := strings.ToLower(filepath.Ext(c.path))
		ok := false
		for _, want := range c.exts {
			if ext == want {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("output file %s must end with %s", c.path, strings.Join(c.exts, " or "))
		}
	}
	return nil
}

// HasFileOutput 是否指定了任何文件输出
func (o *OutputOptions) HasFileOutput() bool {
	return o.OutputTxt != "" || o.OutputCsv != "" || o.OutputJson != "" || o.OutputYaml != ""
}
