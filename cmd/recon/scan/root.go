package scan

import (
	"github.com/spf13/cobra"

	"neorecon/internal/core/options"
)

var globalOutputOptions options.OutputOptions

// NewScanCmd 创建 scan 父命令
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "执行扫描任务",
		Long: `执行扫描任务，结果默认以表格打印，可同时保存为 txt/csv/json/yaml。
请使用具体的子命令。`,
	}

	// 持久化 Flags，只注册长参数，短别名以隐藏 flag 的方式提供
	pFlags := cmd.PersistentFlags()
	pFlags.StringVar(&globalOutputOptions.OutputTxt, "outputTxt", "", "指定保存txt文件路径[以.txt结尾] (alias: --ot)")
	pFlags.StringVar(&globalOutputOptions.OutputCsv, "outputCsv", "", "指定保存csv文件路径[以.csv结尾] (alias: --oc)")
	pFlags.StringVar(&globalOutputOptions.OutputJson, "outputJson", "", "指定保存json文件路径[以.json结尾] (alias: --oj)")
	pFlags.StringVar(&globalOutputOptions.OutputYaml, "outputYaml", "", "指定保存yaml文件路径[以.yaml结尾] (alias: --oy)")
	pFlags.BoolVarP(&globalOutputOptions.Quiet, "quiet", "q", false, "不打印结果表格")

	pFlags.StringVar(&globalOutputOptions.OutputTxt, "ot", "", "outputTxt 简写")
	pFlags.Lookup("ot").Hidden = true
	pFlags.StringVar(&globalOutputOptions.OutputCsv, "oc", "", "outputCsv 简写")
	pFlags.Lookup("oc").Hidden = true
	pFlags.StringVar(&globalOutputOptions.OutputJson, "oj", "", "outputJson 简写")
	pFlags.Lookup("oj").Hidden = true
	pFlags.StringVar(&globalOutputOptions.OutputYaml, "oy", "", "outputYaml 简写")
	pFlags.Lookup("oy").Hidden = true

	cmd.AddCommand(NewPortScanCmd())

	return cmd
}
