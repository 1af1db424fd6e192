package options

import (
	"neorecon/internal/core/model"
)

// ScanOption 定义所有扫描指令参数结构体必须实现的接口
type ScanOption interface {
	// Validate 验证参数合法性
	Validate() error

	// ToRequest 将参数转换为扫描请求
	ToRequest() model.ScanRequest
}
