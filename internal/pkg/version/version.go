// 版本信息，BuildTime/GitCommit 在构建时通过 -ldflags -X 注入

package version

import "runtime"

var (
	Version    = "1.0.0"
	APIVersion = "v1"
	BuildTime  string
	GitCommit  string
)

// GetVersion 返回版本号
func GetVersion() string {
	return Version
}

// GoVersion 返回编译使用的 Go 版本
func GoVersion() string {
	return runtime.Version()
}

// Info 版本信息汇总，供 /version 与 version 子命令使用
func Info() map[string]string {
	return map[string]string{
		"service":     "neorecon",
		"version":     Version,
		"api_version": APIVersion,
		"build_time":  BuildTime,
		"git_commit":  GitCommit,
		"go_version":  GoVersion(),
	}
}
