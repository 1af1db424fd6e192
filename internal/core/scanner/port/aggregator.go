package port

import (
	"cmp"
	"slices"

	"neorecon/internal/core/model"
)

// Aggregate 按过滤开关筛选结果，并按 地址 -> 端口 排序
// 默认只保留 open；error 总是保留。对已经聚合过的结果再次调用得到相同输出
func Aggregate(results []model.ScanResult, showClosed, showFiltered bool) []model.ScanResult {
	out := make([]model.ScanResult, 0, len(results))
	for _, r := range results {
		if keep(r.Status, showClosed, showFiltered) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, compareResults)
	return out
}

func keep(status model.PortStatus, showClosed, showFiltered bool) bool {
	switch status {
	case model.StatusOpen, model.StatusError:
		return true
	case model.StatusClosed:
		return showClosed
	case model.StatusFiltered:
		return showFiltered
	}
	return false
}

// compareResults IPv4 排在 IPv6 之前，同一地址按端口升序
func compareResults(a, b model.ScanResult) int {
	if c := a.Addr().Compare(b.Addr()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Port, b.Port); c != 0 {
		return c
	}
	return cmp.Compare(a.Protocol, b.Protocol)
}
