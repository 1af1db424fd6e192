package port

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"neorecon/internal/core/model"
)

func result(ip string, port uint16, status model.PortStatus) model.ScanResult {
	task := model.ProbeTask{Address: netip.MustParseAddr(ip), Port: port, Protocol: model.ProtocolTCP}
	if status == model.StatusError {
		return model.ErrorOutcome(task, model.CodeScanTimedOut, model.MsgScanTimedOut).ToResult()
	}
	return model.ProbeOutcome{Task: task, Status: status}.ToResult()
}

func endpoints(rs []model.ScanResult) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, netip.AddrPortFrom(r.Addr(), uint16(r.Port)).String())
	}
	return out
}

func sample() []model.ScanResult {
	return []model.ScanResult{
		result("10.0.0.10", 80, model.StatusOpen),
		result("::1", 22, model.StatusOpen),
		result("10.0.0.2", 443, model.StatusClosed),
		result("10.0.0.2", 22, model.StatusOpen),
		result("10.0.0.10", 21, model.StatusFiltered),
		result("10.0.0.9", 8080, model.StatusError),
		result("10.0.0.2", 25, model.StatusFiltered),
	}
}

func TestAggregateFilters(t *testing.T) {
	tests := []struct {
		name         string
		showClosed   bool
		showFiltered bool
		want         []string
	}{
		{"default open and error", false, false, []string{"10.0.0.2:22", "10.0.0.9:8080", "10.0.0.10:80", "[::1]:22"}},
		{"closed", true, false, []string{"10.0.0.2:22", "10.0.0.2:443", "10.0.0.9:8080", "10.0.0.10:80", "[::1]:22"}},
		{"filtered", false, true, []string{"10.0.0.2:22", "10.0.0.2:25", "10.0.0.9:8080", "10.0.0.10:21", "10.0.0.10:80", "[::1]:22"}},
		{"everything", true, true, []string{"10.0.0.2:22", "10.0.0.2:25", "10.0.0.2:443", "10.0.0.9:8080", "10.0.0.10:21", "10.0.0.10:80", "[::1]:22"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(sample(), tt.showClosed, tt.showFiltered)
			assert.Equal(t, tt.want, endpoints(got))

			again := Aggregate(got, tt.showClosed, tt.showFiltered)
			assert.Equal(t, got, again)
		})
	}
}

func TestAggregateOrderIndependentOfInput(t *testing.T) {
	a := sample()
	b := make([]model.ScanResult, len(a))
	for i := range a {
		b[len(a)-1-i] = a[i]
	}
	assert.Equal(t, Aggregate(a, true, true), Aggregate(b, true, true))
}

func TestAggregateAllFilteredDefaultFlags(t *testing.T) {
	in := []model.ScanResult{
		result("192.0.2.1", 1, model.StatusFiltered),
		result("192.0.2.1", 2, model.StatusFiltered),
	}
	out := Aggregate(in, false, false)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestAggregateErrorCarriesCode(t *testing.T) {
	out := Aggregate([]model.ScanResult{result("192.0.2.1", 1, model.StatusError)}, false, false)
	if assert.Len(t, out, 1) {
		assert.Equal(t, model.CodeScanTimedOut, *out[0].ErrorCode)
	}
}
