package scan

import (
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
)

func runScanCmd(t *testing.T, args ...string) error {
	t.Helper()
	globalOutputOptions = options.OutputOptions{}
	cmd := NewScanCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func listenTCP(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestPortScanCmdWritesJSON(t *testing.T) {
	p := strconv.Itoa(listenTCP(t))
	out := filepath.Join(t.TempDir(), "result.json")

	err := runScanCmd(t, "port", "-t", "127.0.0.1", "-p", p, "-q", "--oj", out, "--timeout", "2s")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var report model.ScanReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 1, report.Summary.Open)
	require.Len(t, report.Results, 1)
	assert.Equal(t, model.StatusOpen, report.Results[0].Status)
	assert.Equal(t, "127.0.0.1", report.Results[0].IP)
}

func TestPortScanCmdRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"missing target", []string{"port", "-p", "80", "-q"}},
		{"port list", []string{"port", "-t", "127.0.0.1", "-p", "80,443", "-q"}},
		{"bad protocol", []string{"port", "-t", "127.0.0.1", "-p", "80", "--proto", "icmp", "-q"}},
		{"bad output extension", []string{"port", "-t", "127.0.0.1", "-p", "80", "-q", "--oj", filepath.Join(dir, "out.txt")}},
		{"unsupported proxy", []string{"port", "-t", "127.0.0.1", "-p", "80", "-q", "--proxy", "http://127.0.0.1:8080"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, runScanCmd(t, tt.args...))
		})
	}
}
