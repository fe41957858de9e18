//go:build !linux

// FILE: internal/sys/sockopt/sockopt_other.go
package sockopt

import "syscall"

// Control 在非Linux系统上不设置任何套接字选项
func Control(reusePort bool) func(network, address string, c syscall.RawConn) error {
	return nil
}
