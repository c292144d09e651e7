//go:build !linux

package regio

import "errors"

var ErrNoDevMem = errors.New("devmem: not supported on this platform")

type DevMem struct{}

func OpenDevMem(base uintptr, size int) (*DevMem, error) { return nil, ErrNoDevMem }

func (*DevMem) Read32(uintptr) (uint32, error) { return 0, ErrNoDevMem }
func (*DevMem) Write32(uintptr, uint32) error  { return ErrNoDevMem }
func (*DevMem) Close() error                   { return nil }
