//go:build !linux

package process

import (
	"errors"
)

const DefaultProcfsPath = "/proc"

var errUnsupported = errors.New("process enumeration is only supported on linux")

// ProcfsSource is unavailable off linux.
type ProcfsSource struct{}

func NewProcfsSource(mountPoint string) (*ProcfsSource, error) {
	return nil, errUnsupported
}

func (s *ProcfsSource) Candidates() ([]Candidate, error) {
	return nil, errUnsupported
}

func (s *ProcfsSource) Alive(pid int, startTime uint64) bool {
	return false
}
