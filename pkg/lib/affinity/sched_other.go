//go:build !linux

package affinity

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("setting processor affinity is only supported on linux")

// OSScheduler only reports the core count off linux.
type OSScheduler struct{}

func NewOSScheduler(procfsPath string) (*OSScheduler, error) {
	return &OSScheduler{}, nil
}

func (s *OSScheduler) CoreCount() (int, error) {
	return runtime.NumCPU(), nil
}

func (s *OSScheduler) SetAffinity(pid int, mask CoreMask) error {
	return errUnsupported
}

func (s *OSScheduler) Current(pid int) (CoreMask, error) {
	return nil, errUnsupported
}
