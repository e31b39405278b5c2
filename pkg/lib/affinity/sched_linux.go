//go:build linux

package affinity

import (
	"errors"
	"fmt"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// cpuSetSize mirrors CPU_SETSIZE.
const cpuSetSize = 1024

// OSScheduler drives sched_setaffinity(2) and counts cores from /proc/cpuinfo.
type OSScheduler struct {
	fs procfs.FS
}

func NewOSScheduler(procfsPath string) (*OSScheduler, error) {
	if procfsPath == "" {
		procfsPath = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(procfsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize procfs: %w", err)
	}
	return &OSScheduler{fs: fs}, nil
}

// CoreCount returns the number of logical processors listed in cpuinfo.
func (s *OSScheduler) CoreCount() (int, error) {
	info, err := s.fs.CPUInfo()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCoreCountUnavailable, err)
	}
	if len(info) == 0 {
		return 0, ErrCoreCountUnavailable
	}
	return len(info), nil
}

func (s *OSScheduler) SetAffinity(pid int, mask CoreMask) error {
	if mask.Empty() {
		return ErrEmptyMask
	}
	var set unix.CPUSet
	set.Zero()
	for _, c := range mask {
		set.Set(c)
	}
	return mapErrno(unix.SchedSetaffinity(pid, &set))
}

// Current reads back the mask the kernel holds for pid.
func (s *OSScheduler) Current(pid int) (CoreMask, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(pid, &set); err != nil {
		return nil, mapErrno(err)
	}
	want := set.Count()
	mask := make(CoreMask, 0, want)
	for i := 0; i < cpuSetSize && len(mask) < want; i++ {
		if set.IsSet(i) {
			mask = append(mask, i)
		}
	}
	return mask, nil
}

func mapErrno(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: %v", ErrTargetGone, err)
	default:
		return err
	}
}
