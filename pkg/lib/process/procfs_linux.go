//go:build linux

package process

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// DefaultProcfsPath is the usual procfs mount point.
const DefaultProcfsPath = "/proc"

// ProcfsSource reads the process table from a procfs mount.
type ProcfsSource struct {
	fs procfs.FS
}

func NewProcfsSource(mountPoint string) (*ProcfsSource, error) {
	if mountPoint == "" {
		mountPoint = DefaultProcfsPath
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize procfs: %w", err)
	}
	return &ProcfsSource{fs: fs}, nil
}

// Candidates lists every readable process. Entries that disappear or deny
// access mid-scan are dropped.
func (s *ProcfsSource) Candidates() ([]Candidate, error) {
	procs, err := s.fs.AllProcs()
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(procs))
	for _, p := range procs {
		stat, err := p.Stat()
		if err != nil {
			continue
		}
		cmdline, err := p.CmdLine()
		if err != nil {
			continue
		}
		// executable link is root-only for foreign processes; the name match still works
		exe, _ := p.Executable()

		candidates = append(candidates, Candidate{
			PID:       p.PID,
			Name:      stat.Comm,
			Cmdline:   cmdline,
			Exe:       exe,
			StartTime: stat.Starttime,
		})
	}
	return candidates, nil
}

// Alive is false for exited, zombie, or recycled pids.
func (s *ProcfsSource) Alive(pid int, startTime uint64) bool {
	p, err := s.fs.Proc(pid)
	if err != nil {
		return false
	}
	stat, err := p.Stat()
	if err != nil {
		return false
	}
	switch stat.State {
	case "Z", "X", "x":
		return false
	}
	return startTime == 0 || stat.Starttime == startTime
}
