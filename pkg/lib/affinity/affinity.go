// Package affinity parks and restores the CPU cores a process may run on.
package affinity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kubescape/go-logger/helpers"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib"
)

// DefaultReservedCores is how many leading cores Restrict takes away.
const DefaultReservedCores = 2

var (
	ErrCoreCountUnavailable = errors.New("unable to determine CPU count")
	ErrPermissionDenied     = errors.New("access denied setting processor affinity")
	ErrTargetGone           = errors.New("target process not found")
	ErrEmptyMask            = errors.New("core mask would be empty")
)

// CoreMask is an ascending set of logical core indices.
type CoreMask []int

// RangeMask returns the cores in [from, to).
func RangeMask(from, to int) CoreMask {
	if from < 0 {
		from = 0
	}
	if to <= from {
		return CoreMask{}
	}
	mask := make(CoreMask, 0, to-from)
	for i := from; i < to; i++ {
		mask = append(mask, i)
	}
	return mask
}

func (m CoreMask) Empty() bool { return len(m) == 0 }

func (m CoreMask) String() string {
	parts := make([]string, len(m))
	for i, c := range m {
		parts[i] = strconv.Itoa(c)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Scheduler is the OS affinity backend. SetAffinity reports EPERM as
// ErrPermissionDenied and ESRCH as ErrTargetGone.
type Scheduler interface {
	CoreCount() (int, error)
	SetAffinity(pid int, mask CoreMask) error
}

// Target is the process being steered.
type Target interface {
	PID() int
	Alive() bool
}

// Controller applies the restricted and full masks. Both operations are
// idempotent: repeating one only repeats the OS call.
type Controller struct {
	sched    Scheduler
	reserved int
	log      lib.Logger
}

func NewController(sched Scheduler, reservedCores int, log lib.Logger) *Controller {
	if reservedCores < 0 {
		reservedCores = 0
	}
	return &Controller{sched: sched, reserved: reservedCores, log: lib.OrNop(log)}
}

// RestrictedMask is every core except the first reservedCores.
func (c *Controller) RestrictedMask() (CoreMask, error) {
	n, err := c.coreCount()
	if err != nil {
		return nil, err
	}
	return RangeMask(c.reserved, n), nil
}

// FullMask is every core the machine reports.
func (c *Controller) FullMask() (CoreMask, error) {
	n, err := c.coreCount()
	if err != nil {
		return nil, err
	}
	return RangeMask(0, n), nil
}

// Restrict parks the reserved cores. Machines with no more cores than are
// reserved are left untouched and ErrEmptyMask is returned.
func (c *Controller) Restrict(t Target) error {
	n, err := c.coreCount()
	if err != nil {
		c.log.Error("unable to determine CPU count", helpers.Error(err))
		return err
	}
	mask := RangeMask(c.reserved, n)
	if mask.Empty() {
		err := fmt.Errorf("%w: %d of %d cores reserved", ErrEmptyMask, c.reserved, n)
		c.log.Error("not parking cores", helpers.Error(err))
		return err
	}
	if err := c.apply(t, mask); err != nil {
		c.log.Error("failed to park cores", helpers.Int("pid", t.PID()), helpers.Error(err))
		return err
	}
	c.log.Info("parked first cores",
		helpers.Int("pid", t.PID()),
		helpers.Int("parked", c.reserved),
		helpers.String("active", mask.String()))
	return nil
}

// Restore gives the process every core back.
func (c *Controller) Restore(t Target) error {
	mask, err := c.FullMask()
	if err != nil {
		c.log.Error("unable to determine CPU count", helpers.Error(err))
		return err
	}
	if err := c.apply(t, mask); err != nil {
		c.log.Error("failed to unpark cores", helpers.Int("pid", t.PID()), helpers.Error(err))
		return err
	}
	c.log.Info("unparked all cores", helpers.Int("pid", t.PID()), helpers.Int("active", len(mask)))
	return nil
}

func (c *Controller) apply(t Target, mask CoreMask) error {
	if !t.Alive() {
		return ErrTargetGone
	}
	return c.sched.SetAffinity(t.PID(), mask)
}

func (c *Controller) coreCount() (int, error) {
	n, err := c.sched.CoreCount()
	if err != nil {
		if errors.Is(err, ErrCoreCountUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrCoreCountUnavailable, err)
	}
	if n < 1 {
		return 0, ErrCoreCountUnavailable
	}
	return n, nil
}
