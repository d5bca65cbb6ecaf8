//go:build unix

package process

import "golang.org/x/sys/unix"

// raisedNice is the niceness applied to tracked applications.
// Negative values require CAP_SYS_NICE or root.
const raisedNice = -5

func raisePriority(pid int32) error {
	return unix.Setpriority(unix.PRIO_PROCESS, int(pid), raisedNice)
}
