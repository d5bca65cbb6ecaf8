//go:build windows

package process

import "golang.org/x/sys/windows"

func raisePriority(pid int32) error {
	h, err := windows.OpenProcess(windows.PROCESS_SET_INFORMATION, false, uint32(pid))
	if err != nil {
		return err
	}
	defer func() { _ = windows.CloseHandle(h) }()
	return windows.SetPriorityClass(h, windows.HIGH_PRIORITY_CLASS)
}
