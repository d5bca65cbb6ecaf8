//go:build !unix && !windows

package process

import "errors"

func raisePriority(int32) error { return errors.ErrUnsupported }
