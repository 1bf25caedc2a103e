package lock

import "errors"

// ErrBusy is returned when the same action is already pending for the user.
var ErrBusy = errors.New("action already in progress")
