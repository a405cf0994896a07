package ping

import "syscall"

// connectPendingErrnos are the errnos spec.md classifies as "not yet
// connectable" rather than an escalation-worthy failure.
var connectPendingErrnos = []error{
	syscall.ECONNREFUSED,
	syscall.ENETUNREACH,
	syscall.ETIMEDOUT,
	syscall.ECONNRESET,
	syscall.EINVAL,
	syscall.EADDRNOTAVAIL,
	syscall.ENOENT,
}
