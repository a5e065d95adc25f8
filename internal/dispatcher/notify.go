package dispatcher

import "syscall"

// signalNotify writes a single byte to fd, the write end of a pipe the
// host supplied via submit_with_notify. Write errors are not
// actionable here — the host is responsible for the fd's lifetime — so
// they are silently dropped, matching the "fire and forget" nature of a
// notify byte.
func signalNotify(fd int) {
	_, _ = syscall.Write(fd, []byte{1})
}
