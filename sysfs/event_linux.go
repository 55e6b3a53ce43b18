// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sysfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// event waits for sysfs_notify() on a value file with epoll.
//
// A pipe registered in the same epoll set unblocks wait on close.
type event struct {
	epfd  int
	value int
	pipe  [2]int
}

func (e *event) open(f *os.File) error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	if err := unix.Pipe2(e.pipe[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		_ = unix.Close(epfd)
		return err
	}
	e.epfd = epfd
	e.value = int(f.Fd())
	// sysfs signals an edge with EPOLLPRI|EPOLLERR.
	ev := unix.EpollEvent{Events: unix.EPOLLPRI | unix.EPOLLERR | unix.EPOLLET, Fd: int32(e.value)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, e.value, &ev); err != nil {
		_ = e.close()
		return err
	}
	ev = unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(e.pipe[0])}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, e.pipe[0], &ev); err != nil {
		_ = e.close()
		return err
	}
	return nil
}

func (e *event) wait() error {
	var events [2]unix.EpollEvent
	for {
		n, err := unix.EpollWait(e.epfd, events[:], -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if int(events[i].Fd) == e.pipe[0] {
				return os.ErrClosed
			}
		}
		if n > 0 {
			return nil
		}
	}
}

// flush consumes the notification pending since the file was opened.
func (e *event) flush() {
	var events [2]unix.EpollEvent
	_, _ = unix.EpollWait(e.epfd, events[:], 0)
}

func (e *event) wake() {
	_, _ = unix.Write(e.pipe[1], []byte{0})
}

func (e *event) close() error {
	err := unix.Close(e.epfd)
	_ = unix.Close(e.pipe[0])
	_ = unix.Close(e.pipe[1])
	return err
}
