// Package port opens a Linux tty in raw mode and exposes it as the byte
// stream consumed by the mailbox hub: Available, Read and Write.
package port

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = fmt.Errorf("port closed: %w", os.ErrClosed)

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device   string
	BaudRate int
	// ReadTimeout bounds how long Read waits for data. Zero waits until data
	// arrives or the port is closed.
	ReadTimeout time.Duration
}

// Port is a raw-mode tty. Read is meant for a single reader goroutine;
// Write may be called concurrently but callers that need whole lines must
// serialize themselves.
type Port struct {
	fd        int
	file      *os.File
	config    Config
	done      chan struct{}
	closeOnce sync.Once
	pipeR     int // self-pipe read fd, wakes a blocked Read on Close
	pipeW     int
}

// Open opens the device and configures it for raw 8N1 operation.
func Open(cfg Config) (*Port, error) {
	fd, err := syscall.Open(cfg.Device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}

	if err := configure(fd, cfg.BaudRate); err != nil {
		syscall.Close(fd)
		return nil, err
	}

	// Blocking again now that the line discipline is set; Read uses poll.
	if err := syscall.SetNonblock(fd, false); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	return &Port{
		fd:     fd,
		file:   os.NewFile(uintptr(fd), cfg.Device),
		config: cfg,
		done:   make(chan struct{}),
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
	}, nil
}

func configure(fd, baudRate int) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baudToUnix(baudRate)

	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

// Name returns the device path.
func (p *Port) Name() string {
	return p.config.Device
}

func (p *Port) closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Available returns the number of bytes waiting in the kernel input queue.
func (p *Port) Available() (int, error) {
	if p.closed() {
		return 0, ErrClosed
	}
	n, err := unix.IoctlGetInt(p.fd, unix.TIOCINQ)
	if err != nil {
		return 0, fmt.Errorf("inq: %w", err)
	}
	return n, nil
}

// Read waits for input (at most ReadTimeout when set) and reads what is
// there. It returns 0, nil when the timeout elapses without data.
func (p *Port) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if p.closed() {
		return 0, ErrClosed
	}

	timeout := -1
	if p.config.ReadTimeout > 0 {
		timeout = int(p.config.ReadTimeout / time.Millisecond)
	}

	pfd := []unix.PollFd{
		{Fd: int32(p.fd), Events: unix.POLLIN},
		{Fd: int32(p.pipeR), Events: unix.POLLIN},
	}
	for {
		n, err := unix.Poll(pfd, timeout)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return 0, nil
		}
		break
	}

	if p.closed() || pfd[1].Revents&unix.POLLIN != 0 {
		return 0, ErrClosed
	}
	if pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
		return 0, nil
	}
	return p.file.Read(buf)
}

// Write writes b to the port.
func (p *Port) Write(b []byte) (int, error) {
	if p.closed() {
		return 0, ErrClosed
	}
	return p.file.Write(b)
}

// Close closes the port and unblocks a pending Read.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		unix.Write(p.pipeW, []byte{1})
		err = p.file.Close()
		unix.Close(p.pipeR)
		unix.Close(p.pipeW)
	})
	return err
}

func baudToUnix(baud int) uint32 {
	switch baud {
	case 1200:
		return unix.B1200
	case 2400:
		return unix.B2400
	case 4800:
		return unix.B4800
	case 9600:
		return unix.B9600
	case 19200:
		return unix.B19200
	case 38400:
		return unix.B38400
	case 57600:
		return unix.B57600
	case 115200:
		return unix.B115200
	case 230400:
		return unix.B230400
	case 460800:
		return unix.B460800
	case 921600:
		return unix.B921600
	default:
		return unix.B115200 // fallback
	}
}

// SupportedBaudRate reports whether baud maps to a termios speed
// rather than the 115200 fallback.
func SupportedBaudRate(baud int) bool {
	return baud == 115200 || baudToUnix(baud) != unix.B115200
}
