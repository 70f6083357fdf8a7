// Package nlog is the OSD process logger: buffered, timestamped, leveled
// writes with an async flusher so that a slow sink never blocks the
// executor that is decoding and dispatching requests.
/*
 * Copyright (c) 2026, the osd authors. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

const (
	bufSize  = 32 * 1024
	lineSize = 4 * 1024
	chSize   = 16
)

var sevChar = [...]byte{'I', 'W', 'E'}

// fixed is a fixed-capacity append buffer, reused via sync.Pool.
type fixed struct {
	buf  []byte
	woff int
}

func (f *fixed) reset()          { f.woff = 0 }
func (f *fixed) avail() int      { return len(f.buf) - f.woff }
func (f *fixed) Write(p []byte) (int, error) {
	n := copy(f.buf[f.woff:], p)
	f.woff += n
	return n, nil
}
func (f *fixed) writeByte(b byte)   { f.buf[f.woff] = b; f.woff++ }
func (f *fixed) writeString(s string) { f.woff += copy(f.buf[f.woff:], s) }

var linePool = sync.Pool{New: func() any { return &fixed{buf: make([]byte, lineSize)} }}

// logger owns one severity's double-buffered async pipeline to `out`.
type logger struct {
	mu       sync.Mutex
	out      *os.File
	pw       *fixed
	spare    *fixed
	ch       chan *fixed
	once     sync.Once
	sev      severity
}

func newLogger(sev severity, out *os.File) *logger {
	l := &logger{
		sev:   sev,
		out:   out,
		pw:    &fixed{buf: make([]byte, bufSize)},
		spare: &fixed{buf: make([]byte, bufSize)},
		ch:    make(chan *fixed, chSize),
	}
	go l.flusher()
	return l
}

func (l *logger) flusher() {
	for pw := range l.ch {
		if pw == nil {
			return
		}
		if _, err := l.out.Write(pw.buf[:pw.woff]); err != nil {
			os.Stderr.WriteString("nlog: write failed: " + err.Error() + "\n")
		}
		pw.reset()
		l.mu.Lock()
		if l.spare == nil {
			l.spare = pw
		}
		l.mu.Unlock()
	}
}

func (l *logger) printf(depth int, format string, args ...any) {
	fb := linePool.Get().(*fixed)
	fb.reset()
	formatHdr(l.sev, depth+1, fb)
	if format == "" {
		fmt.Fprint(fb, args...)
	} else {
		fmt.Fprintf(fb, format, args...)
	}
	if fb.avail() > 0 {
		fb.writeByte('\n')
	}

	l.mu.Lock()
	l.pw.Write(fb.buf[:fb.woff])
	if l.pw.avail() < lineSize {
		full := l.pw
		if l.spare != nil {
			l.pw, l.spare = l.spare, nil
		} else {
			l.pw = &fixed{buf: make([]byte, bufSize)}
		}
		select {
		case l.ch <- full:
		default:
			os.Stderr.WriteString("nlog: dropped a full buffer under back-pressure\n")
			full.reset()
			if l.spare == nil {
				l.spare = full
			}
		}
	}
	l.mu.Unlock()
	linePool.Put(fb)
}

func (l *logger) flush() {
	l.mu.Lock()
	if l.pw.woff > 0 {
		pending := l.pw
		l.pw = &fixed{buf: make([]byte, bufSize)}
		l.mu.Unlock()
		l.out.Write(pending.buf[:pending.woff])
		pending.reset()
		l.mu.Lock()
		if l.spare == nil {
			l.spare = pending
		}
	}
	l.mu.Unlock()
}

func formatHdr(sev severity, depth int, fb *fixed) {
	_, fn, ln, ok := runtime.Caller(2 + depth)
	fb.writeByte(sevChar[sev])
	fb.writeByte(' ')
	fb.writeString(time.Now().Format("15:04:05.000000"))
	fb.writeByte(' ')
	if !ok {
		return
	}
	if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
		fn = fn[idx+1:]
	}
	fb.writeString(fn)
	fb.writeByte(':')
	fb.writeString(strconv.Itoa(ln))
	fb.writeByte(' ')
}

var (
	loggers  [3]*logger
	initOnce sync.Once
	level    = sevInfo
)

func lazyInit() {
	initOnce.Do(func() {
		loggers[sevInfo] = newLogger(sevInfo, os.Stdout)
		loggers[sevWarn] = newLogger(sevWarn, os.Stderr)
		loggers[sevErr] = newLogger(sevErr, os.Stderr)
	})
}

// SetLevel sets the minimum severity written; one of "info", "warn", "error".
func SetLevel(s string) {
	switch strings.ToLower(s) {
	case "warn", "warning":
		level = sevWarn
	case "err", "error":
		level = sevErr
	default:
		level = sevInfo
	}
}

func log(sev severity, depth int, format string, args ...any) {
	if sev < level {
		return
	}
	lazyInit()
	loggers[sev].printf(depth+1, format, args...)
	if sev == sevErr {
		loggers[sevErr].flush()
	}
}

func Infof(format string, args ...any)  { log(sevInfo, 0, format, args...) }
func Infoln(args ...any)                { log(sevInfo, 0, "%s", fmt.Sprint(args...)) }
func Warningf(format string, args ...any) { log(sevWarn, 0, format, args...) }
func Errorf(format string, args ...any) { log(sevErr, 0, format, args...) }
func Errorln(args ...any)               { log(sevErr, 0, "%s", fmt.Sprint(args...)) }

// Flush writes each logger's current buffer to its sink. Full buffers
// already queued for the background flusher are not waited for.
func Flush() {
	lazyInit()
	for _, l := range loggers {
		if l != nil {
			l.flush()
		}
	}
}
