package iov

import "fmt"

var kindName = [...]string{"user", "kernel", "pagevector", "discard"}

// String is a compact debug rendering used at nlog.Debugf-equivalent
// call sites, in the spirit of the retrieved corpus's habit of giving
// low-level scatter-gather types a diagnostic String().
func (c *Cursor) String() string {
	return fmt.Sprintf("cursor(kind=%s remaining=%d segIdx=%d segOff=%d)",
		kindName[c.kind], c.remaining, c.segIdx, c.segOff)
}
