package rdf

import (
	"bufio"
	"io"
	"strings"
)

const maxLineBytes = 1 << 20

// unwrapper joins physical lines ending in the wrap character into logical
// lines. A partial line pending at EOF is flushed as-is.
type unwrapper struct {
	sc   *bufio.Scanner
	wrap string
	line int
}

func newUnwrapper(r io.Reader, wrap string) *unwrapper {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &unwrapper{sc: sc, wrap: wrap}
}

// next returns the next logical line and the physical line it started on.
func (u *unwrapper) next() (text string, start int, ok bool, err error) {
	var b strings.Builder
	pending := false
	for u.sc.Scan() {
		raw := strings.TrimRight(u.sc.Text(), "\r")
		u.line++
		if !pending {
			start = u.line
		}
		if u.wrap != "" && strings.HasSuffix(raw, u.wrap) {
			b.WriteString(strings.TrimSuffix(raw, u.wrap))
			pending = true
			continue
		}
		b.WriteString(raw)
		return b.String(), start, true, nil
	}
	if err := u.sc.Err(); err != nil {
		return "", 0, false, err
	}
	if pending {
		return b.String(), start, true, nil
	}
	return "", 0, false, nil
}
