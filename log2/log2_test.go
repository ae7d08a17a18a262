package log2

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"log"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog2(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		fun  func(t testing.TB, l *Log) string
	}{
		{"caller/debug", func(t testing.TB, l *Log) string {
			l.SetFlags(log.Lshortfile)
			l.Debugf("low level var=%d", 42)
			return formatCallerShort(1) + "debug: low level var=42\n"
		}},
		{"caller/info", func(t testing.TB, l *Log) string {
			l.SetFlags(log.Lshortfile)
			l.Infof("regular state=%s", "ok")
			return formatCallerShort(1) + "regular state=ok\n"
		}},
		{"caller/error", func(t testing.TB, l *Log) string {
			l.SetFlags(log.Lshortfile)
			l.Errorf("problem")
			return formatCallerShort(1) + "error: problem\n"
		}},
		{"error-func/error", func(t testing.TB, l *Log) string {
			ech := make(chan error, 1)
			l.SetErrorFunc(func(e error) { ech <- e })
			l.SetFlags(0)
			exactError := fmt.Errorf("one particular issue")
			l.Error(exactError)
			close(ech)
			e := <-ech
			if l == nil {
				assert.Nil(t, e)
			} else {
				assert.Equal(t, exactError, e)
			}
			return "error: one particular issue\n"
		}},
		{"error-func/string", func(t testing.TB, l *Log) string {
			ech := make(chan error, 1)
			l.SetErrorFunc(func(e error) { ech <- e })
			l.SetFlags(0)
			l.Errorf("trouble var=%.1f", 3.4)
			close(ech)
			e := <-ech
			if l == nil {
				assert.Nil(t, e)
			} else {
				assert.Equal(t, "trouble var=3.4", e.Error())
			}
			return "error: trouble var=3.4\n"
		}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name+"/logger=nil", func(t *testing.T) {
			c.fun(t, nil)
		})
		t.Run(c.name, func(t *testing.T) {
			buf := bytes.NewBuffer(nil)
			l := NewWriter(buf, LAll)
			expect := c.fun(t, l)
			assert.Equal(t, expect, buf.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input     string
		expect    Level
		expectErr string
	}{
		{"", LInfo, ""},
		{"error", LError, ""},
		{" Debug ", LDebug, ""},
		{"all", LAll, ""},
		{"loud", LInfo, "log level=loud not valid"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.input, func(t *testing.T) {
			level, err := ParseLevel(c.input)
			if c.expectErr != "" {
				require.Error(t, err)
				assert.Equal(t, c.expectErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expect, level)
		})
	}
}

func TestLevelFilter(t *testing.T) {
	t.Parallel()

	buf := bytes.NewBuffer(nil)
	l := NewWriter(buf, LInfo)
	l.SetFlags(0)
	l.Debugf("hidden")
	l.Printf("reply=%s", "ok")
	l.Println("mqtt", "connected")
	assert.Equal(t, "reply=ok\nmqtt connected\n", buf.String())

	buf.Reset()
	l.SetLevel(LError)
	l.Infof("hidden")
	l.Errorf("shown")
	assert.Equal(t, "error: shown\n", buf.String())

	clone := l.Clone(LDebug)
	buf.Reset()
	clone.Debugf("wire")
	assert.Equal(t, "debug: wire\n", buf.String())
}

func TestNilDiscard(t *testing.T) {
	t.Parallel()

	l := NewWriter(ioutil.Discard, LAll)
	require.Nil(t, l)
	assert.False(t, l.Enabled(LError))
	l.Infof("no panic")
	l.Println("no panic")
}

func callerShort(depth int) (file string, line int) {
	var ok bool
	_, file, line, ok = runtime.Caller(depth)
	if !ok {
		file = "???"
		line = 0
	}

	short := file
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			break
		}
	}
	file = short

	return
}

func formatCallerShort(depth int) string {
	file, line := callerShort(depth + 1)
	return fmt.Sprintf("%s:%d: ", file, line-1)
}
