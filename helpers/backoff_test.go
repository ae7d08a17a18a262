package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	t.Parallel()
	b := Backoff{Min: time.Second, Max: 5 * time.Second, K: 2}
	assert.Equal(t, time.Duration(0), b.DelayBefore())

	expect := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for _, e := range expect {
		b.Failure()
		assert.Equal(t, e, b.Next())
		d := b.DelayBefore()
		assert.True(t, d > 0 && d <= e, "delay=%s next=%s", d, e)
	}

	b.Update(true)
	assert.Equal(t, time.Duration(0), b.Next())
	assert.Equal(t, time.Duration(0), b.DelayBefore())
}
