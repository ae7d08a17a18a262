package helpers

import "time"

// Config values use 0 for "not set".
func IntSecondDefault(x int, def time.Duration) time.Duration {
	if x <= 0 {
		return def
	}
	return time.Duration(x) * time.Second
}

func IntMillisecondDefault(x int, def time.Duration) time.Duration {
	if x <= 0 {
		return def
	}
	return time.Duration(x) * time.Millisecond
}

func IntDefault(x int, def int) int {
	if x <= 0 {
		return def
	}
	return x
}
