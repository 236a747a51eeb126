package ccfacade

import (
	"errors"
	"testing"
)

func TestMultiHooksFansOut(t *testing.T) {
	a, b := &recordingHooks{}, &recordingHooks{}
	m := MultiHooks{a, b}

	m.ContentionRetry("1", 1, fastPolicy.Delay(1))
	m.RetriesExhausted("1", 3)
	m.WriteFailed("1", errors.New("boom"))
	m.ReadFailed("1", errors.New("boom"))

	for i, h := range []*recordingHooks{a, b} {
		if len(h.retries) != 1 || h.exhausted != 3 || len(h.failed) != 1 || h.readFails != 1 {
			t.Fatalf("hooks[%d] = %+v", i, h)
		}
	}
}
