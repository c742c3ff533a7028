package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/hotclick/internal/keys"
	"github.com/roach88/hotclick/internal/model"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestMacros builds n distinct macros. Even positions are pinned to
// a point, odd positions use the cursor; every third one is a key action.
func createTestMacros(n int) []model.Macro {
	macros := make([]model.Macro, 0, n)
	for i := 0; i < n; i++ {
		m := model.Macro{
			Name:       fmt.Sprintf("macro %d", i),
			Trigger:    keys.MustParse(fmt.Sprintf("f%d", i+1)),
			Action:     model.Click(model.ActionLeft),
			Repeat:     i + 1,
			Interval:   time.Duration(i*250) * time.Millisecond,
			StartDelay: time.Duration(i) * time.Second,
		}
		if i%3 == 2 {
			m.Action = model.Keystroke("enter")
		}
		if i%2 == 0 {
			m.Action = m.Action.WithPoint(100+i, 200+i)
		}
		macros = append(macros, m)
	}
	return macros
}
