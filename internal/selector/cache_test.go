package selector

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLearnedCache(t *testing.T) {
	t.Run("miss on first use", func(t *testing.T) {
		c := NewLearnedCache()
		_, ok := c.Get(OpenAddDialog)
		assert.False(t, ok)
	})

	t.Run("set overwrites", func(t *testing.T) {
		c := NewLearnedCache()
		c.Set(ClickInsert, CSS("a"))
		c.Set(ClickInsert, CSS("b"))

		got, ok := c.Get(ClickInsert)
		assert.True(t, ok)
		assert.Equal(t, CSS("b"), got)
	})

	t.Run("actions are isolated", func(t *testing.T) {
		c := NewLearnedCache()
		c.Set(FillURLField, CSS("input"))

		_, ok := c.Get(ClickInsert)
		assert.False(t, ok)
	})

	t.Run("new cache starts empty", func(t *testing.T) {
		first := NewLearnedCache()
		first.Set(OpenAddDialog, CSS("button"))

		assert.Empty(t, NewLearnedCache().Snapshot())
	})

	t.Run("snapshot uses canonical strings", func(t *testing.T) {
		c := NewLearnedCache()
		c.Set(OpenAddDialog, XPath("//button"))
		c.Set(ClickInsert, CSS("button.go"))

		assert.Equal(t, map[Action]string{
			OpenAddDialog: "xpath://button",
			ClickInsert:   "button.go",
		}, c.Snapshot())
	})

	t.Run("concurrent use", func(t *testing.T) {
		c := NewLearnedCache()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.Set(OpenAddDialog, CSS("x"))
				c.Get(OpenAddDialog)
				c.Snapshot()
			}()
		}
		wg.Wait()
		got, _ := c.Get(OpenAddDialog)
		assert.Equal(t, CSS("x"), got)
	})
}
