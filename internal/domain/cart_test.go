package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Cart Add Tests
// ============================================================================

func TestCart_Add_NewLine(t *testing.T) {
	c := NewCart()
	c.Add("book-1", 100000, 2, false)

	line, ok := c.Lines["book-1"]
	assert.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, int64(100000), line.UnitPrice)
	assert.True(t, line.Selected)
}

func TestCart_Add_Additive(t *testing.T) {
	c := NewCart()
	c.Add("book-1", 100000, 2, false)
	c.Add("book-1", 100000, 3, false)

	assert.Equal(t, 5, c.Lines["book-1"].Quantity)
}

func TestCart_Add_Override(t *testing.T) {
	c := NewCart()
	c.Add("book-1", 100000, 5, false)
	c.Add("book-1", 100000, 2, true)

	assert.Equal(t, 2, c.Lines["book-1"].Quantity)
}

func TestCart_Add_PriceSnapshotFixedAtFirstAdd(t *testing.T) {
	c := NewCart()
	c.Add("book-1", 100000, 1, false)
	// Catalog price has changed; the line keeps its original snapshot.
	c.Add("book-1", 150000, 1, false)

	assert.Equal(t, int64(100000), c.Lines["book-1"].UnitPrice)
	assert.Equal(t, 2, c.Lines["book-1"].Quantity)
}

// ============================================================================
// Cart Remove / Clear Tests
// ============================================================================

func TestCart_Remove(t *testing.T) {
	c := NewCart()
	c.Add("book-1", 100000, 1, false)
	c.Remove("book-1")

	assert.Empty(t, c.Lines)
}

func TestCart_Remove_AbsentIsNoop(t *testing.T) {
	c := NewCart()
	c.Add("book-1", 100000, 1, false)
	c.Remove("book-2")

	assert.Equal(t, 1, c.LineCount())
}

func TestCart_Clear(t *testing.T) {
	c := NewCart()
	c.Add("book-1", 100000, 1, false)
	c.CouponCode = "SAVE10"
	c.Clear()

	assert.True(t, c.IsEmpty())
	assert.Empty(t, c.CouponCode)
}

// ============================================================================
// Cart Selection Tests
// ============================================================================

func TestCart_SetSelected_FullReplace(t *testing.T) {
	c := NewCart()
	c.Add("book-1", 100000, 1, false)
	c.Add("book-2", 50000, 1, false)
	c.Add("book-3", 75000, 1, false)

	c.SetSelected([]string{"book-2"})

	assert.False(t, c.Lines["book-1"].Selected)
	assert.True(t, c.Lines["book-2"].Selected)
	assert.False(t, c.Lines["book-3"].Selected)
}

func TestCart_SetSelected_Empty_DeselectsAll(t *testing.T) {
	c := NewCart()
	c.Add("book-1", 100000, 1, false)
	c.SetSelected(nil)

	assert.False(t, c.Lines["book-1"].Selected)
}

// ============================================================================
// Cart Totals Tests
// ============================================================================

func TestCart_TotalPrice(t *testing.T) {
	c := NewCart()
	c.Add("book-1", 100000, 2, false)
	c.Add("book-2", 50000, 1, false)

	assert.Equal(t, int64(250000), c.TotalPrice())
}

func TestCart_SelectedTotalPrice(t *testing.T) {
	c := NewCart()
	c.Add("book-1", 100000, 2, false)
	c.Add("book-2", 50000, 1, false)
	c.SetSelected([]string{"book-1"})

	assert.Equal(t, int64(200000), c.SelectedTotalPrice())
	assert.Equal(t, int64(250000), c.TotalPrice())
}

func TestCart_TotalPrice_Empty(t *testing.T) {
	c := NewCart()
	assert.Equal(t, int64(0), c.TotalPrice())
	assert.True(t, c.IsEmpty())
}
