package cart

import (
	"testing"
)

func TestCartAddLineMergesSameProduct(t *testing.T) {
	c := New("user-1")

	c.AddLine("p1", 10.0, 2)
	c.AddLine("p1", 10.0, 3)

	if len(c.Lines) != 1 {
		t.Fatalf("expected one merged line, got %d", len(c.Lines))
	}
	if c.Lines[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", c.Lines[0].Quantity)
	}
}

func TestCartTotalsRecomputedOnEveryMutation(t *testing.T) {
	c := New("user-1")

	c.AddLine("p1", 10.0, 2)
	c.AddLine("p2", 5.5, 1)
	if c.TotalItems != 3 || c.TotalAmount != 25.5 {
		t.Fatalf("totals after add: items=%d amount=%v", c.TotalItems, c.TotalAmount)
	}
	if c.Lines[0].Subtotal != 20.0 || c.Lines[1].Subtotal != 5.5 {
		t.Fatalf("subtotals not recomputed: %+v", c.Lines)
	}

	if err := c.UpdateLineQuantity(c.Lines[0].ID, 1); err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if c.TotalItems != 2 || c.TotalAmount != 15.5 {
		t.Fatalf("totals after update: items=%d amount=%v", c.TotalItems, c.TotalAmount)
	}

	if err := c.RemoveLine(c.Lines[0].ID); err != nil {
		t.Fatalf("remove line: %v", err)
	}
	if c.TotalItems != 1 || c.TotalAmount != 5.5 {
		t.Fatalf("totals after remove: items=%d amount=%v", c.TotalItems, c.TotalAmount)
	}

	c.Clear()
	if !c.IsEmpty() || c.TotalItems != 0 || c.TotalAmount != 0 {
		t.Fatalf("totals after clear: items=%d amount=%v", c.TotalItems, c.TotalAmount)
	}
}

func TestCartUpdateUnknownLine(t *testing.T) {
	c := New("user-1")
	c.AddLine("p1", 10.0, 1)

	if err := c.UpdateLineQuantity("nope", 2); err != ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if err := c.RemoveLine("nope"); err != ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestCartLineLookups(t *testing.T) {
	c := New("user-1")
	ln := c.AddLine("p1", 10.0, 1)

	if got := c.LineByID(ln.ID); got == nil || got.ProductID != "p1" {
		t.Fatalf("LineByID returned %+v", got)
	}
	if got := c.LineByProduct("p1"); got == nil || got.ID != ln.ID {
		t.Fatalf("LineByProduct returned %+v", got)
	}
	if c.LineByProduct("p2") != nil {
		t.Fatalf("expected nil for unknown product")
	}
}
