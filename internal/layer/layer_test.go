package layer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/adgenesis/adgenesis/engine-go/internal/document"
	"github.com/adgenesis/adgenesis/engine-go/internal/geometry"
	"github.com/adgenesis/adgenesis/engine-go/internal/history"
)

func setup(t *testing.T, n int) (*Controller, *history.Manager) {
	t.Helper()
	c, err := document.NewCanvas(500, 500, document.Solid("#fff"))
	if err != nil {
		t.Fatal(err)
	}
	els := make([]document.Element, n)
	for i := range els {
		els[i] = document.NewElement(fmt.Sprintf("e%d", i), geometry.Point{X: float64(i)}, geometry.Size{W: 10, H: 10},
			document.ShapeContent{Shape: document.ShapeRect})
	}
	d, err := document.New(c, els...)
	if err != nil {
		t.Fatal(err)
	}
	h := history.New(d)
	return NewController(h), h
}

func order(h *history.Manager) string {
	d := h.Current()
	out := make([]string, d.Len())
	for i := range out {
		out[i] = d.At(i).ID
	}
	return fmt.Sprint(out)
}

func TestZOrderOperations(t *testing.T) {
	tests := []struct {
		name string
		op   func(*Controller) error
		want string
	}{
		{"front", func(c *Controller) error { return c.BringToFront("e1") }, "[e0 e2 e3 e1]"},
		{"back", func(c *Controller) error { return c.SendToBack("e2") }, "[e2 e0 e1 e3]"},
		{"forward", func(c *Controller) error { return c.BringForward("e1") }, "[e0 e2 e1 e3]"},
		{"backward", func(c *Controller) error { return c.SendBackward("e1") }, "[e1 e0 e2 e3]"},
		{"forward at top", func(c *Controller) error { return c.BringForward("e3") }, "[e0 e1 e2 e3]"},
		{"backward at bottom", func(c *Controller) error { return c.SendBackward("e0") }, "[e0 e1 e2 e3]"},
		{"move to clamps", func(c *Controller) error { return c.MoveTo("e0", 42) }, "[e1 e2 e3 e0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, h := setup(t, 4)
			if err := tt.op(c); err != nil {
				t.Fatalf("op: %v", err)
			}
			if got := order(h); got != tt.want {
				t.Fatalf("order = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEachOperationIsOneCommit(t *testing.T) {
	c, h := setup(t, 3)
	if err := c.BringToFront("e0"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetLocked("e1", true); err != nil {
		t.Fatal(err)
	}
	if h.Len() != 3 {
		t.Fatalf("history len = %d, want 3", h.Len())
	}
	h.Undo()
	el, _ := h.Current().Element("e1")
	if el.Locked {
		t.Fatalf("undo should restore the unlocked state")
	}
	h.Undo()
	if got := order(h); got != "[e0 e1 e2]" {
		t.Fatalf("order after undo = %s", got)
	}
}

func TestNoopOperationsDoNotCommit(t *testing.T) {
	c, h := setup(t, 2)
	if err := c.BringToFront("e1"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetVisible("e0", true); err != nil {
		t.Fatal(err)
	}
	if h.Len() != 1 {
		t.Fatalf("no-op operations committed %d entries", h.Len()-1)
	}
}

func TestUnknownID(t *testing.T) {
	c, _ := setup(t, 2)
	for _, err := range []error{
		c.BringForward("x"),
		c.SendBackward("x"),
		c.SetVisible("x", false),
		c.SetLocked("x", true),
	} {
		if !errors.Is(err, document.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	}
}

func TestLayersTopFirst(t *testing.T) {
	c, _ := setup(t, 3)
	if err := c.SetVisible("e2", false); err != nil {
		t.Fatal(err)
	}
	rows := c.Layers()
	if len(rows) != 3 || rows[0].ID != "e2" || rows[2].ID != "e0" {
		t.Fatalf("layers = %+v", rows)
	}
	if rows[0].Visible || rows[0].Index != 2 {
		t.Fatalf("top row = %+v", rows[0])
	}
}
