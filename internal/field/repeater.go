package field

import (
	"fmt"
	"strings"

	"github.com/roelfdiedericks/gointake/internal/schema"
)

// RepeaterControl holds an ordered list of item value maps shaped by the
// field's itemFields.
type RepeaterControl struct {
	base
	opts  Options
	items []map[string]any
}

func (c *RepeaterControl) WriteValue(v any) {
	items := schema.AsItems(v)
	c.items = make([]map[string]any, len(items))
	for i, it := range items {
		c.items[i] = schema.CloneValue(map[string]any(it)).(map[string]any)
	}
}

// Value returns the items as a []any of maps, the shape a decoded draft has.
func (c *RepeaterControl) Value() any {
	out := make([]any, len(c.items))
	for i, it := range c.items {
		out[i] = schema.CloneValue(it)
	}
	return out
}

// Len is the number of items.
func (c *RepeaterControl) Len() int { return len(c.items) }

// Items returns copies of the item maps.
func (c *RepeaterControl) Items() []map[string]any {
	out := make([]map[string]any, len(c.items))
	for i, it := range c.items {
		out[i] = schema.CloneValue(it).(map[string]any)
	}
	return out
}

// AddItem appends an item holding each item field's default value.
func (c *RepeaterControl) AddItem() error {
	if c.disabled {
		return ErrDisabled
	}
	item := make(map[string]any, len(c.field.ItemFields))
	for _, f := range c.field.ItemFields {
		item[f.ID] = DefaultValue(f)
	}
	c.items = append(c.items, item)
	c.emit(c.Value())
	return nil
}

// RemoveItem deletes the item at index.
func (c *RepeaterControl) RemoveItem(index int) error {
	if c.disabled {
		return ErrDisabled
	}
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.items = append(c.items[:index:index], c.items[index+1:]...)
	c.emit(c.Value())
	return nil
}

// UpdateItem sets one item field of the item at index.
func (c *RepeaterControl) UpdateItem(index int, itemFieldID string, value any) error {
	if c.disabled {
		return ErrDisabled
	}
	if err := c.checkIndex(index); err != nil {
		return err
	}
	if c.field.ItemField(itemFieldID) == nil {
		return fmt.Errorf("%s has no item field %q", c.field.ID, itemFieldID)
	}
	c.items[index][itemFieldID] = schema.CloneValue(value)
	c.emit(c.Value())
	return nil
}

// ItemControls builds controls for the item at index. Their changes are
// written back through UpdateItem.
func (c *RepeaterControl) ItemControls(index int) ([]Control, error) {
	if err := c.checkIndex(index); err != nil {
		return nil, err
	}
	opts := c.opts
	opts.depth = c.opts.depth + 1
	opts.slotPrefix = fmt.Sprintf("%s%s[%d].", c.opts.slotPrefix, c.field.ID, index)

	controls := make([]Control, 0, len(c.field.ItemFields))
	for _, f := range c.field.ItemFields {
		ctrl, err := New(f, opts)
		if err != nil {
			return nil, err
		}
		ctrl.WriteValue(c.items[index][f.ID])
		ctrl.SetDisabled(c.disabled)
		id := f.ID
		ctrl.OnChange(func(v any) {
			c.UpdateItem(index, id, v)
		})
		controls = append(controls, ctrl)
	}
	return controls, nil
}

// ItemNoun is "Child" for repeaters about children, "Item" otherwise.
func (c *RepeaterControl) ItemNoun() string {
	return itemNoun(c.field)
}

func itemNoun(f *schema.Field) string {
	if strings.Contains(strings.ToLower(f.Label), "children") {
		return "Child"
	}
	return "Item"
}

// ItemTitle names the item at index: its name field, else its country
// field, else "<ItemNoun> N".
func (c *RepeaterControl) ItemTitle(index int) string {
	if index >= 0 && index < len(c.items) {
		return ItemTitle(c.field, c.items[index], index)
	}
	return fmt.Sprintf("%s %d", c.ItemNoun(), index+1)
}

// ItemTitle is RepeaterControl.ItemTitle for a bare item map.
func ItemTitle(f *schema.Field, item map[string]any, index int) string {
	for _, key := range []string{"name", "country"} {
		for _, it := range f.ItemFields {
			if !strings.Contains(strings.ToLower(it.ID), key) {
				continue
			}
			if s, ok := schema.AsString(item[it.ID]); ok && s != "" {
				return s
			}
			break
		}
	}
	return fmt.Sprintf("%s %d", itemNoun(f), index+1)
}

func (c *RepeaterControl) checkIndex(index int) error {
	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%s: item index %d out of range", c.field.ID, index)
	}
	return nil
}
