package field

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/gointake/internal/schema"
	"github.com/roelfdiedericks/gointake/internal/upload"
)

type sink struct {
	values []any
}

func (s *sink) fn(v any) { s.values = append(s.values, v) }

func (s *sink) last() any {
	if len(s.values) == 0 {
		return nil
	}
	return s.values[len(s.values)-1]
}

func mustNew(t *testing.T, f *schema.Field, opts Options) (Control, *sink) {
	t.Helper()
	c, err := New(f, opts)
	require.NoError(t, err)
	s := &sink{}
	c.OnChange(s.fn)
	return c, s
}

func TestNewDispatchesEveryType(t *testing.T) {
	svc, err := upload.NewService(upload.Options{}, nil)
	require.NoError(t, err)
	for _, typ := range schema.FieldTypes {
		c, err := New(&schema.Field{ID: "f", Type: typ}, Options{Uploads: svc})
		require.NoError(t, err, typ)
		assert.Equal(t, typ, c.Field().Type)
	}
	_, err = New(&schema.Field{ID: "f", Type: "signature"}, Options{})
	assert.Error(t, err)
}

func TestWriteValueDoesNotEmit(t *testing.T) {
	c, s := mustNew(t, &schema.Field{ID: "name", Type: schema.TypeText}, Options{})
	c.WriteValue("Jane")
	assert.Equal(t, "Jane", c.Value())
	assert.Empty(t, s.values)
	assert.False(t, c.Touched())

	require.NoError(t, c.(*TextControl).Input("Janet"))
	assert.Equal(t, []any{"Janet"}, s.values)
	assert.True(t, c.Touched())
}

func TestDisabledIgnoresInput(t *testing.T) {
	c, s := mustNew(t, &schema.Field{ID: "t", Type: schema.TypeToggle}, Options{})
	c.SetDisabled(true)
	assert.ErrorIs(t, c.(*ToggleControl).Click(), ErrDisabled)
	assert.Empty(t, s.values)
	assert.Equal(t, false, c.Value())
}

func TestToggleClickInverts(t *testing.T) {
	c, s := mustNew(t, &schema.Field{ID: "t", Type: schema.TypeToggle}, Options{})
	tc := c.(*ToggleControl)
	require.NoError(t, tc.Click())
	require.NoError(t, tc.Click())
	require.NoError(t, tc.Click())
	assert.Equal(t, []any{true, false, true}, s.values)
}

func TestNumberInput(t *testing.T) {
	c, s := mustNew(t, &schema.Field{ID: "n", Type: schema.TypeNumber}, Options{})
	nc := c.(*NumberControl)

	require.NoError(t, nc.Input(" 42 "))
	require.NoError(t, nc.Input(""))
	require.NoError(t, nc.Input("4x"))
	assert.Equal(t, []any{42.0, nil, "4x"}, s.values)

	nc.WriteValue(7)
	assert.Equal(t, "7", nc.Text())
}

func TestChoiceRejectsUnknownOption(t *testing.T) {
	c, s := mustNew(t, &schema.Field{ID: "c", Type: schema.TypeSelect, Options: []string{"US", "CA"}}, Options{})
	cc := c.(*ChoiceControl)
	assert.Error(t, cc.Choose("FR"))
	require.NoError(t, cc.Choose("CA"))
	assert.Equal(t, []any{"CA"}, s.values)
}

func TestMultiSelectToggle(t *testing.T) {
	f := &schema.Field{ID: "m", Type: schema.TypeMultiselect, Options: []string{"a", "b", "c"}}
	c, s := mustNew(t, f, Options{})
	mc := c.(*MultiSelectControl)

	require.NoError(t, mc.Toggle("b", true))
	require.NoError(t, mc.Toggle("a", true))
	require.NoError(t, mc.Toggle("b", true))
	assert.Equal(t, []string{"b", "a"}, s.last())

	require.NoError(t, mc.Toggle("b", false))
	assert.Equal(t, []string{"a"}, s.last())

	require.NoError(t, mc.Set([]string{"c", "a"}))
	assert.Equal(t, []string{"a", "c"}, s.last(), "existing order kept, new appended")

	mc.WriteValue([]any{"a", "a", "b"})
	assert.Equal(t, []string{"a", "b"}, mc.Value())
}

func childrenField() *schema.Field {
	return &schema.Field{ID: "children", Label: "Children", Type: schema.TypeRepeater, ItemFields: []*schema.Field{
		{ID: "childName", Label: "Name", Type: schema.TypeText},
	}}
}

func TestRepeaterScenario(t *testing.T) {
	c, s := mustNew(t, childrenField(), Options{})
	rc := c.(*RepeaterControl)

	require.NoError(t, rc.AddItem())
	assert.Equal(t, []any{map[string]any{"childName": ""}}, s.last())
	assert.Equal(t, "Child 1", rc.ItemTitle(0))

	require.NoError(t, rc.UpdateItem(0, "childName", "Sam"))
	assert.Equal(t, "Sam", rc.ItemTitle(0))
	assert.Equal(t, []any{map[string]any{"childName": "Sam"}}, s.last())

	assert.Error(t, rc.UpdateItem(0, "nope", "x"))
	assert.Error(t, rc.UpdateItem(3, "childName", "x"))

	require.NoError(t, rc.AddItem())
	require.NoError(t, rc.RemoveItem(0))
	assert.Equal(t, []any{map[string]any{"childName": ""}}, s.last())
	assert.Equal(t, "Child 1", rc.ItemTitle(0))
}

func TestRepeaterDefaults(t *testing.T) {
	f := &schema.Field{ID: "r", Label: "Countries", Type: schema.TypeRepeater, ItemFields: []*schema.Field{
		{ID: "country", Type: schema.TypeText},
		{ID: "current", Type: schema.TypeCheckbox},
		{ID: "on", Type: schema.TypeToggle},
		{ID: "tags", Type: schema.TypeMultiselect},
		{ID: "nested", Type: schema.TypeRepeater},
		{ID: "years", Type: schema.TypeNumber},
	}}
	c, s := mustNew(t, f, Options{})
	rc := c.(*RepeaterControl)
	require.NoError(t, rc.AddItem())

	assert.Equal(t, []any{map[string]any{
		"country": "", "current": false, "on": false, "tags": []string{}, "nested": []any{}, "years": nil,
	}}, s.last())
	assert.Equal(t, "Item 1", rc.ItemTitle(0))

	require.NoError(t, rc.UpdateItem(0, "country", "Kenya"))
	assert.Equal(t, "Kenya", rc.ItemTitle(0))
}

func TestRepeaterItemControlsWriteBack(t *testing.T) {
	c, s := mustNew(t, childrenField(), Options{})
	rc := c.(*RepeaterControl)
	require.NoError(t, rc.AddItem())

	ctrls, err := rc.ItemControls(0)
	require.NoError(t, err)
	require.Len(t, ctrls, 1)
	require.NoError(t, ctrls[0].(*TextControl).Input("Ada"))

	assert.Equal(t, []any{map[string]any{"childName": "Ada"}}, s.last())
}

func TestRepeaterDepthBound(t *testing.T) {
	leaf := &schema.Field{ID: "leaf", Type: schema.TypeText}
	f := leaf
	for i := 0; i < schema.MaxDepth+1; i++ {
		f = &schema.Field{ID: "r", Type: schema.TypeRepeater, ItemFields: []*schema.Field{f}}
	}

	c, err := New(f, Options{})
	require.NoError(t, err)
	var controls []Control
	for depth := 1; ; depth++ {
		rc, ok := c.(*RepeaterControl)
		if !ok {
			break
		}
		require.NoError(t, rc.AddItem())
		controls, err = rc.ItemControls(0)
		if err != nil {
			assert.Equal(t, schema.MaxDepth, depth)
			return
		}
		c = controls[0]
	}
	t.Fatal("expected nesting to be refused")
}

func TestFileAttach(t *testing.T) {
	svc, err := upload.NewService(upload.Options{Tick: time.Millisecond}, nil)
	require.NoError(t, err)

	f := &schema.Field{ID: "docs", Type: schema.TypeFile, Multiple: true, Accept: []string{".pdf"}, FileMeta: []string{"description"}}
	c, s := mustNew(t, f, Options{Uploads: svc})
	fc := c.(*FileControl)

	var snaps int
	err = fc.Attach(context.Background(), []upload.File{
		{Name: "a.pdf", Size: 10},
		{Name: "b.png", Size: 10},
		{Name: "c.exe", Size: 10},
	}, func([]upload.Progress) { snaps++ })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.png")
	assert.Contains(t, err.Error(), "c.exe")
	assert.Greater(t, snaps, 0)
	require.Len(t, fc.Files(), 1)
	assert.Equal(t, "a.pdf", fc.Files()[0].Filename)
	assert.Len(t, s.values, 1)

	require.NoError(t, fc.Attach(context.Background(), []upload.File{{Name: "d.pdf", Size: 1}}, nil))
	assert.Len(t, fc.Files(), 2)

	require.NoError(t, fc.SetFileMeta(1, "description", "Lease"))
	assert.Equal(t, "Lease", fc.Files()[1].Description)
	assert.Error(t, fc.SetFileMeta(1, "date", "2024-01-01"), "date not collected by this field")

	require.NoError(t, fc.RemoveFile(0))
	files := s.last().([]schema.FileDescriptor)
	require.Len(t, files, 1)
	assert.Equal(t, "d.pdf", files[0].Filename)
}

func TestSingleFileReplaces(t *testing.T) {
	svc, err := upload.NewService(upload.Options{Tick: time.Millisecond}, nil)
	require.NoError(t, err)
	c, s := mustNew(t, &schema.Field{ID: "id", Type: schema.TypeFile}, Options{Uploads: svc})
	fc := c.(*FileControl)

	require.NoError(t, fc.Attach(context.Background(), []upload.File{{Name: "a.pdf", Size: 1}}, nil))
	require.NoError(t, fc.Attach(context.Background(), []upload.File{{Name: "b.pdf", Size: 1}}, nil))

	fd, ok := s.last().(schema.FileDescriptor)
	require.True(t, ok)
	assert.Equal(t, "b.pdf", fd.Filename)
	assert.Len(t, fc.Files(), 1)
}

func TestItemNounIgnoresCase(t *testing.T) {
	for label, want := range map[string]string{
		"Children":             "Child",
		"Minor children":       "Child",
		"CHILDREN OF MARRIAGE": "Child",
		"Properties":           "Item",
	} {
		f := &schema.Field{ID: "r", Label: label, Type: schema.TypeRepeater}
		assert.Equal(t, want+" 1", ItemTitle(f, map[string]any{}, 0), label)
	}
}

func TestFileSlotsPerRepeaterItem(t *testing.T) {
	svc, err := upload.NewService(upload.Options{Tick: time.Millisecond}, nil)
	require.NoError(t, err)
	slots := &upload.Slots{}

	f := &schema.Field{ID: "children", Label: "Children", Type: schema.TypeRepeater, ItemFields: []*schema.Field{
		{ID: "birthCertificate", Type: schema.TypeFile, Accept: []string{".pdf"}},
	}}
	c, _ := mustNew(t, f, Options{Uploads: svc, Slots: slots})
	rc := c.(*RepeaterControl)
	require.NoError(t, rc.AddItem())
	require.NoError(t, rc.AddItem())

	first, err := rc.ItemControls(0)
	require.NoError(t, err)
	second, err := rc.ItemControls(1)
	require.NoError(t, err)
	assert.Equal(t, "children[0].birthCertificate", first[0].(*FileControl).slot)
	assert.Equal(t, "children[1].birthCertificate", second[0].(*FileControl).slot)

	running, done := slots.Begin(context.Background(), first[0].(*FileControl).slot)
	defer done()
	require.NoError(t, second[0].(*FileControl).Attach(context.Background(), []upload.File{{Name: "b.pdf", Size: 1}}, nil))
	assert.NoError(t, running.Err(), "upload in another item keeps running")
}

func TestDefaultValue(t *testing.T) {
	assert.Equal(t, false, DefaultValue(&schema.Field{Type: schema.TypeCheckbox}))
	assert.Equal(t, "", DefaultValue(&schema.Field{Type: schema.TypeDate}))
	assert.Nil(t, DefaultValue(&schema.Field{Type: schema.TypeNumber}))
}
