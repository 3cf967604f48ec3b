package field

import (
	"errors"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/gointake/internal/schema"
	"github.com/roelfdiedericks/gointake/internal/upload"
)

func TestBindProducesHuhFields(t *testing.T) {
	cases := []struct {
		field *schema.Field
		want  any
	}{
		{&schema.Field{ID: "a", Type: schema.TypeText}, &huh.Input{}},
		{&schema.Field{ID: "b", Type: schema.TypeTextarea}, &huh.Text{}},
		{&schema.Field{ID: "c", Type: schema.TypeNumber}, &huh.Input{}},
		{&schema.Field{ID: "d", Type: schema.TypeSelect, Options: []string{"x"}}, &huh.Select[string]{}},
		{&schema.Field{ID: "e", Type: schema.TypeMultiselect, Options: []string{"x"}}, &huh.MultiSelect[string]{}},
		{&schema.Field{ID: "f", Type: schema.TypeCheckbox}, &huh.Confirm{}},
		{&schema.Field{ID: "g", Type: schema.TypeToggle}, &huh.Confirm{}},
	}
	for _, tc := range cases {
		c, s := mustNew(t, tc.field, Options{})
		hf, b, err := Bind(c, nil)
		require.NoError(t, err, tc.field.Type)
		assert.IsType(t, tc.want, hf)
		assert.Equal(t, tc.field.ID, hf.GetKey())

		require.NoError(t, b.Apply())
		assert.Empty(t, s.values, "%s: unchanged value does not emit", tc.field.Type)
		assert.Same(t, c, b.Control())
	}
}

func TestBindSubFlows(t *testing.T) {
	svc, err := upload.NewService(upload.Options{}, nil)
	require.NoError(t, err)
	for _, typ := range []schema.FieldType{schema.TypeFile, schema.TypeRepeater} {
		c, err := New(&schema.Field{ID: "x", Type: typ}, Options{Uploads: svc})
		require.NoError(t, err)
		_, _, err = Bind(c, nil)
		assert.ErrorIs(t, err, ErrSubFlow)
	}
}

func TestBindValidateHook(t *testing.T) {
	c, _ := mustNew(t, &schema.Field{ID: "n", Type: schema.TypeText, Required: true}, Options{})
	var got []any
	_, _, err := Bind(c, func(f *schema.Field, v any) error {
		got = append(got, v)
		return errors.New("nope")
	})
	require.NoError(t, err)
	assert.Empty(t, got, "validation runs on edit, not on bind")
}

func TestHint(t *testing.T) {
	lo, hi := 1.0, 20.0
	assert.Equal(t, "1 to 20", hint(&schema.Field{Type: schema.TypeNumber, Min: &lo, Max: &hi}))
	assert.Equal(t, "YYYY-MM", hint(&schema.Field{Type: schema.TypeMonth}))
	assert.Equal(t, "", hint(&schema.Field{Type: schema.TypeText}))
}
