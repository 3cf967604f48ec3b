package review

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/gointake/internal/draft"
	"github.com/roelfdiedericks/gointake/internal/schema"
	"github.com/roelfdiedericks/gointake/internal/state"
	"github.com/roelfdiedericks/gointake/internal/stepper"
)

func reviewSchema() *schema.Schema {
	return &schema.Schema{Title: "Client Intake", Sections: []schema.Section{
		{ID: "personal", Title: "Personal", Fields: []*schema.Field{
			{ID: "fullName", Label: "Full Name", Type: schema.TypeText, Required: true},
			{ID: "email", Label: "Email", Type: schema.TypeEmail},
			{ID: "country", Label: "Country", Type: schema.TypeSelect, Options: []string{"US", "FR"}},
			{ID: "postalCode", Label: "Postal Code", Type: schema.TypeText, Required: true,
				VisibleIf: map[string]any{"country": "US"}},
		}},
		{ID: "family", Title: "Family", Fields: []*schema.Field{
			{ID: "children", Label: "Children", Type: schema.TypeRepeater, ItemFields: []*schema.Field{
				{ID: "childName", Label: "Name", Type: schema.TypeText},
				{ID: "childAge", Label: "Age", Type: schema.TypeNumber},
			}},
		}},
	}}
}

type navRecorder struct {
	dests []stepper.Destination
	err   error
}

func (n *navRecorder) Navigate(d stepper.Destination) error {
	n.dests = append(n.dests, d)
	return n.err
}

func newCompiler(t *testing.T) (*Compiler, *state.Store, *draft.MemoryStore, *navRecorder) {
	t.Helper()
	kv := draft.NewMemoryStore()
	store := state.New(state.Options{KV: kv, DisableAutosave: true})
	t.Cleanup(store.Close)
	nav := &navRecorder{}
	c := New(reviewSchema(), store, nav)
	c.Now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return c, store, kv, nav
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		name  string
		field *schema.Field
		value any
		want  string
	}{
		{"empty text", &schema.Field{Type: schema.TypeText}, "", NotProvided},
		{"empty list", &schema.Field{Type: schema.TypeMultiselect}, []string{}, NotProvided},
		{"checkbox true", &schema.Field{Type: schema.TypeCheckbox}, true, "Yes"},
		{"toggle false", &schema.Field{Type: schema.TypeToggle}, false, "No"},
		{"multiselect", &schema.Field{Type: schema.TypeMultiselect}, []any{"Family", "Immigration"}, "Family, Immigration"},
		{"single file", &schema.Field{Type: schema.TypeFile}, schema.FileDescriptor{Filename: "id.pdf"}, "id.pdf"},
		{"single file no name", &schema.Field{Type: schema.TypeFile}, map[string]any{"url": "x"}, "File uploaded"},
		{"multiple files", &schema.Field{Type: schema.TypeFile, Multiple: true},
			[]schema.FileDescriptor{{Filename: "a.pdf"}, {}}, "a.pdf, Uploaded file"},
		{"date", &schema.Field{Type: schema.TypeDate}, "2026-03-05", "3/5/2026"},
		{"bad date passes through", &schema.Field{Type: schema.TypeDate}, "soon", "soon"},
		{"month", &schema.Field{Type: schema.TypeMonth}, "2024-06", "2024-06"},
		{"number", &schema.Field{Type: schema.TypeNumber}, 3.0, "3"},
		{"zero number", &schema.Field{Type: schema.TypeNumber}, 0, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatValue(tc.field, tc.value))
		})
	}
}

func TestFormatRepeater(t *testing.T) {
	f := reviewSchema().Sections[1].Fields[0]
	items := []any{
		map[string]any{"childName": "Sam", "childAge": 4.0},
		map[string]any{"childAge": 2.0},
	}
	assert.Equal(t, "1. Sam; 2. Not provided", FormatValue(f, items))
}

func TestSectionCompletenessFollowsVisibility(t *testing.T) {
	c, store, _, _ := newCompiler(t)
	personal := &c.schema.Sections[0]

	assert.False(t, c.IsSectionComplete(personal))
	store.PatchValue("personal", "fullName", "Jane")
	assert.True(t, c.IsSectionComplete(personal))

	store.PatchValue("personal", "country", "US")
	assert.False(t, c.IsSectionComplete(personal), "postal code now visible")
	require.Len(t, c.IncompleteFields(personal), 1)
	assert.Equal(t, "postalCode", c.IncompleteFields(personal)[0].ID)

	store.PatchValue("personal", "postalCode", "94110")
	assert.True(t, c.IsFormComplete())

	ids := []string{}
	for _, f := range c.CompletedFields(personal) {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"fullName", "country", "postalCode"}, ids)
	assert.Equal(t, "94110", c.FormatFieldValue("personal", personal.Fields[3]))
}

func TestSummaryRows(t *testing.T) {
	c, store, _, _ := newCompiler(t)
	store.PatchValue("personal", "country", "US")
	store.PatchValue("family", "children", []any{map[string]any{"childName": "Sam"}})

	sum := c.Summary()
	assert.False(t, sum.Complete)
	require.Len(t, sum.Sections, 2)

	rows := sum.Sections[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, Row{FieldID: "fullName", Label: "Full Name", Value: NotProvided, Missing: true}, rows[0])
	assert.Equal(t, "US", rows[1].Value)
	assert.True(t, rows[2].Missing)

	assert.True(t, sum.Sections[1].Complete)
	assert.Equal(t, "1. Sam", sum.Sections[1].Rows[0].Value)
	assert.Equal(t, []string{"Personal: Full Name", "Personal: Postal Code"}, sum.Missing())
}

func TestSubmitRefusedWhenIncomplete(t *testing.T) {
	c, store, kv, nav := newCompiler(t)
	store.PatchValue("personal", "email", "jane@example.com")
	require.NoError(t, draft.Save(kv, draft.DefaultKey, draft.New(store.GetAllValues(), time.Now())))

	sub, err := c.Submit(context.Background())
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Contains(t, err.Error(), "Personal: Full Name")
	assert.Empty(t, nav.dests)
	assert.True(t, store.HasDraft(), "draft kept")
}

func TestSubmitClearsDraftAndNavigates(t *testing.T) {
	c, store, kv, nav := newCompiler(t)
	store.PatchValue("personal", "fullName", "Jane")
	require.NoError(t, draft.Save(kv, draft.DefaultKey, draft.New(store.GetAllValues(), time.Now())))

	sub, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^LS-[0-9A-Z]+-[0-9A-Z]{4}$`), sub.Reference)
	assert.Equal(t, "Jane", sub.Value["personal"]["fullName"])
	assert.Equal(t, []stepper.Destination{stepper.DestSuccess}, nav.dests)
	assert.False(t, store.HasDraft())

	nav.err = errors.New("router gone")
	sub, err = c.Submit(context.Background())
	require.Error(t, err)
	assert.NotNil(t, sub, "submission stands even if routing fails")
}

func TestSubmitHonoursContext(t *testing.T) {
	c, store, _, nav := newCompiler(t)
	store.PatchValue("personal", "fullName", "Jane")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Submit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, nav.dests)
}

func TestReferenceEncodesMillis(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	ref := Reference(at)
	parts := strings.Split(ref, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "LS", parts[0])
	assert.Equal(t, "LOYW3V28", parts[1])
}

func TestMarkdownAndHTML(t *testing.T) {
	c, store, _, _ := newCompiler(t)
	store.PatchValue("personal", "fullName", "Jane | <script>alert(1)</script>")

	md := Markdown(c.Summary())
	assert.Contains(t, md, "# Client Intake")
	assert.Contains(t, md, "## Personal (Complete)")
	assert.Contains(t, md, `Jane \| <script>`)
	assert.Contains(t, md, "Signature:")

	page, err := HTML(c.Summary())
	require.NoError(t, err)
	assert.Contains(t, page, "<title>Client Intake</title>")
	assert.Contains(t, page, "<table>")
	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "Signature:")
}
