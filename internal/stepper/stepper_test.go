package stepper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/gointake/internal/draft"
	"github.com/roelfdiedericks/gointake/internal/field"
	"github.com/roelfdiedericks/gointake/internal/schema"
	"github.com/roelfdiedericks/gointake/internal/state"
	"github.com/roelfdiedericks/gointake/internal/validation"
)

func testSchema() *schema.Schema {
	return &schema.Schema{Title: "Test", Sections: []schema.Section{
		{ID: "personal", Title: "Personal", Fields: []*schema.Field{
			{ID: "fullName", Label: "Full Name", Type: schema.TypeText, Required: true},
			{ID: "email", Label: "Email", Type: schema.TypeEmail},
			{ID: "country", Label: "Country", Type: schema.TypeSelect, Options: []string{"US", "CA", "FR"}},
			{ID: "postalCode", Label: "Postal Code", Type: schema.TypeText, Required: true,
				VisibleIf: map[string]any{"country": []any{"CA", "US"}}},
		}},
		{ID: "family", Title: "Family", Fields: []*schema.Field{
			{ID: "hasKids", Label: "Kids?", Type: schema.TypeRadio, Options: []string{"yes", "no"},
				Reveals: map[string][]string{"yes": {"kidCount"}}},
			{ID: "kidCount", Label: "How many", Type: schema.TypeNumber, Required: true,
				VisibleIf: map[string]any{"hasKids": "yes"}},
		}},
		{ID: "matter", Title: "Matter", Fields: []*schema.Field{
			{ID: "summary", Label: "Summary", Type: schema.TypeTextarea},
		}},
	}}
}

type navRecorder struct {
	dests []Destination
}

func (n *navRecorder) Navigate(d Destination) error {
	n.dests = append(n.dests, d)
	return nil
}

func newStepper(t *testing.T, kv draft.KV) (*Stepper, *state.Store, *navRecorder) {
	t.Helper()
	store := state.New(state.Options{KV: kv, DisableAutosave: true})
	t.Cleanup(store.Close)
	nav := &navRecorder{}
	st, err := New(testSchema(), store, validation.New(), nav, field.Options{})
	require.NoError(t, err)
	return st, store, nav
}

func TestNilSchema(t *testing.T) {
	_, err := New(nil, state.New(state.Options{}), validation.New(), &navRecorder{}, field.Options{})
	assert.ErrorIs(t, err, ErrNoSchema)
}

func TestSchemaWithoutSections(t *testing.T) {
	_, err := New(&schema.Schema{Title: "Empty"}, state.New(state.Options{}), validation.New(), &navRecorder{}, field.Options{})
	assert.ErrorIs(t, err, ErrNoSections)
}

func TestNextGatedOnValidation(t *testing.T) {
	st, _, _ := newStepper(t, nil)

	err := st.Next()
	iss, ok := validation.AsIssues(err)
	require.True(t, ok)
	require.Len(t, iss, 1)
	assert.Equal(t, "fullName", iss[0].FieldID)
	assert.Equal(t, 0, st.Index())
	assert.True(t, st.Control("personal", "fullName").Touched())
	assert.Equal(t, "Full Name is required", st.Errors().First("fullName"))

	st.OnFieldChange("personal", "fullName", "Jane Doe")
	require.NoError(t, st.Next())
	assert.Equal(t, 1, st.Index())
	assert.Equal(t, "family", st.Section().ID)
}

func TestHiddenRequiredFieldsDoNotBlock(t *testing.T) {
	st, _, _ := newStepper(t, nil)
	st.OnFieldChange("personal", "fullName", "Jane")
	st.OnFieldChange("personal", "country", "FR")
	assert.NoError(t, st.ValidateSection("personal").Err())

	st.OnFieldChange("personal", "country", "US")
	r := st.ValidateSection("personal")
	assert.False(t, r.Valid)
	assert.Equal(t, "postalCode", r.Errors[0].FieldID)
}

func TestControlChangeFlowsToStore(t *testing.T) {
	st, store, _ := newStepper(t, nil)
	ctrl := st.Control("personal", "fullName").(*field.TextControl)
	require.NoError(t, ctrl.Input("Ada"))
	assert.Equal(t, "Ada", store.GetValue("personal", "fullName"))
}

func TestRevealClearsControlAndStore(t *testing.T) {
	st, store, _ := newStepper(t, nil)
	st.OnFieldChange("family", "hasKids", "yes")
	st.OnFieldChange("family", "kidCount", 2.0)
	assert.Equal(t, 2.0, store.GetValue("family", "kidCount"))

	st.OnFieldChange("family", "hasKids", "no")
	assert.Nil(t, store.GetValue("family", "kidCount"))
	assert.Nil(t, st.Control("family", "kidCount").Value())
}

func TestPreviousAndBounds(t *testing.T) {
	st, _, _ := newStepper(t, nil)
	assert.ErrorIs(t, st.Previous(), ErrFirstSection)

	st.OnFieldChange("personal", "fullName", "Jane")
	require.NoError(t, st.Next())
	require.NoError(t, st.Next())
	assert.True(t, st.IsLast())
	assert.ErrorIs(t, st.Next(), ErrLastSection)

	require.NoError(t, st.Previous())
	assert.Equal(t, 1, st.Index())
}

func TestGoTo(t *testing.T) {
	st, _, _ := newStepper(t, nil)
	assert.ErrorIs(t, st.GoTo("nowhere"), ErrUnknownSection)

	assert.Error(t, st.GoTo("matter"))
	assert.Equal(t, 0, st.Index())

	st.OnFieldChange("personal", "fullName", "Jane")
	require.NoError(t, st.GoTo("matter"))
	assert.Equal(t, 2, st.Index())
	require.NoError(t, st.GoTo("personal"))
	assert.Equal(t, 0, st.Index())
}

func TestGoToReviewStopsAtFirstInvalid(t *testing.T) {
	st, _, nav := newStepper(t, nil)
	st.OnFieldChange("personal", "fullName", "Jane")
	require.NoError(t, st.GoTo("matter"))
	st.OnFieldChange("family", "hasKids", "yes")

	assert.Error(t, st.GoToReview())
	assert.Equal(t, 1, st.Index())
	assert.Empty(t, nav.dests)

	st.OnFieldChange("family", "kidCount", 1)
	require.NoError(t, st.GoToReview())
	assert.Equal(t, []Destination{DestReview}, nav.dests)
}

func TestSectionCompletion(t *testing.T) {
	st, _, _ := newStepper(t, nil)
	assert.Equal(t, 0, st.SectionCompletion("personal"))
	st.OnFieldChange("personal", "fullName", "Jane")
	assert.Equal(t, 100, st.SectionCompletion("personal"))
	st.OnFieldChange("personal", "country", "CA")
	assert.Equal(t, 50, st.SectionCompletion("personal"))
	assert.Equal(t, 100, st.SectionCompletion("matter"))
	assert.Equal(t, 0, st.SectionCompletion("nope"))
}

func TestDraftBanner(t *testing.T) {
	kv := draft.NewMemoryStore()
	require.NoError(t, draft.Save(kv, draft.DefaultKey, draft.New(schema.FormValue{
		"personal": {"fullName": "Restored"},
	}, time.Now())))

	st, store, _ := newStepper(t, kv)
	assert.True(t, st.ShowDraftBanner())
	assert.Equal(t, "Restored", st.Control("personal", "fullName").Value())

	st.ResumeDraft()
	assert.False(t, st.ShowDraftBanner())
	assert.Equal(t, "Restored", store.GetValue("personal", "fullName"))
}

func TestDismissDraft(t *testing.T) {
	kv := draft.NewMemoryStore()
	require.NoError(t, draft.Save(kv, draft.DefaultKey, draft.New(schema.FormValue{
		"personal": {"fullName": "Restored"},
	}, time.Now())))

	st, store, _ := newStepper(t, kv)
	require.NoError(t, st.DismissDraft())

	assert.False(t, st.ShowDraftBanner())
	assert.False(t, store.HasDraft())
	assert.Empty(t, store.GetAllValues())
	assert.Equal(t, "", st.Control("personal", "fullName").Value())

	require.NoError(t, st.Control("personal", "fullName").(*field.TextControl).Input("New"))
	assert.Equal(t, "New", store.GetValue("personal", "fullName"), "rebuilt controls are wired")
}

func TestNoBannerWithoutDraft(t *testing.T) {
	st, _, _ := newStepper(t, draft.NewMemoryStore())
	assert.False(t, st.ShowDraftBanner())
}
