package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/roelfdiedericks/gointake/internal/field"
	. "github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/paths"
	"github.com/roelfdiedericks/gointake/internal/review"
	"github.com/roelfdiedericks/gointake/internal/schema"
	"github.com/roelfdiedericks/gointake/internal/session"
	"github.com/roelfdiedericks/gointake/internal/stepper"
	"github.com/roelfdiedericks/gointake/internal/upload"
	"github.com/roelfdiedericks/gointake/internal/validation"
)

// ErrQuit is returned when the user leaves before submitting. The draft is
// kept.
var ErrQuit = errors.New("tui: quit")

// maxPasses bounds how often a section form is re-shown because answers
// revealed more fields.
const maxPasses = 5

// Runner walks one session through intake, review and submission.
type Runner struct {
	sess   *session.Session
	st     *stepper.Stepper
	router *session.Router
	ind    *Indicator
	title  string

	entered    int // section index whose edit form was last shown
	notice     string
	submission *review.Submission
}

// Run drives the session until it is submitted or the user quits.
func Run(ctx context.Context, sess *session.Session) (*review.Submission, error) {
	router := sess.Router()
	if router == nil {
		return nil, errors.New("tui: session has no router")
	}
	r := &Runner{
		sess:    sess,
		st:      sess.Stepper,
		router:  router,
		ind:     NewIndicator(sess.Store, sess.Schema.UI.Progress),
		title:   "⚖ " + sess.Schema.Title,
		entered: -1,
	}
	defer r.ind.Close()

	if err := r.banner(); err != nil {
		return nil, err
	}

	for ctx.Err() == nil {
		var err error
		switch router.Current() {
		case stepper.DestIntake:
			err = r.intakeStep(ctx)
		case stepper.DestReview:
			err = r.reviewStep(ctx)
		case stepper.DestSuccess:
			r.successStep()
			return r.submission, nil
		default:
			return nil, fmt.Errorf("tui: unknown destination %q", router.Current())
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, ctx.Err()
}

func (r *Runner) screen(subtitle string) Screen {
	s := Screen{FrameTitle: r.title, Subtitle: subtitle, Status: r.ind.Line}
	if r.notice != "" {
		s.Body = r.notice
		r.notice = ""
	}
	return s
}

func (r *Runner) banner() error {
	if !r.st.ShowDraftBanner() {
		return nil
	}
	if !r.sess.Schema.UI.AllowDraftResume {
		r.st.ResumeDraft()
		return nil
	}

	sub := "You have a saved draft"
	if at := r.sess.Store.RestoredAt(); !at.IsZero() {
		sub += " from " + at.Local().Format("Jan 2, 15:04")
	}
	choice, err := Choose(r.screen(sub), "Continue where you left off?", []huh.Option[string]{
		huh.NewOption("Resume draft", "resume"),
		huh.NewOption("Start over", "dismiss"),
	})
	switch {
	case errors.Is(err, huh.ErrUserAborted):
		choice = "resume"
	case err != nil:
		return err
	}
	if choice == "dismiss" {
		return r.st.DismissDraft()
	}
	r.st.ResumeDraft()
	return nil
}

func (r *Runner) intakeStep(ctx context.Context) error {
	sec := r.st.Section()
	if r.entered != r.st.Index() {
		r.entered = r.st.Index()
		if err := r.editFields(sec); err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return err
		}
	}

	choice, err := Choose(r.screen(r.sectionSubtitle(sec)), "What next?", r.navOptions(sec))
	if errors.Is(err, huh.ErrUserAborted) {
		r.entered = -1
		return nil
	}
	if err != nil {
		return err
	}
	return r.navigate(ctx, sec, choice)
}

func (r *Runner) sectionSubtitle(sec *schema.Section) string {
	return fmt.Sprintf("Step %d of %d · %s · %d%% of required answers given",
		r.st.Index()+1, len(r.sess.Schema.Sections), sec.Title, r.st.SectionCompletion(sec.ID))
}

func (r *Runner) navOptions(sec *schema.Section) []huh.Option[string] {
	next := "Continue"
	if r.st.IsLast() {
		next = "Continue to review"
	}
	opts := []huh.Option[string]{huh.NewOption(next, "next")}
	for _, c := range r.st.VisibleControls(sec.ID) {
		switch ctrl := c.(type) {
		case *field.RepeaterControl:
			opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%d)", ctrl.Field().Label, ctrl.Len()), "flow:"+ctrl.Field().ID))
		case *field.FileControl:
			opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%d files)", ctrl.Field().Label, len(ctrl.Files())), "flow:"+ctrl.Field().ID))
		}
	}
	opts = append(opts, huh.NewOption("Edit answers", "edit"))
	if !r.st.IsFirst() {
		opts = append(opts, huh.NewOption("Back", "back"))
	}
	opts = append(opts,
		huh.NewOption("Jump to section", "jump"),
		huh.NewOption("Review answers", "review"),
		huh.NewOption("Save and quit", "quit"),
	)
	return opts
}

func (r *Runner) navigate(ctx context.Context, sec *schema.Section, choice string) error {
	if id, ok := strings.CutPrefix(choice, "flow:"); ok {
		return r.subFlow(ctx, r.st.Control(sec.ID, id))
	}

	switch choice {
	case "next":
		err := r.st.Next()
		if errors.Is(err, stepper.ErrLastSection) {
			return r.toReview()
		}
		return r.absorbIssues(err)
	case "back":
		if err := r.st.Previous(); err != nil && !errors.Is(err, stepper.ErrFirstSection) {
			return err
		}
	case "edit":
		r.entered = -1
	case "jump":
		return r.jump()
	case "review":
		return r.toReview()
	case "quit":
		return ErrQuit
	}
	return nil
}

// absorbIssues turns validation issues into a notice and reopens the
// current section's form. Other errors pass through.
func (r *Runner) absorbIssues(err error) error {
	if err == nil {
		return nil
	}
	iss, ok := validation.AsIssues(err)
	if !ok {
		return err
	}
	r.notice = renderIssues(r.st.Section(), iss)
	r.entered = -1
	return nil
}

func (r *Runner) toReview() error {
	return r.absorbIssues(r.st.GoToReview())
}

func (r *Runner) jump() error {
	opts := make([]huh.Option[string], 0, len(r.sess.Schema.Sections))
	for i := range r.sess.Schema.Sections {
		sec := &r.sess.Schema.Sections[i]
		opts = append(opts, huh.NewOption(fmt.Sprintf("%d. %s (%d%%)", i+1, sec.Title, r.st.SectionCompletion(sec.ID)), sec.ID))
	}
	choice, err := Choose(r.screen("Sections ahead of the current one must be valid to jump past them"), "Go to section", opts)
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.absorbIssues(r.st.GoTo(choice))
}

// editFields shows the bindable visible fields of sec and applies the
// answers. When answers reveal fields that were not shown, the form is
// shown again with them.
func (r *Runner) editFields(sec *schema.Section) error {
	for pass := 0; pass < maxPasses; pass++ {
		controls := r.st.VisibleControls(sec.ID)
		shown := make(map[string]bool, len(controls))

		var fields []huh.Field
		var bindings []*field.Binding
		for _, c := range controls {
			hf, b, err := field.Bind(c, r.inlineCheck)
			if errors.Is(err, field.ErrSubFlow) {
				continue
			}
			if err != nil {
				return err
			}
			shown[c.Field().ID] = true
			fields = append(fields, hf)
			bindings = append(bindings, b)
		}
		if len(fields) == 0 {
			return nil
		}

		form := huh.NewForm(huh.NewGroup(fields...).Title(sec.Title))
		if err := Show(r.screen(r.sectionSubtitle(sec)).withForm(form)); err != nil {
			return err
		}
		r.applyBindings(sec, bindings)

		revealed := false
		for _, c := range r.st.VisibleControls(sec.ID) {
			if bindable(c) && !shown[c.Field().ID] {
				revealed = true
				break
			}
		}
		if !revealed {
			return nil
		}
		L_debug("tui: answers revealed fields", "section", sec.ID, "pass", pass+1)
	}
	return nil
}

// applyBindings applies in schema order and skips fields an earlier answer
// has hidden, so a reveal's clearing is not undone.
func (r *Runner) applyBindings(sec *schema.Section, bindings []*field.Binding) {
	for _, b := range bindings {
		if !r.isVisible(sec, b.Name) {
			continue
		}
		if err := b.Apply(); err != nil {
			L_warn("tui: answer not applied", "field", b.Name, "error", err)
		}
	}
}

func (r *Runner) isVisible(sec *schema.Section, fieldID string) bool {
	for _, f := range r.st.VisibleFields(sec.ID) {
		if f.ID == fieldID {
			return true
		}
	}
	return false
}

// inlineCheck reports format problems while typing. Missing answers are
// reported when leaving the section.
func (r *Runner) inlineCheck(f *schema.Field, v any) error {
	for _, fe := range r.sess.Engine.ValidateField(f, v).Errors {
		if fe.Code != validation.CodeRequired {
			return errors.New(fe.Message)
		}
	}
	return nil
}

func bindable(c field.Control) bool {
	switch c.(type) {
	case *field.RepeaterControl, *field.FileControl:
		return false
	}
	return true
}

func (r *Runner) subFlow(ctx context.Context, c field.Control) error {
	switch ctrl := c.(type) {
	case *field.RepeaterControl:
		return r.repeaterFlow(ctx, ctrl)
	case *field.FileControl:
		return r.fileFlow(ctx, ctrl)
	}
	return nil
}

func (r *Runner) repeaterFlow(ctx context.Context, c *field.RepeaterControl) error {
	noun := strings.ToLower(c.ItemNoun())
	for {
		opts := []huh.Option[string]{huh.NewOption("Add "+noun, "add")}
		for i := 0; i < c.Len(); i++ {
			title := c.ItemTitle(i)
			opts = append(opts,
				huh.NewOption("Edit "+title, "edit:"+strconv.Itoa(i)),
				huh.NewOption("Remove "+title, "remove:"+strconv.Itoa(i)),
			)
		}
		opts = append(opts, huh.NewOption("Done", "done"))

		choice, err := Choose(r.screen(fmt.Sprintf("%s · %d entered", c.Field().Label, c.Len())), c.Field().Label, opts)
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		action, index := parseChoice(choice)
		switch action {
		case "done":
			return nil
		case "add":
			if err := c.AddItem(); err != nil {
				return err
			}
			if err := r.editItem(ctx, c, c.Len()-1); err != nil {
				return err
			}
		case "edit":
			if err := r.editItem(ctx, c, index); err != nil {
				return err
			}
		case "remove":
			if err := c.RemoveItem(index); err != nil {
				r.notice = errorStyle.Render(err.Error())
			}
		}
	}
}

func (r *Runner) editItem(ctx context.Context, c *field.RepeaterControl, index int) error {
	controls, err := c.ItemControls(index)
	if err != nil {
		return err
	}

	var fields []huh.Field
	var bindings []*field.Binding
	var nested []field.Control
	for _, ctrl := range controls {
		hf, b, err := field.Bind(ctrl, r.inlineCheck)
		if errors.Is(err, field.ErrSubFlow) {
			nested = append(nested, ctrl)
			continue
		}
		if err != nil {
			return err
		}
		fields = append(fields, hf)
		bindings = append(bindings, b)
	}

	if len(fields) > 0 {
		form := huh.NewForm(huh.NewGroup(fields...).Title(c.ItemTitle(index)))
		err := Show(r.screen(c.Field().Label).withForm(form))
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, b := range bindings {
			if err := b.Apply(); err != nil {
				L_warn("tui: item answer not applied", "field", c.Field().ID, "item", index, "error", err)
			}
		}
	}

	for _, ctrl := range nested {
		if err := r.subFlow(ctx, ctrl); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) fileFlow(ctx context.Context, c *field.FileControl) error {
	f := c.Field()
	for {
		files := c.Files()
		opts := []huh.Option[string]{huh.NewOption("Attach file", "attach")}
		if f.Multiple {
			opts[0] = huh.NewOption("Attach files", "attach")
		}
		for i, fd := range files {
			if len(f.FileMeta) > 0 {
				opts = append(opts, huh.NewOption("Details for "+fd.Filename, "meta:"+strconv.Itoa(i)))
			}
			opts = append(opts, huh.NewOption("Remove "+fd.Filename, "remove:"+strconv.Itoa(i)))
		}
		opts = append(opts, huh.NewOption("Done", "done"))

		sub := fmt.Sprintf("%s · %d attached · accepted: %s", f.Label, len(files), strings.Join(acceptList(f), " "))
		choice, err := Choose(r.screen(sub), f.Label, opts)
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		action, index := parseChoice(choice)
		switch action {
		case "done":
			return nil
		case "attach":
			if err := r.attach(ctx, c); err != nil {
				return err
			}
		case "remove":
			if err := c.RemoveFile(index); err != nil {
				r.notice = errorStyle.Render(err.Error())
			}
		case "meta":
			if err := r.fileMeta(c, index); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) attach(ctx context.Context, c *field.FileControl) error {
	var raw string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("File path").Description("Separate several paths with commas").Value(&raw),
	))
	err := Show(r.screen(c.Field().Label).withForm(form))
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	if err != nil {
		return err
	}

	var files []upload.File
	var problems []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if expanded, err := paths.ExpandTilde(p); err == nil {
			p = expanded
		}
		uf, err := upload.FromPath(p)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		files = append(files, uf)
	}

	if len(files) > 0 {
		names := make([]string, len(files))
		for i, uf := range files {
			names[i] = uf.Name
		}
		err := runUpload(ctx, "Uploading to "+c.Field().Label, names, func(ctx context.Context, progress func([]upload.Progress)) error {
			return c.Attach(ctx, files, progress)
		})
		if err != nil {
			problems = append(problems, strings.Split(err.Error(), "\n")...)
		}
	}
	if len(problems) > 0 {
		r.notice = errorStyle.Render(strings.Join(problems, "\n"))
	}
	return nil
}

func (r *Runner) fileMeta(c *field.FileControl, index int) error {
	files := c.Files()
	if index < 0 || index >= len(files) {
		return nil
	}
	fd := files[index]
	values := map[string]*string{"description": &fd.Description, "date": &fd.Date}

	var inputs []huh.Field
	for _, key := range c.Field().FileMeta {
		v, ok := values[key]
		if !ok {
			continue
		}
		in := huh.NewInput().Title(strings.ToUpper(key[:1]) + key[1:]).Value(v)
		if key == "date" {
			in = in.Description("YYYY-MM-DD")
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return nil
	}

	err := Show(r.screen(fd.Filename).withForm(huh.NewForm(huh.NewGroup(inputs...))))
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, key := range c.Field().FileMeta {
		if v, ok := values[key]; ok {
			if err := c.SetFileMeta(index, key, *v); err != nil {
				L_warn("tui: file detail not saved", "field", c.Field().ID, "key", key, "error", err)
			}
		}
	}
	return nil
}

func (r *Runner) reviewStep(ctx context.Context) error {
	sum := r.sess.Review.Summary()

	var opts []huh.Option[string]
	if sum.Complete {
		opts = append(opts, huh.NewOption("Submit", "submit"))
	}
	for _, sec := range sum.Sections {
		opts = append(opts, huh.NewOption("Edit "+sec.Title, "edit:"+sec.ID))
	}
	opts = append(opts, huh.NewOption("Save and quit", "quit"))

	s := r.screen("Review your answers before submitting")
	s.Body = strings.TrimSpace(s.Body + "\n" + renderSummary(sum))
	choice, err := Choose(s, "", opts)
	if errors.Is(err, huh.ErrUserAborted) {
		r.entered = -1
		return r.router.Navigate(stepper.DestIntake)
	}
	if err != nil {
		return err
	}

	if id, ok := strings.CutPrefix(choice, "edit:"); ok {
		if err := r.st.GoTo(id); err != nil {
			if err := r.absorbIssues(err); err != nil {
				return err
			}
		}
		r.entered = -1
		return r.router.Navigate(stepper.DestIntake)
	}

	switch choice {
	case "quit":
		return ErrQuit
	case "submit":
		sub, err := r.sess.Submit(ctx)
		if errors.Is(err, review.ErrIncomplete) {
			r.notice = errorStyle.Render(err.Error())
			return nil
		}
		if sub == nil {
			return err
		}
		r.submission = sub
		if err != nil {
			L_warn("tui: submitted but navigation failed", "error", err)
			return r.router.Navigate(stepper.DestSuccess)
		}
	}
	return nil
}

func (r *Runner) successStep() {
	body := successStyle.Render("Thank you. Your intake has been submitted.")
	if r.submission != nil {
		body += "\n\nReference: " + sectionTitleStyle.Render(r.submission.Reference)
		body += "\nPlease keep this reference for your records."
	}
	s := r.screen("Submitted")
	s.Body = body
	if _, err := Choose(s, "", []huh.Option[string]{huh.NewOption("Close", "close")}); err != nil {
		L_debug("tui: success screen closed", "error", err)
	}
}

func (s Screen) withForm(f *huh.Form) Screen {
	s.Form = f
	return s
}

// parseChoice splits "action:index" menu values.
func parseChoice(choice string) (string, int) {
	action, idx, ok := strings.Cut(choice, ":")
	if !ok {
		return choice, -1
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return action, -1
	}
	return action, n
}

func acceptList(f *schema.Field) []string {
	if len(f.Accept) > 0 {
		return f.Accept
	}
	return validation.DefaultAccept
}

// renderIssues lists validation failures for the notice area.
func renderIssues(sec *schema.Section, iss validation.Issues) string {
	lines := make([]string, 0, len(iss)+1)
	lines = append(lines, errorStyle.Bold(true).Render("Please fix the following:"))
	for _, fe := range iss {
		label := fe.FieldID
		if f := sec.Field(fe.FieldID); f != nil {
			label = f.Label
		}
		msg := fe.Message
		if fe.Code != validation.CodeRequired {
			msg = label + ": " + msg
		}
		lines = append(lines, errorStyle.Render("• "+msg))
	}
	return strings.Join(lines, "\n")
}

// renderSummary lays out a review summary for the terminal.
func renderSummary(sum review.Summary) string {
	var b strings.Builder
	for i, sec := range sum.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		mark := successStyle.Render("✓")
		if !sec.Complete {
			mark = errorStyle.Render("✗")
		}
		b.WriteString(sectionTitleStyle.Render(sec.Title) + " " + mark + "\n")
		if len(sec.Rows) == 0 {
			b.WriteString(subtitleStyle.UnsetMarginBottom().Render("  no answers") + "\n")
			continue
		}
		for _, row := range sec.Rows {
			value := row.Value
			if row.Missing {
				value = errorStyle.Render(value)
			}
			b.WriteString("  " + labelStyle.Render(row.Label) + " " + value + "\n")
		}
	}
	if !sum.Complete {
		b.WriteString("\n" + warningStyle.Render("Some required answers are missing; submit is available once they are given."))
	}
	return strings.TrimRight(b.String(), "\n")
}
