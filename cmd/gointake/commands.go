package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/roelfdiedericks/gointake/internal/config"
	"github.com/roelfdiedericks/gointake/internal/draft"
	. "github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/paths"
	"github.com/roelfdiedericks/gointake/internal/review"
	"github.com/roelfdiedericks/gointake/internal/schema"
	"github.com/roelfdiedericks/gointake/internal/session"
	"github.com/roelfdiedericks/gointake/internal/tui"
)

// RunCmd walks the user through the form.
type RunCmd struct{}

func (c *RunCmd) Run(ctx context.Context, g *Globals) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("run needs an interactive terminal; use export or review for scripted access")
	}
	cfg, err := g.load()
	if err != nil {
		return err
	}

	restore, err := logToFile(cfg.Logging.File)
	if err != nil {
		return err
	}
	defer restore()

	sess, err := session.Open(ctx, cfg, session.Options{})
	if err != nil {
		var le *schema.LoadError
		if errors.As(err, &le) {
			restore()
			fmt.Fprintln(os.Stderr, "The intake form is unavailable right now. Please try again later.")
		}
		return err
	}
	defer sess.Close()

	sub, err := tui.Run(ctx, sess)
	switch {
	case errors.Is(err, tui.ErrQuit), errors.Is(err, context.Canceled):
		restore()
		fmt.Println("Your answers are saved as a draft. Run gointake again to continue.")
		return nil
	case err != nil:
		return err
	}

	restore()
	fmt.Printf("Submitted. Your reference is %s.\n", sub.Reference)
	return nil
}

// logToFile sends log output to path while the TUI owns the terminal. The
// returned func puts stderr back and is safe to call more than once.
func logToFile(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	if err := paths.EnsureParentDir(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	SetOutput(f)
	done := false
	return func() {
		if done {
			return
		}
		done = true
		SetOutput(os.Stderr)
		f.Close()
	}, nil
}

// CheckCmd loads and lints the schema.
type CheckCmd struct {
	Watch bool `short:"w" help:"Re-check whenever the schema file changes."`
}

func (c *CheckCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	src := session.SourceFor(cfg.Schema)

	ok := checkSchema(ctx, src)
	if !c.Watch {
		if !ok {
			return errors.New("schema check failed")
		}
		return nil
	}
	if cfg.Schema.URL != "" {
		return errors.New("--watch needs a schema file, not a URL")
	}

	changed := make(chan struct{}, 1)
	w, err := schema.NewWatcher(cfg.Schema.Path, 0, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch schema: %w", err)
	}
	defer w.Stop()

	fmt.Printf("Watching %s, press Ctrl+C to stop.\n", cfg.Schema.Path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			fmt.Println()
			checkSchema(ctx, src)
		}
	}
}

func checkSchema(ctx context.Context, src schema.Source) bool {
	s, err := schema.NewLoader(src).Load(ctx)
	if err != nil {
		fmt.Printf("✗ %s: %v\n", src, err)
		return false
	}
	issues := schema.Lint(s)
	fields := 0
	for _, sec := range s.Sections {
		fields += len(sec.Fields)
	}
	if len(issues) == 0 {
		fmt.Printf("✓ %s: %q, %d sections, %d fields\n", src, s.Title, len(s.Sections), fields)
		return true
	}
	fmt.Printf("✗ %s: %d issue(s)\n", src, len(issues))
	for _, issue := range issues {
		fmt.Printf("  - %s\n", issue)
	}
	return false
}

// ReviewCmd prints the review summary of the saved draft.
type ReviewCmd struct {
	HTML string `name:"html" help:"Write an HTML document to this file instead of printing markdown." type:"path"`
}

func (c *ReviewCmd) Run(ctx context.Context, g *Globals) error {
	return withSession(ctx, g, func(sess *session.Session) error {
		sum := sess.Review.Summary()
		if c.HTML == "" {
			fmt.Print(review.Markdown(sum))
			return nil
		}
		page, err := review.HTML(sum)
		if err != nil {
			return err
		}
		if err := config.AtomicWrite(c.HTML, []byte(page), 0644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", c.HTML)
		return nil
	})
}

// ExportCmd prints the draft value, optionally through a jq expression.
type ExportCmd struct {
	JQ      string `name:"jq" help:"jq expression applied to the draft value."`
	Raw     bool   `short:"r" help:"Print string results without quotes."`
	Compact bool   `help:"One result per line without indentation."`
}

func (c *ExportCmd) Run(ctx context.Context, g *Globals) error {
	return withSession(ctx, g, func(sess *session.Session) error {
		out, err := draft.Query(sess.Store.GetAllValues(), c.JQ, draft.QueryOptions{Raw: c.Raw, Compact: c.Compact})
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	})
}

// ResetCmd discards the saved draft.
type ResetCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *ResetCmd) Run(ctx context.Context, g *Globals) error {
	return withSession(ctx, g, func(sess *session.Session) error {
		if !sess.Store.HasDraft() {
			fmt.Println("No saved draft.")
			return nil
		}
		if !c.Yes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("refusing to reset without --yes")
			}
			fmt.Print("Discard the saved draft? [y/N] ")
			var answer string
			fmt.Scanln(&answer)
			if answer != "y" && answer != "Y" {
				return nil
			}
		}
		sess.Store.ResetForm()
		fmt.Println("Draft discarded.")
		return nil
	})
}

func withSession(ctx context.Context, g *Globals, fn func(*session.Session) error) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	sess, err := session.Open(ctx, cfg, session.Options{})
	if err != nil {
		return err
	}
	err = fn(sess)
	if cerr := sess.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
