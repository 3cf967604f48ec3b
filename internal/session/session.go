// Package session constructs and tears down one intake session: schema,
// draft store, form state, validation, uploads, stepper and review.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roelfdiedericks/gointake/internal/bus"
	"github.com/roelfdiedericks/gointake/internal/config"
	"github.com/roelfdiedericks/gointake/internal/draft"
	"github.com/roelfdiedericks/gointake/internal/field"
	. "github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/metrics"
	"github.com/roelfdiedericks/gointake/internal/review"
	"github.com/roelfdiedericks/gointake/internal/schema"
	"github.com/roelfdiedericks/gointake/internal/state"
	"github.com/roelfdiedericks/gointake/internal/stepper"
	"github.com/roelfdiedericks/gointake/internal/upload"
	"github.com/roelfdiedericks/gointake/internal/validation"
)

// Options overrides collaborators Open would otherwise build from config.
type Options struct {
	Source    schema.Source     // default: cfg.Schema.URL, else cfg.Schema.Path
	KV        draft.Store       // default: draft.Open(cfg.Draft)
	Navigator stepper.Navigator // default: a Router
	Clock     state.Clock
	Bus       *bus.Bus
	Metrics   *metrics.Manager
}

// Session owns every collaborator of one intake run.
type Session struct {
	Config  *config.Config
	Schema  *schema.Schema
	Store   *state.Store
	Engine  *validation.Engine
	Uploads *upload.Service
	Slots   *upload.Slots
	Stepper *stepper.Stepper
	Review  *review.Compiler
	Metrics *metrics.Manager

	kv     draft.Store
	router *Router
	opened time.Time
}

// Open loads the schema and wires the session. A schema that fails to load
// is returned as a *schema.LoadError; the caller shows the unavailable state.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Session, error) {
	start := time.Now()
	if cfg == nil {
		defaults := config.Defaults()
		cfg = &defaults
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	src := opts.Source
	if src == nil {
		src = SourceFor(cfg.Schema)
	}
	s, err := schema.NewLoader(src).Load(ctx)
	if err != nil {
		m.RecordFailure("session", "open", "schema")
		return nil, err
	}
	for _, issue := range schema.Lint(s) {
		L_warn("session: schema lint", "issue", issue.String())
	}

	kv := opts.KV
	if kv == nil {
		kv, err = draft.Open(cfg.Draft)
		if err != nil {
			m.RecordFailure("session", "open", "draft")
			return nil, fmt.Errorf("failed to open draft store: %w", err)
		}
	}

	sess := &Session{Config: cfg, Schema: s, Metrics: m, kv: kv, opened: start}

	sess.Store = state.New(state.Options{
		KV:      kv,
		Key:     cfg.Draft.Key,
		Delay:   time.Duration(cfg.Autosave.DelayMs) * time.Millisecond,
		Clock:   opts.Clock,
		Bus:     opts.Bus,
		Metrics: m,
	})

	maxMB := cfg.Uploads.MaxSizeMB
	if s.UI.FileConstraints.MaxSizeMB > 0 {
		maxMB = s.UI.FileConstraints.MaxSizeMB
	}
	sess.Engine = validation.New()
	sess.Engine.MaxFileSizeMB = maxMB
	sess.Engine.Metrics = m

	sess.Uploads, err = upload.NewService(upload.Options{
		Dir:       cfg.Uploads.Dir,
		MaxSizeMB: maxMB,
		Accept:    cfg.Uploads.Accept,
		Tick:      time.Duration(cfg.Uploads.TickMs) * time.Millisecond,
	}, m)
	if err != nil {
		sess.teardown()
		sess.closeKV()
		return nil, err
	}
	sess.Slots = &upload.Slots{}

	nav := opts.Navigator
	if nav == nil {
		sess.router = NewRouter()
		nav = sess.router
	}
	sess.Stepper, err = stepper.New(s, sess.Store, sess.Engine, nav, field.Options{Uploads: sess.Uploads, Slots: sess.Slots})
	if err != nil {
		sess.teardown()
		sess.closeKV()
		return nil, fmt.Errorf("failed to build stepper: %w", err)
	}
	sess.Review = review.New(s, sess.Store, nav)

	m.RecordDuration("session", "open", time.Since(start))
	m.RecordSuccess("session", "open")
	L_info("session: opened", "schema", s.Title, "sections", len(s.Sections), "draft", cfg.Draft.Backend,
		"resumable", sess.Stepper.ShowDraftBanner())
	return sess, nil
}

// SourceFor picks the schema source of a config: URL wins over Path.
func SourceFor(cfg config.SchemaConfig) schema.Source {
	if cfg.URL != "" {
		return schema.SourceFor(cfg.URL)
	}
	return schema.SourceFor(cfg.Path)
}

// Router returns the default navigator, or nil when Options.Navigator was set.
func (s *Session) Router() *Router { return s.router }

// Submit hands off to the review compiler.
func (s *Session) Submit(ctx context.Context) (*review.Submission, error) {
	if err := s.Store.Flush(); err != nil {
		L_warn("session: flush before submit failed", "error", err)
	}
	sub, err := s.Review.Submit(ctx)
	if err != nil {
		s.Metrics.RecordFailure("session", "submit", err.Error())
		return sub, err
	}
	s.Slots.CancelAll()
	s.Metrics.RecordSuccess("session", "submit")
	return sub, nil
}

// Close writes any pending draft, cancels uploads and releases the store.
func (s *Session) Close() error {
	var errs []error
	if s.Store != nil {
		if err := s.Store.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	s.teardown()
	if err := s.closeKV(); err != nil {
		errs = append(errs, err)
	}
	L_debug("session: closed", "elapsed", time.Since(s.opened).Round(time.Millisecond))
	L_object("session: metrics", s.Metrics.Snapshot())
	return errors.Join(errs...)
}

func (s *Session) teardown() {
	if s.Slots != nil {
		s.Slots.CancelAll()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

func (s *Session) closeKV() error {
	if s.kv == nil {
		return nil
	}
	kv := s.kv
	s.kv = nil
	if err := kv.Close(); err != nil {
		return fmt.Errorf("failed to close draft store: %w", err)
	}
	return nil
}
