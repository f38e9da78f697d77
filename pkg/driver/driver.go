package driver

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"protochain/pkg/builtins"
	"protochain/pkg/config"
	chainerrors "protochain/pkg/errors"
	"protochain/pkg/source"
	"protochain/pkg/vm"
)

// Session represents a persistent realm session. Objects created by one
// lesson or graph load stay alive for the ones that follow.
type Session struct {
	realm   *vm.Realm
	console *builtins.Console
	logger  *zap.Logger
	config  config.Config
	out     io.Writer

	heading lipgloss.Style
}

// NewSession creates a session with a fresh realm whose intrinsics are
// installed, printing through out.
func NewSession(cfg config.Config, out io.Writer, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(cfg.RealmOptions(), vm.WithLogger(logger))
	realm := vm.NewRealm(opts...)
	if err := builtins.InitRealm(realm); err != nil {
		return nil, errors.Wrap(err, "builtin initialization failed")
	}

	renderer := lipgloss.NewRenderer(out)
	s := &Session{
		realm:   realm,
		console: builtins.NewConsole(realm, out),
		logger:  logger.With(zap.String("realm", realm.ID().String())),
		config:  cfg,
		out:     out,
		heading: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
	}
	return s, nil
}

// Realm returns the session's realm.
func (s *Session) Realm() *vm.Realm { return s.realm }

// Console returns the session's console.
func (s *Session) Console() *builtins.Console { return s.console }

// RunLesson runs one lesson by name under a heading.
func (s *Session) RunLesson(name string) error {
	for i, lesson := range Lessons() {
		if lesson.Name != name {
			continue
		}
		fmt.Fprintln(s.out, s.heading.Render(fmt.Sprintf("%d. %s", i+1, lesson.Title())))
		s.logger.Debug("lesson started", zap.String("lesson", lesson.Name))
		if err := lesson.Run(s); err != nil {
			return errors.Wrapf(err, "lesson %s", lesson.Name)
		}
		return nil
	}
	return errors.Errorf("unknown lesson %q", name)
}

// RunLessons runs the named lessons in order, or every lesson when none are named.
func (s *Session) RunLessons(names ...string) error {
	if len(names) == 0 {
		for _, lesson := range Lessons() {
			names = append(names, lesson.Name)
		}
	}
	for i, name := range names {
		if i > 0 {
			fmt.Fprintln(s.out)
		}
		if err := s.RunLesson(name); err != nil {
			return err
		}
	}
	s.finish()
	return nil
}

// LoadGraph builds a YAML graph document into the session's realm.
func (s *Session) LoadGraph(sf *source.SourceFile) (*source.Graph, error) {
	g, err := source.Load(s.realm, sf)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("graph ready", zap.Strings("objects", g.Names()))
	return g, nil
}

// DisplayResult prints the value, or the errors when there are any.
// Returns true if the operation completed without errors.
func (s *Session) DisplayResult(w io.Writer, value vm.Value, errs ...error) bool {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		chainerrors.DisplayErrors(w, failed)
		return false
	}
	s.console.Log(value)
	s.finish()
	return true
}

// PrintCacheStats writes lookup cache statistics to w.
func (s *Session) PrintCacheStats(w io.Writer) {
	s.realm.PrintCacheStats(w)
}

func (s *Session) finish() {
	if s.config.DetailedCacheStats {
		s.PrintCacheStats(s.out)
	}
}

// titleFromName turns a lesson name into a heading. Casers keep state, so
// each call gets its own.
func titleFromName(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "-", " "))
}
