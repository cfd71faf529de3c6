package viva

import (
	"context"
	"errors"
	"strings"

	"github.com/rbright/viva/internal/api"
	"github.com/rbright/viva/internal/host"
	"github.com/rbright/viva/internal/model"
)

// IdentitySource turns operator input into a candidate identity.
type IdentitySource interface {
	Resolve(ctx context.Context, input string) (Identity, error)
	// Field names the input in prompts, e.g. "punch ID".
	Field() string
}

// EmployeeLookup is the backend call behind VerifiedLookup.
type EmployeeLookup interface {
	LookupEmployee(ctx context.Context, punchID string) (model.Employee, error)
}

// VerifiedLookup resolves a punch ID against the employee directory.
type VerifiedLookup struct {
	Directory EmployeeLookup
}

func (v VerifiedLookup) Resolve(ctx context.Context, input string) (Identity, error) {
	employee, err := v.Directory.LookupEmployee(ctx, input)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Employee: employee, Verified: true}, nil
}

func (VerifiedLookup) Field() string { return "punch ID" }

// Freeform accepts a typed name without verification.
type Freeform struct{}

func (Freeform) Resolve(_ context.Context, input string) (Identity, error) {
	name := strings.TrimSpace(input)
	if name == "" {
		return Identity{}, &api.ValidationError{Field: "name", Message: "name is required"}
	}
	return Identity{Employee: model.Employee{Name: name}}, nil
}

func (Freeform) Field() string { return "name" }

// Setup collects what a session needs before it can start.
type Setup struct {
	identitySource IdentitySource
	lines          host.Lines

	identity *Identity
	source   model.Source
	message  string
}

func NewSetup(identitySource IdentitySource, lang model.Language) *Setup {
	if identitySource == nil {
		identitySource = Freeform{}
	}
	return &Setup{identitySource: identitySource, lines: host.LinesFor(lang)}
}

// Verify resolves input into the session identity. On failure the previous
// identity is cleared and Message explains what went wrong; validation,
// not-found and transport failures each get their own message.
func (s *Setup) Verify(ctx context.Context, input string) error {
	s.identity = nil
	identity, err := s.identitySource.Resolve(ctx, input)
	if err != nil {
		s.message = s.verifyMessage(err)
		return err
	}
	s.identity = &identity
	s.message = ""
	return nil
}

func (s *Setup) verifyMessage(err error) string {
	var validation *api.ValidationError
	var notFound *api.NotFoundError
	switch {
	case errors.As(err, &validation):
		if _, freeform := s.identitySource.(Freeform); freeform {
			return s.lines.NameRequired()
		}
		return s.lines.PunchIDRequired()
	case errors.As(err, &notFound):
		if notFound.Message != "" && notFound.Message != "Employee not found" {
			return notFound.Message
		}
		return s.lines.EmployeeNotFound()
	default:
		return s.lines.ServerError()
	}
}

// Select records the question source.
func (s *Setup) Select(src model.Source) error {
	if !src.Valid() {
		s.message = s.lines.SelectSourcePrompt(src.Kind)
		return &api.ValidationError{Field: "source", Message: "invalid question source"}
	}
	s.source = src
	s.message = ""
	return nil
}

// CanStart reports whether both identity and source are set.
func (s *Setup) CanStart() bool {
	return s.identity != nil && s.source.Valid()
}

// Blocker returns the prompt for whatever still prevents a start.
func (s *Setup) Blocker() string {
	if s.identity == nil {
		if _, freeform := s.identitySource.(Freeform); freeform {
			return s.lines.NameRequired()
		}
		return s.lines.VerifyPrompt()
	}
	if !s.source.Valid() {
		return s.lines.SelectSourcePrompt(s.source.Kind)
	}
	return ""
}

func (s *Setup) Identity() (Identity, bool) {
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

func (s *Setup) Source() model.Source { return s.source }

func (s *Setup) Message() string { return s.message }

func (s *Setup) IdentityField() string { return s.identitySource.Field() }
