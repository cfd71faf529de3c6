package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rbright/viva/internal/api"
	"github.com/rbright/viva/internal/cli"
	"github.com/rbright/viva/internal/config"
	"github.com/rbright/viva/internal/model"
	"github.com/rbright/viva/internal/viva"
)

var errSetupAbandoned = errors.New("setup abandoned")

// sourceCatalog is the part of api.Client that offers question sources.
type sourceCatalog interface {
	ListTopics(ctx context.Context) []model.Topic
	ListMachines(ctx context.Context) []model.Machine
}

func identitySource(cfg config.Config, opts cli.StartOptions, directory viva.EmployeeLookup) viva.IdentitySource {
	if opts.Name != "" || (opts.PunchID == "" && cfg.Session.Identity == "freeform") {
		return viva.Freeform{}
	}
	return viva.VerifiedLookup{Directory: directory}
}

// runSetup verifies the candidate and selects a question source, prompting
// on the terminal for whatever the flags left out.
func (r Runner) runSetup(
	ctx context.Context,
	in *lineReader,
	out *terminal,
	setup *viva.Setup,
	catalog sourceCatalog,
	minQuestions int,
	opts cli.StartOptions,
) error {
	if err := r.verifyIdentity(ctx, in, out, setup, firstNonEmpty(opts.PunchID, opts.Name)); err != nil {
		return err
	}
	identity, _ := setup.Identity()
	emp := identity.Employee
	if identity.Verified {
		out.Printf("verified: %s (%s, %s)", emp.Name, orDash(emp.Department), orDash(emp.Designation))
	} else {
		out.Printf("candidate: %s", emp.Name)
	}

	return r.selectSource(ctx, in, out, setup, catalog, minQuestions, opts)
}

func (r Runner) verifyIdentity(ctx context.Context, in *lineReader, out *terminal, setup *viva.Setup, prefilled string) error {
	input := prefilled
	for {
		if input == "" {
			out.Printf("Enter %s:", setup.IdentityField())
			line, ok := in.Next(ctx)
			if !ok {
				return errSetupAbandoned
			}
			input = line
		}
		if err := setup.Verify(ctx, input); err != nil {
			out.Printf("! %s", setup.Message())
			input = ""
			continue
		}
		return nil
	}
}

type choice struct {
	source model.Source
	label  string
}

func (r Runner) selectSource(
	ctx context.Context,
	in *lineReader,
	out *terminal,
	setup *viva.Setup,
	catalog sourceCatalog,
	minQuestions int,
	opts cli.StartOptions,
) error {
	var choices []choice
	if opts.MachineID == 0 {
		for _, topic := range api.EligibleTopics(catalog.ListTopics(ctx), minQuestions) {
			choices = append(choices, choice{
				source: model.Source{Kind: model.SourceTopic, ID: topic.ID, Name: topic.Name},
				label:  fmt.Sprintf("%s [%s] %d questions", topic.Name, orDash(topic.Category), topic.TotalQuestions),
			})
		}
	}
	if opts.TopicID == 0 {
		for _, machine := range catalog.ListMachines(ctx) {
			choices = append(choices, choice{
				source: model.Source{Kind: model.SourceMachine, ID: machine.ID, Name: machine.Name},
				label:  fmt.Sprintf("%s [machine] %d questions", machine.Name, machine.TotalQuestions),
			})
		}
	}

	if opts.TopicID > 0 || opts.MachineID > 0 {
		return setup.Select(preselected(choices, opts))
	}
	if len(choices) == 0 {
		return errors.New("no topics available")
	}

	for i, c := range choices {
		out.Printf("%2d) %s", i+1, c.label)
	}
	for {
		out.Printf("Select a topic [1-%d]:", len(choices))
		line, ok := in.Next(ctx)
		if !ok {
			return errSetupAbandoned
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 1 || n > len(choices) {
			out.Printf("! choose a number between 1 and %d", len(choices))
			continue
		}
		if err := setup.Select(choices[n-1].source); err != nil {
			out.Printf("! %s", setup.Message())
			continue
		}
		return nil
	}
}

// preselected resolves --topic/--machine against the catalog, keeping the
// bare id when the catalog does not list it.
func preselected(choices []choice, opts cli.StartOptions) model.Source {
	want := model.Source{Kind: model.SourceTopic, ID: opts.TopicID}
	if opts.MachineID > 0 {
		want = model.Source{Kind: model.SourceMachine, ID: opts.MachineID}
	}
	for _, c := range choices {
		if c.source.Kind == want.Kind && c.source.ID == want.ID {
			return c.source
		}
	}
	want.Name = fmt.Sprintf("%s %d", want.Kind, want.ID)
	return want
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
