package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/viva/internal/api"
	"github.com/rbright/viva/internal/config"
	"github.com/rbright/viva/internal/metrics"
	"github.com/rbright/viva/internal/report"
)

func newAPIClient(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*api.Client, error) {
	return api.New(api.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    millis(cfg.API.TimeoutMS),
		HealthPath: cfg.API.HealthPath,
		Logger:     logger,
		Metrics:    m,
	})
}

func (r Runner) commandTopics(ctx context.Context, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) int {
	client, err := newAPIClient(cfg, logger, m)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	topics := api.EligibleTopics(client.ListTopics(ctx), cfg.Session.MinTopicQuestions)
	machines := client.ListMachines(ctx)
	if len(topics) == 0 && len(machines) == 0 {
		fmt.Fprintln(r.Stdout, "no topics available")
		return 1
	}

	for _, topic := range topics {
		fmt.Fprintf(r.Stdout, "topic id=%d | name=%q | category=%q | questions=%d\n",
			topic.ID, topic.Name, topic.Category, topic.TotalQuestions)
	}
	for _, machine := range machines {
		fmt.Fprintf(r.Stdout, "machine id=%d | name=%q | questions=%d\n",
			machine.ID, machine.Name, machine.TotalQuestions)
	}
	return 0
}

func (r Runner) commandLookup(ctx context.Context, cfg config.Config, punchID string, logger *slog.Logger, m *metrics.Metrics) int {
	client, err := newAPIClient(cfg, logger, m)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	employee, err := client.LookupEmployee(ctx, punchID)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		var validation *api.ValidationError
		if errors.As(err, &validation) {
			return 2
		}
		return 1
	}

	fmt.Fprintf(r.Stdout, "punch_id=%s | name=%q | department=%q | designation=%q\n",
		employee.PunchID, employee.Name, employee.Department, employee.Designation)
	return 0
}

func (r Runner) commandRecords(ctx context.Context, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) int {
	client, err := newAPIClient(cfg, logger, m)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	records, err := client.ListRecords(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(records) == 0 {
		fmt.Fprintln(r.Stdout, "no records")
		return 0
	}

	for _, rec := range records {
		completed := "-"
		if !rec.CompletedAt.IsZero() {
			completed = rec.CompletedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(r.Stdout, "id=%d | completed=%s | employee=%q | topic=%q | score=%d%% | result=%s\n",
			rec.ID, completed, rec.Employee.Name, rec.Source.Name, rec.Tally.Percent, rec.Result)
	}
	return 0
}

func (r Runner) commandReport(ctx context.Context, cfg config.Config, id int, logger *slog.Logger, m *metrics.Metrics) int {
	client, err := newAPIClient(cfg, logger, m)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	record, err := client.GetRecord(ctx, id)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	path, err := r.writeReport(cfg, report.FromRecord(record), logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "report: %s\n", path)
	return 0
}

// writeReport stores the document and, when configured, opens it. A viewer
// failure is only a warning; the file is already on disk.
func (r Runner) writeReport(cfg config.Config, in report.Input, logger *slog.Logger) (string, error) {
	dir := cfg.Report.Dir
	if dir == "" {
		var err error
		if dir, err = report.DefaultDir(); err != nil {
			return "", err
		}
	}

	path, err := report.Write(dir, in, time.Now())
	if err != nil {
		return "", err
	}
	logger.Info("report written", "path", path, "record_id", in.RecordID)

	if cfg.Report.Open {
		if err := r.openReport(path); err != nil {
			fmt.Fprintf(r.Stderr, "warning: %v\n", err)
			logger.Warn("open report failed", "error", err.Error())
		}
	}
	return path, nil
}
