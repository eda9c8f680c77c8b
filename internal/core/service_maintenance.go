package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"courtcore/internal/blob"
	"courtcore/internal/events"
	"courtcore/pkg/domain"
)

// AuditArchivePrefix is the blob key prefix of archived integrity reports.
const AuditArchivePrefix = "audits/"

var (
	opRepair = operation{name: "ensure_consistency", entity: domain.EntityTimeSlot, action: domain.ActionUpdate}
	opAudit  = operation{name: "validate_integrity", entity: domain.EntityTimeSlot}
)

// RepairConsistency re-derives every slot and, with RepairOrphans, cancels
// reservations whose slot is gone. Only a pass that changed something is
// persisted and announced with a consistency.repaired event.
func (s *Service) RepairConsistency(ctx context.Context, opts ConsistencyOptions) Outcome[ConsistencyReport] {
	out := run(ctx, s, opRepair, func(ctx context.Context) (ConsistencyReport, string, error) {
		report, err := s.store.EnsureDataConsistency(ctx, opts)
		s.logger.Info("consistency pass finished", "scanned", report.Scanned, "repaired", report.Repaired, "cancelled_orphans", len(report.CancelledOrphans))
		return report, "", err
	})
	if !out.Success {
		return out
	}
	if observer, ok := s.metrics.(RepairObserver); ok {
		observer.ObserveRepair(ctx, out.Data)
	}
	if out.Data.Changed() {
		s.persist(ctx, opRepair.name)
		s.publish(ctx, events.ConsistencyRepaired, "", out.Data)
	}
	return out
}

// AuditResult is an integrity report together with its archive location.
type AuditResult struct {
	Report     IntegrityReport `json:"report"`
	ArchiveKey string          `json:"archive_key,omitempty"`
}

// AuditIntegrity runs the integrity rules over the store. With an archive
// configured the report is stored as JSON under AuditArchivePrefix; archive
// failures are logged and leave ArchiveKey empty.
func (s *Service) AuditIntegrity(ctx context.Context) Outcome[AuditResult] {
	return run(ctx, s, opAudit, func(ctx context.Context) (AuditResult, string, error) {
		report := s.store.ValidateDataIntegrity(ctx, s.engine, s.clock.Now())
		res := AuditResult{Report: report}
		if len(report.Errors) > 0 || len(report.Warnings) > 0 {
			s.logger.Warn("integrity audit found problems", "errors", len(report.Errors), "warnings", len(report.Warnings))
		}
		if s.archive != nil {
			info, err := s.ArchiveReport(ctx, report)
			if err != nil {
				s.logger.Error("archive integrity report failed", "error", err)
			} else {
				res.ArchiveKey = info.Key
			}
		}
		return res, "", nil
	})
}

// ArchiveReport stores report in the configured archive.
func (s *Service) ArchiveReport(ctx context.Context, report IntegrityReport) (blob.Info, error) {
	if s.archive == nil {
		return blob.Info{}, fmt.Errorf("no audit archive configured")
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode integrity report: %w", err)
	}
	key := AuditArchivePrefix + report.CheckedAt.UTC().Format(time.RFC3339) + ".json"
	return s.archive.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"errors":   fmt.Sprint(len(report.Errors)),
			"warnings": fmt.Sprint(len(report.Warnings)),
		},
	})
}

// ArchivedReports lists the archived integrity reports, oldest first.
func (s *Service) ArchivedReports(ctx context.Context) ([]blob.Info, error) {
	if s.archive == nil {
		return nil, nil
	}
	return s.archive.List(ctx, AuditArchivePrefix)
}

// Stats summarises the store for the maintenance CLI.
type Stats struct {
	Courts          int `json:"courts"`
	TimeSlots       int `json:"time_slots"`
	BlockedSlots    int `json:"blocked_slots"`
	Reservations    int `json:"reservations"`
	Clinics         int `json:"clinics"`
	Coaches         int `json:"coaches"`
	Users           int `json:"users"`
	Socials         int `json:"socials"`
	PrivateSessions int `json:"private_sessions"`
}

// Stats counts the records of every collection.
func (s *Service) Stats() Stats {
	st := s.store
	return Stats{
		Courts:          st.Courts.Count(),
		TimeSlots:       st.TimeSlots.Count(),
		BlockedSlots:    len(st.TimeSlots.FindBlocked()),
		Reservations:    st.Reservations.Count(),
		Clinics:         st.Clinics.Count(),
		Coaches:         st.Coaches.Count(),
		Users:           st.Users.Count(),
		Socials:         st.Socials.Count(),
		PrivateSessions: st.PrivateSessions.Count(),
	}
}
