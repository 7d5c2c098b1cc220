package core

import (
	"context"

	"github.com/PaulFidika/nekokit/identity"
	"github.com/PaulFidika/nekokit/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DeletedMessage is returned to the caller after a successful deletion.
const DeletedMessage = "Your account has been permanently deleted"

// TableResult is the outcome of clearing one cascade table.
type TableResult struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
	Err   string `json:"error,omitempty"`
}

// DeletionReport describes what a cascade removed.
type DeletionReport struct {
	UserID        uuid.UUID     `json:"user_id"`
	Transactional bool          `json:"transactional"`
	Tables        []TableResult `json:"tables"`
}

// Failed lists tables that could not be cleared. Rows left in them are orphans.
func (r *DeletionReport) Failed() []string {
	var out []string
	for _, t := range r.Tables {
		if t.Err != "" {
			out = append(out, t.Table)
		}
	}
	return out
}

// DeleteAccount removes the caller's data and identity. confirmEmail must equal
// the caller's registered email exactly; otherwise nothing is deleted.
func (s *Service) DeleteAccount(ctx context.Context, authorization, confirmEmail string) (*DeletionReport, error) {
	log := s.log.WithField("function", "delete-account")

	u, err := s.Authenticate(ctx, authorization)
	if err != nil {
		log.WithError(err).Warn("authentication failed")
		return nil, err
	}
	log = log.WithField("user_id", u.ID.String())
	if confirmEmail != u.Email {
		log.Info("email confirmation mismatch")
		metrics.AccountDeletions.WithLabelValues("rejected").Inc()
		return nil, badRequest("Email confirmation does not match")
	}
	log.Info("email confirmation verified")

	rep, err := s.EraseUser(ctx, u.ID)
	if err != nil {
		metrics.AccountDeletions.WithLabelValues("failed").Inc()
		return rep, err
	}
	outcome := "complete"
	if len(rep.Failed()) > 0 {
		outcome = "partial"
	}
	metrics.AccountDeletions.WithLabelValues(outcome).Inc()
	return rep, nil
}

// EraseUser clears every cascade table for id, then removes the identity.
//
// In best-effort mode a failing table is logged and skipped; only identity
// removal is fatal. In transactional mode any failure rolls everything back.
func (s *Service) EraseUser(ctx context.Context, id uuid.UUID) (*DeletionReport, error) {
	log := s.log.WithFields(logrus.Fields{"function": "delete-account", "user_id": id.String()})
	rep := &DeletionReport{UserID: id, Transactional: s.opts.TransactionalCascade}

	if s.opts.TransactionalCascade {
		rows, err := s.users.PurgeTx(ctx, id)
		if err != nil {
			log.WithError(err).Error("transactional purge failed")
			return rep, persistence("Failed to delete user account", err)
		}
		for _, table := range identity.CascadeTables {
			rep.Tables = append(rep.Tables, TableResult{Table: table, Rows: rows[table]})
		}
		s.cacheDel(ctx, id.String())
		log.Info("user account deleted")
		return rep, nil
	}

	for _, table := range identity.CascadeTables {
		log.WithField("table", table).Debug("deleting owned rows")
		n, err := s.users.DeleteOwnedRows(ctx, table, id)
		if err != nil {
			log.WithError(err).WithField("table", table).Warn("could not delete owned rows, continuing")
			metrics.CascadeTableFailures.WithLabelValues(table).Inc()
			rep.Tables = append(rep.Tables, TableResult{Table: table, Err: err.Error()})
			continue
		}
		rep.Tables = append(rep.Tables, TableResult{Table: table, Rows: n})
	}

	if err := s.users.Delete(ctx, id); err != nil {
		log.WithError(err).Error("identity removal failed")
		return rep, persistence("Failed to delete user account", err)
	}
	s.cacheDel(ctx, id.String())
	if failed := rep.Failed(); len(failed) > 0 {
		log.WithField("failed_tables", failed).Warn("user account deleted with residual data")
	} else {
		log.Info("user account deleted")
	}
	return rep, nil
}
