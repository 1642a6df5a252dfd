//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"aquicultura/internal/audit"
	"aquicultura/internal/audit/store/postgres"
	"aquicultura/pkg/platform/tx"
	"aquicultura/pkg/testutil/containers"
)

type AuditStoreIntegrationSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
	ctx   context.Context
}

func TestAuditStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	s := &AuditStoreIntegrationSuite{pg: containers.NewPostgresContainer(t)}
	suite.Run(t, s)
}

func (s *AuditStoreIntegrationSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = postgres.New(s.pg.DB)
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *AuditStoreIntegrationSuite) record(acao audit.Action, entidade string) audit.Record {
	return audit.Record{
		Acao:     acao,
		Entidade: entidade,
		IP:       "10.0.0.1",
		Detalhes: "integration probe",
	}
}

func (s *AuditStoreIntegrationSuite) TestAppendAssignsIDAndTimestamp() {
	entry, err := s.store.Append(s.ctx, s.record(audit.ActionCreate, "Projeto"))
	s.Require().NoError(err)
	s.Positive(entry.ID)
	s.False(entry.Timestamp.IsZero())
	s.Nil(entry.UserID)
	s.Equal("Projeto", *entry.Entidade)
}

func (s *AuditStoreIntegrationSuite) TestListNewestFirstAndCountAgree() {
	for _, acao := range []audit.Action{audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete} {
		_, err := s.store.Append(s.ctx, s.record(acao, "Projeto"))
		s.Require().NoError(err)
	}

	entries, err := s.store.List(s.ctx, audit.Filter{}, 0, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(audit.ActionDelete, entries[0].Acao)
	s.Equal(audit.ActionCreate, entries[2].Acao)

	count, err := s.store.Count(s.ctx, audit.Filter{Acao: audit.ActionUpdate})
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *AuditStoreIntegrationSuite) TestAppendRollsBackWithTransaction() {
	err := tx.Run(s.ctx, s.pg.DB, func(ctx context.Context) error {
		if _, err := s.store.Append(ctx, s.record(audit.ActionCreate, "Projeto")); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Require().Error(err)

	count, err := s.store.Count(s.ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *AuditStoreIntegrationSuite) TestStatsAggregates() {
	for range 2 {
		_, err := s.store.Append(s.ctx, s.record(audit.ActionCreate, "Projeto"))
		s.Require().NoError(err)
	}
	_, err := s.store.Append(s.ctx, s.record(audit.ActionExport, "Projeto"))
	s.Require().NoError(err)

	stats, err := s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(3), stats.TotalLogs)
	s.Equal(int64(2), stats.PorAcao[audit.ActionCreate])
	s.Equal(int64(3), stats.PorEntidade["Projeto"])
}
