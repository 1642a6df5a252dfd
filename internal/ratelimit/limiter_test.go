package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aquicultura/internal/ratelimit/store"
	domainerrors "aquicultura/pkg/domainerrors"
)

type LimiterSuite struct {
	suite.Suite
	store   *store.Memory
	limiter *Limiter
	now     time.Time
	ctx     context.Context
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.store = store.NewMemory()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.store.Now = func() time.Time { return s.now }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.limiter = New(s.store, 5, 5*time.Minute, 15*time.Minute, logger, nil)
	s.ctx = context.Background()
}

func (s *LimiterSuite) TestAllowsUnderThreshold() {
	for i := 0; i < 4; i++ {
		s.Require().NoError(s.limiter.Check(s.ctx, "10.0.0.1"))
		s.limiter.RecordFailure(s.ctx, "10.0.0.1")
	}
	s.NoError(s.limiter.Check(s.ctx, "10.0.0.1"))
}

func (s *LimiterSuite) TestBlocksAtThreshold() {
	for i := 0; i < 5; i++ {
		s.limiter.RecordFailure(s.ctx, "10.0.0.1")
	}
	err := s.limiter.Check(s.ctx, "10.0.0.1")
	s.Require().Error(err)
	s.True(domainerrors.Is(err, domainerrors.CodeTooManyRequests))

	// Other IPs are unaffected.
	s.NoError(s.limiter.Check(s.ctx, "10.0.0.2"))
}

func (s *LimiterSuite) TestBlockExpires() {
	for i := 0; i < 5; i++ {
		s.limiter.RecordFailure(s.ctx, "10.0.0.1")
	}
	s.Error(s.limiter.Check(s.ctx, "10.0.0.1"))

	s.now = s.now.Add(15*time.Minute + time.Second)
	s.NoError(s.limiter.Check(s.ctx, "10.0.0.1"))
}

func (s *LimiterSuite) TestWindowExpiryResetsCounter() {
	for i := 0; i < 4; i++ {
		s.limiter.RecordFailure(s.ctx, "10.0.0.1")
	}
	s.now = s.now.Add(5*time.Minute + time.Second)

	// Old attempts aged out, so one more failure does not block.
	s.limiter.RecordFailure(s.ctx, "10.0.0.1")
	s.NoError(s.limiter.Check(s.ctx, "10.0.0.1"))
}

func (s *LimiterSuite) TestResetClearsAttempts() {
	for i := 0; i < 4; i++ {
		s.limiter.RecordFailure(s.ctx, "10.0.0.1")
	}
	s.limiter.Reset(s.ctx, "10.0.0.1")

	s.limiter.RecordFailure(s.ctx, "10.0.0.1")
	s.NoError(s.limiter.Check(s.ctx, "10.0.0.1"))
}

func (s *LimiterSuite) TestEmptyIPNeverLimited() {
	for i := 0; i < 10; i++ {
		s.limiter.RecordFailure(s.ctx, "")
	}
	s.NoError(s.limiter.Check(s.ctx, ""))
}
