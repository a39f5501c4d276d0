package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"laudo/internal/ratelimit"
	"laudo/internal/ratelimit/store/memory"
	"laudo/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	svc *ratelimit.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	svc, err := ratelimit.New(memory.New())
	s.Require().NoError(err)
	s.svc = svc
}

func ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) TestTenthRequestAdmittedEleventhBlocked() {
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		dec, err := s.svc.Admit(ctxAt(base.Add(time.Duration(i)*time.Minute)), "203.0.113.7")
		s.Require().NoError(err)
		s.True(dec.Allowed, "request %d should be admitted", i+1)
	}

	dec, err := s.svc.Admit(ctxAt(base.Add(10*time.Minute)), "203.0.113.7")
	s.Require().NoError(err)
	s.False(dec.Allowed)
	s.True(dec.Blocked)
	s.Equal(900, dec.RetryAfter)
}

func (s *ServiceSuite) TestBlockTimerNotRefreshedByRejectedAttempts() {
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 11; i++ {
		_, err := s.svc.Admit(ctxAt(base), "203.0.113.7")
		s.Require().NoError(err)
	}

	// Five minutes into the block a retry is rejected with the remaining
	// time, not a fresh 15 minutes.
	dec, err := s.svc.Admit(ctxAt(base.Add(5*time.Minute)), "203.0.113.7")
	s.Require().NoError(err)
	s.False(dec.Allowed)
	s.Equal(600, dec.RetryAfter)

	// And the block still expires at the original deadline.
	dec, err = s.svc.Admit(ctxAt(base.Add(15*time.Minute)), "203.0.113.7")
	s.Require().NoError(err)
	s.True(dec.Allowed)
}

func (s *ServiceSuite) TestWindowResetsAfterElapse() {
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		dec, err := s.svc.Admit(ctxAt(base), "203.0.113.7")
		s.Require().NoError(err)
		s.True(dec.Allowed)
	}

	// Past the window the counter restarts, so the source gets a full
	// budget again.
	later := base.Add(time.Hour + time.Minute)
	dec, err := s.svc.Admit(ctxAt(later), "203.0.113.7")
	s.Require().NoError(err)
	s.True(dec.Allowed)
	s.Equal(9, dec.Remaining)
}

func (s *ServiceSuite) TestNoCrossSourceInterference() {
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 11; i++ {
		_, err := s.svc.Admit(ctxAt(base), "203.0.113.7")
		s.Require().NoError(err)
	}

	dec, err := s.svc.Admit(ctxAt(base), "198.51.100.2")
	s.Require().NoError(err)
	s.True(dec.Allowed)
	s.Equal(9, dec.Remaining)
}

func (s *ServiceSuite) TestRemainingCountsDown() {
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	dec, err := s.svc.Admit(ctxAt(base), "203.0.113.7")
	s.Require().NoError(err)
	s.Equal(9, dec.Remaining)
	s.Equal(base.Add(time.Hour), dec.ResetAt)

	dec, err = s.svc.Admit(ctxAt(base.Add(time.Minute)), "203.0.113.7")
	s.Require().NoError(err)
	s.Equal(8, dec.Remaining)
	s.Equal(base.Add(time.Hour), dec.ResetAt)
}
