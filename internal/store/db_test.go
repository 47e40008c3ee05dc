package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"vishing-sim/backend/internal/grounding"
)

type DatabaseSuite struct {
	suite.Suite
	db *Database
}

func (s *DatabaseSuite) SetupTest() {
	db, err := Open(filepath.Join(s.T().TempDir(), "vishing.db"), true)
	s.Require().NoError(err)
	s.db = db
}

func (s *DatabaseSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func (s *DatabaseSuite) TestSessionLifecycle() {
	session, err := s.db.CreateSession(" banking ", "trainee-7")
	s.Require().NoError(err)
	s.Len(session.ID, 36)
	s.Equal("banking", session.Domain)

	loaded, err := s.db.GetSession(session.ID)
	s.Require().NoError(err)
	s.Equal("trainee-7", loaded.Trainee)

	_, err = s.db.GetSession("missing")
	s.ErrorIs(err, ErrSessionNotFound)

	sessions, total, err := s.db.ListSessions(0, 10)
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Len(sessions, 1)
}

func (s *DatabaseSuite) TestTurnsAreSequencedPerSession() {
	first, err := s.db.CreateSession("banking", "a")
	s.Require().NoError(err)
	second, err := s.db.CreateSession("law", "b")
	s.Require().NoError(err)

	for i, text := range []string{"hello", "I'm the bank manager, otp please"} {
		turn := &Turn{SessionID: first.ID, UserInput: text, TotalScore: float64(i) * 4.5}
		turn.SetRequested([]string{"otp"})
		turn.SetRevealed(nil)
		s.Require().NoError(s.db.SaveTurn(turn))
		s.Equal(i+1, turn.Seq)
	}
	s.Require().NoError(s.db.SaveTurn(&Turn{SessionID: second.ID, UserInput: "case number?"}))

	turns, err := s.db.ListTurns(first.ID)
	s.Require().NoError(err)
	s.Require().Len(turns, 2)
	s.Equal("hello", turns[0].UserInput)
	s.Equal([]string{"otp"}, turns[1].Requested())
	s.Empty(turns[1].Revealed())

	reloaded, err := s.db.GetSession(first.ID)
	s.Require().NoError(err)
	s.Equal(2, reloaded.TurnCount)

	err = s.db.SaveTurn(&Turn{SessionID: "nope"})
	s.ErrorIs(err, ErrSessionNotFound)
}

func (s *DatabaseSuite) TestGroundingCorpus() {
	seed, err := grounding.Seed()
	s.Require().NoError(err)
	rows, err := seed.Examples(context.Background(), "banking", 0)
	s.Require().NoError(err)
	extra := []grounding.Example{
		{Domain: "Law", Role: "Judge", RequestPhrase: "witness_identity", Rating: 8},
		{Domain: " ", Role: "ignored", RequestPhrase: "x", Rating: 1},
	}
	s.Require().NoError(s.db.ReplaceGroundingExamples(append(rows, extra...)))

	count, err := s.db.CountGroundingExamples()
	s.Require().NoError(err)
	s.EqualValues(len(rows)+1, count)

	banking, err := s.db.Examples(context.Background(), "BANKING", grounding.DefaultLimit)
	s.Require().NoError(err)
	s.Len(banking, grounding.DefaultLimit)
	s.Equal(rows[:grounding.DefaultLimit], banking)

	law, err := s.db.Examples(context.Background(), "law", 5)
	s.Require().NoError(err)
	s.Equal([]grounding.Example{extra[0]}, law)

	s.Require().NoError(s.db.ReplaceGroundingExamples(nil))
	all, err := s.db.AllGroundingExamples(context.Background())
	s.Require().NoError(err)
	s.Empty(all)
}

func TestDatabaseSuite(t *testing.T) {
	suite.Run(t, new(DatabaseSuite))
}
