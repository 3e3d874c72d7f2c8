package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testplan-ai/backend/internal/models"
)

func clockAt(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func TestTicketCache_MostRecent(t *testing.T) {
	env := newTestEnv(t)
	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	env.tickets.now = clockAt(t1, t2)

	require.NoError(t, env.tickets.RecordFetch(&models.Ticket{TicketID: "ABC-1", Summary: "first"}))
	require.NoError(t, env.tickets.RecordFetch(&models.Ticket{TicketID: "ABC-1", Summary: "second"}))

	ticket, err := env.tickets.MostRecent("ABC-1")
	require.NoError(t, err)
	assert.Equal(t, "second", ticket.Summary)
	assert.NotNil(t, ticket.Labels)
}

func TestTicketCache_MostRecentOutOfOrderInsert(t *testing.T) {
	env := newTestEnv(t)
	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	// The later snapshot is written first.
	env.tickets.now = clockAt(t2, t1)

	require.NoError(t, env.tickets.RecordFetch(&models.Ticket{TicketID: "ABC-1", Summary: "newer"}))
	require.NoError(t, env.tickets.RecordFetch(&models.Ticket{TicketID: "ABC-1", Summary: "older"}))

	ticket, err := env.tickets.MostRecent("ABC-1")
	require.NoError(t, err)
	assert.Equal(t, "newer", ticket.Summary)
}

func TestTicketCache_MostRecentMissing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.tickets.MostRecent("NOPE-1")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestTicketCache_RecentlyFetchedNeverDedups(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	env.tickets.now = clockAt(base, base.Add(time.Minute), base.Add(2*time.Minute))

	require.NoError(t, env.tickets.RecordFetch(&models.Ticket{TicketID: "ABC-1", Summary: "a"}))
	require.NoError(t, env.tickets.RecordFetch(&models.Ticket{TicketID: "ABC-2", Summary: "b"}))
	require.NoError(t, env.tickets.RecordFetch(&models.Ticket{TicketID: "ABC-1", Summary: "c"}))

	recent, err := env.tickets.RecentlyFetched(5)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "c", recent[0].Summary)
	assert.Equal(t, "ABC-2", recent[1].TicketID)
	assert.Equal(t, "a", recent[2].Summary)

	limited, err := env.tickets.RecentlyFetched(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestTicketCache_RoundTripsFullTicket(t *testing.T) {
	env := newTestEnv(t)
	in := &models.Ticket{
		TicketID:           "PROJ-9",
		Summary:            "Login",
		Description:        "desc",
		Priority:           "High",
		Status:             "Open",
		Assignee:           "Dana",
		Labels:             []string{"auth", "web"},
		AcceptanceCriteria: "works",
		Attachments:        []models.Attachment{{Filename: "a.png", URL: "https://x/a.png"}},
	}
	require.NoError(t, env.tickets.RecordFetch(in))

	out, err := env.tickets.MostRecent("PROJ-9")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
