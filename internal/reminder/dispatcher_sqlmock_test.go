package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MediSynth-io/contentplanner/internal/database"
	"github.com/MediSynth-io/contentplanner/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScanOnceStorageFailure(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m.ExpectQuery("UPDATE email_reminders SET claimed_until").WillReturnError(errors.New("connection refused"))

	sender := &mockSender{}
	d := NewDispatcher(store.New(db, database.Postgres), sender, Options{}, zerolog.Nop())

	res, err := d.ScanOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, ScanResult{}, res)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.NoError(t, m.ExpectationsWereMet())
}

func TestScanOnceMarksClaimedReminder(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	cols := []string{"id", "content_item_id", "user_id", "scheduled_for", "sent", "claimed_until", "created_at"}
	m.ExpectQuery("UPDATE email_reminders SET claimed_until").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("r1", "c1", "u1", now, false, now.Add(time.Minute), now))
	m.ExpectQuery("SELECT r.id").WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "title", "platform", "scheduled_date"}).
			AddRow("r1", "u1@example.com", "Post", "social", now))
	m.ExpectBegin()
	m.ExpectQuery("UPDATE email_reminders SET sent").WithArgs(true, "r1", false).
		WillReturnRows(sqlmock.NewRows([]string{"content_item_id"}).AddRow("c1"))
	m.ExpectExec("UPDATE content_items SET reminder_sent").WithArgs(true, "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()

	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	d := NewDispatcher(store.New(db, database.Postgres), sender, Options{Now: func() time.Time { return now }}, zerolog.Nop())

	res, err := d.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Scanned: 1, Sent: 1}, res)
	assert.NoError(t, m.ExpectationsWereMet())
}
