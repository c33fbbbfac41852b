package domain_test

import (
	"testing"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestDueNotice(t *testing.T) {
	lead := 30 * time.Minute
	every := 6 * time.Hour
	end := time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)

	active := func() *domain.Booking {
		return &domain.Booking{Status: domain.StatusActive, StartTime: end.Add(-3 * time.Hour), EndTime: end}
	}

	t.Run("nothing due early", func(t *testing.T) {
		_, ok := domain.DueNotice(active(), end.Add(-2*time.Hour), lead, every)
		assert.False(t, ok)
	})

	t.Run("reminder inside lead window, once", func(t *testing.T) {
		b := active()
		now := end.Add(-20 * time.Minute)
		kind, ok := domain.DueNotice(b, now, lead, every)
		assert.True(t, ok)
		assert.Equal(t, domain.NoticeReminder, kind)

		b.MarkNoticeSent(kind, now)
		_, ok = domain.DueNotice(b, now.Add(5*time.Minute), lead, every)
		assert.False(t, ok)
	})

	t.Run("end of booking notice once end passes", func(t *testing.T) {
		b := active()
		kind, ok := domain.DueNotice(b, end.Add(time.Minute), lead, every)
		assert.True(t, ok)
		assert.Equal(t, domain.NoticeEndOfBooking, kind)
	})

	t.Run("overstay reminders are rate limited", func(t *testing.T) {
		b := active()
		b.MarkNoticeSent(domain.NoticeEndOfBooking, end)

		_, ok := domain.DueNotice(b, end.Add(5*time.Hour), lead, every)
		assert.False(t, ok)

		kind, ok := domain.DueNotice(b, end.Add(6*time.Hour), lead, every)
		assert.True(t, ok)
		assert.Equal(t, domain.NoticeOverstay, kind)

		b.MarkNoticeSent(kind, end.Add(6*time.Hour))
		_, ok = domain.DueNotice(b, end.Add(11*time.Hour), lead, every)
		assert.False(t, ok)

		_, ok = domain.DueNotice(b, end.Add(12*time.Hour), lead, every)
		assert.True(t, ok)
	})

	t.Run("only active bookings get notices", func(t *testing.T) {
		b := active()
		b.Status = domain.StatusPending
		_, ok := domain.DueNotice(b, end.Add(time.Hour), lead, every)
		assert.False(t, ok)
	})
}

func TestBuildNotification(t *testing.T) {
	b := &domain.Booking{
		ID:           9,
		ContactEmail: "a@example.com",
		VehiclePlate: "ABC123",
		StartTime:    time.Date(2026, 7, 1, 15, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC),
	}
	n := domain.BuildNotification(domain.NoticeOverstay, b, "B6", b.EndTime.Add(90*time.Minute))

	assert.Equal(t, "a@example.com", n.Recipient)
	assert.Equal(t, int64(9), n.BookingID)
	assert.Contains(t, n.Subject, "#9")
	assert.Contains(t, n.Body, "1h30m0s")
	assert.Contains(t, n.Body, "B6")
}
