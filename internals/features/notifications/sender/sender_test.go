package sender

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"scoda_backend/internals/features/notifications/batcher"
	"scoda_backend/internals/features/notifications/model"
	"scoda_backend/internals/helpers/testdb"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func sampleEvent(name string, early bool) batcher.PickupEvent {
	return batcher.PickupEvent{
		RecordID:       uuid.New(),
		StudentID:      uuid.New(),
		StudentName:    name,
		CourseName:     "3° Básico",
		RegisteredAt:   time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
		PickedUpByName: "Paula Soto",
		EarlyDismissal: early,
	}
}

func TestIndividualMessage(t *testing.T) {
	to := batcher.Recipient{Name: "Paula <mamá>"}
	msg := IndividualMessage(to, sampleEvent("Martín", true))

	if msg.Subject != "Pickup: Martín" {
		t.Errorf("subject = %q", msg.Subject)
	}
	for _, want := range []string{"Martín (3° Básico)", "14:30", "by Paula Soto", "before the end of the school day"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("text missing %q:\n%s", want, msg.Text)
		}
	}
	if strings.Contains(msg.HTML, "<mamá>") {
		t.Error("html body is not escaped")
	}
}

func TestPickupLineReadsSchoolClock(t *testing.T) {
	santiago := time.FixedZone("CLT", -3*3600)
	ev := sampleEvent("Martín", false)
	ev.Day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	ev.RegisteredAt = time.Date(2026, 3, 2, 17, 5, 0, 0, time.UTC).In(santiago)
	ev.RegisteredByName = "Luis Vera"

	line := pickupLine(ev)
	for _, want := range []string{"on 2026-03-02", "at 14:05", "by Paula Soto", "(registered by Luis Vera)"} {
		if !strings.Contains(line, want) {
			t.Errorf("line missing %q: %s", want, line)
		}
	}
	if strings.Contains(line, "17:05") {
		t.Errorf("line uses UTC wall clock: %s", line)
	}

	// nobody else recorded: the registering staff member picked the student up
	ev.PickedUpByName = ""
	line = pickupLine(ev)
	if !strings.Contains(line, "by Luis Vera") || strings.Contains(line, "registered by") {
		t.Errorf("registrar fallback: %s", line)
	}
}

func TestDigestMessage(t *testing.T) {
	events := []batcher.PickupEvent{sampleEvent("Ana", false), sampleEvent("Beto", false), sampleEvent("Carla", true)}
	msg := DigestMessage(batcher.Recipient{Name: "Paula"}, events)

	if msg.Subject != "Pickup summary: 3 students" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if n := strings.Count(msg.Text, "  - "); n != 3 {
		t.Errorf("text lists %d pickups, want 3", n)
	}
	if n := strings.Count(msg.HTML, "<li>"); n != 3 {
		t.Errorf("html lists %d pickups, want 3", n)
	}
}

func TestMailSender(t *testing.T) {
	d := &fakeDialer{}
	s := &MailSender{Dialer: d, From: "scoda@example.com"}
	to := batcher.Recipient{Name: "Paula", Email: "paula@example.com"}

	if err := s.SendDigest(context.Background(), to, []batcher.PickupEvent{sampleEvent("Ana", false)}); err != nil {
		t.Fatalf("SendDigest: %v", err)
	}
	if len(d.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(d.sent))
	}
	if got := d.sent[0].GetHeader("To"); len(got) != 1 || !strings.Contains(got[0], "paula@example.com") {
		t.Errorf("To = %v", got)
	}

	noEmail := batcher.Recipient{PersonID: uuid.New(), Name: "sin correo"}
	if err := s.SendIndividual(context.Background(), noEmail, sampleEvent("Ana", false)); err != nil {
		t.Errorf("no email: err = %v, want nil", err)
	}
	if err := s.SendDigest(context.Background(), noEmail, []batcher.PickupEvent{sampleEvent("Ana", false)}); err != nil {
		t.Errorf("no email digest: err = %v, want nil", err)
	}
	if len(d.sent) != 1 {
		t.Errorf("sent %d messages, want 1 (no-email contacts are skipped)", len(d.sent))
	}

	d.err = errors.New("connection refused")
	if err := s.SendIndividual(context.Background(), to, sampleEvent("Ana", false)); err == nil {
		t.Error("dialer failure was swallowed")
	}
}

func TestInboxSender(t *testing.T) {
	db := testdb.Open(t, &model.NotificationModel{})
	s := NewInboxSender(db)
	ctx := context.Background()

	userID := uuid.New()
	withAccount := batcher.Recipient{PersonID: uuid.New(), UserID: &userID, Name: "Paula"}
	withoutAccount := batcher.Recipient{PersonID: uuid.New(), Name: "Abuela"}

	events := []batcher.PickupEvent{sampleEvent("Ana", false), sampleEvent("Beto", false)}
	if err := s.SendDigest(ctx, withAccount, events); err != nil {
		t.Fatalf("SendDigest: %v", err)
	}
	if err := s.SendIndividual(ctx, withoutAccount, events[0]); err != nil {
		t.Fatalf("SendIndividual without account: %v", err)
	}

	var rows []model.NotificationModel
	if err := db.Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("inbox rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.NotificationUserID != userID || row.NotificationKind != model.NotificationDigest || row.NotificationIsRead {
		t.Errorf("unexpected row %+v", row)
	}
	if !strings.Contains(string(row.NotificationPayload), events[1].RecordID.String()) {
		t.Error("payload does not list the records")
	}
}

type failingSender struct{ calls int }

func (f *failingSender) SendIndividual(context.Context, batcher.Recipient, batcher.PickupEvent) error {
	f.calls++
	return errors.New("boom")
}

func (f *failingSender) SendDigest(context.Context, batcher.Recipient, []batcher.PickupEvent) error {
	f.calls++
	return errors.New("boom")
}

func TestMultiTriesEverySender(t *testing.T) {
	a, b := &failingSender{}, &failingSender{}
	m := Multi{a, LogSender{}, b}

	err := m.SendDigest(context.Background(), batcher.Recipient{}, nil)
	if err == nil {
		t.Fatal("expected joined error")
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", a.calls, b.calls)
	}
	if err := (Multi{LogSender{}}).SendIndividual(context.Background(), batcher.Recipient{}, batcher.PickupEvent{}); err != nil {
		t.Errorf("LogSender only: %v", err)
	}
}

func TestMultiInboxOnlyContactIsNotAFailure(t *testing.T) {
	db := testdb.Open(t, &model.NotificationModel{})
	d := &fakeDialer{}
	m := Multi{&MailSender{Dialer: d, From: "scoda@example.com"}, NewInboxSender(db)}

	userID := uuid.New()
	to := batcher.Recipient{PersonID: uuid.New(), UserID: &userID, Name: "Rosa"}
	events := []batcher.PickupEvent{sampleEvent("Ana", false), sampleEvent("Beto", false)}
	if err := m.SendDigest(context.Background(), to, events); err != nil {
		t.Fatalf("SendDigest = %v, want nil", err)
	}
	if len(d.sent) != 0 {
		t.Errorf("emails sent = %d, want 0", len(d.sent))
	}
	var n int64
	db.Model(&model.NotificationModel{}).Count(&n)
	if n != 1 {
		t.Errorf("inbox rows = %d, want 1", n)
	}
}
