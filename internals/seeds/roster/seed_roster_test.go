package roster

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"scoda_backend/internals/features/roster/model"
	rosterService "scoda_backend/internals/features/roster/service"
	"scoda_backend/internals/helpers/testdb"
)

func TestSeedRosterFromJSON(t *testing.T) {
	db := testdb.Open(t, model.All()...)

	res, err := SeedRosterFromJSON(db, "data_roster.json", 3)
	if err != nil {
		t.Fatal(err)
	}
	want := Result{Persons: 5, Courses: 1, Students: 2, Enrollments: 2, Edges: 3}
	if res != want {
		t.Fatalf("first run = %+v, want %+v", res, want)
	}

	again, err := SeedRosterFromJSON(db, "data_roster.json", 3)
	if err != nil {
		t.Fatal(err)
	}
	if again != (Result{}) {
		t.Fatalf("replay = %+v, want nothing new", again)
	}

	svc := rosterService.New(db, 3)
	ctx := context.Background()
	martin := uuid.MustParse("b7e0d5c4-1111-4a22-9c33-000000000001")
	grandma := uuid.MustParse("6f1c2a0e-0b57-4d0e-9b53-2a1f0c3e7a12")
	jorge := uuid.MustParse("6f1c2a0e-0b57-4d0e-9b53-2a1f0c3e7a11")

	if ok, err := svc.IsAuthorized(ctx, martin, grandma); err != nil || !ok {
		t.Errorf("grandmother authorized = %v, %v", ok, err)
	}
	if ok, _ := svc.IsAuthorized(ctx, martin, jorge); ok {
		t.Error("another student's guardian must not be authorized")
	}
	contact, err := svc.PrimaryContact(ctx, martin)
	if err != nil {
		t.Fatal(err)
	}
	if contact.PersonFirstName != "Paula" {
		t.Errorf("primary contact = %s, want Paula", contact.PersonFirstName)
	}

	var course model.CourseModel
	if err := db.First(&course).Error; err != nil {
		t.Fatal(err)
	}
	if course.CourseEndTime == nil || course.CourseEndTime.String() != "15:00:00" {
		t.Errorf("end time = %v, want 15:00:00", course.CourseEndTime)
	}
}

func TestSeedRosterRejectsMissingIDs(t *testing.T) {
	db := testdb.Open(t, model.All()...)
	_, err := SeedRoster(db, RosterSeed{Students: []StudentSeed{{SchoolID: uuid.New()}}}, 3)
	if err == nil {
		t.Fatal("want error for student without ids")
	}
	var n int64
	db.Model(&model.StudentModel{}).Count(&n)
	if n != 0 {
		t.Errorf("students = %d, want 0 after rollback", n)
	}
}
