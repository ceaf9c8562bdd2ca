package roster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scoda_backend/internals/features/roster/model"
	rosterService "scoda_backend/internals/features/roster/service"
	"scoda_backend/internals/helpers/dbtime"
)

type PersonSeed struct {
	PersonID   uuid.UUID  `json:"person_id"`
	NationalID *string    `json:"national_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Email      *string    `json:"email"`
	Phone      *string    `json:"phone"`
	UserID     *uuid.UUID `json:"user_id"`
}

type CourseSeed struct {
	CourseID  uuid.UUID   `json:"course_id"`
	SchoolID  uuid.UUID   `json:"school_id"`
	Name      string      `json:"name"`
	StartTime *dbtime.Tod `json:"start_time"`
	EndTime   *dbtime.Tod `json:"end_time"`
}

type StudentSeed struct {
	StudentID uuid.UUID `json:"student_id"`
	PersonID  uuid.UUID `json:"person_id"`
	SchoolID  uuid.UUID `json:"school_id"`
	// enrolled in each listed course, active
	CourseIDs []uuid.UUID `json:"course_ids"`
}

type EdgeSeed struct {
	StudentID    uuid.UUID              `json:"student_id"`
	PersonID     uuid.UUID              `json:"person_id"`
	Kind         model.RelationshipKind `json:"kind"`
	Kinship      string                 `json:"kinship"`
	IsAuthorized bool                   `json:"is_authorized"`
}

type RosterSeed struct {
	Persons        []PersonSeed  `json:"persons"`
	Courses        []CourseSeed  `json:"courses"`
	Students       []StudentSeed `json:"students"`
	Authorizations []EdgeSeed    `json:"authorizations"`
}

type Result struct {
	Persons, Courses, Students, Enrollments, Edges int64
}

// SeedRosterFromJSON loads persons, courses, students with their
// enrollments and the authorized-person edges. Rows already present are
// skipped, so the file can be replayed.
func SeedRosterFromJSON(db *gorm.DB, filePath string, maxAuthorized int) (Result, error) {
	log.Println("[SEED] reading", filePath)
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", filePath, err)
	}
	var seed RosterSeed
	if err := sonic.Unmarshal(raw, &seed); err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return SeedRoster(db, seed, maxAuthorized)
}

func SeedRoster(db *gorm.DB, seed RosterSeed, maxAuthorized int) (Result, error) {
	var res Result
	roster := rosterService.New(db, maxAuthorized)

	err := db.Transaction(func(tx *gorm.DB) error {
		insert := func(v any) (int64, error) {
			r := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(v)
			return r.RowsAffected, r.Error
		}

		for _, p := range seed.Persons {
			n, err := insert(&model.PersonModel{
				PersonID:         p.PersonID,
				PersonNationalID: p.NationalID,
				PersonFirstName:  p.FirstName,
				PersonLastName:   p.LastName,
				PersonEmail:      p.Email,
				PersonPhone:      p.Phone,
				PersonUserID:     p.UserID,
			})
			if err != nil {
				return fmt.Errorf("person %s: %w", p.PersonID, err)
			}
			res.Persons += n
		}

		for _, c := range seed.Courses {
			n, err := insert(&model.CourseModel{
				CourseID:        c.CourseID,
				CourseSchoolID:  c.SchoolID,
				CourseName:      c.Name,
				CourseStartTime: c.StartTime,
				CourseEndTime:   c.EndTime,
			})
			if err != nil {
				return fmt.Errorf("course %s: %w", c.Name, err)
			}
			res.Courses += n
		}

		for _, s := range seed.Students {
			if s.StudentID == uuid.Nil || s.PersonID == uuid.Nil {
				return fmt.Errorf("student seed needs student_id and person_id")
			}
			n, err := insert(&model.StudentModel{
				StudentID:       s.StudentID,
				StudentPersonID: s.PersonID,
				StudentSchoolID: s.SchoolID,
			})
			if err != nil {
				return fmt.Errorf("student %s: %w", s.StudentID, err)
			}
			res.Students += n

			for _, courseID := range s.CourseIDs {
				var exists int64
				if err := tx.Model(&model.EnrollmentModel{}).
					Where("enrollment_student_id = ? AND enrollment_course_id = ?", s.StudentID, courseID).
					Count(&exists).Error; err != nil {
					return err
				}
				if exists > 0 {
					continue
				}
				if err := tx.Create(&model.EnrollmentModel{
					EnrollmentStudentID: s.StudentID,
					EnrollmentCourseID:  courseID,
					EnrollmentSchoolID:  s.SchoolID,
					EnrollmentIsActive:  true,
				}).Error; err != nil {
					return fmt.Errorf("enrollment %s/%s: %w", s.StudentID, courseID, err)
				}
				res.Enrollments++
			}
		}

		for _, e := range seed.Authorizations {
			_, err := roster.AddEdge(context.Background(), tx, rosterService.AddEdgeInput{
				StudentID:    e.StudentID,
				PersonID:     e.PersonID,
				Kind:         e.Kind,
				Kinship:      e.Kinship,
				IsAuthorized: e.IsAuthorized,
			})
			if errors.Is(err, rosterService.ErrDuplicateEdge) {
				continue
			}
			if err != nil {
				return fmt.Errorf("edge %s -> %s: %w", e.PersonID, e.StudentID, err)
			}
			res.Edges++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	log.Printf("[SEED] roster persons=%d courses=%d students=%d enrollments=%d edges=%d",
		res.Persons, res.Courses, res.Students, res.Enrollments, res.Edges)
	return res, nil
}
