// internals/features/roster/service/roster_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scoda_backend/internals/features/roster/model"
	helper "scoda_backend/internals/helpers"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrPersonNotFound     = errors.New("person not found")
	ErrNoContact          = errors.New("student has no guardian or authorized contact")

	ErrAuthorizedLimit = errors.New("authorized persons limit reached")
	ErrDuplicateEdge   = errors.New("person is already linked to this student")
	ErrCrossRole       = errors.New("person is a student of the same school")
	ErrSelfLink        = errors.New("student cannot be linked to themselves")
)

type Service struct {
	DB            *gorm.DB
	MaxAuthorized int
}

func New(db *gorm.DB, maxAuthorized int) *Service {
	if maxAuthorized < 1 {
		maxAuthorized = 3
	}
	return &Service{DB: db, MaxAuthorized: maxAuthorized}
}

func (s *Service) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.DB.WithContext(ctx)
}

/* =========================================================
   AUTHORIZATION INDEX
========================================================= */

// IsAuthorized reports whether person may pick up student. A guardian edge
// counts even when its flag is off. A missing edge or unknown student is
// false with no error.
func (s *Service) IsAuthorized(ctx context.Context, studentID, personID uuid.UUID) (bool, error) {
	if studentID == uuid.Nil || personID == uuid.Nil {
		return false, nil
	}
	var n int64
	err := s.DB.WithContext(ctx).
		Model(&model.StudentAuthorizedPersonModel{}).
		Where("student_authorized_person_student_id = ? AND student_authorized_person_person_id = ?", studentID, personID).
		Where("student_authorized_person_is_authorized = ? OR student_authorized_person_kind = ?", true, model.RelationshipGuardian).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("authorization lookup: %w", err)
	}
	return n > 0, nil
}

/* =========================================================
   ENROLLMENTS
========================================================= */

// GetEnrollment loads an enrollment with its student, person and course.
func (s *Service) GetEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*model.EnrollmentModel, error) {
	var e model.EnrollmentModel
	err := s.DB.WithContext(ctx).
		Preload("Student.Person").
		Preload("Course").
		Where("enrollment_id = ?", enrollmentID).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

type EnrollmentFilter struct {
	SchoolID *uuid.UUID
	CourseID *uuid.UUID
}

// ActiveEnrollments lists active enrollments, optionally scoped to a school or course.
func (s *Service) ActiveEnrollments(ctx context.Context, f EnrollmentFilter) ([]model.EnrollmentModel, error) {
	q := s.DB.WithContext(ctx).
		Model(&model.EnrollmentModel{}).
		Where("enrollment_is_active = ?", true)
	if f.SchoolID != nil {
		q = q.Where("enrollment_school_id = ?", *f.SchoolID)
	}
	if f.CourseID != nil {
		q = q.Where("enrollment_course_id = ?", *f.CourseID)
	}

	var out []model.EnrollmentModel
	if err := q.Order("enrollment_created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

/* =========================================================
   CONTACTS
========================================================= */

// PrimaryContact returns the person notified about a student's pickups:
// the first guardian edge, else the first authorized edge.
func (s *Service) PrimaryContact(ctx context.Context, studentID uuid.UUID) (*model.PersonModel, error) {
	var edges []model.StudentAuthorizedPersonModel
	err := s.DB.WithContext(ctx).
		Preload("Person").
		Where("student_authorized_person_student_id = ?", studentID).
		Order("student_authorized_person_created_at ASC").
		Find(&edges).Error
	if err != nil {
		return nil, err
	}

	var fallback *model.PersonModel
	for i := range edges {
		e := &edges[i]
		if e.Person == nil {
			continue
		}
		if e.StudentAuthorizedPersonKind == model.RelationshipGuardian {
			return e.Person, nil
		}
		if fallback == nil && e.StudentAuthorizedPersonIsAuthorized {
			fallback = e.Person
		}
	}
	if fallback == nil {
		return nil, ErrNoContact
	}
	return fallback, nil
}

func (s *Service) GetPerson(ctx context.Context, personID uuid.UUID) (*model.PersonModel, error) {
	var p model.PersonModel
	err := s.DB.WithContext(ctx).Where("person_id = ?", personID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPersonNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PersonByUserID finds the person linked to a login account.
func (s *Service) PersonByUserID(ctx context.Context, userID uuid.UUID) (*model.PersonModel, error) {
	var p model.PersonModel
	err := s.DB.WithContext(ctx).Where("person_user_id = ?", userID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPersonNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

/* =========================================================
   EDGE WRITES (seeding / admin tooling)
========================================================= */

type AddEdgeInput struct {
	StudentID    uuid.UUID
	PersonID     uuid.UUID
	Kind         model.RelationshipKind
	Kinship      string
	IsAuthorized bool
}

// AddEdge links a person to a student, enforcing the per-student cap,
// uniqueness and the cross-role exclusion. tx may be nil. The checks and the
// insert run in one transaction holding the student row lock, so concurrent
// calls for the same student are serialized.
func (s *Service) AddEdge(ctx context.Context, tx *gorm.DB, in AddEdgeInput) (*model.StudentAuthorizedPersonModel, error) {
	kind := in.Kind
	if kind == "" {
		kind = model.RelationshipAuthorized
	}
	if kind != model.RelationshipGuardian && kind != model.RelationshipAuthorized {
		return nil, fmt.Errorf("unknown relationship kind %q", kind)
	}

	var edge *model.StudentAuthorizedPersonModel
	err := s.conn(ctx, tx).Transaction(func(db *gorm.DB) error {
		var student model.StudentModel
		if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ?", in.StudentID).Take(&student).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStudentNotFound
			}
			return err
		}
		if student.StudentPersonID == in.PersonID {
			return ErrSelfLink
		}

		var n int64
		if err := db.Model(&model.PersonModel{}).Where("person_id = ?", in.PersonID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrPersonNotFound
		}

		if err := db.Model(&model.StudentModel{}).
			Where("student_person_id = ? AND student_school_id = ?", in.PersonID, student.StudentSchoolID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrCrossRole
		}

		if err := db.Model(&model.StudentAuthorizedPersonModel{}).
			Where("student_authorized_person_student_id = ? AND student_authorized_person_person_id = ?", in.StudentID, in.PersonID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateEdge
		}

		if err := db.Model(&model.StudentAuthorizedPersonModel{}).
			Where("student_authorized_person_student_id = ?", in.StudentID).
			Count(&n).Error; err != nil {
			return err
		}
		if int(n) >= s.MaxAuthorized {
			return ErrAuthorizedLimit
		}

		e := &model.StudentAuthorizedPersonModel{
			StudentAuthorizedPersonStudentID:    in.StudentID,
			StudentAuthorizedPersonPersonID:     in.PersonID,
			StudentAuthorizedPersonKind:         kind,
			StudentAuthorizedPersonIsAuthorized: in.IsAuthorized || kind == model.RelationshipGuardian,
		}
		if k := strings.TrimSpace(in.Kinship); k != "" {
			e.StudentAuthorizedPersonKinship = &k
		}
		if err := db.Create(e).Error; err != nil {
			if helper.IsUniqueViolation(err) {
				return ErrDuplicateEdge
			}
			return err
		}
		edge = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}
