// internals/features/roster/model/roster_model.go
package model

import (
	"time"

	"scoda_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* =========================================================
   PERSON: anyone the school knows (guardian, driver, student)
========================================================= */

type PersonModel struct {
	PersonID uuid.UUID `gorm:"type:uuid;primaryKey;column:person_id" json:"person_id"`

	PersonNationalID *string    `gorm:"type:varchar(20);column:person_national_id;index:idx_person_national_id" json:"person_national_id,omitempty"`
	PersonFirstName  string     `gorm:"type:varchar(120);not null;column:person_first_name" json:"person_first_name"`
	PersonLastName   string     `gorm:"type:varchar(120);not null;column:person_last_name" json:"person_last_name"`
	PersonEmail      *string    `gorm:"type:varchar(255);column:person_email" json:"person_email,omitempty"`
	PersonPhone      *string    `gorm:"type:varchar(30);column:person_phone" json:"person_phone,omitempty"`
	PersonUserID     *uuid.UUID `gorm:"type:uuid;column:person_user_id;index:idx_person_user_id" json:"person_user_id,omitempty"`

	PersonCreatedAt time.Time `gorm:"column:person_created_at;autoCreateTime" json:"person_created_at"`
	PersonUpdatedAt time.Time `gorm:"column:person_updated_at;autoUpdateTime" json:"person_updated_at"`
}

func (PersonModel) TableName() string { return "persons" }

func (p *PersonModel) BeforeCreate(*gorm.DB) error {
	if p.PersonID == uuid.Nil {
		p.PersonID = uuid.New()
	}
	return nil
}

func (p PersonModel) FullName() string {
	if p.PersonLastName == "" {
		return p.PersonFirstName
	}
	return p.PersonFirstName + " " + p.PersonLastName
}

/* =========================================================
   STUDENT
========================================================= */

type StudentModel struct {
	StudentID       uuid.UUID `gorm:"type:uuid;primaryKey;column:student_id" json:"student_id"`
	StudentPersonID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_student_person_school,priority:1;column:student_person_id" json:"student_person_id"`
	StudentSchoolID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_student_person_school,priority:2;column:student_school_id" json:"student_school_id"`

	Person *PersonModel `gorm:"foreignKey:StudentPersonID;references:PersonID" json:"person,omitempty"`

	StudentCreatedAt time.Time `gorm:"column:student_created_at;autoCreateTime" json:"student_created_at"`
}

func (StudentModel) TableName() string { return "students" }

func (s *StudentModel) BeforeCreate(*gorm.DB) error {
	if s.StudentID == uuid.Nil {
		s.StudentID = uuid.New()
	}
	return nil
}

/* =========================================================
   COURSE (carries the daily schedule)
========================================================= */

type CourseModel struct {
	CourseID        uuid.UUID   `gorm:"type:uuid;primaryKey;column:course_id" json:"course_id"`
	CourseSchoolID  uuid.UUID   `gorm:"type:uuid;not null;index:idx_course_school;column:course_school_id" json:"course_school_id"`
	CourseName      string      `gorm:"type:varchar(120);not null;column:course_name" json:"course_name"`
	CourseStartTime *dbtime.Tod `gorm:"type:time;column:course_start_time" json:"course_start_time,omitempty"`
	CourseEndTime   *dbtime.Tod `gorm:"type:time;column:course_end_time" json:"course_end_time,omitempty"`

	CourseCreatedAt time.Time `gorm:"column:course_created_at;autoCreateTime" json:"course_created_at"`
}

func (CourseModel) TableName() string { return "courses" }

func (c *CourseModel) BeforeCreate(*gorm.DB) error {
	if c.CourseID == uuid.Nil {
		c.CourseID = uuid.New()
	}
	return nil
}

/* =========================================================
   ENROLLMENT (student x course x school)
========================================================= */

type EnrollmentModel struct {
	EnrollmentID        uuid.UUID `gorm:"type:uuid;primaryKey;column:enrollment_id" json:"enrollment_id"`
	EnrollmentStudentID uuid.UUID `gorm:"type:uuid;not null;index:idx_enrollment_student;column:enrollment_student_id" json:"enrollment_student_id"`
	EnrollmentCourseID  uuid.UUID `gorm:"type:uuid;not null;index:idx_enrollment_course;column:enrollment_course_id" json:"enrollment_course_id"`
	EnrollmentSchoolID  uuid.UUID `gorm:"type:uuid;not null;column:enrollment_school_id" json:"enrollment_school_id"`
	EnrollmentIsActive  bool      `gorm:"not null;column:enrollment_is_active" json:"enrollment_is_active"`

	Student *StudentModel `gorm:"foreignKey:EnrollmentStudentID;references:StudentID" json:"student,omitempty"`
	Course  *CourseModel  `gorm:"foreignKey:EnrollmentCourseID;references:CourseID" json:"course,omitempty"`

	EnrollmentCreatedAt time.Time `gorm:"column:enrollment_created_at;autoCreateTime" json:"enrollment_created_at"`
}

func (EnrollmentModel) TableName() string { return "enrollments" }

func (e *EnrollmentModel) BeforeCreate(*gorm.DB) error {
	if e.EnrollmentID == uuid.Nil {
		e.EnrollmentID = uuid.New()
	}
	return nil
}

// EndTime is nil when the course has no schedule loaded.
func (e *EnrollmentModel) EndTime() *dbtime.Tod {
	if e == nil || e.Course == nil {
		return nil
	}
	return e.Course.CourseEndTime
}

/* =========================================================
   AUTHORIZED PERSON (who may pick a student up)
========================================================= */

type RelationshipKind string

const (
	RelationshipGuardian   RelationshipKind = "guardian"
	RelationshipAuthorized RelationshipKind = "authorized"
)

type StudentAuthorizedPersonModel struct {
	StudentAuthorizedPersonID uuid.UUID `gorm:"type:uuid;primaryKey;column:student_authorized_person_id" json:"student_authorized_person_id"`

	StudentAuthorizedPersonStudentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_sap_student_person,priority:1;column:student_authorized_person_student_id" json:"student_id"`
	StudentAuthorizedPersonPersonID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_sap_student_person,priority:2;index:idx_sap_person;column:student_authorized_person_person_id" json:"person_id"`

	StudentAuthorizedPersonKind         RelationshipKind `gorm:"type:varchar(16);not null;default:authorized;column:student_authorized_person_kind" json:"relationship_kind"`
	StudentAuthorizedPersonKinship      *string          `gorm:"type:varchar(40);column:student_authorized_person_kinship" json:"kinship,omitempty"`
	StudentAuthorizedPersonIsAuthorized bool             `gorm:"not null;column:student_authorized_person_is_authorized" json:"is_authorized"`

	Person *PersonModel `gorm:"foreignKey:StudentAuthorizedPersonPersonID;references:PersonID" json:"person,omitempty"`

	StudentAuthorizedPersonCreatedAt time.Time `gorm:"column:student_authorized_person_created_at;autoCreateTime" json:"created_at"`
}

func (StudentAuthorizedPersonModel) TableName() string { return "student_authorized_persons" }

func (m *StudentAuthorizedPersonModel) BeforeCreate(*gorm.DB) error {
	if m.StudentAuthorizedPersonID == uuid.Nil {
		m.StudentAuthorizedPersonID = uuid.New()
	}
	return nil
}

// All lists the roster tables in migration order.
func All() []any {
	return []any{
		&PersonModel{},
		&StudentModel{},
		&CourseModel{},
		&EnrollmentModel{},
		&StudentAuthorizedPersonModel{},
	}
}
