package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
)

// CourseRepository reads courses and their class and faculty mappings.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns every course.
func (r *CourseRepository) List(ctx context.Context, exec sqlx.ExtContext) ([]models.Course, error) {
	const query = `SELECT course_code, course_name, credits, course_type, hours_week, dept_id FROM courses ORDER BY course_code`
	var courses []models.Course
	if err := sqlx.SelectContext(ctx, r.exec(exec), &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListClassCourses returns the required courses of the given classes.
func (r *CourseRepository) ListClassCourses(ctx context.Context, exec sqlx.ExtContext, classIDs []int64) ([]models.ClassCourse, error) {
	if len(classIDs) == 0 {
		return []models.ClassCourse{}, nil
	}
	const query = `SELECT class_id, course_code FROM class_courses WHERE class_id = ANY($1) ORDER BY class_id, course_code`
	var mappings []models.ClassCourse
	if err := sqlx.SelectContext(ctx, r.exec(exec), &mappings, query, pq.Array(classIDs)); err != nil {
		return nil, fmt.Errorf("list class courses: %w", err)
	}
	return mappings, nil
}

// ListCourseFaculty returns every course to faculty eligibility pair.
func (r *CourseRepository) ListCourseFaculty(ctx context.Context, exec sqlx.ExtContext) ([]models.CourseFaculty, error) {
	const query = `SELECT course_code, fac_id FROM course_faculty ORDER BY course_code, fac_id`
	var mappings []models.CourseFaculty
	if err := sqlx.SelectContext(ctx, r.exec(exec), &mappings, query); err != nil {
		return nil, fmt.Errorf("list course faculty: %w", err)
	}
	return mappings, nil
}
