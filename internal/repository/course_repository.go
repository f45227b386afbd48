package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/krayon-edu/krs-planner-api/internal/models"
)

const courseColumns = "id, code, name, sks, class, lecturer, room, prodi, term_id, schedule"

// CourseRepository reads the course catalog. The schedule column is JSONB;
// rows whose schedule fails to decode or validate are dropped with a
// warning instead of failing the whole query.
type CourseRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewCourseRepository creates a new repository instance.
func NewCourseRepository(db *sqlx.DB, logger *zap.Logger) *CourseRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseRepository{db: db, logger: logger}
}

// ListByCodes returns every section of the given course codes, ordered by
// code then class so enumeration input is deterministic.
func (r *CourseRepository) ListByCodes(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	if len(filter.Codes) == 0 {
		return []models.Course{}, nil
	}

	query := fmt.Sprintf("SELECT %s FROM courses WHERE code IN (?)", courseColumns)
	args := []interface{}{filter.Codes}
	if filter.Prodi != "" {
		query += " AND prodi = ?"
		args = append(args, filter.Prodi)
	}
	if filter.TermID != "" {
		query += " AND term_id = ?"
		args = append(args, filter.TermID)
	}
	query += " ORDER BY code, class"

	query, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("expand course query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.Course
	if err := r.db.SelectContext(ctx, &rows, query, expanded...); err != nil {
		return nil, fmt.Errorf("list courses by codes: %w", err)
	}

	return r.decodeSchedules(rows), nil
}

// List returns catalog sections matching the filter with pagination.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter, page, pageSize int) ([]models.Course, int, error) {
	base := "FROM courses WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Prodi != "" {
		conditions = append(conditions, fmt.Sprintf("prodi = $%d", len(args)+1))
		args = append(args, filter.Prodi)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if len(filter.Codes) == 1 {
		conditions = append(conditions, fmt.Sprintf("code = $%d", len(args)+1))
		args = append(args, filter.Codes[0])
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY code, class LIMIT %d OFFSET %d", courseColumns, base, pageSize, offset)
	var rows []models.Course
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	return r.decodeSchedules(rows), total, nil
}

func (r *CourseRepository) decodeSchedules(rows []models.Course) []models.Course {
	courses := make([]models.Course, 0, len(rows))
	for _, row := range rows {
		if len(row.RawSchedule) > 0 {
			if err := json.Unmarshal(row.RawSchedule, &row.Schedule); err != nil {
				r.logger.Warn("dropping course with malformed schedule",
					zap.String("course_id", row.ID),
					zap.String("code", row.Code),
					zap.Error(err),
				)
				continue
			}
		}
		if err := validateSchedule(row.Schedule); err != nil {
			r.logger.Warn("dropping course with invalid schedule",
				zap.String("course_id", row.ID),
				zap.String("code", row.Code),
				zap.Error(err),
			)
			continue
		}
		courses = append(courses, row)
	}
	return courses
}

// validateSchedule enforces the slot contract: a known weekday plus
// well-formed "HH:MM" clocks with start strictly before end.
func validateSchedule(slots []models.TimeSlot) error {
	for _, slot := range slots {
		if !models.KnownWeekday(slot.Day) {
			return fmt.Errorf("unknown weekday %q", slot.Day)
		}
		start, err := time.Parse("15:04", slot.Start)
		if err != nil {
			return fmt.Errorf("malformed start %q", slot.Start)
		}
		end, err := time.Parse("15:04", slot.End)
		if err != nil {
			return fmt.Errorf("malformed end %q", slot.End)
		}
		if !start.Before(end) {
			return fmt.Errorf("start %s not before end %s", slot.Start, slot.End)
		}
	}
	return nil
}
