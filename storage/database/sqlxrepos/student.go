package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

const (
	studentsTable   = "students"
	promotionsTable = "student_promotions"
)

var (
	studentCols = []string{
		"id", "school_id", "user_id", "parent_user_id", "admission_no", "name", "gender", "date_of_birth",
		"section_id", "roll_no", "status", "created_at", "updated_at",
	}
	studentUpdateCols = []string{
		"user_id", "parent_user_id", "admission_no", "name", "gender", "date_of_birth",
		"section_id", "roll_no", "status", "updated_at",
	}
	studentOrdering = map[string]string{
		"name":         "st.name",
		"admission_no": "st.admission_no",
		"roll_no":      "st.roll_no",
		"class_name":   "c.name",
		"section_name": "sec.name",
		"created_at":   "st.created_at",
	}

	promotionCols = []string{"id", "school_id", "student_id", "from_section_id", "to_section_id", "action", "promoted_by", "created_at"}
)

type studentRepository struct {
	base
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{base{exec: exec}}
}

func (repo studentRepository) selectStudents() sq.SelectBuilder {
	cols := make([]string, 0, len(studentCols)+3)
	for _, col := range studentCols {
		cols = append(cols, "st."+col)
	}
	return builder.Select(append(cols, "sec.name AS section_name", "sec.class_id", "c.name AS class_name")...).
		From(studentsTable + " st").
		LeftJoin(sectionsTable + " sec ON sec.id = st.section_id").
		LeftJoin(classesTable + " c ON c.id = sec.class_id").
		Where(sq.Eq{"st.deleted_at": nil})
}

func (repo studentRepository) getStudent(ctx context.Context, exec core.DBExecutor, where sq.Eq) (student.Student, error) {
	var std student.Student
	err := getOne(ctx, exec, &std, repo.selectStudents().Where(where))
	return std, trapErr(err, "getting student", student.ErrNotFound, nil)
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	std.ID = newID()
	db := repo.getExec(exec)
	if err := insertRow(ctx, db, studentsTable, studentCols, std); err != nil {
		return std, trapErr(err, "inserting student", nil, student.ErrAdmissionNoExists)
	}
	return repo.getStudent(ctx, db, sq.Eq{"st.id": std.ID})
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, opts core.ListOptions, exec ...core.DBExecutor) ([]student.Student, error) {
	qb := repo.selectStudents().Where(sq.Eq{"st.school_id": filter.SchoolID})
	if filter.Search != "" {
		qb = qb.Where(search(filter.Search, "st.name", "st.admission_no"))
	}
	if filter.SectionID != "" {
		qb = qb.Where(sq.Eq{"st.section_id": filter.SectionID})
	}
	if filter.ClassID != "" {
		qb = qb.Where(sq.Eq{"sec.class_id": filter.ClassID})
	}
	if filter.Status != "" {
		qb = qb.Where(sq.Eq{"st.status": filter.Status})
	}
	if filter.ParentUserID != "" {
		qb = qb.Where(sq.Eq{"st.parent_user_id": filter.ParentUserID})
	}
	if len(filter.IDs) > 0 {
		qb = qb.Where(sq.Eq{"st.id": filter.IDs})
	}
	qb = applyListOptions(qb, opts, studentOrdering, "st.name")

	students := []student.Student{}
	if err := selectMany(ctx, repo.getExec(exec), &students, qb); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, schoolID, id string, exec ...core.DBExecutor) (student.Student, error) {
	return repo.getStudent(ctx, repo.getExec(exec), sq.Eq{"st.id": id, "st.school_id": schoolID})
}

func (repo studentRepository) GetStudentByUser(ctx context.Context, userID string, exec ...core.DBExecutor) (student.Student, error) {
	return repo.getStudent(ctx, repo.getExec(exec), sq.Eq{"st.user_id": userID})
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	db := repo.getExec(exec)
	if err := updateRow(ctx, db, studentsTable, studentUpdateCols, std, true); err != nil {
		return std, trapErr(err, "updating student", student.ErrNotFound, student.ErrAdmissionNoExists)
	}
	return repo.getStudent(ctx, db, sq.Eq{"st.id": std.ID})
}

func (repo studentRepository) DeleteStudent(ctx context.Context, schoolID, id, deletedBy string, exec ...core.DBExecutor) error {
	err := softDelete(ctx, repo.getExec(exec), studentsTable, schoolID, id, deletedBy)
	return trapErr(err, "deleting student", student.ErrNotFound, nil)
}

// Promotions

func (repo studentRepository) CreatePromotion(ctx context.Context, pr student.Promotion, exec ...core.DBExecutor) error {
	pr.ID = newID()
	return errors.Wrap(insertRow(ctx, repo.getExec(exec), promotionsTable, promotionCols, pr), "inserting promotion")
}

func (repo studentRepository) QueryPromotions(ctx context.Context, schoolID, studentID string, exec ...core.DBExecutor) ([]student.Promotion, error) {
	qb := builder.Select(promotionCols...).
		From(promotionsTable).
		Where(sq.Eq{"school_id": schoolID, "student_id": studentID}).
		OrderBy("created_at")

	promotions := []student.Promotion{}
	if err := selectMany(ctx, repo.getExec(exec), &promotions, qb); err != nil {
		return nil, errors.Wrap(err, "querying promotions")
	}
	return promotions, nil
}

func (repo studentRepository) GetSectionInfo(ctx context.Context, schoolID, sectionID string, exec ...core.DBExecutor) (student.SectionInfo, error) {
	headcount := builder.Select("COUNT(*)").
		From(studentsTable + " st").
		Where("st.section_id = sec.id").
		Where(sq.Eq{"st.status": student.StatusActive, "st.deleted_at": nil})

	qb := builder.Select("sec.id", "sec.class_id", "sec.capacity").
		Column(sq.Alias(headcount, "headcount")).
		From(sectionsTable + " sec").
		Where(sq.Eq{"sec.id": sectionID, "sec.school_id": schoolID, "sec.deleted_at": nil})

	var info student.SectionInfo
	err := getOne(ctx, repo.getExec(exec), &info, qb)
	return info, trapErr(err, "getting section info", student.ErrSectionNotFound, nil)
}

func (repo studentRepository) UserInSchool(ctx context.Context, schoolID, userID string, exec ...core.DBExecutor) (bool, error) {
	return userInSchool(ctx, repo.getExec(exec), schoolID, userID)
}
