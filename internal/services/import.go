package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/moldindex-backend/internal/data/repos"
	"github.com/yungbote/moldindex-backend/internal/domain"
	"github.com/yungbote/moldindex-backend/internal/ingestion/spreadsheet"
	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
	"github.com/yungbote/moldindex-backend/internal/platform/ctxutil"
	"github.com/yungbote/moldindex-backend/internal/platform/dbctx"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

type ImportPolicy string

const (
	// ImportPolicySkip inserts every valid row and reports the rest.
	ImportPolicySkip ImportPolicy = "skip"
	// ImportPolicyAbort inserts nothing unless every row is valid and unique.
	ImportPolicyAbort ImportPolicy = "abort"
)

func ParseImportPolicy(raw string) (ImportPolicy, error) {
	switch ImportPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case ImportPolicySkip:
		return ImportPolicySkip, nil
	case ImportPolicyAbort:
		return ImportPolicyAbort, nil
	default:
		return "", apierr.Validation("invalid_import_policy", "import policy %q: want skip or abort", raw)
	}
}

// RowError explains why a spreadsheet row was not imported.
type RowError struct {
	Row        int    `json:"row"`
	PartNumber string `json:"part_number,omitempty"`
	MoldNumber string `json:"mold_number,omitempty"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

type ImportResult struct {
	Policy    ImportPolicy `json:"policy"`
	Inserted  int          `json:"inserted"`
	RecordIDs []uint       `json:"record_ids"`
	Skipped   []RowError   `json:"skipped"`
}

// ImportRejectedError is returned under ImportPolicyAbort when any row fails.
type ImportRejectedError struct {
	Rows []RowError
	err  *apierr.Error
}

func (e *ImportRejectedError) Error() string { return e.err.Error() }
func (e *ImportRejectedError) Unwrap() error { return e.err }

type ImportService interface {
	// Import loads a spreadsheet under policy. When a skip import fails partway, the
	// result returned with the error lists the rows already committed.
	Import(dbc dbctx.Context, filename string, r io.Reader, policy ImportPolicy) (*ImportResult, error)
}

type importService struct {
	db        *gorm.DB
	log       *logger.Logger
	molds     repos.MoldRecordRepo
	processes domain.ProcessDefaults
}

func NewImportService(
	db *gorm.DB,
	baseLog *logger.Logger,
	molds repos.MoldRecordRepo,
	processes domain.ProcessDefaults,
) ImportService {
	return &importService{
		db:        db,
		log:       baseLog.With("service", "ImportService"),
		molds:     molds,
		processes: processes,
	}
}

func (s *importService) reqLog(ctx context.Context) *logger.Logger {
	return s.log.With(ctxutil.LogFields(ctx)...)
}

type decodedRow struct {
	number int
	fields domain.MoldFields
}

func (s *importService) Import(dbc dbctx.Context, filename string, r io.Reader, policy ImportPolicy) (*ImportResult, error) {
	if policy == "" {
		policy = ImportPolicySkip
	}
	if _, err := ParseImportPolicy(string(policy)); err != nil {
		return nil, err
	}

	rows, err := spreadsheet.Parse(filename, r)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Policy: policy, RecordIDs: []uint{}, Skipped: []RowError{}}
	valid := make([]decodedRow, 0, len(rows))
	seenPart := map[string]int{}
	seenMold := map[string]int{}
	for _, row := range rows {
		fields, err := row.Fields.Parse()
		if err != nil {
			result.Skipped = append(result.Skipped, rowError(row.Number, row.Fields.PartNumber, row.Fields.MoldNumber, err))
			continue
		}
		if prev, dup := seenPart[fields.PartNumber]; dup {
			result.Skipped = append(result.Skipped, rowError(row.Number, fields.PartNumber, fields.MoldNumber,
				apierr.Conflict("duplicate_in_file", "part number %q repeats row %d", fields.PartNumber, prev)))
			continue
		}
		if prev, dup := seenMold[fields.MoldNumber]; dup {
			result.Skipped = append(result.Skipped, rowError(row.Number, fields.PartNumber, fields.MoldNumber,
				apierr.Conflict("duplicate_in_file", "mold number %q repeats row %d", fields.MoldNumber, prev)))
			continue
		}
		seenPart[fields.PartNumber] = row.Number
		seenMold[fields.MoldNumber] = row.Number
		valid = append(valid, decodedRow{number: row.Number, fields: fields})
	}

	if policy == ImportPolicyAbort {
		if len(result.Skipped) > 0 {
			return nil, rejected(result.Skipped, "invalid_rows")
		}
		return s.importAll(dbc, valid, result)
	}
	return s.importEach(dbc, valid, result)
}

// importEach inserts rows one by one; conflicts are skipped and reported. Any other
// failure stops the import and returns the rows committed so far with the error.
func (s *importService) importEach(dbc dbctx.Context, rows []decodedRow, result *ImportResult) (*ImportResult, error) {
	for _, row := range rows {
		id, err := s.insert(dbc, row.fields)
		if err != nil {
			if apierr.KindOf(err) != apierr.KindConflict {
				result.Inserted = len(result.RecordIDs)
				s.reqLog(dbc.Ctx).Error("Spreadsheet import stopped", "row", row.number, "inserted", result.Inserted, "error", err)
				return result, fmt.Errorf("import row %d after %d inserted row(s): %w", row.number, result.Inserted, err)
			}
			result.Skipped = append(result.Skipped, rowError(row.number, row.fields.PartNumber, row.fields.MoldNumber, err))
			continue
		}
		result.RecordIDs = append(result.RecordIDs, id)
	}
	result.Inserted = len(result.RecordIDs)
	s.reqLog(dbc.Ctx).Info("Spreadsheet imported", "policy", result.Policy, "inserted", result.Inserted, "skipped", len(result.Skipped))
	return result, nil
}

// importAll inserts every row in one transaction; the first conflict rolls it back.
func (s *importService) importAll(dbc dbctx.Context, rows []decodedRow, result *ImportResult) (*ImportResult, error) {
	var conflicts []RowError
	ids := make([]uint, 0, len(rows))
	err := dbc.InTx(s.db, func(inner dbctx.Context) error {
		for _, row := range rows {
			id, err := s.insert(inner, row.fields)
			if err != nil {
				if apierr.KindOf(err) == apierr.KindConflict {
					conflicts = append(conflicts, rowError(row.number, row.fields.PartNumber, row.fields.MoldNumber, err))
					return err
				}
				return fmt.Errorf("import row %d: %w", row.number, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if len(conflicts) > 0 {
		return nil, rejected(conflicts, "conflicting_rows")
	}
	if err != nil {
		return nil, err
	}

	result.RecordIDs = ids
	result.Inserted = len(ids)
	s.reqLog(dbc.Ctx).Info("Spreadsheet imported", "policy", result.Policy, "inserted", result.Inserted)
	return result, nil
}

func (s *importService) insert(dbc dbctx.Context, fields domain.MoldFields) (uint, error) {
	existing, err := s.molds.FindConflicts(dbc, fields.PartNumber, fields.MoldNumber, 0)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, apierr.Conflict("duplicate_mold_record", "part number %q or mold number %q already exists (record %d)", fields.PartNumber, fields.MoldNumber, existing[0].ID)
	}

	rec := &domain.MoldRecord{ProcessData: datatypes.NewJSONType(s.processes.Seed())}
	rec.Apply(fields)
	if _, err := s.molds.Create(dbc, []*domain.MoldRecord{rec}); err != nil {
		if isUniqueViolation(err) {
			return 0, duplicateRecordErr(fields.PartNumber, fields.MoldNumber)
		}
		return 0, err
	}
	return rec.ID, nil
}

func rowError(number int, partNumber, moldNumber string, err error) RowError {
	return RowError{
		Row:        number,
		PartNumber: strings.TrimSpace(partNumber),
		MoldNumber: strings.TrimSpace(moldNumber),
		Code:       apierr.CodeOf(err, "invalid_row"),
		Message:    err.Error(),
	}
}

func rejected(rows []RowError, code string) *ImportRejectedError {
	// Conflict only when every rejected row is a duplicate.
	kind := apierr.KindConflict
	for _, r := range rows {
		if r.Code != "duplicate_mold_record" && r.Code != "duplicate_in_file" {
			kind = apierr.KindValidation
		}
	}
	return &ImportRejectedError{
		Rows: rows,
		err:  apierr.New(kind, code, fmt.Errorf("import aborted: %d row(s) rejected, nothing was imported", len(rows))),
	}
}
