package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/emrgen/coa/internal/blob"
	"github.com/emrgen/coa/internal/metrics"
	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/objref"
	"github.com/emrgen/coa/internal/store"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultCOAPrefix starts every generated COA code.
	DefaultCOAPrefix = "ZT"
	// MaxCOAFileSize bounds certificate uploads.
	MaxCOAFileSize = 20 << 20
)

// COA is the flat shape of a certificate handed to API clients.
type COA struct {
	ID           string    `json:"id"`
	CoaID        string    `json:"coaId"`
	ClientName   string    `json:"clientName"`
	Compound     string    `json:"compound"`
	AnalysisType string    `json:"analysisType"`
	TestDate     string    `json:"testDate"`
	Status       string    `json:"status"`
	Purity       *float64  `json:"purity,omitempty"`
	Result       *string   `json:"result,omitempty"`
	Notes        string    `json:"notes"`
	FileName     string    `json:"fileName,omitempty"`
	FileSize     int64     `json:"fileSize,omitempty"`
	FileURL      string    `json:"fileUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// COAInput carries the editable fields of a certificate.
type COAInput struct {
	CoaID        string   `json:"coaId"`
	ClientName   string   `json:"clientName"`
	Compound     string   `json:"compound"`
	AnalysisType string   `json:"analysisType"`
	TestDate     string   `json:"testDate"`
	Status       string   `json:"status"`
	Purity       *float64 `json:"purity,omitempty"`
	Result       *string  `json:"result,omitempty"`
	Notes        string   `json:"notes"`
}

// COAManager is the certificate CRUD surface. One implementation is picked
// at startup; callers never know which.
type COAManager interface {
	// GetAllCOAs returns every certificate, newest first, or an empty list.
	GetAllCOAs(ctx context.Context) ([]*COA, error)
	// GetCOAByID returns the certificate with the given code, or nil when there is none.
	GetCOAByID(ctx context.Context, code string) (*COA, error)
	AddCOA(ctx context.Context, input COAInput) (*COA, error)
	// UpdateCOA overwrites every editable field. Changing the code leaves no alias behind.
	UpdateCOA(ctx context.Context, code string, input COAInput) (*COA, error)
	DeleteCOA(ctx context.Context, code string) error
	SearchCOAs(ctx context.Context, query string) ([]*COA, error)
	// GenerateCOAID proposes the next code for the current year. Concurrent
	// callers may receive the same value; the unique index rejects the loser.
	GenerateCOAID(ctx context.Context) (string, error)
}

// COAFiles attaches certificate PDFs to COAs.
type COAFiles interface {
	UploadFile(ctx context.Context, code, fileName string, r io.Reader) (*COA, error)
	DeleteFile(ctx context.Context, code string) (*COA, error)
}

var (
	_ COAManager = (*COAService)(nil)
	_ COAFiles   = (*COAService)(nil)
)

// COAService keeps certificates in the database and their PDFs in the blob store.
type COAService struct {
	store    store.Store
	blobs    blob.Store
	resolver objref.Resolver
	prefix   string
	now      func() time.Time
}

func NewCOAService(store store.Store, blobs blob.Store, resolver objref.Resolver, prefix string) *COAService {
	if prefix == "" {
		prefix = DefaultCOAPrefix
	}
	return &COAService{
		store:    store,
		blobs:    blobs,
		resolver: resolver,
		prefix:   prefix,
		now:      time.Now,
	}
}

func (s *COAService) GetAllCOAs(ctx context.Context) ([]*COA, error) {
	rows, err := s.store.ListCOAs(ctx)
	metrics.ObserveCOA("list", err)
	if err != nil {
		logrus.Errorf("error listing coas: %v", err)
		return nil, fmt.Errorf("list coas: %w", err)
	}
	return toCOAs(rows), nil
}

func (s *COAService) GetCOAByID(ctx context.Context, code string) (*COA, error) {
	row, err := s.find(ctx, code)
	metrics.ObserveCOA("get", err)
	if err != nil || row == nil {
		return nil, err
	}
	return toCOA(row), nil
}

func (s *COAService) AddCOA(ctx context.Context, input COAInput) (*COA, error) {
	input, err := validateCOAInput(input)
	if err != nil {
		return nil, err
	}

	row := &model.COA{}
	applyCOAInput(row, input)

	err = s.store.CreateCOA(ctx, row)
	metrics.ObserveCOA("add", err)
	if err != nil {
		logrus.Errorf("error adding coa %s: %v", input.CoaID, err)
		return nil, fmt.Errorf("add coa %s: %w", input.CoaID, err)
	}

	logrus.Infof("coa %s added", row.Code)
	return toCOA(row), nil
}

func (s *COAService) UpdateCOA(ctx context.Context, code string, input COAInput) (*COA, error) {
	input, err := validateCOAInput(input)
	if err != nil {
		return nil, err
	}

	row, err := s.find(ctx, code)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("update coa %s: %w", code, ErrNotFound)
	}

	if input.CoaID != row.Code {
		logrus.Warnf("coa %s renamed to %s; the old code no longer resolves", row.Code, input.CoaID)
	}
	applyCOAInput(row, input)

	err = s.store.UpdateCOA(ctx, row)
	metrics.ObserveCOA("update", err)
	if err != nil {
		logrus.Errorf("error updating coa %s: %v", code, err)
		return nil, fmt.Errorf("update coa %s: %w", code, err)
	}

	return toCOA(row), nil
}

// DeleteCOA removes the stored file first, best effort, then the row. A
// storage failure never blocks the row deletion.
func (s *COAService) DeleteCOA(ctx context.Context, code string) error {
	row, err := s.find(ctx, code)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("delete coa %s: %w", code, ErrNotFound)
	}

	s.removeObject(ctx, s.fileKey(row))

	err = s.store.DeleteCOA(ctx, row.ID)
	metrics.ObserveCOA("delete", err)
	if err != nil {
		logrus.Errorf("error deleting coa %s: %v", code, err)
		return fmt.Errorf("delete coa %s: %w", code, err)
	}

	logrus.Infof("coa %s deleted", code)
	return nil
}

func (s *COAService) SearchCOAs(ctx context.Context, query string) ([]*COA, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.GetAllCOAs(ctx)
	}

	rows, err := s.store.SearchCOAs(ctx, query)
	metrics.ObserveCOA("search", err)
	if err != nil {
		logrus.Errorf("error searching coas for %q: %v", query, err)
		return nil, fmt.Errorf("search coas: %w", err)
	}
	return toCOAs(rows), nil
}

func (s *COAService) GenerateCOAID(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", s.prefix, s.now().Year())

	codes, err := s.store.ListCOACodes(ctx, prefix)
	metrics.ObserveCOA("generate_id", err)
	if err != nil {
		logrus.Errorf("error generating coa id: %v", err)
		return "", fmt.Errorf("generate coa id: %w", err)
	}

	return nextCOAID(prefix, codes), nil
}

// UploadFile stores a PDF for the COA and points the row at it. The new
// object key and URL are written in the same row update; the previous
// object, if any, is removed afterwards. FileName records the stored
// object name, not the name the file was uploaded under.
func (s *COAService) UploadFile(ctx context.Context, code, fileName string, r io.Reader) (*COA, error) {
	row, err := s.find(ctx, code)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("upload file for %s: %w", code, ErrNotFound)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxCOAFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidFile)
	}
	if len(data) > MaxCOAFileSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidFile, MaxCOAFileSize)
	}
	if mt := mimetype.Detect(data); !mt.Is("application/pdf") {
		return nil, fmt.Errorf("%w: expected a PDF, got %s", ErrInvalidFile, mt.String())
	}

	key := objref.COAKey(row.Code, fileName, s.now())
	info, err := s.blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: "application/pdf",
		Metadata:    map[string]string{"coa-row-id": row.ID, "coa-id": row.Code},
	})
	metrics.ObserveCOA("upload", err)
	if err != nil {
		logrus.Errorf("error uploading file for coa %s: %v", code, err)
		return nil, fmt.Errorf("upload file for %s: %w", code, err)
	}

	previous := s.fileKey(row)
	row.FileName = path.Base(key)
	row.FileSize = info.Size
	row.FileKey = key
	row.FileURL = s.resolver.PublicURL(key)

	if err := s.store.UpdateCOA(ctx, row); err != nil {
		logrus.Errorf("error linking file %s to coa %s: %v", key, code, err)
		s.removeObject(ctx, key)
		return nil, fmt.Errorf("link file for %s: %w", code, err)
	}

	if previous != "" && previous != key {
		s.removeObject(ctx, previous)
	}

	logrus.Infof("file %s attached to coa %s", key, code)
	return toCOA(row), nil
}

// DeleteFile detaches and removes the COA's file, keeping the row.
func (s *COAService) DeleteFile(ctx context.Context, code string) (*COA, error) {
	row, err := s.find(ctx, code)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("delete file for %s: %w", code, ErrNotFound)
	}

	key := s.fileKey(row)
	row.ClearFile()
	if err := s.store.UpdateCOA(ctx, row); err != nil {
		logrus.Errorf("error detaching file from coa %s: %v", code, err)
		return nil, fmt.Errorf("delete file for %s: %w", code, err)
	}
	s.removeObject(ctx, key)
	metrics.ObserveCOA("delete_file", nil)

	return toCOA(row), nil
}

func (s *COAService) find(ctx context.Context, code string) (*model.COA, error) {
	row, err := s.store.GetCOA(ctx, strings.TrimSpace(code))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		logrus.Errorf("error getting coa %s: %v", code, err)
		return nil, fmt.Errorf("get coa %s: %w", code, err)
	}
	return row, nil
}

// fileKey prefers the stored key and falls back to parsing the URL of rows
// written before keys were tracked.
func (s *COAService) fileKey(row *model.COA) string {
	if row.FileKey != "" {
		return row.FileKey
	}
	if key, ok := s.resolver.KeyFromURL(row.FileURL); ok {
		return key
	}
	return ""
}

func (s *COAService) removeObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	existed, err := s.blobs.Delete(ctx, key)
	if err != nil {
		logrus.Warnf("could not remove file %s: %v", key, err)
		return
	}
	if !existed {
		logrus.Warnf("file %s was already missing", key)
	}
}

func validateCOAInput(input COAInput) (COAInput, error) {
	input.CoaID = strings.TrimSpace(input.CoaID)
	input.ClientName = strings.TrimSpace(input.ClientName)
	input.Compound = strings.TrimSpace(input.Compound)
	input.AnalysisType = strings.TrimSpace(input.AnalysisType)
	input.Status = strings.TrimSpace(input.Status)

	if input.CoaID == "" || input.ClientName == "" || input.Compound == "" {
		return input, fmt.Errorf("%w: coa id, client name and compound are required", ErrValidation)
	}
	if !model.ValidAnalysisType(input.AnalysisType) {
		return input, fmt.Errorf("%w: unknown analysis type %q", ErrValidation, input.AnalysisType)
	}
	if !model.ValidStatus(input.Status) {
		return input, fmt.Errorf("%w: unknown status %q", ErrValidation, input.Status)
	}
	if input.Status == "" {
		input.Status = model.StatusPending
	}

	return input, nil
}

func applyCOAInput(row *model.COA, input COAInput) {
	row.Code = input.CoaID
	row.ClientName = input.ClientName
	row.Compound = input.Compound
	row.AnalysisType = input.AnalysisType
	row.TestDate = input.TestDate
	row.Status = input.Status
	row.Purity = input.Purity
	row.Result = input.Result
	row.Notes = input.Notes
}

// nextCOAID returns prefix followed by the highest numeric suffix among codes plus one.
func nextCOAID(prefix string, codes []string) string {
	highest := 0
	for _, code := range codes {
		suffix, ok := strings.CutPrefix(code, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1)
}

func toCOA(row *model.COA) *COA {
	return &COA{
		ID:           row.ID,
		CoaID:        row.Code,
		ClientName:   row.ClientName,
		Compound:     row.Compound,
		AnalysisType: row.AnalysisType,
		TestDate:     row.TestDate,
		Status:       row.Status,
		Purity:       row.Purity,
		Result:       row.Result,
		Notes:        row.Notes,
		FileName:     row.FileName,
		FileSize:     row.FileSize,
		FileURL:      row.FileURL,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toCOAs(rows []*model.COA) []*COA {
	out := make([]*COA, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCOA(row))
	}
	return out
}
