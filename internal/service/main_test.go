package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/emrgen/coa/internal/blob"
	"github.com/emrgen/coa/internal/objref"
	"github.com/emrgen/coa/internal/tester"
)

const testBaseURL = "http://localhost:4020"

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func testResolver() objref.Resolver {
	return objref.NewResolver(testBaseURL, objref.DefaultBucket)
}

func newTestCOAService(t *testing.T) (*COAService, *blob.Memory) {
	t.Helper()
	blobs := tester.Blobs()
	s := NewCOAService(tester.Store(t), blobs, testResolver(), "ZT")
	s.now = func() time.Time { return time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC) }
	return s, blobs
}

func validInput(code string) COAInput {
	return COAInput{
		CoaID:        code,
		ClientName:   "Acme Peptides",
		Compound:     "BPC-157",
		AnalysisType: "purity",
		TestDate:     "2024-03-12",
	}
}

// brokenBlobs fails every mutation.
type brokenBlobs struct {
	blob.Store
}

func (brokenBlobs) Delete(context.Context, string) (bool, error) {
	return false, errors.New("storage unavailable")
}

func (brokenBlobs) Put(context.Context, string, io.Reader, blob.PutOptions) (blob.Info, error) {
	return blob.Info{}, errors.New("storage unavailable")
}
