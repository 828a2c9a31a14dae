package repair

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/emrgen/coa/internal/blob"
	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/objref"
	"github.com/emrgen/coa/internal/store"
	"github.com/emrgen/coa/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resolver = objref.NewResolver("http://localhost:4020", objref.DefaultBucket)

type fixture struct {
	store store.Store
	blobs blob.Store
}

func newFixture(t *testing.T) *fixture {
	return &fixture{store: tester.Store(t), blobs: tester.Blobs()}
}

func (f *fixture) repairer(dryRun bool) *Repairer {
	r := New(f.store, f.blobs, resolver, Options{DryRun: dryRun})
	r.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return r
}

func (f *fixture) put(t *testing.T, key string) {
	_, err := f.blobs.Put(context.Background(), key, strings.NewReader("%PDF-1.4"), blob.PutOptions{ContentType: "application/pdf"})
	require.NoError(t, err)
}

func (f *fixture) coa(t *testing.T, code, key, url string) *model.COA {
	c := &model.COA{Code: code, ClientName: "Acme", Compound: "BPC-157", FileKey: key, FileURL: url}
	require.NoError(t, f.store.CreateCOA(context.Background(), c))
	return c
}

func (f *fixture) get(t *testing.T, code string) *model.COA {
	c, err := f.store.GetCOA(context.Background(), code)
	require.NoError(t, err)
	return c
}

func TestAudit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.put(t, "coas/ZT-2024-001_1.pdf")
	f.put(t, "coas/ZT-2024-003_3.pdf")
	f.put(t, "coas/orphan_9.pdf")

	f.coa(t, "ZT-2024-001", "coas/ZT-2024-001_1.pdf", resolver.PublicURL("coas/ZT-2024-001_1.pdf"))
	f.coa(t, "ZT-2024-002", "coas/ZT-2024-002_2.pdf", resolver.PublicURL("coas/ZT-2024-002_2.pdf"))
	f.coa(t, "ZT-2024-003", "", "http://localhost:4020/storage/v1/object/public/coa-files/coa-files/coas/ZT-2024-003_3.pdf")
	f.coa(t, "ZT-2024-004", "coas/ZT-2024-001_1.pdf", resolver.PublicURL("coas/ZT-2024-001_1.pdf"))
	f.coa(t, "ZT-2024-005", "", "")

	report, err := f.repairer(false).Audit(ctx)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 5, report.Checked)
	assert.Equal(t, 1, report.Count(IssueMissingFile))
	assert.Equal(t, 1, report.Count(IssueDoubleNested))
	assert.Equal(t, 1, report.Count(IssueSharedURL))
	assert.Equal(t, 1, report.Count(IssueCodeMismatch))
	assert.Equal(t, 1, report.Count(IssueOrphanObject))
	assert.Equal(t, 1, report.Count(IssueUnlinkedKey))

	// audit never writes
	assert.Empty(t, f.get(t, "ZT-2024-003").FileKey)
}

func TestFixNestedURLs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	nested := "http://localhost:4020/storage/v1/object/public/coa-files/coa-files/coas/ZT-2024-001_1.pdf"
	f.put(t, "coas/ZT-2024-001_1.pdf")
	f.coa(t, "ZT-2024-001", "", nested)
	f.coa(t, "ZT-2024-002", "coas/ZT-2024-002_2.pdf", resolver.PublicURL("coas/ZT-2024-002_2.pdf"))

	report, err := f.repairer(true).FixNestedURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(IssueDoubleNested))
	assert.Equal(t, 0, report.Fixed)
	assert.Equal(t, nested, f.get(t, "ZT-2024-001").FileURL)

	report, err = f.repairer(false).FixNestedURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fixed)
	assert.Equal(t, 0, report.Failed)

	fixed := f.get(t, "ZT-2024-001")
	assert.Equal(t, resolver.PublicURL("coas/ZT-2024-001_1.pdf"), fixed.FileURL)
	assert.Equal(t, "coas/ZT-2024-001_1.pdf", fixed.FileKey)
}

func TestFixNestedURLsMovesNestedObject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	nested := "http://localhost:4020/storage/v1/object/public/coa-files/coas/coas/ZT-2024-001_1.pdf"
	f.put(t, "coas/coas/ZT-2024-001_1.pdf")
	f.coa(t, "ZT-2024-001", "coas/coas/ZT-2024-001_1.pdf", nested)

	report, err := f.repairer(true).FixNestedURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(IssueDoubleNested))
	ok, err := blob.Exists(ctx, f.blobs, "coas/ZT-2024-001_1.pdf")
	require.NoError(t, err)
	assert.False(t, ok, "dry run must not copy")

	report, err = f.repairer(false).FixNestedURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fixed)

	fixed := f.get(t, "ZT-2024-001")
	assert.Equal(t, "coas/ZT-2024-001_1.pdf", fixed.FileKey)
	assert.Equal(t, resolver.PublicURL("coas/ZT-2024-001_1.pdf"), fixed.FileURL)

	ok, err = blob.Exists(ctx, f.blobs, fixed.FileKey)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = blob.Exists(ctx, f.blobs, "coas/coas/ZT-2024-001_1.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFixNestedURLsMissingObject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	nested := "http://localhost:4020/storage/v1/object/public/coa-files/coa-files/coas/ZT-2024-001_1.pdf"
	f.coa(t, "ZT-2024-001", "", nested)

	report, err := f.repairer(false).FixNestedURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fixed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Count(IssueMissingFile))

	// the row keeps its original url so nothing points at a missing object
	untouched := f.get(t, "ZT-2024-001")
	assert.Equal(t, nested, untouched.FileURL)
	assert.Empty(t, untouched.FileKey)
}

func TestRelink(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.put(t, "coas/ZT-2024-001_1.pdf")
	f.put(t, "coas/ZT-2024-002_5.pdf")

	f.coa(t, "ZT-2024-001", "", resolver.PublicURL("coas/ZT-2024-001_1.pdf"))
	f.coa(t, "ZT-2024-002", "coas/ZT-2024-002_2.pdf", resolver.PublicURL("coas/ZT-2024-002_2.pdf"))
	f.coa(t, "ZT-2024-003", "coas/ZT-2024-003_3.pdf", resolver.PublicURL("coas/ZT-2024-003_3.pdf"))

	report, err := f.repairer(false).Relink(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Fixed)
	assert.Equal(t, 1, report.Failed)

	assert.Equal(t, "coas/ZT-2024-001_1.pdf", f.get(t, "ZT-2024-001").FileKey)

	relinked := f.get(t, "ZT-2024-002")
	assert.Equal(t, "coas/ZT-2024-002_5.pdf", relinked.FileKey)
	assert.Equal(t, resolver.PublicURL("coas/ZT-2024-002_5.pdf"), relinked.FileURL)

	assert.Equal(t, "coas/ZT-2024-003_3.pdf", f.get(t, "ZT-2024-003").FileKey)
}

func TestReupload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.put(t, "coas/upload_42.pdf")
	f.coa(t, "ZT-2024-001", "coas/upload_42.pdf", resolver.PublicURL("coas/upload_42.pdf"))

	report, err := f.repairer(false).Reupload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fixed)

	moved := f.get(t, "ZT-2024-001")
	assert.True(t, objref.MatchesCode(moved.FileKey, "ZT-2024-001"))
	ok, err := blob.Exists(ctx, f.blobs, moved.FileKey)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = blob.Exists(ctx, f.blobs, "coas/upload_42.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	// already canonical, nothing to do
	report, err = f.repairer(false).Reupload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fixed)
}

func TestRenameCOA(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.put(t, "coas/ZT-2024-001_1.pdf")
	original := f.coa(t, "ZT-2024-001", "coas/ZT-2024-001_1.pdf", resolver.PublicURL("coas/ZT-2024-001_1.pdf"))
	f.coa(t, "ZT-2024-002", "", "")

	_, err := f.repairer(false).RenameCOA(ctx, "ZT-2024-001", "ZT-2024-002")
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = f.repairer(false).RenameCOA(ctx, "ZT-2024-404", "ZT-2024-405")
	assert.ErrorIs(t, err, store.ErrNotFound)

	report, err := f.repairer(false).RenameCOA(ctx, "ZT-2024-001", "ZT-2024-010")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fixed)

	renamed := f.get(t, "ZT-2024-010")
	assert.Equal(t, original.ID, renamed.ID)
	assert.Equal(t, "coas/ZT-2024-010_1700000000000.pdf", renamed.FileKey)

	ok, err := blob.Exists(ctx, f.blobs, "coas/ZT-2024-001_1.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckSchemaAndSeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.repairer(false)

	for _, status := range r.CheckSchema() {
		assert.True(t, status.Exists, status.Table)
	}

	report, err := r.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DemoCOAs), report.Fixed)

	report, err = r.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fixed)

	services, err := f.store.ListServices(ctx, false)
	require.NoError(t, err)
	assert.Len(t, services, 3)
}
