// Package repair detects and fixes drift between COA rows and the objects
// stored for them. Every batch operation handles records one at a time: a
// failing record is logged and counted, never fatal to the batch.
package repair

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/coa/internal/blob"
	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/objref"
	"github.com/emrgen/coa/internal/store"
	"github.com/sirupsen/logrus"
)

type IssueKind string

const (
	IssueMissingFile  IssueKind = "missing_file"
	IssueDoubleNested IssueKind = "double_nested"
	IssueSharedURL    IssueKind = "shared_url"
	IssueCodeMismatch IssueKind = "code_mismatch"
	IssueOrphanObject IssueKind = "orphan_object"
	IssueUnlinkedKey  IssueKind = "unlinked_key"
)

// IssueKinds lists every kind in report order.
var IssueKinds = []IssueKind{IssueMissingFile, IssueDoubleNested, IssueSharedURL, IssueCodeMismatch, IssueOrphanObject, IssueUnlinkedKey}

type Issue struct {
	Kind   IssueKind `json:"kind"`
	Code   string    `json:"code,omitempty"`
	Key    string    `json:"key,omitempty"`
	URL    string    `json:"url,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// Report summarises one run.
type Report struct {
	DryRun  bool    `json:"dryRun"`
	Checked int     `json:"checked"`
	Fixed   int     `json:"fixed"`
	Failed  int     `json:"failed"`
	Issues  []Issue `json:"issues"`
}

func (r *Report) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

func (r *Report) fail(code string, err error) {
	r.Failed++
	logrus.Errorf("repair %s: %v", code, err)
}

// Count returns the number of issues of kind.
func (r *Report) Count(kind IssueKind) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			n++
		}
	}
	return n
}

type Options struct {
	DryRun bool
}

type Repairer struct {
	store    store.Store
	blobs    blob.Store
	resolver objref.Resolver
	dryRun   bool
	now      func() time.Time
}

func New(store store.Store, blobs blob.Store, resolver objref.Resolver, opts Options) *Repairer {
	return &Repairer{store: store, blobs: blobs, resolver: resolver, dryRun: opts.DryRun, now: time.Now}
}

func (r *Repairer) newReport() *Report {
	return &Report{DryRun: r.dryRun, Issues: make([]Issue, 0)}
}

// key is the object key a row points at, preferring the stored key.
func (r *Repairer) key(coa *model.COA) string {
	if coa.FileKey != "" {
		return coa.FileKey
	}
	key, _ := r.resolver.KeyFromURL(coa.FileURL)
	return key
}

// Audit reports every inconsistency without changing anything. Objects
// shared by several COAs are only reported.
func (r *Repairer) Audit(ctx context.Context) (*Report, error) {
	coas, err := r.store.ListCOAs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coas: %w", err)
	}

	report := r.newReport()
	report.DryRun = true
	referenced := mapset.NewSet[string]()
	owners := make(map[string][]string)

	for _, coa := range coas {
		report.Checked++
		if !coa.HasFile() {
			continue
		}

		if coa.FileURL != "" && r.resolver.IsDoubleNested(coa.FileURL) {
			report.add(Issue{Kind: IssueDoubleNested, Code: coa.Code, URL: coa.FileURL})
		}

		key := r.key(coa)
		if key == "" {
			report.add(Issue{Kind: IssueMissingFile, Code: coa.Code, URL: coa.FileURL, Detail: "url does not point into the bucket"})
			continue
		}
		if coa.FileKey == "" {
			report.add(Issue{Kind: IssueUnlinkedKey, Code: coa.Code, Key: key})
		}

		referenced.Add(key)
		owners[key] = append(owners[key], coa.Code)

		ok, err := blob.Exists(ctx, r.blobs, key)
		if err != nil {
			report.fail(coa.Code, err)
			continue
		}
		if !ok {
			report.add(Issue{Kind: IssueMissingFile, Code: coa.Code, Key: key, URL: coa.FileURL})
		}
		if !objref.MatchesCode(key, coa.Code) {
			report.add(Issue{Kind: IssueCodeMismatch, Code: coa.Code, Key: key})
		}
	}

	shared := make([]string, 0)
	for key, codes := range owners {
		if len(codes) > 1 {
			shared = append(shared, key)
		}
	}
	slices.Sort(shared)
	for _, key := range shared {
		report.add(Issue{Kind: IssueSharedURL, Key: key, Detail: fmt.Sprintf("referenced by %v", owners[key])})
	}

	objects, err := r.blobs.List(ctx, "coas/")
	if err != nil {
		return report, fmt.Errorf("list objects: %w", err)
	}
	for _, obj := range objects {
		if !referenced.Contains(obj.Key) {
			report.add(Issue{Kind: IssueOrphanObject, Key: obj.Key})
		}
	}

	logrus.Infof("audit checked %d coas, found %d issues", report.Checked, len(report.Issues))
	return report, nil
}

// FixNestedURLs rewrites double nested file URLs to their canonical form.
// When the object itself sits under the nested key it is copied to the
// canonical key first, so a row never ends up pointing at a missing object.
func (r *Repairer) FixNestedURLs(ctx context.Context) (*Report, error) {
	coas, err := r.store.ListCOAs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coas: %w", err)
	}

	report := r.newReport()
	for _, coa := range coas {
		report.Checked++
		if coa.FileURL == "" || !r.resolver.IsDoubleNested(coa.FileURL) {
			continue
		}

		canonical, _ := r.resolver.Normalize(coa.FileURL)
		key, _ := r.resolver.KeyFromURL(coa.FileURL)
		stored := coa.FileKey
		if stored == "" {
			stored, _ = r.resolver.RawKeyFromURL(coa.FileURL)
		}

		atCanonical, err := blob.Exists(ctx, r.blobs, key)
		if err != nil {
			report.fail(coa.Code, err)
			continue
		}
		atStored := false
		if !atCanonical && stored != "" && stored != key {
			if atStored, err = blob.Exists(ctx, r.blobs, stored); err != nil {
				report.fail(coa.Code, err)
				continue
			}
		}
		if !atCanonical && !atStored {
			report.add(Issue{Kind: IssueMissingFile, Code: coa.Code, Key: key, URL: coa.FileURL, Detail: "no object under the nested or canonical key"})
			report.Failed++
			continue
		}

		detail := "rewritten to " + canonical
		if atStored {
			detail = "object moved from " + stored + " to " + key
		}
		report.add(Issue{Kind: IssueDoubleNested, Code: coa.Code, Key: key, URL: coa.FileURL, Detail: detail})
		if r.dryRun {
			continue
		}

		if atStored {
			if _, err := blob.Copy(ctx, r.blobs, stored, key); err != nil {
				report.fail(coa.Code, err)
				continue
			}
		}

		coa.FileURL = canonical
		coa.FileKey = key
		if err := r.store.UpdateCOA(ctx, coa); err != nil {
			if atStored {
				if _, derr := r.blobs.Delete(ctx, key); derr != nil {
					logrus.Warnf("could not remove copy %s: %v", key, derr)
				}
			}
			report.fail(coa.Code, err)
			continue
		}

		if atStored {
			r.removeUnshared(ctx, stored, coa.ID)
		}
		report.Fixed++
	}

	return report, nil
}

// removeUnshared deletes key unless a COA other than id still references it.
func (r *Repairer) removeUnshared(ctx context.Context, key, id string) {
	shared, err := r.sharedKey(ctx, key, id)
	if err != nil {
		logrus.Warnf("could not check references to %s: %v", key, err)
		return
	}
	if shared {
		return
	}
	if _, err := r.blobs.Delete(ctx, key); err != nil {
		logrus.Warnf("could not remove old object %s: %v", key, err)
	}
}

// Relink records missing file keys and points COAs whose object is gone at
// an object in the bucket carrying their code, newest first.
func (r *Repairer) Relink(ctx context.Context) (*Report, error) {
	coas, err := r.store.ListCOAs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coas: %w", err)
	}
	objects, err := r.blobs.List(ctx, "coas/")
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	slices.SortFunc(objects, func(a, b blob.Info) int {
		return b.LastModified.Compare(a.LastModified)
	})

	report := r.newReport()
	for _, coa := range coas {
		report.Checked++

		key := r.key(coa)
		exists := false
		if key != "" {
			exists, err = blob.Exists(ctx, r.blobs, key)
			if err != nil {
				report.fail(coa.Code, err)
				continue
			}
		}

		switch {
		case exists && coa.FileKey == key:
			continue
		case exists:
			report.add(Issue{Kind: IssueUnlinkedKey, Code: coa.Code, Key: key, Detail: "key recorded"})
			if err := r.link(ctx, coa, blob.Info{Key: key, Size: coa.FileSize}, coa.FileName); err != nil {
				report.fail(coa.Code, err)
				continue
			}
		case !coa.HasFile() && key == "":
			// rows that never had a file are left alone unless an object matches
			match, ok := findByCode(objects, coa.Code)
			if !ok {
				continue
			}
			report.add(Issue{Kind: IssueMissingFile, Code: coa.Code, Key: match.Key, Detail: "linked to matching object"})
			if err := r.link(ctx, coa, match, path.Base(match.Key)); err != nil {
				report.fail(coa.Code, err)
				continue
			}
		default:
			match, ok := findByCode(objects, coa.Code)
			if !ok {
				report.add(Issue{Kind: IssueMissingFile, Code: coa.Code, Key: key, Detail: "no matching object found"})
				report.Failed++
				continue
			}
			report.add(Issue{Kind: IssueMissingFile, Code: coa.Code, Key: match.Key, Detail: "relinked from " + key})
			if err := r.link(ctx, coa, match, path.Base(match.Key)); err != nil {
				report.fail(coa.Code, err)
				continue
			}
		}

		if !r.dryRun {
			report.Fixed++
		}
	}

	return report, nil
}

func (r *Repairer) link(ctx context.Context, coa *model.COA, obj blob.Info, fileName string) error {
	if r.dryRun {
		return nil
	}
	coa.FileKey = obj.Key
	coa.FileURL = r.resolver.PublicURL(obj.Key)
	if fileName != "" {
		coa.FileName = fileName
	}
	if obj.Size > 0 {
		coa.FileSize = obj.Size
	}
	return r.store.UpdateCOA(ctx, coa)
}

func findByCode(objects []blob.Info, code string) (blob.Info, bool) {
	for _, obj := range objects {
		if objref.MatchesCode(obj.Key, code) {
			return obj, true
		}
	}
	return blob.Info{}, false
}

// Reupload copies the objects of the given COAs (every COA whose object is
// not named after its code when none are given) to the canonical name for
// their code and relinks them. The old object is removed afterwards unless
// another COA still references it.
func (r *Repairer) Reupload(ctx context.Context, codes ...string) (*Report, error) {
	coas, err := r.selectCOAs(ctx, codes)
	if err != nil {
		return nil, err
	}

	usage := make(map[string]int)
	all, err := r.store.ListCOAs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coas: %w", err)
	}
	for _, coa := range all {
		if key := r.key(coa); key != "" {
			usage[key]++
		}
	}

	report := r.newReport()
	for _, coa := range coas {
		report.Checked++
		old := r.key(coa)
		if old == "" {
			continue
		}
		if len(codes) == 0 && objref.MatchesCode(old, coa.Code) {
			continue
		}

		report.add(Issue{Kind: IssueCodeMismatch, Code: coa.Code, Key: old, Detail: "copied to canonical name"})
		if r.dryRun {
			continue
		}

		if err := r.moveFile(ctx, coa, coa.Code, old, usage[old] <= 1); err != nil {
			report.fail(coa.Code, err)
			continue
		}
		usage[old]--
		report.Fixed++
	}

	return report, nil
}

// RenameCOA changes a COA's code and carries its file over to a name
// matching the new code.
func (r *Repairer) RenameCOA(ctx context.Context, oldCode, newCode string) (*Report, error) {
	report := r.newReport()
	report.Checked = 1

	coa, err := r.store.GetCOA(ctx, oldCode)
	if err != nil {
		return nil, fmt.Errorf("get coa %s: %w", oldCode, err)
	}
	if _, err := r.store.GetCOA(ctx, newCode); err == nil {
		return nil, fmt.Errorf("rename to %s: %w", newCode, store.ErrDuplicate)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	report.add(Issue{Kind: IssueCodeMismatch, Code: oldCode, Detail: "renamed to " + newCode})
	if r.dryRun {
		return report, nil
	}

	old := r.key(coa)
	exists := false
	if old != "" {
		if exists, err = blob.Exists(ctx, r.blobs, old); err != nil {
			return nil, err
		}
	}
	if !exists {
		if old != "" {
			logrus.Warnf("file %s of %s is missing; renaming without moving it", old, oldCode)
		}
		coa.Code = newCode
		if err := r.store.UpdateCOA(ctx, coa); err != nil {
			return nil, fmt.Errorf("rename %s: %w", oldCode, err)
		}
		report.Fixed++
		return report, nil
	}

	shared, err := r.sharedKey(ctx, old, coa.ID)
	if err != nil {
		return nil, err
	}
	if err := r.moveFile(ctx, coa, newCode, old, !shared); err != nil {
		return nil, fmt.Errorf("rename %s: %w", oldCode, err)
	}
	report.Fixed++
	logrus.Infof("coa %s renamed to %s", oldCode, newCode)
	return report, nil
}

// moveFile copies old to the canonical key for code, writes code and the
// new key onto the row, then deletes old when removeOld is set.
func (r *Repairer) moveFile(ctx context.Context, coa *model.COA, code, old string, removeOld bool) error {
	name := coa.FileName
	if name == "" {
		name = path.Base(old)
	}
	key := objref.COAKey(code, name, r.now())

	info, err := blob.Copy(ctx, r.blobs, old, key)
	if err != nil {
		return err
	}

	coa.Code = code
	coa.FileKey = key
	coa.FileURL = r.resolver.PublicURL(key)
	coa.FileName = path.Base(key)
	coa.FileSize = info.Size
	if err := r.store.UpdateCOA(ctx, coa); err != nil {
		if _, derr := r.blobs.Delete(ctx, key); derr != nil {
			logrus.Warnf("could not remove copy %s: %v", key, derr)
		}
		return err
	}

	if removeOld {
		if _, err := r.blobs.Delete(ctx, old); err != nil {
			logrus.Warnf("could not remove old object %s: %v", old, err)
		}
	}
	return nil
}

// sharedKey reports whether a COA other than id references key.
func (r *Repairer) sharedKey(ctx context.Context, key, id string) (bool, error) {
	coas, err := r.store.ListCOAs(ctx)
	if err != nil {
		return false, fmt.Errorf("list coas: %w", err)
	}
	for _, coa := range coas {
		if coa.ID != id && r.key(coa) == key {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repairer) selectCOAs(ctx context.Context, codes []string) ([]*model.COA, error) {
	if len(codes) == 0 {
		coas, err := r.store.ListCOAs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list coas: %w", err)
		}
		return coas, nil
	}

	coas := make([]*model.COA, 0, len(codes))
	for _, code := range codes {
		coa, err := r.store.GetCOA(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("get coa %s: %w", code, err)
		}
		coas = append(coas, coa)
	}
	return coas, nil
}

// TableStatus tells whether an expected table exists.
type TableStatus struct {
	Table  string `json:"table"`
	Exists bool   `json:"exists"`
}

// CheckSchema reports which of the expected tables exist.
func (r *Repairer) CheckSchema() []TableStatus {
	out := make([]TableStatus, 0)
	for _, table := range model.Tables() {
		out = append(out, TableStatus{Table: table, Exists: r.store.HasTable(table)})
	}
	return out
}
