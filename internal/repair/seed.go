package repair

import (
	"context"
	"errors"

	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/store"
	"github.com/sirupsen/logrus"
)

func ptr[T any](v T) *T { return &v }

// DemoCOAs are the sample certificates inserted by Seed.
var DemoCOAs = []model.COA{
	{Code: "ZT-2024-001", ClientName: "Acme Peptides", Compound: "BPC-157", AnalysisType: model.AnalysisPurity, TestDate: "2024-01-15", Status: model.StatusPublished, Purity: ptr(99.2), Result: ptr("Pass")},
	{Code: "ZT-2024-002", ClientName: "Northwind Research", Compound: "TB-500", AnalysisType: model.AnalysisFullPanel, TestDate: "2024-02-03", Status: model.StatusCompleted, Purity: ptr(98.7), Result: ptr("Pass")},
	{Code: "ZT-2024-003", ClientName: "Contoso Labs", Compound: "GHK-Cu", AnalysisType: model.AnalysisIdentity, TestDate: "2024-02-20", Status: model.StatusInProgress},
}

var demoServices = []model.Service{
	{Title: "Purity Analysis", Description: "HPLC purity with full chromatogram.", Price: "$150", Icon: "flask", SortOrder: 1, Active: true},
	{Title: "Identity Confirmation", Description: "Mass spectrometry identity check.", Price: "$120", Icon: "fingerprint", SortOrder: 2, Active: true},
	{Title: "Full Panel", Description: "Purity, identity, endotoxin and heavy metals.", Price: "$400", Icon: "clipboard", SortOrder: 3, Active: true},
}

var demoTestimonials = []model.Testimonial{
	{Author: "J. Rivera", Company: "Acme Peptides", Quote: "Fast turnaround and clear reports.", Rating: 5, Active: true},
	{Author: "M. Chen", Company: "Northwind Research", Quote: "The full panel caught an issue our supplier missed.", Rating: 5, Active: true},
}

var demoSettings = map[string]string{
	"company_name":  "Zeta Testing Labs",
	"contact_email": "lab@example.com",
	"turnaround":    "5-7 business days",
}

// Seed inserts demo rows. COAs already present by code are skipped, and
// content is only seeded into empty tables.
func (r *Repairer) Seed(ctx context.Context) (*Report, error) {
	report := r.newReport()

	for _, demo := range DemoCOAs {
		report.Checked++
		_, err := r.store.GetCOA(ctx, demo.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			report.fail(demo.Code, err)
			continue
		}
		if r.dryRun {
			report.Fixed++
			continue
		}
		coa := demo
		if err := r.store.CreateCOA(ctx, &coa); err != nil {
			report.fail(demo.Code, err)
			continue
		}
		report.Fixed++
	}

	if r.dryRun {
		return report, nil
	}

	services, err := r.store.ListServices(ctx, true)
	if err != nil {
		return report, err
	}
	if len(services) == 0 {
		for _, demo := range demoServices {
			s := demo
			if err := r.store.SaveService(ctx, &s); err != nil {
				report.fail(s.Title, err)
			}
		}
	}

	testimonials, err := r.store.ListTestimonials(ctx, true)
	if err != nil {
		return report, err
	}
	if len(testimonials) == 0 {
		for _, demo := range demoTestimonials {
			t := demo
			if err := r.store.SaveTestimonial(ctx, &t); err != nil {
				report.fail(t.Author, err)
			}
		}
	}

	settings, err := r.store.ListSiteSettings(ctx)
	if err != nil {
		return report, err
	}
	if len(settings) == 0 {
		for key, value := range demoSettings {
			if err := r.store.UpsertSiteSetting(ctx, &model.SiteSetting{Key: key, Value: value}); err != nil {
				report.fail(key, err)
			}
		}
	}

	logrus.Infof("seeded %d coas", report.Fixed)
	return report, nil
}
