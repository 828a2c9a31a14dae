package model

import "gorm.io/gorm"

// Models returns every table model in migration order.
func Models() []any {
	return []any{
		&COA{},
		&ContactSubmission{},
		&SampleSubmission{},
		&NewsletterSubscription{},
		&SiteSetting{},
		&PageContent{},
		&HeroSection{},
		&Service{},
		&Testimonial{},
		&BlogPost{},
		&Media{},
	}
}

// Tables returns the table names the service expects to exist.
func Tables() []string {
	return []string{
		COA{}.TableName(),
		ContactSubmission{}.TableName(),
		SampleSubmission{}.TableName(),
		NewsletterSubscription{}.TableName(),
		SiteSetting{}.TableName(),
		PageContent{}.TableName(),
		HeroSection{}.TableName(),
		Service{}.TableName(),
		Testimonial{}.TableName(),
		BlogPost{}.TableName(),
		Media{}.TableName(),
	}
}

func Migrate(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return err
		}
	}

	return nil
}
