package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
)

// SeedDemoData resets both tables and inserts a small demo catalog plus a
// few decisions for the "demo" user, so a fresh checkout has something to
// swipe on.
//
// Compatible with both MySQL and SQLite (sequence reset differs per driver).
func SeedDemoData(db *gorm.DB) error {
	if err := db.Exec("DELETE FROM swipes").Error; err != nil {
		return fmt.Errorf("failed to clear swipes: %w", err)
	}
	if err := db.Exec("DELETE FROM opportunities").Error; err != nil {
		return fmt.Errorf("failed to clear opportunities: %w", err)
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE opportunities AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'opportunities'")
	}

	log.Println("Cleared existing data")

	opportunities := []Opportunity{
		{
			Title:        "Heart Disease Prevention Study",
			Description:  "Research on early detection of cardiovascular disease, studying lifestyle interventions in adults aged 35-65.",
			Organization: "Stanford Medical Center",
			Location:     "Palo Alto, CA",
			Category:     CategoryClinicalTrial,
			Requirements: "Ages 35-65, no current heart conditions, 6-month commitment",
			Compensation: "$500 upon completion",
			URL:          "https://clinicaltrials.gov/study/NCT12345678",
			ImageURL:     "https://via.placeholder.com/400x200?text=Heart+Study",
		},
		{
			Title:        "Mental Health Research Volunteer",
			Description:  "Study on stress reduction techniques examining the effectiveness of mindfulness-based interventions.",
			Organization: "UCLA Health",
			Location:     "Los Angeles, CA",
			Category:     CategoryResearch,
			Requirements: "Ages 18-55, experiencing mild to moderate stress",
			Compensation: "$200 stipend",
			URL:          "https://clinicaltrials.gov/study/NCT87654321",
			ImageURL:     "https://via.placeholder.com/400x200?text=Mental+Health",
		},
		{
			Title:        "Cancer Support Volunteer",
			Description:  "Provide emotional support and companionship to cancer patients during treatment sessions. Training provided.",
			Organization: "Memorial Sloan Kettering",
			Location:     "New York, NY",
			Category:     CategoryVolunteer,
			Requirements: "18+, completed background check, 3-month commitment minimum",
			Compensation: "None",
			URL:          "https://mskcc.org/volunteer",
			ImageURL:     "https://via.placeholder.com/400x200?text=Cancer+Support",
		},
		{
			Title:        "Diabetes Management Trial",
			Description:  "Testing a new continuous glucose monitoring system over a 3-month study period.",
			Organization: "Mayo Clinic",
			Location:     "Rochester, MN",
			Category:     CategoryClinicalTrial,
			Requirements: "Type 2 diabetes, ages 21-70, stable medication regimen",
			Compensation: "$750 plus free monitoring device",
			URL:          "https://clinicaltrials.gov/study/NCT11223344",
			ImageURL:     "https://via.placeholder.com/400x200?text=Diabetes+Trial",
		},
		{
			Title:        "Sleep Pattern Research",
			Description:  "Two-week at-home study tracking sleep quality with a wearable sensor.",
			Organization: "Johns Hopkins Medicine",
			Location:     "Baltimore, MD",
			Category:     CategoryResearch,
			Requirements: "Ages 25-60, regular sleep schedule, no sleep medication",
			Compensation: "$150",
			URL:          "https://clinicaltrials.gov/study/NCT55667788",
			ImageURL:     "https://via.placeholder.com/400x200?text=Sleep+Study",
		},
		{
			Title:        "Hospice Companion Volunteer",
			Description:  "Weekly visits offering companionship and respite support to hospice patients and their families.",
			Organization: "VITAS Healthcare",
			Location:     "Miami, FL",
			Category:     CategoryVolunteer,
			Requirements: "18+, orientation attendance, weekly availability",
			Compensation: "None",
			URL:          "https://vitas.com/volunteer",
			ImageURL:     "https://via.placeholder.com/400x200?text=Hospice+Care",
		},
	}

	for i := range opportunities {
		// Stagger creation times so the feed order is deterministic.
		opportunities[i].CreatedAt = time.Now().Add(-time.Duration(len(opportunities)-i) * time.Minute)
		if err := db.Create(&opportunities[i]).Error; err != nil {
			return fmt.Errorf("failed to seed opportunity: %w", err)
		}
	}
	log.Printf("Seeded %d opportunities.", len(opportunities))

	// Give the demo user a bit of history: accepted the oldest, rejected the
	// second oldest. Create with explicit columns so the FK association is
	// not touched.
	swipes := []Swipe{
		{UserID: "demo", OpportunityID: opportunities[0].ID, Direction: DirectionAccept},
		{UserID: "demo", OpportunityID: opportunities[1].ID, Direction: DirectionReject},
	}
	for i := range swipes {
		if err := db.Omit("Opportunity").Create(&swipes[i]).Error; err != nil {
			return fmt.Errorf("failed to seed swipe: %w", err)
		}
	}

	return nil
}
