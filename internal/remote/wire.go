package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/redboxergaming-hash/trackerv8/internal/model"
)

// HabitTargets is the habit goal pair stored with a remote person.
type HabitTargets struct {
	WaterGoalMl     int `json:"waterGoalMl"`
	ExerciseGoalMin int `json:"exerciseGoalMin"`
}

type PersonRow struct {
	UserID       string             `json:"user_id"`
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	KcalGoal     int                `json:"kcal_goal"`
	MacroTargets model.MacroTargets `json:"macro_targets_json"`
	HabitTargets HabitTargets       `json:"habit_targets_json"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// EntryRow carries the full entry as payload_json; the indexed columns
// duplicate fields the server filters on.
type EntryRow struct {
	UserID    string          `json:"user_id"`
	ID        string          `json:"id"`
	PersonID  string          `json:"person_id"`
	Date      string          `json:"date"`
	Time      string          `json:"time"`
	Payload   json.RawMessage `json:"payload_json"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductPointerRow records that a user cached a product; nutrition stays
// on the device.
type ProductPointerRow struct {
	UserID      string    `json:"user_id"`
	Barcode     string    `json:"barcode"`
	ProductName string    `json:"product_name"`
	Brands      string    `json:"brands"`
	ImageURL    string    `json:"image_url"`
	Source      string    `json:"source"`
	FetchedAt   time.Time `json:"fetched_at"`
}

func PersonToWire(userID string, p model.Person) PersonRow {
	return PersonRow{
		UserID:       userID,
		ID:           p.ID,
		Name:         p.Name,
		KcalGoal:     p.KcalGoal,
		MacroTargets: p.MacroTargets,
		HabitTargets: HabitTargets{WaterGoalMl: p.WaterGoalMl, ExerciseGoalMin: p.ExerciseGoalMin},
		UpdatedAt:    p.UpdatedAt,
	}
}

func PersonFromWire(row PersonRow) model.Person {
	p := model.Person{
		ID:              row.ID,
		Name:            row.Name,
		KcalGoal:        row.KcalGoal,
		MacroTargets:    row.MacroTargets,
		WaterGoalMl:     row.HabitTargets.WaterGoalMl,
		ExerciseGoalMin: row.HabitTargets.ExerciseGoalMin,
		UpdatedAt:       row.UpdatedAt,
	}
	if p.WaterGoalMl <= 0 {
		p.WaterGoalMl = model.DefaultWaterGoalMl
	}
	if p.ExerciseGoalMin <= 0 {
		p.ExerciseGoalMin = model.DefaultExerciseGoalMin
	}
	return p
}

func EntryToWire(userID string, e model.Entry) (EntryRow, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return EntryRow{}, fmt.Errorf("encode entry %s: %w", e.ID, err)
	}
	return EntryRow{
		UserID:    userID,
		ID:        e.ID,
		PersonID:  e.PersonID,
		Date:      e.Date,
		Time:      e.Time,
		Payload:   payload,
		UpdatedAt: e.UpdatedAt,
	}, nil
}

// EntryFromWire decodes the payload and lets the row's columns win over it.
// The row's updated_at is used when set, otherwise the payload's.
func EntryFromWire(row EntryRow) (model.Entry, error) {
	var e model.Entry
	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &e); err != nil {
			return model.Entry{}, fmt.Errorf("decode entry %s payload: %w", row.ID, err)
		}
	}
	e.ID = row.ID
	if row.PersonID != "" {
		e.PersonID = row.PersonID
	}
	if row.Date != "" {
		e.Date = row.Date
	}
	if row.Time != "" {
		e.Time = row.Time
	}
	if !row.UpdatedAt.IsZero() {
		e.UpdatedAt = row.UpdatedAt
	}
	return e, nil
}

func ProductToWire(userID string, p model.Product) ProductPointerRow {
	return ProductPointerRow{
		UserID:      userID,
		Barcode:     p.Barcode,
		ProductName: p.ProductName,
		Brands:      p.Brands,
		ImageURL:    p.ImageURL,
		Source:      p.Source,
		FetchedAt:   p.FetchedAt,
	}
}
