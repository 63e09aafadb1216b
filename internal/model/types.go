package model

import "time"

const (
	DefaultWaterGoalMl     = 2000
	DefaultExerciseGoalMin = 30
)

type MacroTargets struct {
	P *float64 `json:"p" validate:"omitempty,finite,gte=0"`
	C *float64 `json:"c" validate:"omitempty,finite,gte=0"`
	F *float64 `json:"f" validate:"omitempty,finite,gte=0"`
}

type Person struct {
	ID              string             `json:"id" validate:"required"`
	Name            string             `json:"name" validate:"required,max=80"`
	KcalGoal        int                `json:"kcalGoal" validate:"gt=0"`
	MacroTargets    MacroTargets       `json:"macroTargets"`
	MicroTargets    map[string]float64 `json:"microTargets,omitempty" validate:"omitempty,dive,finite,gte=0"`
	WaterGoalMl     int                `json:"waterGoalMl" validate:"gt=0"`
	ExerciseGoalMin int                `json:"exerciseGoalMin" validate:"gt=0"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// Per100g is a food's nutrition normalized to a 100 gram reference quantity.
type Per100g struct {
	Kcal float64 `json:"kcal100g" validate:"finite,gte=0"`
	P    float64 `json:"p100g" validate:"finite,gte=0"`
	C    float64 `json:"c100g" validate:"finite,gte=0"`
	F    float64 `json:"f100g" validate:"finite,gte=0"`
}

type Macros struct {
	Kcal float64 `json:"kcal"`
	P    float64 `json:"p"`
	C    float64 `json:"c"`
	F    float64 `json:"f"`
}

// RecentItem is the food snapshot stored for favorites and recents.
type RecentItem struct {
	FoodID        string   `json:"foodId" validate:"required"`
	Label         string   `json:"label" validate:"required"`
	Nutrition     Per100g  `json:"nutrition"`
	SourceType    string   `json:"sourceType"`
	PieceGramHint *float64 `json:"pieceGramHint,omitempty" validate:"omitempty,finite,gt=0"`
	ImageURL      string   `json:"imageUrl,omitempty"`
}

type Entry struct {
	ID          string             `json:"id"`
	PersonID    string             `json:"personId" validate:"required"`
	Date        string             `json:"date" validate:"required,isodate"`
	Time        string             `json:"time" validate:"omitempty,hhmm"`
	FoodID      string             `json:"foodId"`
	FoodName    string             `json:"foodName" validate:"required"`
	AmountGrams float64            `json:"amountGrams" validate:"finite,gte=0"`
	Kcal        float64            `json:"kcal" validate:"finite,gte=0"`
	P           float64            `json:"p" validate:"finite,gte=0"`
	C           float64            `json:"c" validate:"finite,gte=0"`
	F           float64            `json:"f" validate:"finite,gte=0"`
	Micros      map[string]float64 `json:"micros,omitempty" validate:"omitempty,dive,finite,gte=0"`
	Source      string             `json:"source"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`

	// Recent and LastPortionKey are write-time instructions for AddEntry and
	// are not persisted with the entry.
	Recent         *RecentItem `json:"-"`
	LastPortionKey string      `json:"-"`
}

type Favorite struct {
	ID            string    `json:"id"`
	PersonID      string    `json:"personId"`
	FoodID        string    `json:"foodId"`
	Label         string    `json:"label"`
	Nutrition     Per100g   `json:"nutrition"`
	SourceType    string    `json:"sourceType"`
	PieceGramHint *float64  `json:"pieceGramHint,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Recent struct {
	ID            string    `json:"id"`
	PersonID      string    `json:"personId"`
	FoodID        string    `json:"foodId"`
	Label         string    `json:"label"`
	Nutrition     Per100g   `json:"nutrition"`
	SourceType    string    `json:"sourceType"`
	PieceGramHint *float64  `json:"pieceGramHint,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	UsedAt        time.Time `json:"usedAt"`
}

type WeightLog struct {
	ID          string    `json:"id"`
	PersonID    string    `json:"personId"`
	Date        string    `json:"date"`
	ScaleWeight float64   `json:"scaleWeight"`
	TrendWeight *float64  `json:"trendWeight"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type WaterLog struct {
	ID        string    `json:"id" validate:"required"`
	PersonID  string    `json:"personId" validate:"required"`
	Date      string    `json:"date" validate:"required,isodate"`
	AmountMl  float64   `json:"amountMl" validate:"finite,gt=0"`
	CreatedAt time.Time `json:"createdAt"`
}

type ExerciseLog struct {
	ID        string    `json:"id" validate:"required"`
	PersonID  string    `json:"personId" validate:"required"`
	Date      string    `json:"date" validate:"required,isodate"`
	Minutes   float64   `json:"minutes" validate:"finite,gt=0"`
	CreatedAt time.Time `json:"createdAt"`
}

type FastingLog struct {
	ID        string     `json:"id" validate:"required"`
	PersonID  string     `json:"personId" validate:"required"`
	StartAt   time.Time  `json:"startAt" validate:"required"`
	EndAt     *time.Time `json:"endAt"`
	DateKey   string     `json:"dateKey" validate:"required,isodate"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (f FastingLog) Active() bool { return f.EndAt == nil }

// Duration reports the elapsed fasting time, measured against now for an
// active fast.
func (f FastingLog) Duration(now time.Time) time.Duration {
	end := now
	if f.EndAt != nil {
		end = *f.EndAt
	}
	if end.Before(f.StartAt) {
		return 0
	}
	return end.Sub(f.StartAt)
}

type TemplateItem struct {
	FoodKey      string  `json:"foodKey" validate:"required"`
	Label        string  `json:"label" validate:"required"`
	Per100g      Per100g `json:"per100g"`
	GramsDefault float64 `json:"gramsDefault" validate:"finite,gt=0"`
}

type MealTemplate struct {
	ID        string         `json:"id"`
	Name      string         `json:"name" validate:"required,max=40"`
	Items     []TemplateItem `json:"items" validate:"min=1,dive"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type RecipeItem struct {
	FoodKey string  `json:"foodKey" validate:"required"`
	Label   string  `json:"label" validate:"required"`
	Per100g Per100g `json:"per100g"`
	Grams   float64 `json:"grams" validate:"finite,gt=0"`
}

type Recipe struct {
	ID              string       `json:"id"`
	Name            string       `json:"name" validate:"required,max=60"`
	ServingsDefault float64      `json:"servingsDefault" validate:"finite,gt=0"`
	Items           []RecipeItem `json:"items" validate:"min=1,dive"`
	TotalGrams      float64      `json:"totalGrams"`
	Totals          Macros       `json:"totals"`
	Per100g         Macros       `json:"per100g"`
	PerServing      Macros       `json:"perServing"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

type WeekdayGoal struct {
	Kcal    *float64 `json:"kcal" validate:"omitempty,finite,gte=0"`
	Protein *float64 `json:"protein" validate:"omitempty,finite,gte=0"`
	Carbs   *float64 `json:"carbs" validate:"omitempty,finite,gte=0"`
	Fat     *float64 `json:"fat" validate:"omitempty,finite,gte=0"`
}

type GoalPeriod struct {
	ID           string                 `json:"id"`
	PersonID     string                 `json:"personId" validate:"required"`
	Name         string                 `json:"name" validate:"required,max=80"`
	StartDate    string                 `json:"startDate" validate:"required,isodate"`
	EndDate      string                 `json:"endDate" validate:"required,isodate"`
	WeekdayGoals map[string]WeekdayGoal `json:"weekdayGoals" validate:"dive,keys,weekday,endkeys"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// ResolvedGoal is the effective daily goal for a person on one date.
type ResolvedGoal struct {
	PeriodID     string       `json:"periodId,omitempty"`
	PeriodName   string       `json:"periodName,omitempty"`
	Weekday      string       `json:"weekday,omitempty"`
	KcalGoal     float64      `json:"kcalGoal"`
	MacroTargets MacroTargets `json:"macroTargets"`
}

type ProductNutrition struct {
	Per100g
	SaturatedFat       *float64 `json:"saturatedFat100g,omitempty"`
	MonounsaturatedFat *float64 `json:"monounsaturatedFat100g,omitempty"`
	PolyunsaturatedFat *float64 `json:"polyunsaturatedFat100g,omitempty"`
	Omega3             *float64 `json:"omega3100g,omitempty"`
	Omega6             *float64 `json:"omega6100g,omitempty"`
	TransFat           *float64 `json:"transFat100g,omitempty"`
	Fiber              *float64 `json:"fiber100g,omitempty"`
	Sugar              *float64 `json:"sugar100g,omitempty"`
	SodiumMg           *float64 `json:"sodiumMg100g,omitempty"`
	PotassiumMg        *float64 `json:"potassiumMg100g,omitempty"`
	CalciumMg          *float64 `json:"calciumMg100g,omitempty"`
	IronMg             *float64 `json:"ironMg100g,omitempty"`
	VitaminCMg         *float64 `json:"vitaminCMg100g,omitempty"`
}

type Product struct {
	Barcode     string           `json:"barcode"`
	ProductName string           `json:"productName"`
	Brands      string           `json:"brands"`
	ImageURL    string           `json:"imageUrl,omitempty"`
	Nutrition   ProductNutrition `json:"nutrition"`
	Source      string           `json:"source"`
	FetchedAt   time.Time        `json:"fetchedAt"`
}

type DashboardLayout struct {
	Order  []string        `json:"order"`
	Hidden map[string]bool `json:"hidden"`
}
