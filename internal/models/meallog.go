package models

// Macros holds the macronutrient breakdown of a dish in grams.
type Macros struct {
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	Proteins float64 `json:"proteins"`
}

// Dish is one analyzed component of a meal.
type Dish struct {
	Name     string `json:"name"`
	Calories int    `json:"calories"`
	Macros   Macros `json:"macros"`
}

// MealLog is a logged meal stored under users/{ownerUid}/mealLogs/{id}.
// Content and privacy are mutated only by the owner; the likes set is
// mutated by any user (add/remove self only).
type MealLog struct {
	ID            string   `json:"id"`
	OwnerUID      string   `json:"ownerUid"`
	Description   string   `json:"description"`
	TotalCalories int      `json:"totalCalories"`
	Dishes        []Dish   `json:"dishes"`
	Timestamp     int64    `json:"timestamp"`
	IsPublic      bool     `json:"isPublic"`
	Likes         []string `json:"likes"`
}

// LikedBy reports whether uid is in the like set.
func (m *MealLog) LikedBy(uid string) bool {
	for _, l := range m.Likes {
		if l == uid {
			return true
		}
	}
	return false
}

// FeedEntry is a read-only projection of a friend's public meal log,
// enriched with the owner's resolved display name. Never persisted.
type FeedEntry struct {
	MealLog
	OwnerName string `json:"ownerName"`
}
