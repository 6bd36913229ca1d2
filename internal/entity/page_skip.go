package entity

// PageSkip records a result page that was abandoned while the walk went on.
type PageSkip struct {
	Page   int    `json:"page"`
	Reason string `json:"reason"`
}
