package entity

// StopReason tells why a walk ended.
type StopReason string

const (
	StopCompleted    StopReason = "completed"
	StopEndOfResults StopReason = "end_of_results"
	StopNoNextPage   StopReason = "no_next_page"
	StopCancelled    StopReason = "cancelled"
)

// ResultSet is the outcome of one crawl run.
type ResultSet struct {
	Records      []ListingRecord `json:"records"`
	Skips        []PageSkip      `json:"skips,omitempty"`
	PagesVisited int             `json:"pages_visited"`
	StopReason   StopReason      `json:"stop_reason"`
	Locality     string          `json:"localidade"`
	Region       string          `json:"estado"`
}

// Len returns the number of records in the set; a nil set has none.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}

// OffsetIDs shifts every sequence ID so that the first possible ID becomes firstID.
func (r *ResultSet) OffsetIDs(firstID int64) {
	if r == nil || firstID <= 1 {
		return
	}
	for i := range r.Records {
		r.Records[i].SequenceID += firstID - 1
	}
}
