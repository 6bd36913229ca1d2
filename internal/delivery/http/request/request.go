package request

// SubmitCrawlRequest asks for a crawl of Pages result pages.
type SubmitCrawlRequest struct {
	Pages int `json:"pages"`
}
